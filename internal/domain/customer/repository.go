package customer

import (
	"context"

	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

// Repository defines customer storage operations.
type Repository interface {
	// Create creates a new customer.
	Create(ctx context.Context, customer *Customer) error

	// GetByID retrieves a customer by ID.
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)

	// GetByIdentifier retrieves a customer by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*Customer, error)

	// GetByResetTokenHash retrieves a customer by password reset token hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Customer, error)

	// Update updates customer data with optimistic locking on version.
	Update(ctx context.Context, customer *Customer) error

	// List retrieves customers matching the filter, with total count.
	List(ctx context.Context, filter Filter) ([]Customer, int, error)

	// FindDuplicateField reports which unique field (username, email or
	// phone) is already taken, or "" when none is.
	FindDuplicateField(ctx context.Context, username, email, phone string) (string, error)

	// NextCodeSequence returns the next customer-code sequence number.
	// Must be called inside a transaction.
	NextCodeSequence(ctx context.Context) (int, error)
}

// Filter for listing customers.
type Filter struct {
	Search         string
	Region         identity.Region
	ApprovalStatus ApprovalStatus
	SalesRepID     *id.ID
	IsActive       *bool
	IsSuspended    *bool
	Limit          int
	Offset         int
}

// SalesDirectory resolves the sales supervisor responsible for a region.
// The identity employee repository satisfies it.
type SalesDirectory interface {
	FindSalesHead(ctx context.Context, region identity.Region) (*identity.Employee, error)
}
