package identity

import (
	"context"

	"visualeyes/internal/core/id"
)

// EmployeeRepository defines employee storage operations.
type EmployeeRepository interface {
	// Create creates a new employee.
	Create(ctx context.Context, employee *Employee) error

	// GetByID retrieves an employee by ID.
	GetByID(ctx context.Context, employeeID id.ID) (*Employee, error)

	// GetByIdentifier retrieves an employee by username or email.
	GetByIdentifier(ctx context.Context, identifier string) (*Employee, error)

	// GetByResetTokenHash retrieves an employee by password reset token hash.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Employee, error)

	// Update updates employee data with optimistic locking on version.
	Update(ctx context.Context, employee *Employee) error

	// List retrieves employees matching the filter, with total count.
	List(ctx context.Context, filter EmployeeFilter) ([]Employee, int, error)

	// FindActiveSupervisor finds an active supervisor in the given
	// department and region, oldest account first.
	FindActiveSupervisor(ctx context.Context, department Department, region Region) (*Employee, error)

	// FindSalesHead finds an active sales-department supervisor for the
	// region. Customers registering in that region are assigned to it.
	FindSalesHead(ctx context.Context, region Region) (*Employee, error)

	// FindDuplicateField reports which unique field (username, email or
	// phone) is already taken, or "" when none is.
	FindDuplicateField(ctx context.Context, username, email, phone string) (string, error)

	// NextCodeSequence returns the next employee-code sequence number for
	// the given year. Must be called inside a transaction.
	NextCodeSequence(ctx context.Context, year int) (int, error)
}

// EmployeeFilter for listing employees.
type EmployeeFilter struct {
	Search       string
	RoleTier     RoleTier
	Department   Department
	Region       Region
	SupervisorID *id.ID
	IsActive     *bool
	Limit        int
	Offset       int
}
