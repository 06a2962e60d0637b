// Package customer provides customer principals, onboarding and the
// two-stage approval workflow.
package customer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

// Customer represents a customer principal (an optical shop buying from
// the plant). Accounts are created by employees and stay inactive until
// the approval workflow completes.
type Customer struct {
	ID           id.ID  `db:"id" json:"id"`
	CustomerCode string `db:"customer_code" json:"customerCode"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`

	ShopName  string          `db:"shop_name" json:"shopName"`
	OwnerName string          `db:"owner_name" json:"ownerName"`
	Phone     string          `db:"phone" json:"phone"`
	Region    identity.Region `db:"region" json:"region"`

	GSTNumber         string `db:"gst_number" json:"gstNumber,omitempty"`
	GSTCertificateURL string `db:"gst_certificate_url" json:"gstCertificateUrl,omitempty"`
	PANNumber         string `db:"pan_number" json:"panNumber,omitempty"`

	CreditLimit  decimal.Decimal `db:"credit_limit" json:"creditLimit"`
	CreditAmount decimal.Decimal `db:"credit_amount" json:"creditAmount"`
	CreditDays   int             `db:"credit_days" json:"creditDays"`

	OrderMode string `db:"order_mode" json:"orderMode,omitempty"`

	AssignedSalesRepID *id.ID `db:"assigned_sales_rep_id" json:"assignedSalesRepId,omitempty"`
	CreatedByID        *id.ID `db:"created_by_id" json:"createdById,omitempty"`

	IsActive         bool       `db:"is_active" json:"isActive"`
	IsSuspended      bool       `db:"is_suspended" json:"isSuspended"`
	SuspensionReason string     `db:"suspension_reason" json:"suspensionReason,omitempty"`
	SuspendedByID    *id.ID     `db:"suspended_by_id" json:"-"`
	SuspendedAt      *time.Time `db:"suspended_at" json:"suspendedAt,omitempty"`

	EmailVerified bool       `db:"email_verified" json:"emailVerified"`
	OTPHash       string     `db:"otp_hash" json:"-"`
	OTPExpiry     *time.Time `db:"otp_expiry" json:"-"`

	FailedAttempts int        `db:"failed_attempts" json:"-"`
	LockedUntil    *time.Time `db:"locked_until" json:"-"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`

	ResetTokenHash   string     `db:"reset_token_hash" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`

	Approval Approval `db:"-" json:"approval"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Version   int       `db:"version" json:"version"`
}

// NewCustomer creates a customer pending approval. Accounts start
// inactive; only a completed approval workflow activates them.
func NewCustomer(username, email, passwordHash string) *Customer {
	now := time.Now()
	return &Customer{
		ID:           id.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     false,
		Approval:     NewApproval(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// Validate enforces the structural invariants of the customer model.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Username == "" {
		return apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if c.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if c.ShopName == "" {
		return apperror.NewValidation("shop name is required").WithDetail("field", "shopName")
	}
	if !c.Region.Valid() {
		return apperror.NewValidation("region is required").WithDetail("field", "region")
	}
	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit cannot be negative").WithDetail("field", "creditLimit")
	}
	if c.CreditDays < 0 {
		return apperror.NewValidation("credit days cannot be negative").WithDetail("field", "creditDays")
	}
	return nil
}

func (c *Customer) lockedAt(now time.Time) bool {
	return c.LockedUntil != nil && now.Before(*c.LockedUntil)
}

// RecordFailedLogin applies the shared lockout policy: threshold locks
// for the lock duration, a failure after expiry restarts the counter,
// a failure while locked never extends the lock.
func (c *Customer) RecordFailedLogin(now time.Time) {
	if c.LockedUntil != nil && !c.lockedAt(now) {
		c.LockedUntil = nil
		c.FailedAttempts = 1
		return
	}

	wasLocked := c.lockedAt(now)
	c.FailedAttempts++
	if c.FailedAttempts >= identity.MaxLoginAttempts && !wasLocked {
		until := now.Add(identity.LockDuration)
		c.LockedUntil = &until
	}
}

// RecordSuccessfulLogin clears the failure state and stamps last login.
func (c *Customer) RecordSuccessfulLogin(now time.Time) {
	c.FailedAttempts = 0
	c.LockedUntil = nil
	c.LastLoginAt = &now
}

// Suspend marks the account suspended. Suspension is reversible, unlike
// a rejection.
func (c *Customer) Suspend(by id.ID, reason string, now time.Time) {
	c.IsSuspended = true
	c.SuspensionReason = reason
	c.SuspendedByID = &by
	c.SuspendedAt = &now
}

// Subject returns the authorization view of this principal.
func (c *Customer) Subject() identity.Subject {
	return identity.Subject{
		ID:     c.ID,
		Tier:   identity.TierCustomer,
		Region: c.Region,
		Kind:   identity.AccountCustomer,
	}
}
