package identity

import (
	"context"
	"time"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

// Lockout policy constants shared by both principal kinds.
const (
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

// Employee represents an employee principal.
type Employee struct {
	ID           id.ID      `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"firstName"`
	LastName     string     `db:"last_name" json:"lastName"`
	Phone        string     `db:"phone" json:"phone"`
	EmployeeCode string     `db:"employee_code" json:"employeeCode,omitempty"`

	RoleTier     RoleTier   `db:"role_tier" json:"roleTier"`
	Department   Department `db:"department" json:"department,omitempty"`
	Region       Region     `db:"region" json:"region,omitempty"`
	SupervisorID *id.ID     `db:"supervisor_id" json:"supervisorId,omitempty"`
	CreatedByID  *id.ID     `db:"created_by_id" json:"createdById,omitempty"`

	ProfilePictureURL string `db:"profile_picture_url" json:"profilePictureUrl,omitempty"`

	IsActive       bool       `db:"is_active" json:"isActive"`
	FailedAttempts int        `db:"failed_attempts" json:"-"`
	LockedUntil    *time.Time `db:"locked_until" json:"-"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`

	ResetTokenHash   string     `db:"reset_token_hash" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Version   int       `db:"version" json:"version"`
}

// NewEmployee creates an employee principal with defaults applied.
func NewEmployee(username, email, passwordHash string, tier RoleTier) *Employee {
	now := time.Now()
	return &Employee{
		ID:           id.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		RoleTier:     tier,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// Validate enforces the structural invariants of the principal model.
func (e *Employee) Validate(ctx context.Context) error {
	if e.Username == "" {
		return apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if e.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if !e.RoleTier.Valid() {
		return apperror.NewValidation("invalid role tier").WithDetail("field", "roleTier")
	}

	if e.RoleTier != TierSuperAdmin {
		if !e.Department.Valid() {
			return apperror.NewValidation("department is required").WithDetail("field", "department")
		}
		if !e.Region.Valid() {
			return apperror.NewValidation("region is required").WithDetail("field", "region")
		}
		if e.CreatedByID == nil {
			return apperror.NewValidation("creator reference is required").WithDetail("field", "createdBy")
		}
	}

	if e.RoleTier == TierEmployee && e.SupervisorID == nil {
		return apperror.NewValidation("supervisor is required for employee tier").
			WithDetail("field", "supervisor")
	}
	if e.RoleTier != TierEmployee && e.SupervisorID != nil {
		return apperror.NewValidation("supervisor is only assignable to employee tier").
			WithDetail("field", "supervisor")
	}

	return nil
}

// IsLocked returns true if the account lockout window is still open.
func (e *Employee) IsLocked() bool {
	return e.lockedAt(time.Now())
}

func (e *Employee) lockedAt(now time.Time) bool {
	return e.LockedUntil != nil && now.Before(*e.LockedUntil)
}

// RecordFailedLogin applies the lockout policy for one failed attempt.
// A failure after a lock has expired restarts the counter at 1. A failure
// while still locked increments the counter but never extends the lock.
func (e *Employee) RecordFailedLogin(now time.Time) {
	if e.LockedUntil != nil && !e.lockedAt(now) {
		e.LockedUntil = nil
		e.FailedAttempts = 1
		return
	}

	wasLocked := e.lockedAt(now)
	e.FailedAttempts++
	if e.FailedAttempts >= MaxLoginAttempts && !wasLocked {
		until := now.Add(LockDuration)
		e.LockedUntil = &until
	}
}

// RecordSuccessfulLogin clears the failure state and stamps last login.
func (e *Employee) RecordSuccessfulLogin(now time.Time) {
	e.FailedAttempts = 0
	e.LockedUntil = nil
	e.LastLoginAt = &now
}

// Subject returns the authorization view of this principal.
func (e *Employee) Subject() Subject {
	return Subject{
		ID:         e.ID,
		Tier:       e.RoleTier,
		Department: e.Department,
		Region:     e.Region,
		Kind:       AccountEmployee,
	}
}

// FullName returns the employee's display name.
func (e *Employee) FullName() string {
	switch {
	case e.FirstName == "" && e.LastName == "":
		return e.Username
	case e.LastName == "":
		return e.FirstName
	case e.FirstName == "":
		return e.LastName
	}
	return e.FirstName + " " + e.LastName
}
