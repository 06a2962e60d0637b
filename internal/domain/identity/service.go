// Package identity provides employee principals, role/scope authorization
// and authentication for the platform.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/core/tx"
	"visualeyes/internal/domain/audit"
	"visualeyes/internal/notify"
	"visualeyes/pkg/logger"
)

// ServiceConfig holds identity service configuration.
type ServiceConfig struct {
	BcryptCost        int
	PasswordMinLength int
	ResetTokenTTL     time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BcryptCost:        12,
		PasswordMinLength: 8,
		ResetTokenTTL:     10 * time.Minute,
	}
}

// Service provides employee account management and authentication.
type Service struct {
	repo      EmployeeRepository
	txManager tx.Manager
	tokens    *TokenService
	resolver  *Resolver
	notifier  notify.Notifier
	auditor   audit.Recorder
	config    ServiceConfig
	now       func() time.Time
}

// NewService creates an identity service.
func NewService(
	repo EmployeeRepository,
	txManager tx.Manager,
	tokens *TokenService,
	resolver *Resolver,
	notifier notify.Notifier,
	auditor audit.Recorder,
	config ServiceConfig,
) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		tokens:    tokens,
		resolver:  resolver,
		notifier:  notifier,
		auditor:   auditor,
		config:    config,
		now:       time.Now,
	}
}

// Credentials for employee login. Identifier is a username or email.
type Credentials struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// Login authenticates an employee, applying the lockout policy, and
// returns a token pair. The account status checks run in a fixed order:
// existence, active, locked, then password.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *Employee, error) {
	now := s.now()

	employee, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(creds.Identifier))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewInvalidCredentials()
		}
		return nil, nil, fmt.Errorf("find employee: %w", err)
	}

	if !employee.IsActive {
		return nil, nil, apperror.NewAccountInactive()
	}
	if employee.lockedAt(now) {
		return nil, nil, apperror.NewAccountLocked()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(creds.Password)); err != nil {
		employee.RecordFailedLogin(now)
		if uerr := s.repo.Update(ctx, employee); uerr != nil {
			logger.Warn(ctx, "failed to persist login failure",
				"employee_id", employee.ID, "error", uerr)
		}
		return nil, nil, apperror.NewInvalidCredentials()
	}

	employee.RecordSuccessfulLogin(now)
	if err := s.repo.Update(ctx, employee); err != nil {
		logger.Warn(ctx, "failed to persist login success",
			"employee_id", employee.ID, "error", err)
	}

	pair, err := s.tokens.IssuePair(employee.Subject())
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	logger.Info(ctx, "employee logged in",
		"employee_id", employee.ID,
		"role_tier", employee.RoleTier)

	return &pair, employee, nil
}

// RefreshToken validates a refresh token and mints a new access token.
// An access token presented here is rejected with INVALID_TOKEN_TYPE.
// The token is stateless, so the account is re-checked against the store
// before a new access token is issued.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	claims, err := s.tokens.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	sub, err := claims.AuthzSubject()
	if err != nil {
		return "", time.Time{}, err
	}

	if sub.Kind == AccountEmployee {
		employee, err := s.repo.GetByID(ctx, sub.ID)
		if err != nil {
			return "", time.Time{}, apperror.NewInvalidRefreshToken()
		}
		if !employee.IsActive {
			return "", time.Time{}, apperror.NewAccountInactive()
		}
		if employee.lockedAt(s.now()) {
			return "", time.Time{}, apperror.NewAccountLocked()
		}
		// Role or scope changes since issuance take effect on refresh.
		sub = employee.Subject()
	}

	return s.tokens.IssueAccessToken(sub)
}

// CreateEmployeeRequest carries the fields for a new employee account.
type CreateEmployeeRequest struct {
	Username     string     `json:"username" binding:"required"`
	Email        string     `json:"email" binding:"required,email"`
	Password     string     `json:"password" binding:"required"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Phone        string     `json:"phone"`
	RoleTier     RoleTier   `json:"roleTier" binding:"required"`
	Department   Department `json:"department"`
	Region       Region     `json:"region"`
	SupervisorID *id.ID     `json:"supervisorId"`
}

// creatableTiers maps an actor tier to the tiers it may create.
var creatableTiers = map[RoleTier]map[RoleTier]bool{
	TierSuperAdmin: {TierSubAdmin: true, TierSupervisor: true, TierEmployee: true},
	TierSubAdmin:   {TierSupervisor: true, TierEmployee: true},
	TierSupervisor: {TierEmployee: true},
}

// CreateEmployee creates an employee account subordinate to the actor.
func (s *Service) CreateEmployee(ctx context.Context, actor Subject, req CreateEmployeeRequest) (*Employee, error) {
	if err := s.resolver.CanAct(actor, ActionEmployeeCreate, nil); err != nil {
		return nil, err
	}
	if !creatableTiers[actor.Tier][req.RoleTier] {
		return nil, apperror.NewForbidden(
			fmt.Sprintf("%s cannot create %s accounts", actor.Tier, req.RoleTier))
	}
	if err := s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	// Supervisors create only inside their own scope.
	if actor.Tier == TierSupervisor {
		if req.Department != actor.Department || req.Region != actor.Region {
			return nil, apperror.NewForbidden("cannot create accounts outside your department and region")
		}
	}

	if req.RoleTier == TierEmployee {
		if req.SupervisorID == nil && actor.Tier == TierSupervisor {
			req.SupervisorID = &actor.ID
		}
		if req.SupervisorID == nil {
			supervisor, err := s.repo.FindActiveSupervisor(ctx, req.Department, req.Region)
			if err != nil {
				if apperror.IsNotFound(err) {
					return nil, apperror.NewNoSupervisorFound(string(req.Department), string(req.Region))
				}
				return nil, fmt.Errorf("find supervisor: %w", err)
			}
			req.SupervisorID = &supervisor.ID
		} else if err := s.resolver.ValidateSupervisorAssignment(actor, *req.SupervisorID); err != nil {
			return nil, err
		} else if actor.Tier != TierSupervisor {
			supervisor, err := s.repo.GetByID(ctx, *req.SupervisorID)
			if err != nil {
				return nil, apperror.NewNotFound("supervisor", req.SupervisorID.String())
			}
			if supervisor.RoleTier != TierSupervisor || !supervisor.IsActive {
				return nil, apperror.NewValidation("assigned supervisor must be an active supervisor").
					WithDetail("field", "supervisorId")
			}
			if supervisor.Department != req.Department || supervisor.Region != req.Region {
				return nil, apperror.NewValidation("supervisor must share the employee's department and region").
					WithDetail("field", "supervisorId")
			}
		}
	}

	field, err := s.repo.FindDuplicateField(ctx, req.Username, req.Email, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("check unique fields: %w", err)
	}
	if field != "" {
		return nil, apperror.NewDuplicateField(field)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	employee := NewEmployee(strings.TrimSpace(req.Username), strings.ToLower(strings.TrimSpace(req.Email)), string(passwordHash), req.RoleTier)
	employee.FirstName = req.FirstName
	employee.LastName = req.LastName
	employee.Phone = req.Phone
	employee.Department = req.Department
	employee.Region = req.Region
	employee.SupervisorID = req.SupervisorID
	employee.CreatedByID = &actor.ID

	if err := employee.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		seq, err := s.repo.NextCodeSequence(ctx, s.now().Year())
		if err != nil {
			return fmt.Errorf("next code sequence: %w", err)
		}
		employee.EmployeeCode = FormatEmployeeCode(employee.RoleTier, employee.Department, employee.Region, s.now().Year(), seq)

		if err := s.repo.Create(ctx, employee); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.NewEntry("employee", employee.ID, audit.ActionCreate, actor.ID, map[string]any{
		"employeeCode": employee.EmployeeCode,
		"roleTier":     employee.RoleTier,
		"department":   employee.Department,
		"region":       employee.Region,
	}))

	logger.Info(ctx, "employee created",
		"employee_id", employee.ID,
		"employee_code", employee.EmployeeCode,
		"role_tier", employee.RoleTier,
		"created_by", actor.ID)

	s.sendAsync(ctx, notify.Message{
		To:       employee.Email,
		Template: notify.TemplateWelcomeEmployee,
		Payload: map[string]any{
			"name":         employee.FullName(),
			"employeeCode": employee.EmployeeCode,
		},
	})

	return employee, nil
}

// GetEmployee loads an employee the actor is allowed to see.
func (s *Service) GetEmployee(ctx context.Context, actor Subject, employeeID id.ID) (*Employee, error) {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	target := employee.Subject()
	if err := s.resolver.CanAct(actor, ActionEmployeeView, &target); err != nil {
		return nil, err
	}
	return employee, nil
}

// ListEmployees lists employees, narrowing the filter to the actor's
// visibility scope before querying.
func (s *Service) ListEmployees(ctx context.Context, actor Subject, filter EmployeeFilter) ([]Employee, int, error) {
	if err := s.resolver.CanAct(actor, ActionEmployeeView, nil); err != nil {
		return nil, 0, err
	}

	switch actor.Tier {
	case TierSuperAdmin, TierSubAdmin:
		// Unrestricted.
	case TierSupervisor, TierEmployee:
		filter.Department = actor.Department
		filter.Region = actor.Region
	default:
		return nil, 0, apperror.NewForbidden("insufficient privileges")
	}

	return s.repo.List(ctx, filter)
}

// UpdateEmployeeRequest carries mutable employee fields. Nil pointers
// leave the field unchanged.
type UpdateEmployeeRequest struct {
	FirstName         *string     `json:"firstName"`
	LastName          *string     `json:"lastName"`
	Phone             *string     `json:"phone"`
	ProfilePictureURL *string     `json:"profilePictureUrl"`
	Department        *Department `json:"department"`
	Region            *Region     `json:"region"`
	SupervisorID      *id.ID      `json:"supervisorId"`
}

// UpdateEmployee applies profile changes. Department, region and
// supervisor reassignment require an admin tier.
func (s *Service) UpdateEmployee(ctx context.Context, actor Subject, employeeID id.ID, req UpdateEmployeeRequest) (*Employee, error) {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	target := employee.Subject()
	if err := s.resolver.CanAct(actor, ActionEmployeeUpdate, &target); err != nil {
		return nil, err
	}

	scopeChange := req.Department != nil || req.Region != nil || req.SupervisorID != nil
	if scopeChange && actor.Tier != TierSuperAdmin && actor.Tier != TierSubAdmin {
		return nil, apperror.NewForbidden("reassignment requires admin privileges")
	}

	if req.FirstName != nil {
		employee.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		employee.LastName = *req.LastName
	}
	if req.Phone != nil {
		if *req.Phone != employee.Phone {
			field, err := s.repo.FindDuplicateField(ctx, "", "", *req.Phone)
			if err != nil {
				return nil, fmt.Errorf("check unique fields: %w", err)
			}
			if field != "" {
				return nil, apperror.NewDuplicateField(field)
			}
		}
		employee.Phone = *req.Phone
	}
	if req.ProfilePictureURL != nil {
		employee.ProfilePictureURL = *req.ProfilePictureURL
	}
	if req.Department != nil {
		employee.Department = *req.Department
	}
	if req.Region != nil {
		employee.Region = *req.Region
	}
	if req.SupervisorID != nil {
		employee.SupervisorID = req.SupervisorID
	}

	if err := employee.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, err
	}

	logger.Info(ctx, "employee updated", "employee_id", employee.ID, "updated_by", actor.ID)
	return employee, nil
}

// DeactivateEmployee disables an account. Deactivation is idempotent.
func (s *Service) DeactivateEmployee(ctx context.Context, actor Subject, employeeID id.ID) error {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		return err
	}
	target := employee.Subject()
	if err := s.resolver.CanAct(actor, ActionEmployeeDeactivate, &target); err != nil {
		return err
	}
	if !employee.IsActive {
		return nil
	}

	employee.IsActive = false
	if err := s.repo.Update(ctx, employee); err != nil {
		return err
	}

	s.record(ctx, audit.NewEntry("employee", employee.ID, audit.ActionDeactivate, actor.ID, map[string]any{
		"employeeCode": employee.EmployeeCode,
	}))

	logger.Info(ctx, "employee deactivated", "employee_id", employee.ID, "deactivated_by", actor.ID)
	return nil
}

// ForgotPassword issues a password reset token and dispatches it. The
// response never reveals whether the account exists.
func (s *Service) ForgotPassword(ctx context.Context, identifier string) error {
	employee, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Debug(ctx, "password reset requested for unknown account")
			return nil
		}
		return fmt.Errorf("find employee: %w", err)
	}

	rawToken, err := generateRandomToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiry := s.now().Add(s.config.ResetTokenTTL)
	employee.ResetTokenHash = hashToken(rawToken)
	employee.ResetTokenExpiry = &expiry
	if err := s.repo.Update(ctx, employee); err != nil {
		return err
	}

	s.sendAsync(ctx, notify.Message{
		To:       employee.Email,
		Template: notify.TemplatePasswordReset,
		Payload: map[string]any{
			"name":  employee.FullName(),
			"token": rawToken,
		},
	})

	logger.Info(ctx, "password reset token issued", "employee_id", employee.ID)
	return nil
}

// ResetPassword completes a password reset with the emailed token.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	employee, err := s.repo.GetByResetTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidToken("reset token is invalid or already used")
		}
		return fmt.Errorf("find employee: %w", err)
	}
	if employee.ResetTokenExpiry == nil || s.now().After(*employee.ResetTokenExpiry) {
		return apperror.NewInvalidToken("reset token has expired")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	employee.PasswordHash = string(passwordHash)
	employee.ResetTokenHash = ""
	employee.ResetTokenExpiry = nil
	employee.FailedAttempts = 0
	employee.LockedUntil = nil

	if err := s.repo.Update(ctx, employee); err != nil {
		return err
	}

	logger.Info(ctx, "password reset completed", "employee_id", employee.ID)
	return nil
}

// UpdatePassword changes the caller's own password.
func (s *Service) UpdatePassword(ctx context.Context, actorID id.ID, currentPassword, newPassword string) error {
	if err := s.validatePassword(newPassword); err != nil {
		return err
	}

	employee, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(currentPassword)); err != nil {
		return apperror.NewInvalidCredentials()
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	employee.PasswordHash = string(passwordHash)

	if err := s.repo.Update(ctx, employee); err != nil {
		return err
	}

	logger.Info(ctx, "password updated", "employee_id", employee.ID)
	return nil
}

func (s *Service) validatePassword(password string) error {
	if len(password) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}
	return nil
}

func (s *Service) record(ctx context.Context, entry audit.Entry) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		logger.Warn(ctx, "audit record failed",
			"entity_id", entry.EntityID, "action", entry.Action, "error", err)
	}
}

// sendAsync dispatches a notification without blocking the request.
func (s *Service) sendAsync(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.notifier.Send(detached, msg); err != nil {
			logger.Warn(detached, "notification delivery failed",
				"template", msg.Template, "error", err)
		}
	}()
}

// tierCodes are the employee-code prefixes per tier.
var tierCodes = map[RoleTier]string{
	TierSuperAdmin: "SA",
	TierSubAdmin:   "SUB",
	TierSupervisor: "SUP",
	TierEmployee:   "EMP",
}

// FormatEmployeeCode builds the human-readable employee code, e.g.
// EMP-LAB-NORTH-2026-0042.
func FormatEmployeeCode(tier RoleTier, department Department, region Region, year, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%d-%04d",
		tierCodes[tier], department, region, year, seq)
}

// hashToken creates a SHA256 hash of a token for at-rest storage.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random hex token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
