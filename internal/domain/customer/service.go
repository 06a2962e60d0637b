package customer

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/core/tx"
	"visualeyes/internal/domain/audit"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/notify"
	"visualeyes/pkg/logger"
)

// ServiceConfig holds customer service configuration.
type ServiceConfig struct {
	BcryptCost        int
	PasswordMinLength int
	ResetTokenTTL     time.Duration
	OTPTTL            time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		BcryptCost:        12,
		PasswordMinLength: 8,
		ResetTokenTTL:     10 * time.Minute,
		OTPTTL:            10 * time.Minute,
	}
}

// Service provides customer onboarding, authentication and the approval
// workflow.
type Service struct {
	repo      Repository
	salesDir  SalesDirectory
	txManager tx.Manager
	tokens    *identity.TokenService
	resolver  *identity.Resolver
	notifier  notify.Notifier
	auditor   audit.Recorder
	config    ServiceConfig
	now       func() time.Time
}

// NewService creates a customer service.
func NewService(
	repo Repository,
	salesDir SalesDirectory,
	txManager tx.Manager,
	tokens *identity.TokenService,
	resolver *identity.Resolver,
	notifier notify.Notifier,
	auditor audit.Recorder,
	config ServiceConfig,
) *Service {
	return &Service{
		repo:      repo,
		salesDir:  salesDir,
		txManager: txManager,
		tokens:    tokens,
		resolver:  resolver,
		notifier:  notifier,
		auditor:   auditor,
		config:    config,
		now:       time.Now,
	}
}

// RegisterRequest carries the fields for a new customer account.
type RegisterRequest struct {
	Username  string          `json:"username" binding:"required"`
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required"`
	ShopName  string          `json:"shopName" binding:"required"`
	OwnerName string          `json:"ownerName"`
	Phone     string          `json:"phone"`
	Region    identity.Region `json:"region" binding:"required"`

	GSTNumber         string `json:"gstNumber"`
	GSTCertificateURL string `json:"gstCertificateUrl"`
	PANNumber         string `json:"panNumber"`

	CreditLimit decimal.Decimal `json:"creditLimit"`
	CreditDays  int             `json:"creditDays"`
	OrderMode   string          `json:"orderMode"`
}

// Register creates a customer account pending approval. The caller must
// be an employee authorized for customer management; the new account is
// assigned to the sales head of its region.
func (s *Service) Register(ctx context.Context, actor identity.Subject, req RegisterRequest) (*Customer, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCustomerCreate, nil); err != nil {
		return nil, err
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	salesHead, err := s.salesDir.FindSalesHead(ctx, req.Region)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNoSalesHead(string(req.Region))
		}
		return nil, fmt.Errorf("find sales head: %w", err)
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

	c := NewCustomer(strings.TrimSpace(req.Username), strings.ToLower(strings.TrimSpace(req.Email)), string(passwordHash))
	c.ShopName = req.ShopName
	c.OwnerName = req.OwnerName
	c.Phone = req.Phone
	c.Region = req.Region
	c.GSTNumber = req.GSTNumber
	c.GSTCertificateURL = req.GSTCertificateURL
	c.PANNumber = req.PANNumber
	c.CreditLimit = req.CreditLimit
	c.CreditDays = req.CreditDays
	c.OrderMode = req.OrderMode
	c.AssignedSalesRepID = &salesHead.ID
	c.CreatedByID = &actor.ID

	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	otpExpiry := s.now().Add(s.config.OTPTTL)
	c.OTPHash = hashSecret(otp)
	c.OTPExpiry = &otpExpiry

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		seq, err := s.repo.NextCodeSequence(ctx)
		if err != nil {
			return fmt.Errorf("next code sequence: %w", err)
		}
		c.CustomerCode = FormatCustomerCode(seq)

		if err := s.repo.Create(ctx, c); err != nil {
			return fmt.Errorf("create customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, audit.NewEntry("customer", c.ID, audit.ActionCreate, actor.ID, map[string]any{
		"customerCode": c.CustomerCode,
		"shopName":     c.ShopName,
		"region":       c.Region,
	}))

	// Verification OTP must reach the customer; a publish failure here is
	// a hard error. The welcome mail below is best-effort.
	if err := s.notifier.Send(ctx, notify.Message{
		To:       c.Email,
		Template: notify.TemplateEmailOTP,
		Payload:  map[string]any{"otp": otp, "shopName": c.ShopName},
	}); err != nil {
		return nil, fmt.Errorf("dispatch otp: %w", err)
	}

	s.sendAsync(ctx, notify.Message{
		To:       c.Email,
		Template: notify.TemplateWelcomeCustomer,
		Payload: map[string]any{
			"customerCode": c.CustomerCode,
			"shopName":     c.ShopName,
		},
	})

	logger.Info(ctx, "customer registered",
		"customer_id", c.ID,
		"customer_code", c.CustomerCode,
		"region", c.Region,
		"created_by", actor.ID)

	return c, nil
}

// Login authenticates a customer. Status checks run in a fixed order:
// existence, active, locked, suspended, then password. A customer whose
// approval never completed (or was rejected) is inactive and fails at
// the active check.
func (s *Service) Login(ctx context.Context, creds identity.Credentials) (*identity.TokenPair, *Customer, error) {
	now := s.now()

	c, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(creds.Identifier))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil, apperror.NewInvalidCredentials()
		}
		return nil, nil, fmt.Errorf("find customer: %w", err)
	}

	if !c.IsActive {
		return nil, nil, apperror.NewAccountInactive()
	}
	if c.lockedAt(now) {
		return nil, nil, apperror.NewAccountLocked()
	}
	if c.IsSuspended {
		return nil, nil, apperror.NewAccountSuspended(c.SuspensionReason)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(creds.Password)); err != nil {
		c.RecordFailedLogin(now)
		if uerr := s.repo.Update(ctx, c); uerr != nil {
			logger.Warn(ctx, "failed to persist login failure",
				"customer_id", c.ID, "error", uerr)
		}
		return nil, nil, apperror.NewInvalidCredentials()
	}

	c.RecordSuccessfulLogin(now)
	if err := s.repo.Update(ctx, c); err != nil {
		logger.Warn(ctx, "failed to persist login success",
			"customer_id", c.ID, "error", err)
	}

	pair, err := s.tokens.IssuePair(c.Subject())
	if err != nil {
		return nil, nil, fmt.Errorf("issue tokens: %w", err)
	}

	logger.Info(ctx, "customer logged in", "customer_id", c.ID)
	return &pair, c, nil
}

// VerifyEmail confirms the account email with the OTP sent at
// registration.
func (s *Service) VerifyEmail(ctx context.Context, identifier, otp string) error {
	c, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidCredentials()
		}
		return fmt.Errorf("find customer: %w", err)
	}
	if c.EmailVerified {
		return nil
	}
	if c.OTPHash == "" || c.OTPExpiry == nil || s.now().After(*c.OTPExpiry) {
		return apperror.NewInvalidToken("verification code has expired")
	}
	if hashSecret(otp) != c.OTPHash {
		return apperror.NewInvalidToken("verification code is incorrect")
	}

	c.EmailVerified = true
	c.OTPHash = ""
	c.OTPExpiry = nil
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	logger.Info(ctx, "customer email verified", "customer_id", c.ID)
	return nil
}

// GetProfile loads a customer visible to the actor. A customer principal
// sees only its own record.
func (s *Service) GetProfile(ctx context.Context, actor identity.Subject, customerID id.ID) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	target := c.Subject()
	if err := s.resolver.CanAct(actor, identity.ActionCustomerView, &target); err != nil {
		return nil, err
	}
	return c, nil
}

// List lists customers, narrowing the filter to the actor's region below
// the admin tiers.
func (s *Service) List(ctx context.Context, actor identity.Subject, filter Filter) ([]Customer, int, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCustomerView, nil); err != nil {
		return nil, 0, err
	}
	if actor.Tier != identity.TierSuperAdmin && actor.Tier != identity.TierSubAdmin {
		filter.Region = actor.Region
	}
	return s.repo.List(ctx, filter)
}

// PendingFinanceApprovals lists applications waiting on the finance stage.
func (s *Service) PendingFinanceApprovals(ctx context.Context, actor identity.Subject, filter Filter) ([]Customer, int, error) {
	if err := s.resolver.CanAct(actor, identity.ActionFinanceReview, nil); err != nil {
		return nil, 0, err
	}
	filter.ApprovalStatus = StatusPending
	return s.listPending(ctx, actor, filter)
}

// PendingSalesApprovals lists applications waiting on the sales stage.
func (s *Service) PendingSalesApprovals(ctx context.Context, actor identity.Subject, filter Filter) ([]Customer, int, error) {
	if err := s.resolver.CanAct(actor, identity.ActionSalesReview, nil); err != nil {
		return nil, 0, err
	}
	filter.ApprovalStatus = StatusFinanceApproved
	return s.listPending(ctx, actor, filter)
}

// listPending runs the approval-queue query in a read-only transaction so
// the page and its total count come from one snapshot.
func (s *Service) listPending(ctx context.Context, actor identity.Subject, filter Filter) ([]Customer, int, error) {
	if actor.Tier != identity.TierSuperAdmin && actor.Tier != identity.TierSubAdmin {
		filter.Region = actor.Region
	}

	var (
		customers []Customer
		total     int
	)
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		customers, total, err = s.repo.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// FinanceReview applies the finance-stage decision.
func (s *Service) FinanceReview(ctx context.Context, actor identity.Subject, customerID id.ID, d Decision) (*Customer, error) {
	return s.review(ctx, actor, customerID, d, identity.ActionFinanceReview)
}

// SalesReview applies the sales-stage decision. Approval here activates
// the account; rejection keeps it permanently inactive.
func (s *Service) SalesReview(ctx context.Context, actor identity.Subject, customerID id.ID, d Decision) (*Customer, error) {
	return s.review(ctx, actor, customerID, d, identity.ActionSalesReview)
}

func (s *Service) review(ctx context.Context, actor identity.Subject, customerID id.ID, d Decision, action identity.Action) (*Customer, error) {
	if err := s.resolver.CanAct(actor, action, nil); err != nil {
		return nil, err
	}

	var c *Customer
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.GetByID(ctx, customerID)
		if err != nil {
			return err
		}

		// Re-check with the loaded record so region scoping applies.
		target := c.Subject()
		if err := s.resolver.CanAct(actor, action, &target); err != nil {
			return err
		}

		now := s.now()
		if action == identity.ActionFinanceReview {
			err = c.Approval.ApplyFinance(d, actor.ID, now)
		} else {
			err = c.Approval.ApplySales(d, actor.ID, now)
		}
		if err != nil {
			return err
		}

		// Account activation tracks the workflow outcome.
		c.IsActive = c.Approval.Status == StatusSalesApproved
		return s.repo.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	auditAction := audit.ActionApprove
	if !d.Approve {
		auditAction = audit.ActionReject
	}
	s.record(ctx, audit.NewEntry("customer", c.ID, auditAction, actor.ID, map[string]any{
		"stage":   string(action),
		"status":  c.Approval.Status,
		"remarks": d.Remarks,
	}))

	s.sendAsync(ctx, notify.Message{
		To:       c.Email,
		Template: notify.TemplateApprovalDecision,
		Payload: map[string]any{
			"shopName": c.ShopName,
			"status":   c.Approval.Status,
			"remarks":  d.Remarks,
		},
	})

	logger.Info(ctx, "customer reviewed",
		"customer_id", c.ID,
		"stage", action,
		"status", c.Approval.Status,
		"reviewed_by", actor.ID)

	return c, nil
}

// Suspend suspends a customer account. Requires an admin tier.
func (s *Service) Suspend(ctx context.Context, actor identity.Subject, customerID id.ID, reason string) (*Customer, error) {
	if err := s.resolver.CanAct(actor, identity.ActionCustomerSuspend, nil); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperror.NewValidation("suspension reason is required").WithDetail("field", "reason")
	}

	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.IsSuspended {
		return c, nil
	}

	c.Suspend(actor.ID, reason, s.now())
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, audit.NewEntry("customer", c.ID, audit.ActionSuspend, actor.ID, map[string]any{
		"reason": reason,
	}))

	s.sendAsync(ctx, notify.Message{
		To:       c.Email,
		Template: notify.TemplateAccountSuspended,
		Payload:  map[string]any{"shopName": c.ShopName, "reason": reason},
	})

	logger.Info(ctx, "customer suspended",
		"customer_id", c.ID, "suspended_by", actor.ID)
	return c, nil
}

// UpdateRequest carries mutable customer profile fields.
type UpdateRequest struct {
	ShopName          *string          `json:"shopName"`
	OwnerName         *string          `json:"ownerName"`
	Phone             *string          `json:"phone"`
	GSTNumber         *string          `json:"gstNumber"`
	GSTCertificateURL *string          `json:"gstCertificateUrl"`
	PANNumber         *string          `json:"panNumber"`
	CreditLimit       *decimal.Decimal `json:"creditLimit"`
	CreditDays        *int             `json:"creditDays"`
	OrderMode         *string          `json:"orderMode"`
}

// Update applies profile changes. Credit terms require an employee actor;
// customers may only touch their own contact fields.
func (s *Service) Update(ctx context.Context, actor identity.Subject, customerID id.ID, req UpdateRequest) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	target := c.Subject()
	if err := s.resolver.CanAct(actor, identity.ActionCustomerUpdate, &target); err != nil {
		return nil, err
	}

	creditChange := req.CreditLimit != nil || req.CreditDays != nil
	if creditChange && actor.Kind != identity.AccountEmployee {
		return nil, apperror.NewForbidden("credit terms are set by employees only")
	}

	if req.ShopName != nil {
		c.ShopName = *req.ShopName
	}
	if req.OwnerName != nil {
		c.OwnerName = *req.OwnerName
	}
	if req.Phone != nil {
		if *req.Phone != c.Phone {
			field, err := s.repo.FindDuplicateField(ctx, "", "", *req.Phone)
			if err != nil {
				return nil, fmt.Errorf("check unique fields: %w", err)
			}
			if field != "" {
				return nil, apperror.NewDuplicateField(field)
			}
		}
		c.Phone = *req.Phone
	}
	if req.GSTNumber != nil {
		c.GSTNumber = *req.GSTNumber
	}
	if req.GSTCertificateURL != nil {
		c.GSTCertificateURL = *req.GSTCertificateURL
	}
	if req.PANNumber != nil {
		c.PANNumber = *req.PANNumber
	}
	if req.CreditLimit != nil {
		c.CreditLimit = *req.CreditLimit
	}
	if req.CreditDays != nil {
		c.CreditDays = *req.CreditDays
	}
	if req.OrderMode != nil {
		c.OrderMode = *req.OrderMode
	}

	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	logger.Info(ctx, "customer updated", "customer_id", c.ID, "updated_by", actor.ID)
	return c, nil
}

// ForgotPassword issues a password reset token and dispatches it. The
// response never reveals whether the account exists.
func (s *Service) ForgotPassword(ctx context.Context, identifier string) error {
	c, err := s.repo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Debug(ctx, "password reset requested for unknown customer")
			return nil
		}
		return fmt.Errorf("find customer: %w", err)
	}

	rawToken, err := generateRandomToken(32)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiry := s.now().Add(s.config.ResetTokenTTL)
	c.ResetTokenHash = hashSecret(rawToken)
	c.ResetTokenExpiry = &expiry
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	s.sendAsync(ctx, notify.Message{
		To:       c.Email,
		Template: notify.TemplatePasswordReset,
		Payload:  map[string]any{"shopName": c.ShopName, "token": rawToken},
	})

	logger.Info(ctx, "customer password reset token issued", "customer_id", c.ID)
	return nil
}

// ResetPassword completes a password reset with the emailed token.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	c, err := s.repo.GetByResetTokenHash(ctx, hashSecret(rawToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewInvalidToken("reset token is invalid or already used")
		}
		return fmt.Errorf("find customer: %w", err)
	}
	if c.ResetTokenExpiry == nil || s.now().After(*c.ResetTokenExpiry) {
		return apperror.NewInvalidToken("reset token has expired")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	c.PasswordHash = string(passwordHash)
	c.ResetTokenHash = ""
	c.ResetTokenExpiry = nil
	c.FailedAttempts = 0
	c.LockedUntil = nil

	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	logger.Info(ctx, "customer password reset completed", "customer_id", c.ID)
	return nil
}

// UpdatePassword changes the calling customer's own password.
func (s *Service) UpdatePassword(ctx context.Context, customerID id.ID, currentPassword, newPassword string) error {
	if len(newPassword) < s.config.PasswordMinLength {
		return apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	c, err := s.repo.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(currentPassword)); err != nil {
		return apperror.NewInvalidCredentials()
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	c.PasswordHash = string(passwordHash)

	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}

	logger.Info(ctx, "customer password updated", "customer_id", c.ID)
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

// FormatCustomerCode builds the human-readable customer code, e.g.
// CUS00042.
func FormatCustomerCode(seq int) string {
	return fmt.Sprintf("CUS%05d", seq)
}

// generateOTP returns a 6 digit one-time code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// hashSecret creates a SHA256 hash for at-rest token/OTP storage.
func hashSecret(secret string) string {
	hash := sha256.Sum256([]byte(secret))
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
