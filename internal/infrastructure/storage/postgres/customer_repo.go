package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/customer"
	"visualeyes/internal/domain/identity"
)

const customerTable = "customers"

// customerRow flattens the embedded approval record into table columns.
type customerRow struct {
	ID           id.ID  `db:"id"`
	CustomerCode string `db:"customer_code"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`

	ShopName  string          `db:"shop_name"`
	OwnerName string          `db:"owner_name"`
	Phone     string          `db:"phone"`
	Region    identity.Region `db:"region"`

	GSTNumber         string `db:"gst_number"`
	GSTCertificateURL string `db:"gst_certificate_url"`
	PANNumber         string `db:"pan_number"`

	CreditLimit  decimal.Decimal `db:"credit_limit"`
	CreditAmount decimal.Decimal `db:"credit_amount"`
	CreditDays   int             `db:"credit_days"`
	OrderMode    string          `db:"order_mode"`

	AssignedSalesRepID *id.ID `db:"assigned_sales_rep_id"`
	CreatedByID        *id.ID `db:"created_by_id"`

	IsActive         bool       `db:"is_active"`
	IsSuspended      bool       `db:"is_suspended"`
	SuspensionReason string     `db:"suspension_reason"`
	SuspendedByID    *id.ID     `db:"suspended_by_id"`
	SuspendedAt      *time.Time `db:"suspended_at"`

	EmailVerified bool       `db:"email_verified"`
	OTPHash       string     `db:"otp_hash"`
	OTPExpiry     *time.Time `db:"otp_expiry"`

	FailedAttempts int        `db:"failed_attempts"`
	LockedUntil    *time.Time `db:"locked_until"`
	LastLoginAt    *time.Time `db:"last_login_at"`

	ResetTokenHash   string     `db:"reset_token_hash"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry"`

	ApprovalStatus      customer.ApprovalStatus `db:"approval_status"`
	FinanceStatus       customer.StageStatus    `db:"finance_status"`
	FinanceReviewedByID *id.ID                  `db:"finance_reviewed_by_id"`
	FinanceReviewedAt   *time.Time              `db:"finance_reviewed_at"`
	FinanceRemarks      string                  `db:"finance_remarks"`
	SalesStatus         customer.StageStatus    `db:"sales_status"`
	SalesReviewedByID   *id.ID                  `db:"sales_reviewed_by_id"`
	SalesReviewedAt     *time.Time              `db:"sales_reviewed_at"`
	SalesRemarks        string                  `db:"sales_remarks"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

func (row *customerRow) toDomain() *customer.Customer {
	return &customer.Customer{
		ID:                 row.ID,
		CustomerCode:       row.CustomerCode,
		Username:           row.Username,
		Email:              row.Email,
		PasswordHash:       row.PasswordHash,
		ShopName:           row.ShopName,
		OwnerName:          row.OwnerName,
		Phone:              row.Phone,
		Region:             row.Region,
		GSTNumber:          row.GSTNumber,
		GSTCertificateURL:  row.GSTCertificateURL,
		PANNumber:          row.PANNumber,
		CreditLimit:        row.CreditLimit,
		CreditAmount:       row.CreditAmount,
		CreditDays:         row.CreditDays,
		OrderMode:          row.OrderMode,
		AssignedSalesRepID: row.AssignedSalesRepID,
		CreatedByID:        row.CreatedByID,
		IsActive:           row.IsActive,
		IsSuspended:        row.IsSuspended,
		SuspensionReason:   row.SuspensionReason,
		SuspendedByID:      row.SuspendedByID,
		SuspendedAt:        row.SuspendedAt,
		EmailVerified:      row.EmailVerified,
		OTPHash:            row.OTPHash,
		OTPExpiry:          row.OTPExpiry,
		FailedAttempts:     row.FailedAttempts,
		LockedUntil:        row.LockedUntil,
		LastLoginAt:        row.LastLoginAt,
		ResetTokenHash:     row.ResetTokenHash,
		ResetTokenExpiry:   row.ResetTokenExpiry,
		Approval: customer.Approval{
			Status: row.ApprovalStatus,
			Finance: customer.Stage{
				Status:       row.FinanceStatus,
				ReviewedByID: row.FinanceReviewedByID,
				ReviewedAt:   row.FinanceReviewedAt,
				Remarks:      row.FinanceRemarks,
			},
			Sales: customer.Stage{
				Status:       row.SalesStatus,
				ReviewedByID: row.SalesReviewedByID,
				ReviewedAt:   row.SalesReviewedAt,
				Remarks:      row.SalesRemarks,
			},
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Version:   row.Version,
	}
}

func customerData(c *customer.Customer) map[string]any {
	return map[string]any{
		"id":                     c.ID,
		"customer_code":          c.CustomerCode,
		"username":               c.Username,
		"email":                  c.Email,
		"password_hash":          c.PasswordHash,
		"shop_name":              c.ShopName,
		"owner_name":             c.OwnerName,
		"phone":                  c.Phone,
		"region":                 c.Region,
		"gst_number":             c.GSTNumber,
		"gst_certificate_url":    c.GSTCertificateURL,
		"pan_number":             c.PANNumber,
		"credit_limit":           c.CreditLimit,
		"credit_amount":          c.CreditAmount,
		"credit_days":            c.CreditDays,
		"order_mode":             c.OrderMode,
		"assigned_sales_rep_id":  c.AssignedSalesRepID,
		"created_by_id":          c.CreatedByID,
		"is_active":              c.IsActive,
		"is_suspended":           c.IsSuspended,
		"suspension_reason":      c.SuspensionReason,
		"suspended_by_id":        c.SuspendedByID,
		"suspended_at":           c.SuspendedAt,
		"email_verified":         c.EmailVerified,
		"otp_hash":               c.OTPHash,
		"otp_expiry":             c.OTPExpiry,
		"failed_attempts":        c.FailedAttempts,
		"locked_until":           c.LockedUntil,
		"last_login_at":          c.LastLoginAt,
		"reset_token_hash":       c.ResetTokenHash,
		"reset_token_expiry":     c.ResetTokenExpiry,
		"approval_status":        c.Approval.Status,
		"finance_status":         c.Approval.Finance.Status,
		"finance_reviewed_by_id": c.Approval.Finance.ReviewedByID,
		"finance_reviewed_at":    c.Approval.Finance.ReviewedAt,
		"finance_remarks":        c.Approval.Finance.Remarks,
		"sales_status":           c.Approval.Sales.Status,
		"sales_reviewed_by_id":   c.Approval.Sales.ReviewedByID,
		"sales_reviewed_at":      c.Approval.Sales.ReviewedAt,
		"sales_remarks":          c.Approval.Sales.Remarks,
		"created_at":             c.CreatedAt,
		"updated_at":             c.UpdatedAt,
	}
}

var customerColumns = []string{
	"id", "customer_code", "username", "email", "password_hash",
	"shop_name", "owner_name", "phone", "region",
	"gst_number", "gst_certificate_url", "pan_number",
	"credit_limit", "credit_amount", "credit_days", "order_mode",
	"assigned_sales_rep_id", "created_by_id",
	"is_active", "is_suspended", "suspension_reason", "suspended_by_id", "suspended_at",
	"email_verified", "otp_hash", "otp_expiry",
	"failed_attempts", "locked_until", "last_login_at",
	"reset_token_hash", "reset_token_expiry",
	"approval_status", "finance_status", "finance_reviewed_by_id",
	"finance_reviewed_at", "finance_remarks", "sales_status",
	"sales_reviewed_by_id", "sales_reviewed_at", "sales_remarks",
	"created_at", "updated_at", "version",
}

// Compile-time check.
var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	txManager *TxManager
}

// NewCustomerRepo creates a customer repository.
func NewCustomerRepo(txManager *TxManager) *CustomerRepo {
	return &CustomerRepo{txManager: txManager}
}

func (r *CustomerRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *CustomerRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(customerColumns...).From(customerTable)
}

// Create inserts a new customer.
func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	data := customerData(c)
	data["version"] = c.Version

	sql, args, err := r.builder().Insert(customerTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepo) GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": customerID}).Limit(1)
	return r.getOne(ctx, q, customerID.String())
}

// GetByIdentifier retrieves a customer by username or email.
func (r *CustomerRepo) GetByIdentifier(ctx context.Context, identifier string) (*customer.Customer, error) {
	q := r.baseSelect().
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Expr("lower(email) = lower(?)", identifier),
		}).
		Limit(1)
	return r.getOne(ctx, q, identifier)
}

// GetByResetTokenHash retrieves a customer by password reset token hash.
func (r *CustomerRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*customer.Customer, error) {
	q := r.baseSelect().Where(squirrel.Eq{"reset_token_hash": tokenHash}).Limit(1)
	return r.getOne(ctx, q, "reset token")
}

func (r *CustomerRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*customer.Customer, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row customerRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("customer", key)
		}
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return row.toDomain(), nil
}

// Update updates customer data with optimistic locking on version.
func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	data := customerData(c)
	delete(data, "id")
	delete(data, "created_at")
	delete(data, "updated_at")

	q := r.builder().
		Update(customerTable).
		SetMap(data).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": c.ID, "version": c.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return translateUniqueViolation(err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflict("customer was modified concurrently").
			WithDetail("id", c.ID.String())
	}

	c.Version++
	return nil
}

// List retrieves customers matching the filter, with total count.
func (r *CustomerRepo) List(ctx context.Context, filter customer.Filter) ([]customer.Customer, int, error) {
	var conds []squirrel.Sqlizer
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"username": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"shop_name": pattern},
			squirrel.ILike{"owner_name": pattern},
			squirrel.ILike{"customer_code": pattern},
		})
	}
	if filter.Region != "" {
		conds = append(conds, squirrel.Eq{"region": filter.Region})
	}
	if filter.ApprovalStatus != "" {
		conds = append(conds, squirrel.Eq{"approval_status": filter.ApprovalStatus})
	}
	if filter.SalesRepID != nil {
		conds = append(conds, squirrel.Eq{"assigned_sales_rep_id": *filter.SalesRepID})
	}
	if filter.IsActive != nil {
		conds = append(conds, squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.IsSuspended != nil {
		conds = append(conds, squirrel.Eq{"is_suspended": *filter.IsSuspended})
	}

	countQ := r.builder().Select("count(*)").From(customerTable)
	listQ := r.baseSelect()
	for _, c := range conds {
		countQ = countQ.Where(c)
		listQ = listQ.Where(c)
	}

	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	listQ = listQ.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		listQ = listQ.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		listQ = listQ.Offset(uint64(filter.Offset))
	}

	sql, args, err := listQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	var rows []customerRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	customers := make([]customer.Customer, len(rows))
	for i := range rows {
		customers[i] = *rows[i].toDomain()
	}
	return customers, total, nil
}

// FindDuplicateField reports which unique field is already taken.
func (r *CustomerRepo) FindDuplicateField(ctx context.Context, username, email, phone string) (string, error) {
	checks := []struct {
		field string
		cond  squirrel.Sqlizer
	}{
		{"username", squirrel.Eq{"username": username}},
		{"email", squirrel.Expr("lower(email) = lower(?)", email)},
		{"phone", squirrel.Eq{"phone": phone}},
	}
	values := []string{username, email, phone}

	querier := r.txManager.GetQuerier(ctx)
	for i, check := range checks {
		if values[i] == "" {
			continue
		}
		sql, args, err := r.builder().
			Select("1").From(customerTable).Where(check.cond).Limit(1).ToSql()
		if err != nil {
			return "", fmt.Errorf("build query: %w", err)
		}
		var one int
		err = querier.QueryRow(ctx, sql, args...).Scan(&one)
		if err == nil {
			return check.field, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("check %s: %w", check.field, err)
		}
	}
	return "", nil
}

// NextCodeSequence returns the next customer-code sequence number.
func (r *CustomerRepo) NextCodeSequence(ctx context.Context) (int, error) {
	sql := `
		INSERT INTO code_sequences (key, current_val)
		VALUES ('customer', 1)
		ON CONFLICT (key) DO UPDATE SET current_val = code_sequences.current_val + 1
		RETURNING current_val
	`

	var seq int
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next customer sequence: %w", err)
	}
	return seq, nil
}
