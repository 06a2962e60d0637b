package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/identity"
)

const employeeTable = "employees"

var employeeColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name",
	"phone", "employee_code", "role_tier", "department", "region",
	"supervisor_id", "created_by_id", "profile_picture_url", "is_active",
	"failed_attempts", "locked_until", "last_login_at", "reset_token_hash",
	"reset_token_expiry", "created_at", "updated_at", "version",
}

// Compile-time check.
var _ identity.EmployeeRepository = (*EmployeeRepo)(nil)

// EmployeeRepo implements identity.EmployeeRepository.
type EmployeeRepo struct {
	txManager *TxManager
}

// NewEmployeeRepo creates an employee repository.
func NewEmployeeRepo(txManager *TxManager) *EmployeeRepo {
	return &EmployeeRepo{txManager: txManager}
}

func (r *EmployeeRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *EmployeeRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder().Select(employeeColumns...).From(employeeTable)
}

func (r *EmployeeRepo) employeeMap(e *identity.Employee) map[string]any {
	return map[string]any{
		"id":                  e.ID,
		"username":            e.Username,
		"email":               e.Email,
		"password_hash":       e.PasswordHash,
		"first_name":          e.FirstName,
		"last_name":           e.LastName,
		"phone":               e.Phone,
		"employee_code":       e.EmployeeCode,
		"role_tier":           e.RoleTier,
		"department":          e.Department,
		"region":              e.Region,
		"supervisor_id":       e.SupervisorID,
		"created_by_id":       e.CreatedByID,
		"profile_picture_url": e.ProfilePictureURL,
		"is_active":           e.IsActive,
		"failed_attempts":     e.FailedAttempts,
		"locked_until":        e.LockedUntil,
		"last_login_at":       e.LastLoginAt,
		"reset_token_hash":    e.ResetTokenHash,
		"reset_token_expiry":  e.ResetTokenExpiry,
		"created_at":          e.CreatedAt,
		"updated_at":          e.UpdatedAt,
	}
}

// Create inserts a new employee.
func (r *EmployeeRepo) Create(ctx context.Context, e *identity.Employee) error {
	data := r.employeeMap(e)
	data["version"] = e.Version

	sql, args, err := r.builder().Insert(employeeTable).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	q := r.txManager.GetQuerier(ctx)
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return translateUniqueViolation(err)
	}
	return nil
}

// GetByID retrieves an employee by ID.
func (r *EmployeeRepo) GetByID(ctx context.Context, employeeID id.ID) (*identity.Employee, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": employeeID}).Limit(1)
	return r.getOne(ctx, q, employeeID.String())
}

// GetByIdentifier retrieves an employee by username or email.
func (r *EmployeeRepo) GetByIdentifier(ctx context.Context, identifier string) (*identity.Employee, error) {
	q := r.baseSelect().
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Expr("lower(email) = lower(?)", identifier),
		}).
		Limit(1)
	return r.getOne(ctx, q, identifier)
}

// GetByResetTokenHash retrieves an employee by password reset token hash.
func (r *EmployeeRepo) GetByResetTokenHash(ctx context.Context, tokenHash string) (*identity.Employee, error) {
	q := r.baseSelect().Where(squirrel.Eq{"reset_token_hash": tokenHash}).Limit(1)
	return r.getOne(ctx, q, "reset token")
}

func (r *EmployeeRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*identity.Employee, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e identity.Employee
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("employee", key)
		}
		return nil, fmt.Errorf("query employee: %w", err)
	}
	return &e, nil
}

// Update updates employee data with optimistic locking on version.
func (r *EmployeeRepo) Update(ctx context.Context, e *identity.Employee) error {
	data := r.employeeMap(e)
	delete(data, "id")
	delete(data, "created_at")
	delete(data, "updated_at")

	q := r.builder().
		Update(employeeTable).
		SetMap(data).
		Set("updated_at", squirrel.Expr("now()")).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": e.ID, "version": e.Version})

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
		return apperror.NewConflict("employee was modified concurrently").
			WithDetail("id", e.ID.String())
	}

	e.Version++
	return nil
}

// List retrieves employees matching the filter, with total count.
func (r *EmployeeRepo) List(ctx context.Context, filter identity.EmployeeFilter) ([]identity.Employee, int, error) {
	conds := r.filterConds(filter)

	countQ := r.builder().Select("count(*)").From(employeeTable)
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
		return nil, 0, fmt.Errorf("count employees: %w", err)
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

	var employees []identity.Employee
	if err := pgxscan.Select(ctx, querier, &employees, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	return employees, total, nil
}

func (r *EmployeeRepo) filterConds(filter identity.EmployeeFilter) []squirrel.Sqlizer {
	var conds []squirrel.Sqlizer
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, squirrel.Or{
			squirrel.ILike{"username": pattern},
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
			squirrel.ILike{"employee_code": pattern},
		})
	}
	if filter.RoleTier != "" {
		conds = append(conds, squirrel.Eq{"role_tier": filter.RoleTier})
	}
	if filter.Department != "" {
		conds = append(conds, squirrel.Eq{"department": filter.Department})
	}
	if filter.Region != "" {
		conds = append(conds, squirrel.Eq{"region": filter.Region})
	}
	if filter.SupervisorID != nil {
		conds = append(conds, squirrel.Eq{"supervisor_id": *filter.SupervisorID})
	}
	if filter.IsActive != nil {
		conds = append(conds, squirrel.Eq{"is_active": *filter.IsActive})
	}
	return conds
}

// FindActiveSupervisor finds an active supervisor in the department and
// region, oldest account first so assignment is deterministic.
func (r *EmployeeRepo) FindActiveSupervisor(ctx context.Context, department identity.Department, region identity.Region) (*identity.Employee, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{
			"role_tier":  identity.TierSupervisor,
			"department": department,
			"region":     region,
			"is_active":  true,
		}).
		OrderBy("created_at ASC").
		Limit(1)
	return r.getOne(ctx, q, string(department)+"/"+string(region))
}

// FindSalesHead finds the active sales supervisor for the region.
func (r *EmployeeRepo) FindSalesHead(ctx context.Context, region identity.Region) (*identity.Employee, error) {
	return r.FindActiveSupervisor(ctx, identity.DeptSales, region)
}

// FindDuplicateField reports which unique field is already taken.
func (r *EmployeeRepo) FindDuplicateField(ctx context.Context, username, email, phone string) (string, error) {
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
			Select("1").From(employeeTable).Where(check.cond).Limit(1).ToSql()
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

// NextCodeSequence returns the next employee-code sequence number for the
// year. Uses an upsert on the sequences table; must run inside the
// enclosing transaction so concurrent callers serialize on the row lock.
func (r *EmployeeRepo) NextCodeSequence(ctx context.Context, year int) (int, error) {
	sql := `
		INSERT INTO code_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = code_sequences.current_val + 1
		RETURNING current_val
	`
	key := fmt.Sprintf("employee:%d", year)

	var seq int
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, key).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next employee sequence: %w", err)
	}
	return seq, nil
}
