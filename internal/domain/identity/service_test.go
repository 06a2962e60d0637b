package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
	"visualeyes/internal/domain/audit"
	"visualeyes/internal/notify"
)

// fakeEmployeeRepo is an in-memory EmployeeRepository.
type fakeEmployeeRepo struct {
	employees map[id.ID]*Employee
	seq       int
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{employees: make(map[id.ID]*Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *Employee) error {
	clone := *e
	r.employees[e.ID] = &clone
	return nil
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, employeeID id.ID) (*Employee, error) {
	e, ok := r.employees[employeeID]
	if !ok {
		return nil, apperror.NewNotFound("employee", employeeID.String())
	}
	clone := *e
	return &clone, nil
}

func (r *fakeEmployeeRepo) GetByIdentifier(_ context.Context, identifier string) (*Employee, error) {
	for _, e := range r.employees {
		if e.Username == identifier || strings.EqualFold(e.Email, identifier) {
			clone := *e
			return &clone, nil
		}
	}
	return nil, apperror.NewNotFound("employee", identifier)
}

func (r *fakeEmployeeRepo) GetByResetTokenHash(_ context.Context, tokenHash string) (*Employee, error) {
	for _, e := range r.employees {
		if e.ResetTokenHash != "" && e.ResetTokenHash == tokenHash {
			clone := *e
			return &clone, nil
		}
	}
	return nil, apperror.NewNotFound("employee", "reset token")
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *Employee) error {
	if _, ok := r.employees[e.ID]; !ok {
		return apperror.NewNotFound("employee", e.ID.String())
	}
	e.Version++
	clone := *e
	r.employees[e.ID] = &clone
	return nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter EmployeeFilter) ([]Employee, int, error) {
	var out []Employee
	for _, e := range r.employees {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		if filter.Region != "" && e.Region != filter.Region {
			continue
		}
		if filter.RoleTier != "" && e.RoleTier != filter.RoleTier {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (r *fakeEmployeeRepo) FindActiveSupervisor(_ context.Context, dept Department, region Region) (*Employee, error) {
	for _, e := range r.employees {
		if e.RoleTier == TierSupervisor && e.IsActive && e.Department == dept && e.Region == region {
			clone := *e
			return &clone, nil
		}
	}
	return nil, apperror.NewNotFound("supervisor", string(dept)+"/"+string(region))
}

func (r *fakeEmployeeRepo) FindSalesHead(_ context.Context, region Region) (*Employee, error) {
	return r.FindActiveSupervisor(context.Background(), DeptSales, region)
}

func (r *fakeEmployeeRepo) FindDuplicateField(_ context.Context, username, email, phone string) (string, error) {
	for _, e := range r.employees {
		if username != "" && e.Username == username {
			return "username", nil
		}
		if email != "" && strings.EqualFold(e.Email, email) {
			return "email", nil
		}
		if phone != "" && e.Phone != "" && e.Phone == phone {
			return "phone", nil
		}
	}
	return "", nil
}

func (r *fakeEmployeeRepo) NextCodeSequence(_ context.Context, _ int) (int, error) {
	r.seq++
	return r.seq, nil
}

// fakeTxManager runs the callback without a transaction.
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	// Low cost keeps the test suite fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// recordingAuditor captures entries.
type recordingAuditor struct {
	entries []audit.Entry
}

func (a *recordingAuditor) Record(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newTestService(t *testing.T, repo *fakeEmployeeRepo) *Service {
	svc, _ := newTestServiceWithAuditor(t, repo)
	return svc
}

func newTestServiceWithAuditor(t *testing.T, repo *fakeEmployeeRepo) (*Service, *recordingAuditor) {
	t.Helper()
	cfg := DefaultServiceConfig()
	cfg.BcryptCost = bcrypt.MinCost
	auditor := &recordingAuditor{}
	svc := NewService(repo, fakeTxManager{}, newTestTokenService(time.Now()), NewResolver(), notify.LogNotifier{}, auditor, cfg)
	return svc, auditor
}

func seedEmployee(t *testing.T, repo *fakeEmployeeRepo, tier RoleTier, dept Department, region Region, password string) *Employee {
	t.Helper()
	e := NewEmployee("user-"+id.New().String(), id.New().String()+"@example.com", mustHash(t, password), tier)
	e.Department = dept
	e.Region = region
	if tier == TierEmployee {
		sup := id.New()
		e.SupervisorID = &sup
	}
	creator := id.New()
	e.CreatedByID = &creator
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func TestLogin_Succeeds(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "correct-horse")

	pair, got, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, emp.ID, got.ID)

	stored, _ := repo.GetByID(context.Background(), emp.ID)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, 0, stored.FailedAttempts)
}

func TestLogin_CheckOrder(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)

	t.Run("unknown identifier", func(t *testing.T) {
		_, _, err := svc.Login(context.Background(), Credentials{Identifier: "nobody", Password: "x"})
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidCredentials))
	})

	t.Run("inactive before locked", func(t *testing.T) {
		emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")
		emp.IsActive = false
		until := time.Now().Add(time.Hour)
		emp.LockedUntil = &until
		require.NoError(t, repo.Update(context.Background(), emp))

		_, _, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "pw-123456"})
		assert.True(t, apperror.IsCode(err, apperror.CodeAccountInactive))
	})

	t.Run("locked before password check", func(t *testing.T) {
		emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")
		until := time.Now().Add(time.Hour)
		emp.LockedUntil = &until
		require.NoError(t, repo.Update(context.Background(), emp))

		_, _, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "pw-123456"})
		assert.True(t, apperror.IsCode(err, apperror.CodeAccountLocked))
	})
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")

	for i := 0; i < MaxLoginAttempts; i++ {
		_, _, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "wrong"})
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidCredentials))
	}

	// Account is now locked even with the correct password.
	_, _, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "pw-123456"})
	assert.True(t, apperror.IsCode(err, apperror.CodeAccountLocked))
}

func TestRefreshToken_ReflectsCurrentAccountState(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")

	pair, _, err := svc.Login(context.Background(), Credentials{Identifier: emp.Username, Password: "pw-123456"})
	require.NoError(t, err)

	access, _, err := svc.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, access)

	// Deactivation invalidates refresh immediately.
	emp.IsActive = false
	require.NoError(t, repo.Update(context.Background(), emp))
	_, _, err = svc.RefreshToken(context.Background(), pair.RefreshToken)
	assert.True(t, apperror.IsCode(err, apperror.CodeAccountInactive))
}

func TestCreateEmployee_TierMatrix(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	supervisor := seedEmployee(t, repo, TierSupervisor, DeptLab, RegionNorth, "pw-123456")

	req := CreateEmployeeRequest{
		Username:   "newhire",
		Email:      "newhire@example.com",
		Password:   "pw-123456",
		RoleTier:   TierEmployee,
		Department: DeptLab,
		Region:     RegionNorth,
	}

	t.Run("subadmin creates employee with auto supervisor", func(t *testing.T) {
		actor := subject(TierSubAdmin, DeptLab, RegionNorth)
		created, err := svc.CreateEmployee(context.Background(), actor, req)
		require.NoError(t, err)
		require.NotNil(t, created.SupervisorID)
		assert.Equal(t, supervisor.ID, *created.SupervisorID)
		assert.Regexp(t, `^EMP-LAB-NORTH-\d{4}-\d{4}$`, created.EmployeeCode)
	})

	t.Run("subadmin cannot create subadmin", func(t *testing.T) {
		actor := subject(TierSubAdmin, DeptLab, RegionNorth)
		bad := req
		bad.Username = "another"
		bad.Email = "another@example.com"
		bad.RoleTier = TierSubAdmin
		_, err := svc.CreateEmployee(context.Background(), actor, bad)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("supervisor self-assigns", func(t *testing.T) {
		actor := supervisor.Subject()
		mine := req
		mine.Username = "myhire"
		mine.Email = "myhire@example.com"
		created, err := svc.CreateEmployee(context.Background(), actor, mine)
		require.NoError(t, err)
		assert.Equal(t, supervisor.ID, *created.SupervisorID)
	})

	t.Run("supervisor cannot assign someone else", func(t *testing.T) {
		actor := supervisor.Subject()
		other := id.New()
		bad := req
		bad.Username = "theirhire"
		bad.Email = "theirhire@example.com"
		bad.SupervisorID = &other
		_, err := svc.CreateEmployee(context.Background(), actor, bad)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})

	t.Run("supervisor cannot create outside scope", func(t *testing.T) {
		actor := supervisor.Subject()
		bad := req
		bad.Username = "remote"
		bad.Email = "remote@example.com"
		bad.Region = RegionSouth
		_, err := svc.CreateEmployee(context.Background(), actor, bad)
		assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
	})
}

func TestCreateEmployee_NoSupervisorFound(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)

	actor := subject(TierSubAdmin, DeptLab, RegionNorth)
	_, err := svc.CreateEmployee(context.Background(), actor, CreateEmployeeRequest{
		Username:   "orphan",
		Email:      "orphan@example.com",
		Password:   "pw-123456",
		RoleTier:   TierEmployee,
		Department: DeptDispatch,
		Region:     RegionEast,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeNoSupervisorFound))
}

func TestCreateEmployee_DuplicateField(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	existing := seedEmployee(t, repo, TierSupervisor, DeptLab, RegionNorth, "pw-123456")

	actor := subject(TierSubAdmin, DeptLab, RegionNorth)
	_, err := svc.CreateEmployee(context.Background(), actor, CreateEmployeeRequest{
		Username:   "fresh",
		Email:      existing.Email,
		Password:   "pw-123456",
		RoleTier:   TierSupervisor,
		Department: DeptStore,
		Region:     RegionNorth,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicateField))
}

func TestDeactivateEmployee_Idempotent(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")
	actor := subject(TierSubAdmin, DeptLab, RegionNorth)

	require.NoError(t, svc.DeactivateEmployee(context.Background(), actor, emp.ID))
	require.NoError(t, svc.DeactivateEmployee(context.Background(), actor, emp.ID))

	stored, _ := repo.GetByID(context.Background(), emp.ID)
	assert.False(t, stored.IsActive)
}

func TestEmployeeMutationsAudited(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc, auditor := newTestServiceWithAuditor(t, repo)
	actor := subject(TierSuperAdmin, DeptLab, RegionNorth)

	created, err := svc.CreateEmployee(context.Background(), actor, CreateEmployeeRequest{
		Username:   "audited",
		Email:      "audited@example.com",
		Password:   "pw-123456",
		RoleTier:   TierSupervisor,
		Department: DeptStore,
		Region:     RegionNorth,
	})
	require.NoError(t, err)

	require.Len(t, auditor.entries, 1)
	entry := auditor.entries[0]
	assert.Equal(t, "employee", entry.EntityType)
	assert.Equal(t, created.ID, entry.EntityID)
	assert.Equal(t, audit.ActionCreate, entry.Action)
	assert.Equal(t, actor.ID.String(), entry.ActorID)
	assert.Contains(t, string(entry.Changes), created.EmployeeCode)

	require.NoError(t, svc.DeactivateEmployee(context.Background(), actor, created.ID))
	require.Len(t, auditor.entries, 2)
	assert.Equal(t, audit.ActionDeactivate, auditor.entries[1].Action)

	// A repeated deactivation is a no-op and records nothing.
	require.NoError(t, svc.DeactivateEmployee(context.Background(), actor, created.ID))
	assert.Len(t, auditor.entries, 2)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "old-password")

	require.NoError(t, svc.ForgotPassword(context.Background(), emp.Username))

	stored, _ := repo.GetByID(context.Background(), emp.ID)
	require.NotEmpty(t, stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpiry)
	assert.Equal(t, now.Add(svc.config.ResetTokenTTL), *stored.ResetTokenExpiry)

	// Unknown accounts never error, to avoid revealing existence.
	assert.NoError(t, svc.ForgotPassword(context.Background(), "ghost"))

	t.Run("garbage token rejected", func(t *testing.T) {
		err := svc.ResetPassword(context.Background(), "not-a-token", "new-password")
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidToken))
	})

	t.Run("expired token rejected", func(t *testing.T) {
		svc.now = func() time.Time { return now.Add(11 * time.Minute) }
		defer func() { svc.now = func() time.Time { return now } }()

		// The stored hash exists but the window has closed. We cannot
		// recover the raw token from the hash, so drive the lookup path
		// with a token planted directly.
		raw, err := generateRandomToken(32)
		require.NoError(t, err)
		stored, _ := repo.GetByID(context.Background(), emp.ID)
		stored.ResetTokenHash = hashToken(raw)
		require.NoError(t, repo.Update(context.Background(), stored))

		err = svc.ResetPassword(context.Background(), raw, "new-password")
		assert.True(t, apperror.IsCode(err, apperror.CodeInvalidToken))
	})

	t.Run("valid token resets password and lockout", func(t *testing.T) {
		raw, err := generateRandomToken(32)
		require.NoError(t, err)
		stored, _ := repo.GetByID(context.Background(), emp.ID)
		stored.ResetTokenHash = hashToken(raw)
		expiry := now.Add(5 * time.Minute)
		stored.ResetTokenExpiry = &expiry
		stored.FailedAttempts = 4
		require.NoError(t, repo.Update(context.Background(), stored))

		require.NoError(t, svc.ResetPassword(context.Background(), raw, "new-password"))

		after, _ := repo.GetByID(context.Background(), emp.ID)
		assert.Empty(t, after.ResetTokenHash)
		assert.Equal(t, 0, after.FailedAttempts)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(after.PasswordHash), []byte("new-password")))
	})
}

func TestUpdatePassword(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	emp := seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "old-password")

	err := svc.UpdatePassword(context.Background(), emp.ID, "wrong", "new-password")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidCredentials))

	require.NoError(t, svc.UpdatePassword(context.Background(), emp.ID, "old-password", "new-password"))
	stored, _ := repo.GetByID(context.Background(), emp.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-password")))
}

func TestListEmployees_ScopesToActor(t *testing.T) {
	repo := newFakeEmployeeRepo()
	svc := newTestService(t, repo)
	seedEmployee(t, repo, TierEmployee, DeptLab, RegionNorth, "pw-123456")
	seedEmployee(t, repo, TierEmployee, DeptLab, RegionSouth, "pw-123456")
	seedEmployee(t, repo, TierEmployee, DeptStore, RegionNorth, "pw-123456")

	supervisor := subject(TierSupervisor, DeptLab, RegionNorth)
	list, total, err := svc.ListEmployees(context.Background(), supervisor, EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, DeptLab, list[0].Department)
	assert.Equal(t, RegionNorth, list[0].Region)

	admin := subject(TierSuperAdmin, "", "")
	_, total, err = svc.ListEmployees(context.Background(), admin, EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
