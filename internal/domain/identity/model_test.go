package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/id"
)

func TestRecordFailedLogin_LocksAtThreshold(t *testing.T) {
	e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < MaxLoginAttempts-1; i++ {
		e.RecordFailedLogin(now)
		assert.Nil(t, e.LockedUntil, "attempt %d must not lock", i+1)
	}

	e.RecordFailedLogin(now)
	require.NotNil(t, e.LockedUntil)
	assert.Equal(t, now.Add(LockDuration), *e.LockedUntil)
	assert.Equal(t, MaxLoginAttempts, e.FailedAttempts)
}

func TestIsLocked(t *testing.T) {
	e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
	assert.False(t, e.IsLocked())

	until := time.Now().Add(time.Hour)
	e.LockedUntil = &until
	assert.True(t, e.IsLocked())

	expired := time.Now().Add(-time.Minute)
	e.LockedUntil = &expired
	assert.False(t, e.IsLocked())
}

func TestRecordFailedLogin_LockNeverExtends(t *testing.T) {
	e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < MaxLoginAttempts; i++ {
		e.RecordFailedLogin(now)
	}
	require.NotNil(t, e.LockedUntil)
	lockedUntil := *e.LockedUntil

	// Failures inside the lock window count but never push the lock out.
	e.RecordFailedLogin(now.Add(30 * time.Minute))
	e.RecordFailedLogin(now.Add(time.Hour))
	assert.Equal(t, lockedUntil, *e.LockedUntil)
	assert.Equal(t, MaxLoginAttempts+2, e.FailedAttempts)
}

func TestRecordFailedLogin_ResetsAfterLockExpiry(t *testing.T) {
	e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < MaxLoginAttempts; i++ {
		e.RecordFailedLogin(now)
	}
	require.NotNil(t, e.LockedUntil)

	// First failure after the lock expires restarts the counter at 1.
	after := now.Add(LockDuration + time.Minute)
	e.RecordFailedLogin(after)
	assert.Equal(t, 1, e.FailedAttempts)
	assert.Nil(t, e.LockedUntil)
	assert.False(t, e.lockedAt(after))
}

func TestRecordSuccessfulLogin_ClearsFailureState(t *testing.T) {
	e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	e.RecordFailedLogin(now)
	e.RecordFailedLogin(now)
	e.RecordSuccessfulLogin(now)

	assert.Equal(t, 0, e.FailedAttempts)
	assert.Nil(t, e.LockedUntil)
	require.NotNil(t, e.LastLoginAt)
	assert.Equal(t, now, *e.LastLoginAt)
}

func TestEmployeeValidate(t *testing.T) {
	ctx := context.Background()
	creator := id.New()
	supervisor := id.New()

	base := func() *Employee {
		e := NewEmployee("jturner", "jturner@example.com", "hash", TierEmployee)
		e.Department = DeptLab
		e.Region = RegionNorth
		e.SupervisorID = &supervisor
		e.CreatedByID = &creator
		return e
	}

	t.Run("valid employee", func(t *testing.T) {
		assert.NoError(t, base().Validate(ctx))
	})

	t.Run("employee without supervisor", func(t *testing.T) {
		e := base()
		e.SupervisorID = nil
		assert.Error(t, e.Validate(ctx))
	})

	t.Run("supervisor with supervisor set", func(t *testing.T) {
		e := base()
		e.RoleTier = TierSupervisor
		assert.Error(t, e.Validate(ctx))
	})

	t.Run("non-superadmin without department", func(t *testing.T) {
		e := base()
		e.Department = ""
		assert.Error(t, e.Validate(ctx))
	})

	t.Run("superadmin needs no scope", func(t *testing.T) {
		e := NewEmployee("root", "root@example.com", "hash", TierSuperAdmin)
		assert.NoError(t, e.Validate(ctx))
	})
}

func TestFormatEmployeeCode(t *testing.T) {
	code := FormatEmployeeCode(TierEmployee, DeptLab, RegionNorth, 2026, 42)
	assert.Equal(t, "EMP-LAB-NORTH-2026-0042", code)

	code = FormatEmployeeCode(TierSupervisor, DeptSales, RegionWest, 2026, 7)
	assert.Equal(t, "SUP-SALES-WEST-2026-0007", code)
}
