package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToBurst(t *testing.T) {
	l := NewMemoryLimiter(Config{Attempts: 3, Window: time.Hour})
	ctx := context.Background()
	key := Key("10.0.0.1", "owner@shop.example")

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d should be allowed", i+1)
	}

	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "attempt past the burst should be rejected")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(Config{Attempts: 1, Window: time.Hour})
	ctx := context.Background()

	ok, err := l.Allow(ctx, Key("10.0.0.1", "alice"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, Key("10.0.0.1", "alice"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Different identifier from the same address has its own budget.
	ok, err = l.Allow(ctx, Key("10.0.0.1", "bob"))
	require.NoError(t, err)
	assert.True(t, ok)

	// Same identifier from a different address has its own budget.
	ok, err = l.Allow(ctx, Key("10.0.0.2", "alice"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter_SweepEvictsIdleEntries(t *testing.T) {
	l := NewMemoryLimiter(Config{Attempts: 2, Window: time.Minute})

	current := time.Now()
	l.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := l.Allow(ctx, Key("10.0.0.1", "alice"))
	require.NoError(t, err)
	_, err = l.Allow(ctx, Key("10.0.0.2", "bob"))
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())

	// Advance past the window; the next access sweeps stale entries.
	current = current.Add(2 * time.Minute)
	_, err = l.Allow(ctx, Key("10.0.0.3", "carol"))
	require.NoError(t, err)

	assert.Equal(t, 1, l.Len(), "idle entries should have been evicted")
}

func TestKey_NormalizesIdentifier(t *testing.T) {
	assert.Equal(t, Key("10.0.0.1", "Alice@Shop.Example "), Key("10.0.0.1", "alice@shop.example"))
}
