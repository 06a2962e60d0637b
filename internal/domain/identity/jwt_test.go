package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

func newTestTokenService(now time.Time) *TokenService {
	svc := NewTokenService(DefaultTokenConfig("test-secret"))
	svc.now = func() time.Time { return now }
	return svc
}

func TestIssuePair_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(now)

	sub := Subject{
		ID:         id.New(),
		Tier:       TierSupervisor,
		Department: DeptSales,
		Region:     RegionWest,
		Kind:       AccountEmployee,
	}

	pair, err := svc.IssuePair(sub)
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.Verify(pair.AccessToken, TokenKindAccess)
	require.NoError(t, err)
	got, err := claims.AuthzSubject()
	require.NoError(t, err)
	assert.Equal(t, sub, got)
	assert.Equal(t, TokenKindAccess, claims.TokenKind)
}

func TestVerify_RejectsWrongKind(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(now)

	sub := Subject{ID: id.New(), Tier: TierEmployee, Department: DeptLab, Region: RegionNorth, Kind: AccountEmployee}
	pair, err := svc.IssuePair(sub)
	require.NoError(t, err)

	// Access token presented where a refresh token is expected.
	_, err = svc.Verify(pair.AccessToken, TokenKindRefresh)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTokenType))

	// And the other way around.
	_, err = svc.Verify(pair.RefreshToken, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTokenType))
}

func TestRefresh_MintsAccessWithSameIdentity(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(now)

	sub := Subject{ID: id.New(), Tier: TierEmployee, Department: DeptFinance, Region: RegionEast, Kind: AccountEmployee}
	pair, err := svc.IssuePair(sub)
	require.NoError(t, err)

	access, expiresAt, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, now.Add(svc.config.AccessTokenTTL), expiresAt)

	claims, err := svc.Verify(access, TokenKindAccess)
	require.NoError(t, err)
	got, err := claims.AuthzSubject()
	require.NoError(t, err)
	assert.Equal(t, sub, got)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc := newTestTokenService(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	sub := Subject{ID: id.New(), Tier: TierEmployee, Department: DeptLab, Region: RegionNorth, Kind: AccountEmployee}
	pair, err := svc.IssuePair(sub)
	require.NoError(t, err)

	_, _, err = svc.Refresh(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTokenType))
}

func TestVerify_ExpiredToken(t *testing.T) {
	issued := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := newTestTokenService(issued)

	sub := Subject{ID: id.New(), Tier: TierEmployee, Department: DeptLab, Region: RegionNorth, Kind: AccountEmployee}
	pair, err := svc.IssuePair(sub)
	require.NoError(t, err)

	// Jump past the access TTL.
	svc.now = func() time.Time { return issued.Add(25 * time.Hour) }
	_, err = svc.Verify(pair.AccessToken, TokenKindAccess)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidToken))

	// Refresh token is still inside its 7 day window.
	_, err = svc.Verify(pair.RefreshToken, TokenKindRefresh)
	assert.NoError(t, err)
}

func TestVerify_TamperedToken(t *testing.T) {
	svc := newTestTokenService(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	other := newTestTokenService(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	other.config.Secret = "another-secret"

	sub := Subject{ID: id.New(), Tier: TierSuperAdmin, Kind: AccountEmployee}
	pair, err := other.IssuePair(sub)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenKindAccess)
	assert.Error(t, err)
}
