package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/id"
)

// Token kinds carried in the "tkn" claim. Refresh tokens are stateless:
// the kind claim is the only thing distinguishing them from access tokens.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// TokenConfig holds signing configuration for both token kinds.
type TokenConfig struct {
	Secret          string
	Issuer          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// DefaultTokenConfig returns token configuration with production defaults.
func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret:          secret,
		Issuer:          "visualeyes",
		AccessTokenTTL:  24 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// Claims are the JWT claims for both employees and customers.
type Claims struct {
	jwt.RegisteredClaims
	RoleTier    RoleTier    `json:"tier"`
	Department  Department  `json:"dept,omitempty"`
	Region      Region      `json:"region,omitempty"`
	AccountKind AccountKind `json:"kind"`
	TokenKind   string      `json:"tkn"`
}

// Subject projects the claims into an authorization subject.
func (c *Claims) AuthzSubject() (Subject, error) {
	principalID, err := id.Parse(c.RegisteredClaims.Subject)
	if err != nil {
		return Subject{}, apperror.NewInvalidToken("malformed subject claim")
	}
	return Subject{
		ID:         principalID,
		Tier:       c.RoleTier,
		Department: c.Department,
		Region:     c.Region,
		Kind:       c.AccountKind,
	}, nil
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// TokenService issues and verifies HS256 tokens.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService creates a token service.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config, now: time.Now}
}

// IssuePair mints an access/refresh pair for the given subject.
func (s *TokenService) IssuePair(sub Subject) (TokenPair, error) {
	now := s.now()

	access, accessExp, err := s.sign(sub, TokenKindAccess, now, s.config.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(sub, TokenKindRefresh, now, s.config.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccessToken mints a standalone access token for the given subject.
func (s *TokenService) IssueAccessToken(sub Subject) (string, time.Time, error) {
	return s.sign(sub, TokenKindAccess, s.now(), s.config.AccessTokenTTL)
}

func (s *TokenService) sign(sub Subject, kind string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   sub.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		RoleTier:    sub.Tier,
		Department:  sub.Department,
		Region:      sub.Region,
		AccountKind: sub.Kind,
		TokenKind:   kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Verify parses and validates a token of the expected kind. Verification is
// pure: no store lookup, revocation is handled by the account status checks
// that follow it.
func (s *TokenService) Verify(tokenString, expectedKind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if expectedKind == TokenKindRefresh {
			return nil, apperror.NewInvalidRefreshToken().WithCause(err)
		}
		return nil, apperror.NewInvalidToken("token is expired or malformed").WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperror.NewInvalidToken("invalid token claims")
	}
	if claims.TokenKind != expectedKind {
		return nil, apperror.NewInvalidTokenType()
	}
	return claims, nil
}

// Refresh validates a refresh token and mints a fresh access token carrying
// the same identity claims. The refresh token itself is not rotated.
func (s *TokenService) Refresh(refreshToken string) (string, time.Time, error) {
	claims, err := s.Verify(refreshToken, TokenKindRefresh)
	if err != nil {
		return "", time.Time{}, err
	}
	sub, err := claims.AuthzSubject()
	if err != nil {
		return "", time.Time{}, err
	}
	return s.sign(sub, TokenKindAccess, s.now(), s.config.AccessTokenTTL)
}
