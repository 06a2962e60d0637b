package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"visualeyes/internal/core/apperror"
	"visualeyes/internal/core/ratelimit"
	"visualeyes/internal/domain/customer"
	"visualeyes/internal/domain/identity"
	"visualeyes/internal/infrastructure/http/v1/dto"
	"visualeyes/internal/infrastructure/http/v1/middleware"
	"visualeyes/pkg/logger"
)

// RefreshCookie is the HTTP-only cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

// AuthHandler serves the employee authentication surface plus the
// shared token endpoints.
type AuthHandler struct {
	BaseHandler
	employees *identity.Service
	customers *customer.Service
	limiter   ratelimit.Limiter
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(employees *identity.Service, customers *customer.Service, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{employees: employees, customers: customers, limiter: limiter}
}

// Login handles employee authentication.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var creds identity.Credentials
	if !h.BindJSON(c, &creds) {
		return
	}

	if !h.allowAttempt(c, creds.Identifier) {
		return
	}

	pair, employee, err := h.employees.Login(c.Request.Context(), creds)
	if err != nil {
		h.Error(c, err)
		return
	}

	setAuthCookies(c, pair)
	h.OK(c, gin.H{
		"tokens":      pair,
		"employee":    employee,
		"permissions": identity.DerivePermissions(employee.RoleTier, employee.Department),
	})
}

// Refresh re-mints an access token from a refresh token taken from the
// body or the refresh cookie.
// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	_ = c.ShouldBindJSON(&req)

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken, _ = c.Cookie(RefreshCookie)
	}
	if refreshToken == "" {
		h.Error(c, apperror.NewInvalidRefreshToken())
		return
	}

	access, expiresAt, err := h.employees.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.SetCookie(middleware.TokenCookie, access, cookieMaxAge(expiresAt), "/", "", false, true)
	h.OK(c, dto.RefreshResponse{AccessToken: access, AccessExpiresAt: expiresAt})
}

// Logout clears the auth cookies. Issued tokens stay valid until their
// natural expiry.
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	c.SetCookie(RefreshCookie, "", -1, "/", "", false, true)
	h.Success(c, "logged out")
}

// Me returns the authenticated principal's own record.
// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	sub, ok := h.Subject(c)
	if !ok {
		return
	}

	if sub.Kind == identity.AccountCustomer {
		profile, err := h.customers.GetProfile(c.Request.Context(), sub, sub.ID)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, profile)
		return
	}

	employee, err := h.employees.GetEmployee(c.Request.Context(), sub, sub.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{
		"employee":    employee,
		"permissions": identity.DerivePermissions(employee.RoleTier, employee.Department),
	})
}

// ForgotPassword starts the employee password-reset flow. The response
// never reveals whether the account exists.
// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if !h.allowAttempt(c, req.Identifier) {
		return
	}

	if err := h.employees.ForgotPassword(c.Request.Context(), req.Identifier); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "If the account exists, a reset link has been sent")
}

// ResetPassword completes the employee password-reset flow.
// PUT /auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.employees.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "password has been reset")
}

// UpdatePassword rotates the authenticated employee's password.
// PUT /auth/update-password
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	sub, ok := h.Subject(c)
	if !ok {
		return
	}
	if sub.Kind != identity.AccountEmployee {
		h.Error(c, apperror.NewForbidden("employee account required"))
		return
	}

	var req dto.UpdatePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.employees.UpdatePassword(c.Request.Context(), sub.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "password updated")
}

// allowAttempt consults the credential-endpoint rate limiter. Limiter
// backend failures fail open so an unavailable store never blocks
// authentication.
func (h *AuthHandler) allowAttempt(c *gin.Context, identifier string) bool {
	allowed, err := h.limiter.Allow(c.Request.Context(), ratelimit.Key(c.ClientIP(), identifier))
	if err != nil {
		logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
		return true
	}
	if !allowed {
		h.Error(c, apperror.NewRateLimited())
		return false
	}
	return true
}

func setAuthCookies(c *gin.Context, pair *identity.TokenPair) {
	c.SetCookie(middleware.TokenCookie, pair.AccessToken,
		cookieMaxAge(pair.AccessExpiresAt), "/", "", false, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken,
		cookieMaxAge(pair.RefreshExpiresAt), "/", "", false, true)
}

func cookieMaxAge(expiresAt time.Time) int {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	return maxAge
}
