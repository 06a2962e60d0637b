package dto

import (
	"time"
)

// RefreshRequest carries an explicit refresh token. The cookie fallback
// is handled by the auth handler.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the re-minted access token.
type RefreshResponse struct {
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
}

// ForgotPasswordRequest starts the password-reset flow.
type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

// ResetPasswordRequest completes the password-reset flow. The token
// travels in the path.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// UpdatePasswordRequest rotates an authenticated principal's password.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// VerifyEmailRequest submits the registration OTP.
type VerifyEmailRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	OTP        string `json:"otp" binding:"required"`
}

// ReviewRequest carries one approval-stage decision.
type ReviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Remarks string `json:"remarks"`
}

// SuspendRequest suspends a customer account.
type SuspendRequest struct {
	Reason string `json:"reason" binding:"required"`
}
