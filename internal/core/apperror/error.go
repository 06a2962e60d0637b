// Package apperror provides structured error handling for the platform.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced in the response envelope
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Authentication errors (401)
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidTokenType    = "INVALID_TOKEN_TYPE"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"

	// Account state errors (423)
	CodeAccountLocked    = "ACCOUNT_LOCKED"
	CodeAccountSuspended = "ACCOUNT_SUSPENDED"

	// Authorization errors (403)
	CodeForbidden = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict       = "CONFLICT"
	CodeUserExists     = "USER_EXISTS"
	CodeDuplicateField = "DUPLICATE_FIELD"

	// Precondition failures (400)
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeNoSupervisorFound = "NO_SUPERVISOR_FOUND"
	CodeNoSalesHead       = "NO_SALES_HEAD"

	// Throttling (429)
	CodeRateLimited = "RATE_LIMITED"
)

// AppError is the standard error type for the platform.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, identifiers, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidCredentials creates an authentication failure (401).
// One message for both unknown-principal and wrong-secret outcomes.
func NewInvalidCredentials() *AppError {
	return &AppError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInvalidToken creates a token verification failure (401)
func NewInvalidToken(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidToken,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInvalidTokenType is returned when an access token is presented to the
// refresh exchange (401)
func NewInvalidTokenType() *AppError {
	return &AppError{
		Code:       CodeInvalidTokenType,
		Message:    "Invalid token type",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewInvalidRefreshToken creates a refresh token failure (401)
func NewInvalidRefreshToken() *AppError {
	return &AppError{
		Code:       CodeInvalidRefreshToken,
		Message:    "Invalid or expired refresh token",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewAccountInactive creates an inactive-account failure (401)
func NewAccountInactive() *AppError {
	return &AppError{
		Code:       CodeAccountInactive,
		Message:    "Account is inactive",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewAccountLocked creates a temporary lockout failure (423)
func NewAccountLocked() *AppError {
	return &AppError{
		Code:       CodeAccountLocked,
		Message:    "Account is temporarily locked due to too many failed login attempts",
		HTTPStatus: http.StatusLocked,
	}
}

// NewAccountSuspended creates a suspension failure with the stored reason (423)
func NewAccountSuspended(reason string) *AppError {
	return &AppError{
		Code:       CodeAccountSuspended,
		Message:    fmt.Sprintf("Account is suspended: %s", reason),
		HTTPStatus: http.StatusLocked,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewUserExists creates a duplicate principal error (409)
func NewUserExists(message string) *AppError {
	return &AppError{
		Code:       CodeUserExists,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicateField creates a unique-key violation error (409)
func NewDuplicateField(field string) *AppError {
	return &AppError{
		Code:       CodeDuplicateField,
		Message:    fmt.Sprintf("%s already exists", field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"field": field},
	}
}

// NewInvalidStatus is returned when an approval transition is attempted from
// a state it is not defined for (400). The record is left unchanged.
func NewInvalidStatus(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidStatus,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNoSupervisorFound is a hard precondition failure for EMPLOYEE creation (400)
func NewNoSupervisorFound(department, region string) *AppError {
	return &AppError{
		Code:       CodeNoSupervisorFound,
		Message:    "No active supervisor found for this department and region",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"department": department, "region": region},
	}
}

// NewNoSalesHead is a hard precondition failure for customer registration (400)
func NewNoSalesHead(region string) *AppError {
	return &AppError{
		Code:       CodeNoSalesHead,
		Message:    "No sales representative available for this region",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"region": region},
	}
}

// NewRateLimited creates a throttling error (429)
func NewRateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many attempts, please try again later",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsCode checks if error carries a specific code
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
