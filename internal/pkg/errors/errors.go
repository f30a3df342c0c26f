package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeDecryption     = "DECRYPTION_ERROR"
	ErrCodeCsrf           = "CSRF_ERROR"
	ErrCodeAuthExpired    = "AUTH_EXPIRED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeTransient      = "TRANSIENT_ERROR"
	ErrCodeRefreshInvalid = "REFRESH_INVALID"
	ErrCodeStorage        = "STORAGE_ERROR"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Validation creates a validation error for malformed input
func Validation(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// Decryption creates an error for a corrupted or tampered credential blob.
// Fatal for the affected account; callers must never treat it as an empty token.
func Decryption(message string, err error) *AppError {
	return Wrap(err, ErrCodeDecryption, message, http.StatusInternalServerError)
}

// Csrf creates an error for an OAuth callback state mismatch
func Csrf(message string) *AppError {
	return New(ErrCodeCsrf, message, http.StatusForbidden)
}

// AuthExpired signals a 401 from the marketplace; triggers a token refresh, not a retry
func AuthExpired(message string) *AppError {
	return New(ErrCodeAuthExpired, message, http.StatusUnauthorized)
}

// RateLimited signals a 429 from the marketplace; surfaced with no retry
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// Transient creates a retryable error (timeouts, 5xx, network failures)
func Transient(message string, err error) *AppError {
	return Wrap(err, ErrCodeTransient, message, http.StatusBadGateway)
}

// RefreshInvalid signals that the refresh token itself was rejected;
// the account must be deactivated rather than retried
func RefreshInvalid(message string, err error) *AppError {
	return Wrap(err, ErrCodeRefreshInvalid, message, http.StatusUnauthorized)
}

// Storage creates an error for the persistence layer
func Storage(message string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, message, http.StatusInternalServerError)
}

// CodeOf returns the AppError code of err, or ErrCodeInternal for plain errors
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given AppError code
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsTransient reports whether err should be retried
func IsTransient(err error) bool { return HasCode(err, ErrCodeTransient) }

// IsAuthExpired reports whether err is an expired-authorization signal
func IsAuthExpired(err error) bool { return HasCode(err, ErrCodeAuthExpired) }

// IsRateLimited reports whether err is a rate-limit signal
func IsRateLimited(err error) bool { return HasCode(err, ErrCodeRateLimited) }

// IsRefreshInvalid reports whether err means the refresh token was rejected
func IsRefreshInvalid(err error) bool { return HasCode(err, ErrCodeRefreshInvalid) }

// IsDecryption reports whether err is a credential decryption failure
func IsDecryption(err error) bool { return HasCode(err, ErrCodeDecryption) }
