package error

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Authentication Errors (1xxx)
	ErrCodeInvalidCredentials ErrorCode = "AUTH_1001"
	ErrCodeUserNotFound       ErrorCode = "AUTH_1002"
	ErrCodeUnauthorized       ErrorCode = "AUTH_1003"
	ErrCodeInvalidRequest     ErrorCode = "AUTH_1006"

	// Validation Errors (2xxx)
	ErrCodeInvalidEmail      ErrorCode = "VALID_2001"
	ErrCodeWeakPassword      ErrorCode = "VALID_2002"
	ErrCodeMalformedRequest  ErrorCode = "VALID_2005"
	ErrCodeDuplicateUsername ErrorCode = "VALID_2006"
	ErrCodeDuplicateEmail    ErrorCode = "VALID_2007"
	ErrCodePasswordMismatch  ErrorCode = "VALID_2008"

	// Rate Limiting Errors (3xxx)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_3001"

	// Password Reset Errors (4xxx)
	ErrCodeInvalidResetLink ErrorCode = "RESET_4001"

	// Database Errors (5xxx)
	ErrCodeDatabaseError ErrorCode = "DB_5001"

	// Server Errors (6xxx)
	ErrCodeInternalServerError ErrorCode = "SERVER_6001"
)

// AppError represents a structured application error. Message is the only
// part ever written to a client; Details stays in the logs.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"-"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so errors.Is(err, ErrInvalidRequest("")) works
// regardless of details.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Authentication errors
func ErrInvalidCredentials(details string) *AppError {
	return NewAppError(ErrCodeInvalidCredentials, "Username or password is incorrect!", details, nil)
}

func ErrUnknownUsername(username string) *AppError {
	return NewAppError(ErrCodeUserNotFound, "Username or password is incorrect!", fmt.Sprintf("Username: %s", username), nil)
}

func ErrUnauthorized(details string) *AppError {
	return NewAppError(ErrCodeUnauthorized, "Unauthorized", details, nil)
}

// ErrInvalidRequest is the single outcome of every rejected rotation. The
// diagnostic reason goes into Details.
func ErrInvalidRequest(reason string) *AppError {
	return NewAppError(ErrCodeInvalidRequest, "Invalid Request", reason, nil)
}

// Validation errors
func ErrInvalidEmail(email string) *AppError {
	return NewAppError(ErrCodeInvalidEmail, "Email is not valid!", fmt.Sprintf("Email: %s", email), nil)
}

func ErrWeakPassword(deficiencies string) *AppError {
	return NewAppError(ErrCodeWeakPassword, deficiencies, "", nil)
}

func ErrMalformedRequest(message string) *AppError {
	return NewAppError(ErrCodeMalformedRequest, message, "", nil)
}

func ErrDuplicateUsername(username string) *AppError {
	return NewAppError(ErrCodeDuplicateUsername, "Username already exist!", fmt.Sprintf("Username: %s", username), nil)
}

func ErrDuplicateEmail(email string) *AppError {
	return NewAppError(ErrCodeDuplicateEmail, "Email already exist!", fmt.Sprintf("Email: %s", email), nil)
}

func ErrPasswordMismatch() *AppError {
	return NewAppError(ErrCodePasswordMismatch, "Passwords do not match", "", nil)
}

// Rate limiting errors
func ErrRateLimitExceeded(attempts int, window string) *AppError {
	return NewAppError(ErrCodeRateLimitExceeded, "Too many requests", fmt.Sprintf("Attempts: %d, Window: %s", attempts, window), nil)
}

// Password reset errors
func ErrEmailNotFound(email string) *AppError {
	return NewAppError(ErrCodeUserNotFound, "email doesn't exist", fmt.Sprintf("Email: %s", email), nil)
}

func ErrResetUserNotFound(email string) *AppError {
	return NewAppError(ErrCodeUserNotFound, "User doesn't exist", fmt.Sprintf("Email: %s", email), nil)
}

func ErrInvalidResetLink(details string) *AppError {
	return NewAppError(ErrCodeInvalidResetLink, "Invalid Reset link", details, nil)
}

// Database errors
func ErrDatabaseError(operation string, cause error) *AppError {
	return NewAppError(ErrCodeDatabaseError, "Database operation failed", fmt.Sprintf("Operation: %s", operation), cause)
}

// Server errors
func ErrInternalServerError(details string, cause error) *AppError {
	return NewAppError(ErrCodeInternalServerError, "Internal server error", details, cause)
}

// GetHTTPStatusCode maps an error to the HTTP status the API answers with.
func GetHTTPStatusCode(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeInvalidCredentials, ErrCodeInvalidRequest,
		ErrCodeInvalidEmail, ErrCodeWeakPassword, ErrCodeMalformedRequest,
		ErrCodeDuplicateUsername, ErrCodeDuplicateEmail, ErrCodePasswordMismatch,
		ErrCodeInvalidResetLink:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to send to a client for err.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != ErrCodeDatabaseError && appErr.Code != ErrCodeInternalServerError {
		return appErr.Message
	}
	return "Internal server error"
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Message string `json:"message"`
}

func NewErrorResponse(err error) *ErrorResponse {
	return &ErrorResponse{Message: PublicMessage(err)}
}
