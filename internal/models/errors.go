package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by store actions.
type ErrorKind string

const (
	// KindValidation is a server-side rejection whose message is passed through.
	KindValidation ErrorKind = "validation"
	// KindAuth is an HTTP 401; the session has already been cleared when it is returned.
	KindAuth ErrorKind = "auth"
	// KindNetwork covers transport failures and responses without a usable payload.
	KindNetwork ErrorKind = "network"
	// KindUnhandled covers local failures such as durable storage writes.
	KindUnhandled ErrorKind = "unhandled"
)

// ErrorResponse represents the error payload returned by the blog API
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Kind    ErrorKind
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithFallback returns a copy of e whose Message is replaced by fallback when
// the server did not supply one. Only validation and auth errors carry a
// server message; the others hold local text.
func (e *AppError) WithFallback(fallback string) *AppError {
	if e.Message != "" && (e.Kind == KindValidation || e.Kind == KindAuth) {
		return e
	}
	cp := *e
	cp.Message = fallback
	return &cp
}

// Predefined error constructors
func NewValidationError(status int, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    "VALIDATION_ERROR",
		Status:  status,
		Message: message,
	}
}

func NewAuthError(message string) *AppError {
	return &AppError{
		Kind:    KindAuth,
		Code:    "UNAUTHORIZED",
		Status:  401,
		Message: message,
	}
}

func NewNetworkError(status int, err error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Code:    "NETWORK_ERROR",
		Status:  status,
		Message: "network error",
		Err:     err,
	}
}

func NewUnhandledError(message string, err error) *AppError {
	return &AppError{
		Kind:    KindUnhandled,
		Code:    "INTERNAL_ERROR",
		Message: message,
		Err:     err,
	}
}

// KindOf reports the ErrorKind of err, or "" when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsAuth reports whether err is a 401 that already cleared the session.
func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}

// Result is the uniform {success, message} shape returned to callers.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ResultOf converts an action error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Result{Message: appErr.Message}
	}
	return Result{Message: err.Error()}
}
