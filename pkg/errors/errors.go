package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
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

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrUnauthorized
	ErrForbidden
	ErrInternal
	ErrConflict
)

// Credential and enrollment error codes
const (
	ErrInvalidOrExpiredCode ErrorCode = iota + 2000
	ErrAlreadyActive
	ErrCapacityExceeded
	ErrValidationFailed
	ErrSubmissionFailed
	ErrCodeGenerationExhausted
	ErrInvalidTransition
)

// Error constructors
func NewNotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func NewBadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Common errors
func NotFound(resource string, err error) *AppError {
	return NewNotFound(resource, err)
}

func BadRequest(message string, err error) *AppError {
	return NewBadRequest(message, err)
}

func Internal(err error) *AppError {
	return NewInternal(err)
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// InvalidOrExpiredCode is returned for any access code that does not resolve
// to an active, unexpired credential. The message is deliberately identical
// for never-issued, deactivated and expired codes.
func InvalidOrExpiredCode() *AppError {
	return &AppError{
		Code:    ErrInvalidOrExpiredCode,
		Message: "invalid or expired access code",
	}
}

func AlreadyActive(incidentID string) *AppError {
	return &AppError{
		Code:    ErrAlreadyActive,
		Message: fmt.Sprintf("incident %s already has an active access credential", incidentID),
	}
}

func CapacityExceeded(max int) *AppError {
	return &AppError{
		Code:    ErrCapacityExceeded,
		Message: fmt.Sprintf("credential personnel capacity of %d reached", max),
	}
}

func ValidationFailed(message string) *AppError {
	return &AppError{
		Code:    ErrValidationFailed,
		Message: message,
	}
}

func SubmissionFailed(who string, err error) *AppError {
	return &AppError{
		Code:    ErrSubmissionFailed,
		Message: fmt.Sprintf("failed to register %s", who),
		Err:     err,
	}
}

func InvalidTransition(message string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: message,
	}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
