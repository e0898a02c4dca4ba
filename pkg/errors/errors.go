package errors

import (
	"errors"
	"fmt"
	"net/http"
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
	ErrRateLimited
	ErrDisabled
	ErrDispatchFailed
	ErrGone
)

// StatusCode maps an error code to its HTTP status. The error middleware
// relies on this.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrDisabled:
		return http.StatusConflict
	case ErrDispatchFailed:
		return http.StatusBadGateway
	case ErrGone:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

// RateLimited carries the human-readable ceiling message that was hit.
func RateLimited(message string) *AppError {
	return &AppError{
		Code:    ErrRateLimited,
		Message: message,
	}
}

// Disabled signals that the delivery channel is not usable.
func Disabled(message string) *AppError {
	return &AppError{
		Code:    ErrDisabled,
		Message: message,
	}
}

// DispatchFailed wraps a transport failure with a short, non-sensitive
// description.
func DispatchFailed(message string, err error) *AppError {
	return &AppError{
		Code:    ErrDispatchFailed,
		Message: message,
		Err:     err,
	}
}

// Gone is used for join tokens that exist but are no longer valid. The
// message stays generic on purpose.
func Gone(message string) *AppError {
	return &AppError{
		Code:    ErrGone,
		Message: message,
	}
}

// Code extracts the ErrorCode from err, or ErrInternal if it is not an
// AppError.
func Code(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal
}

func IsNotFound(err error) bool    { return Code(err) == ErrNotFound }
func IsRateLimited(err error) bool { return Code(err) == ErrRateLimited }
func IsDisabled(err error) bool    { return Code(err) == ErrDisabled }
