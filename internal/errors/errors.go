package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Base error types
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("unavailable")
	ErrTimeout       = errors.New("timeout")
	ErrInternalError = errors.New("internal error")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeInternal    ErrorType = "internal"
)

// AppError is a structured error for service operations
type AppError struct {
	Type      ErrorType
	Op        string // Operation that failed (e.g., "chat.send", "report.export")
	Resource  string // Resource identifier if applicable
	Err       error  // Underlying error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrUnavailable:
		return e.Type == ErrorTypeUnavailable
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	}

	return errors.Is(e.Err, target)
}

// New creates a new AppError
func New(errorType ErrorType, op, resource string, err error) *AppError {
	return &AppError{
		Type:      errorType,
		Op:        op,
		Resource:  resource,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// NotFound wraps err as a not-found error for resource.
func NotFound(op, resource string, err error) error {
	return New(ErrorTypeNotFound, op, resource, err)
}

// Invalid wraps err as a validation error.
func Invalid(op string, err error) error {
	return New(ErrorTypeValidation, op, "", err)
}

// Unavailable wraps err as an unavailable-dependency error.
func Unavailable(op, resource string, err error) error {
	return New(ErrorTypeUnavailable, op, resource, err)
}

// HTTPStatus maps an error to the HTTP status code the API should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the machine-readable code for err used in API error bodies.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return string(ErrorTypeNotFound)
	case errors.Is(err, ErrInvalidInput):
		return string(ErrorTypeValidation)
	default:
		return string(ErrorTypeInternal)
	}
}
