// Package errors defines the application error taxonomy returned by the
// lifecycle services: validation, authorization, not found and transient
// failures, plus the step-scoped error reported by partial admin updates.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeTransient    ErrorType = "transient_error"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"-"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Type, e.Field, e.Message)
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Unwrap exposes the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Title is the short heading shown on the client's dismissible alert.
func (e *AppError) Title() string {
	switch e.Type {
	case ErrorTypeValidation:
		return "Validation Error"
	case ErrorTypeUnauthorized:
		return "Sign-in required"
	case ErrorTypeForbidden:
		return "Not allowed"
	case ErrorTypeNotFound:
		return "No longer available"
	case ErrorTypeTransient:
		return "Temporarily unavailable"
	default:
		return "Something went wrong"
	}
}

// NewValidationError creates a validation error for a single input field.
func NewValidationError(field, message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusUnprocessableEntity,
		Field:   field,
	}
}

// NewUnauthorizedError creates an error for a missing or invalid session.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Code:    http.StatusUnauthorized,
	}
}

// NewAuthorizationError creates an error for an actor lacking rights on a row.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Message: message,
		Code:    http.StatusForbidden,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
		Details: "refresh to see the latest data",
	}
}

// NewTransientError wraps a backend failure the user may retry.
func NewTransientError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransient,
		Message: message,
		Code:    http.StatusServiceUnavailable,
		Details: "please try again",
		cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		cause:   cause,
	}
}

// StepError reports which write of a multi-step operation failed. Writes that
// completed before the failing step are not rolled back.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// GetStepError extracts StepError from error
func GetStepError(err error) *StepError {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}
	return nil
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsAuthorizationError checks if the error is an authorization error
func IsAuthorizationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeForbidden
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsTransientError checks if the error is a transient backend error
func IsTransientError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeTransient
}
