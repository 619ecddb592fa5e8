// Package models defines the domain entities and error types shared across
// the client SDK and the relay service.
package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies an AppError for propagation decisions. Every failed
// mutation resolves to exactly one kind; callers decide between retry,
// rollback/refetch, and user notification based on it.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindTransient    ErrorKind = "transient"
	KindPermanent    ErrorKind = "permanent"
	KindNotFound     ErrorKind = "not_found"
	KindUnauthorized ErrorKind = "unauthorized"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Kind    ErrorKind
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

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Kind:    KindValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Kind:    KindUnauthorized,
		Message: message,
	}
}

// NewTransientError wraps a failure that is safe to retry on an idempotent
// operation: timeouts, connection resets, 5xx responses.
func NewTransientError(err error) *AppError {
	return &AppError{
		Code:    "TRANSIENT_ERROR",
		Kind:    KindTransient,
		Message: "Temporary service failure",
		Err:     err,
	}
}

// NewPermanentError wraps a failure that will not succeed on retry.
func NewPermanentError(message string, err error) *AppError {
	return &AppError{
		Code:    "PERMANENT_ERROR",
		Kind:    KindPermanent,
		Message: message,
		Err:     err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Kind:    KindPermanent,
		Message: "Internal error",
		Err:     err,
	}
}

// KindOf extracts the ErrorKind from err, defaulting to KindPermanent for
// errors outside the AppError taxonomy.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindPermanent
}

// IsTransient reports whether err may be retried on an idempotent operation.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// ErrorResponse is the JSON error body returned by the relay service.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithError writes a standardized error response.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
