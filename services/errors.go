package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeUnauthorized   ErrorType = "unauthorized"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeTransport      ErrorType = "transport"
	ErrorTypeRemoteRejected ErrorType = "remote_rejected"
	ErrorTypeConfigMissing  ErrorType = "config_missing"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Not Found Errors
	ErrPostNotFound    = NewDomainError(ErrorTypeNotFound, "post not found", nil)
	ErrBindingNotFound = NewDomainError(ErrorTypeNotFound, "sync binding not found", nil)
	ErrOptionNotFound  = NewDomainError(ErrorTypeNotFound, "option not found", nil)

	// Validation Errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrUnknownSource   = NewDomainError(ErrorTypeValidation, "unknown event source", nil)
	ErrInvalidPostID   = NewDomainError(ErrorTypeValidation, "invalid post id", nil)
	ErrInvalidRemoteID = NewDomainError(ErrorTypeValidation, "invalid remote event id", nil)

	// Authorization Errors
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)

	// Internal Errors
	ErrInternal          = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError     = NewDomainError(ErrorTypeInternal, "database error", nil)
	ErrTransactionFailed = NewDomainError(ErrorTypeInternal, "transaction failed", nil)

	// Remote Errors
	ErrTransport      = NewDomainError(ErrorTypeTransport, "gancio request failed", nil)
	ErrRemoteRejected = NewDomainError(ErrorTypeRemoteRejected, "gancio rejected the request", nil)
	ErrConfigMissing  = NewDomainError(ErrorTypeConfigMissing, "gancio instance URL or token not configured", nil)
)

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsTransportError checks if the remote request never completed
func IsTransportError(err error) bool {
	return hasType(err, ErrorTypeTransport)
}

// IsRemoteRejectedError checks if the remote service answered with a failure status
func IsRemoteRejectedError(err error) bool {
	return hasType(err, ErrorTypeRemoteRejected)
}

// IsConfigMissingError checks if the remote instance is not configured
func IsConfigMissingError(err error) bool {
	return hasType(err, ErrorTypeConfigMissing)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapTransport wraps an error as a transport error
func WrapTransport(message string, err error) error {
	return NewDomainError(ErrorTypeTransport, message, err)
}
