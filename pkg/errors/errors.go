package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures of the monitor
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeProbe      ErrorType = "probe"
	ErrorTypeRequest    ErrorType = "request"
	ErrorTypeRestart    ErrorType = "restart"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeLocked     ErrorType = "locked"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Startup errors
func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewConfigError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConfig, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewLockedError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeLocked, message, cause)
}

// Per-poll errors
func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

func NewProbeError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProbe, message, cause)
}

func NewRequestError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeRequest, message, cause)
}

func NewRestartError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeRestart, message, cause)
}

func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

// isType reports whether any DomainError in the chain has type t
func isType(err error, t ErrorType) bool {
	return errors.Is(err, &DomainError{Type: t})
}

func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }
func IsConfigError(err error) bool     { return isType(err, ErrorTypeConfig) }
func IsNotFoundError(err error) bool   { return isType(err, ErrorTypeNotFound) }
func IsProbeError(err error) bool      { return isType(err, ErrorTypeProbe) }
func IsRequestError(err error) bool    { return isType(err, ErrorTypeRequest) }
func IsRestartError(err error) bool    { return isType(err, ErrorTypeRestart) }
func IsTimeoutError(err error) bool    { return isType(err, ErrorTypeTimeout) }
func IsIOError(err error) bool         { return isType(err, ErrorTypeIO) }
func IsLockedError(err error) bool     { return isType(err, ErrorTypeLocked) }

// ErrorCollection aggregates validation failures so they can be reported at once
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
