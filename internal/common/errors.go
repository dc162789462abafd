package common

import (
	"context"
	"errors"
	"fmt"
)

// Common error types used across the application
var (
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
	// ErrNetworkFailure indicates network connectivity issues
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidConfiguration indicates configuration issues
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrServiceUnavailable indicates a service is not available
	ErrServiceUnavailable = errors.New("service unavailable")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ErrorKind classifies errors so callers can pick retry/backoff behavior
// without inspecting error strings.
type ErrorKind string

const (
	ErrorKindNetwork       ErrorKind = "network"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindParsing       ErrorKind = "parsing"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindPersistence   ErrorKind = "persistence"
	ErrorKindDispatch      ErrorKind = "dispatch"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// ClassifyError maps an error to its ErrorKind. Unrecognized errors are
// ErrorKindUnknown, never a failure in themselves.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}

	var netErr *NetworkError
	var parseErr *ParsingError
	var cfgErr *ConfigurationError
	var persistErr *PersistenceError
	var dispatchErr *DispatchError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return ErrorKindTimeout
	case errors.As(err, &netErr), errors.Is(err, ErrNetworkFailure):
		return ErrorKindNetwork
	case errors.As(err, &parseErr):
		return ErrorKindParsing
	case errors.As(err, &cfgErr), errors.Is(err, ErrInvalidConfiguration):
		return ErrorKindConfiguration
	case errors.As(err, &persistErr):
		return ErrorKindPersistence
	case errors.As(err, &dispatchErr):
		return ErrorKindDispatch
	default:
		return ErrorKindUnknown
	}
}

// IsFatal reports whether an error should halt the monitor instead of being
// absorbed by the per-cycle error handler. Only configuration errors are
// promoted to fatal: retrying a guaranteed-to-fail cycle helps nobody.
func IsFatal(err error) bool {
	return ClassifyError(err) == ErrorKindConfiguration
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ConfigurationError represents configuration-related errors
type ConfigurationError struct {
	Section string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Section != "" && e.Field != "" {
		return fmt.Sprintf("configuration error in section '%s', field '%s': %s", e.Section, e.Field, e.Reason)
	} else if e.Section != "" {
		return fmt.Sprintf("configuration error in section '%s': %s", e.Section, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(section, field, reason string) *ConfigurationError {
	return &ConfigurationError{
		Section: section,
		Field:   field,
		Reason:  reason,
	}
}

// NetworkError represents network-related errors
type NetworkError struct {
	URL     string
	Reason  string
	Wrapped error
}

func (e *NetworkError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("network error for '%s': %s: %v", e.URL, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("network error for '%s': %s", e.URL, e.Reason)
}

func (e *NetworkError) Unwrap() error {
	return e.Wrapped
}

// NewNetworkError creates a new network error
func NewNetworkError(url, reason string, wrapped error) *NetworkError {
	return &NetworkError{
		URL:     url,
		Reason:  reason,
		Wrapped: wrapped,
	}
}

// ParsingError represents failures to extract structured slot data from markup
type ParsingError struct {
	Source  string
	Reason  string
	Wrapped error
}

func (e *ParsingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("parsing error for '%s': %s: %v", e.Source, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("parsing error for '%s': %s", e.Source, e.Reason)
}

func (e *ParsingError) Unwrap() error {
	return e.Wrapped
}

// NewParsingError creates a new parsing error
func NewParsingError(source, reason string, wrapped error) *ParsingError {
	return &ParsingError{
		Source:  source,
		Reason:  reason,
		Wrapped: wrapped,
	}
}

// PersistenceError represents storage failures. Readers treat these as
// "empty state"; writers log and continue.
type PersistenceError struct {
	Path    string
	Op      string
	Wrapped error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s '%s'): %v", e.Op, e.Path, e.Wrapped)
}

func (e *PersistenceError) Unwrap() error {
	return e.Wrapped
}

// NewPersistenceError creates a new persistence error
func NewPersistenceError(op, path string, wrapped error) *PersistenceError {
	return &PersistenceError{
		Path:    path,
		Op:      op,
		Wrapped: wrapped,
	}
}

// DispatchError represents a notification delivery failure on one channel.
// Channel failures are independent; a DispatchError never fails the cycle.
type DispatchError struct {
	Channel string
	Wrapped error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error on channel '%s': %v", e.Channel, e.Wrapped)
}

func (e *DispatchError) Unwrap() error {
	return e.Wrapped
}

// NewDispatchError creates a new dispatch error
func NewDispatchError(channel string, wrapped error) *DispatchError {
	return &DispatchError{
		Channel: channel,
		Wrapped: wrapped,
	}
}
