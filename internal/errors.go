package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the classified kind of a connection failure
type ErrorType int

const (
	// ErrorTypeConnection indicates a transport-level failure (refused, reset, unreachable)
	ErrorTypeConnection ErrorType = iota
	// ErrorTypeTimeout indicates a deadline exceeded on an operation
	ErrorTypeTimeout
	// ErrorTypeRateLimit indicates a provider-enforced quota rejection
	ErrorTypeRateLimit
	// ErrorTypeValidation indicates the connection was established but failed a correctness probe
	ErrorTypeValidation
	// ErrorTypeCapacity indicates the pool ceiling was reached
	ErrorTypeCapacity
	// ErrorTypeUnknown indicates an unclassified failure
	ErrorTypeUnknown
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeConnection:
		return "CONNECTION"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeRateLimit:
		return "RATE_LIMIT"
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeCapacity:
		return "CAPACITY"
	default:
		return "UNKNOWN"
	}
}

// ConnError represents a connection-lifecycle error with context
type ConnError struct {
	Type      ErrorType
	UsageType string
	Message   string
	RetryAt   time.Time // set for rate-limit errors
	Cause     error
}

// Error implements the error interface
func (e *ConnError) Error() string {
	if e.UsageType != "" {
		return fmt.Sprintf("connection error [%s] for usage type '%s': %s", e.Type.String(), e.UsageType, e.Message)
	}
	return fmt.Sprintf("connection error [%s]: %s", e.Type.String(), e.Message)
}

// Unwrap returns the underlying cause error
func (e *ConnError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error type
func (e *ConnError) Is(target error) bool {
	if t, ok := target.(*ConnError); ok {
		return e.Type == t.Type
	}
	return false
}

// NewConnError creates a new ConnError
func NewConnError(errType ErrorType, usageType, message string, cause error) *ConnError {
	return &ConnError{
		Type:      errType,
		UsageType: usageType,
		Message:   message,
		Cause:     cause,
	}
}

// NewConnectionError creates a transport-level connection error
func NewConnectionError(usageType, message string, cause error) *ConnError {
	return NewConnError(ErrorTypeConnection, usageType, message, cause)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(usageType, message string, cause error) *ConnError {
	return NewConnError(ErrorTypeTimeout, usageType, message, cause)
}

// NewRateLimitError creates a rate-limit error carrying the time the window expires
func NewRateLimitError(usageType string, retryAt time.Time, cause error) *ConnError {
	err := NewConnError(ErrorTypeRateLimit, usageType,
		fmt.Sprintf("provider rate limit active until %s", retryAt.Format(time.RFC3339)), cause)
	err.RetryAt = retryAt
	return err
}

// NewValidationError creates a validation error
func NewValidationError(usageType, message string, cause error) *ConnError {
	return NewConnError(ErrorTypeValidation, usageType, message, cause)
}

// NewCapacityError creates a pool-capacity error
func NewCapacityError(usageType, message string) *ConnError {
	return NewConnError(ErrorTypeCapacity, usageType, message, nil)
}

// IsConnectionError checks if the error is a transport-level connection error
func IsConnectionError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr) && connErr.Type == ErrorTypeConnection
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr) && connErr.Type == ErrorTypeTimeout
}

// IsRateLimitError checks if the error is a rate-limit error
func IsRateLimitError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr) && connErr.Type == ErrorTypeRateLimit
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr) && connErr.Type == ErrorTypeValidation
}

// IsCapacityError checks if the error is a pool-capacity error
func IsCapacityError(err error) bool {
	var connErr *ConnError
	return errors.As(err, &connErr) && connErr.Type == ErrorTypeCapacity
}

// RetryAt extracts the rate-limit window expiry from an error, if present
func RetryAt(err error) (time.Time, bool) {
	var connErr *ConnError
	if errors.As(err, &connErr) && connErr.Type == ErrorTypeRateLimit && !connErr.RetryAt.IsZero() {
		return connErr.RetryAt, true
	}
	return time.Time{}, false
}

// rateLimitMarkers are provider-specific phrasings of quota rejection
var rateLimitMarkers = []string{
	"max requests limit",
	"rate limit",
	"too many requests",
	"quota exceeded",
}

// timeoutMarkers identify deadline-style failures
var timeoutMarkers = []string{
	"i/o timeout",
	"timeout",
	"timed out",
	"deadline exceeded",
}

// connectionMarkers identify transport-level failures
var connectionMarkers = []string{
	"connection refused",
	"connection reset",
	"network is unreachable",
	"no route to host",
	"broken pipe",
	"connection closed",
	"eof",
}

// Classify maps a raw failure to the closed error taxonomy. It is pure and
// idempotent: already-classified errors keep their type, and calling it has
// no side effects. Both the event handlers and the creation path consume
// this single classification.
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var connErr *ConnError
	if errors.As(err, &connErr) {
		return connErr.Type
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return ErrorTypeRateLimit
		}
	}

	for _, marker := range connectionMarkers {
		if strings.Contains(msg, marker) {
			return ErrorTypeConnection
		}
	}

	for _, marker := range timeoutMarkers {
		if strings.Contains(msg, marker) {
			return ErrorTypeTimeout
		}
	}

	return ErrorTypeUnknown
}
