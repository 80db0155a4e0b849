package connmgr

import (
	"time"

	"github.com/JAAFAR1996/go-redis-connmgr/internal"
)

// IsConnectionError checks if the error is a transport-level connection error
func IsConnectionError(err error) bool {
	return internal.IsConnectionError(err)
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	return internal.IsTimeoutError(err)
}

// IsRateLimitError checks if the error is a provider rate-limit error
func IsRateLimitError(err error) bool {
	return internal.IsRateLimitError(err)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return internal.IsValidationError(err)
}

// IsCapacityError checks if the error is a pool-capacity error
func IsCapacityError(err error) bool {
	return internal.IsCapacityError(err)
}

// RetryAt extracts the rate-limit window expiry from an error, if present
func RetryAt(err error) (time.Time, bool) {
	return internal.RetryAt(err)
}
