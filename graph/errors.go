package graph

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPartitionKey = errors.New("invalid partition key")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrDatabaseNotFound    = errors.New("database not found")
	ErrElementTooLarge     = errors.New("element exceeds max batch size")
)

// ThrottleError signals the store is over capacity. RetryAfter is the store's suggested delay.
type ThrottleError struct {
	RetryAfter time.Duration
	Err        error
}

func NewThrottleError(retryAfter time.Duration, err error) *ThrottleError {
	return &ThrottleError{RetryAfter: retryAfter, Err: err}
}

func (e *ThrottleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("throttled: retry after %v", e.RetryAfter)
	}
	return fmt.Sprintf("throttled: retry after %v: %v", e.RetryAfter, e.Err)
}

func (e *ThrottleError) Unwrap() error {
	return e.Err
}

func IsThrottle(err error) (*ThrottleError, bool) {
	var throttle *ThrottleError
	if errors.As(err, &throttle) {
		return throttle, true
	}
	return nil, false
}

// ValidationError is a permanent, per element rejection. It is never retried.
type ValidationError struct {
	ID     string
	Reason string
}

func NewValidationError(id, reason string) *ValidationError {
	return &ValidationError{ID: id, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid element %q: %s", e.ID, e.Reason)
}
