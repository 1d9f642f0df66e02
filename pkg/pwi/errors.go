package pwi

import (
	"fmt"
	"time"
)

// StatusCodeError reports a non-success HTTP response from the PWI
// controller. The transport never retries; callers decide what to do
// with the failed command.
type StatusCodeError struct {
	// Path is the request path that failed
	Path string
	// Code is the HTTP status code returned by the controller
	Code int
}

func (e *StatusCodeError) Error() string {
	if e == nil {
		return "request failed"
	}
	return fmt.Sprintf("request %s failed with status %d", e.Path, e.Code)
}

// ValidationError describes a status payload that is missing a required
// field or carries a value that cannot be coerced to its declared type.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	return fmt.Sprintf("invalid status field %q: %s", e.Field, e.Reason)
}

// StatusUnavailableError means a status query that should have produced
// data returned nothing.
type StatusUnavailableError struct {
	// Device is the human-readable device label
	Device string
}

func (e *StatusUnavailableError) Error() string {
	if e == nil {
		return "status not available"
	}
	return fmt.Sprintf("%s: status not available", e.Device)
}

// InitialiseTimeoutError means every initialisation attempt exceeded its
// per-attempt deadline.
type InitialiseTimeoutError struct {
	Device   string
	Attempts int
	Timeout  time.Duration
}

func (e *InitialiseTimeoutError) Error() string {
	if e == nil {
		return "initialise timed out"
	}
	return fmt.Sprintf("%s: did not initialise within %v after %d attempts", e.Device, e.Timeout, e.Attempts)
}

// UnsupportedOperationError marks a capability a device variant does not
// expose, such as a firmware version query on hardware without one.
type UnsupportedOperationError struct {
	Device    string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	if e == nil {
		return "operation not supported"
	}
	return fmt.Sprintf("%s: %s is not supported", e.Device, e.Operation)
}
