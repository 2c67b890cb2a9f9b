package models

import "fmt"

// ValidationError reports invalid input detected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthError reports a rejected API token.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (status %d)", e.StatusCode)
}

// APIError reports a failed API call or a malformed/unexpected response.
type APIError struct {
	Op     string // e.g. "create", "status", "delete"
	PodID  string // empty when not yet known
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s", e.Op)
	if e.PodID != "" {
		msg += fmt.Sprintf(" (pod %s)", e.PodID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

// TimeoutError reports an exhausted readiness poll budget.
type TimeoutError struct {
	PodID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pod %s not running after %d attempts", e.PodID, e.Attempts)
}

// HostKeyScanError reports an exhausted host-key scan budget.
type HostKeyScanError struct {
	Host     string
	Port     int
	Attempts int
	Err      error
}

func (e *HostKeyScanError) Error() string {
	msg := fmt.Sprintf("host key scan of %s:%d failed after %d attempts", e.Host, e.Port, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HostKeyScanError) Unwrap() error { return e.Err }
