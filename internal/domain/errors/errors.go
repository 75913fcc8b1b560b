package errors

import (
	"errors"
	"fmt"
	"time"
)

// DomainError represents a domain-specific error with code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for DomainError comparison
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithCause returns a new DomainError with the given cause
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}

// WithMessage returns a new DomainError with a custom message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Cause:   e.Cause,
	}
}

// GetCode returns the error code
func (e *DomainError) GetCode() string {
	return e.Code
}

// GetMessage returns the error message
func (e *DomainError) GetMessage() string {
	return e.Message
}

// IsDomainError checks if an error is a DomainError
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts a DomainError from an error chain
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var rateLimited *RateLimitedError
	if errors.As(err, &rateLimited) {
		return rateLimited.DomainError
	}
	var protocolErr *ProtocolError
	if errors.As(err, &protocolErr) {
		return protocolErr.DomainError
	}
	return nil
}

// Pre-defined domain errors. These are the error kinds the send pipeline
// and its collaborators surface to callers (§7 of the design).
var (
	// Admission errors: terminal and cheap, never retried by the core.
	ErrInvalidJID   = NewDomainError("INVALID_JID", "recipient is not a valid WhatsApp jid")
	ErrNotConnected = NewDomainError("NOT_CONNECTED", "session is not connected")
	ErrHibernating  = NewDomainError("HIBERNATING", "send pipeline is hibernating")
	ErrWarmupLimit  = NewDomainError("WARMUP_LIMIT", "recipient warmup ceiling reached")

	// RateLimited is returned with scope/wait details, see RateLimitedError.
	ErrRateLimited = NewDomainError("RATE_LIMITED", "rate limit exceeded")

	// Canceled means a deadline or shutdown fired mid-sleep; no counters mutated.
	ErrCanceled = NewDomainError("CANCELED", "send canceled before completion")

	// ProtocolError wraps a failed call into the protocol-library collaborator.
	ErrProtocolError = NewDomainError("PROTOCOL_ERROR", "protocol library call failed")

	// CircuitOpen surfaces when the breaker around protocol calls has tripped.
	ErrCircuitOpen = NewDomainError("CIRCUIT_OPEN", "circuit breaker is open, protocol calls suspended")

	// ErrHibernationTooEarly is returned by exitHibernation before the minimum duration elapses.
	ErrHibernationTooEarly = NewDomainError("HIBERNATION_MINIMUM_NOT_ELAPSED", "hibernation minimum duration has not elapsed")

	// Session/config errors carried over from the bridge's session lifecycle.
	ErrSessionNotFound  = NewDomainError("SESSION_NOT_FOUND", "session not found")
	ErrConfigInvalid    = NewDomainError("CONFIG_INVALID", "configuration is invalid")
	ErrPersistenceStale = NewDomainError("PERSISTENCE_STALE", "persisted state file version unknown, resetting")
)

// RateLimitScope identifies which gate inside the rate limiter rejected a send.
type RateLimitScope string

const (
	ScopeHourly   RateLimitScope = "HOURLY"
	ScopeDaily    RateLimitScope = "DAILY"
	ScopeInterval RateLimitScope = "INTERVAL"
)

// RateLimitedError carries the scope and wait duration for a RATE_LIMITED rejection.
type RateLimitedError struct {
	*DomainError
	Scope  RateLimitScope
	WaitMs int64
}

// NewRateLimitedError builds a RateLimitedError for the given scope and wait.
func NewRateLimitedError(scope RateLimitScope, wait time.Duration) *RateLimitedError {
	if wait < 0 {
		wait = 0
	}
	return &RateLimitedError{
		DomainError: ErrRateLimited.WithMessage(fmt.Sprintf("rate limited: %s, retry in %s", scope, wait)),
		Scope:       scope,
		WaitMs:      wait.Milliseconds(),
	}
}

// ProtocolError wraps a failure from the protocol-library collaborator,
// carrying whether the caller may consider the underlying operation retryable.
type ProtocolError struct {
	*DomainError
	Retryable bool
}

// NewProtocolError builds a ProtocolError from an underlying cause.
func NewProtocolError(cause error, retryable bool) *ProtocolError {
	return &ProtocolError{
		DomainError: ErrProtocolError.WithCause(cause),
		Retryable:   retryable,
	}
}
