// Package whatsmeow adapts the go.mau.fi/whatsmeow protocol library to the
// core's ProtocolClient boundary (§6.3).
package whatsmeow

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"wabridge/internal/domain/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker wrapping
// every outbound protocol call.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	SuccessThreshold uint32
}

// DefaultCircuitBreakerConfig returns default circuit breaker configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "whatsmeow",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
	}
}

// CircuitBreaker wraps protocol calls so a run of failures trips the
// breaker open instead of hammering a degraded connection.
type CircuitBreaker struct {
	cb     *gobreaker.CircuitBreaker[any]
	config CircuitBreakerConfig
}

// NewCircuitBreaker builds a CircuitBreaker from config.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	var consecutiveFailures uint32

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			consecutiveFailures++
			return consecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateClosed {
				consecutiveFailures = 0
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				consecutiveFailures = 0
				return true
			}
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[any](settings), config: config}
}

// Execute runs fn with circuit breaker protection.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	result, err := c.cb.Execute(func() (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		return fn()
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, errors.ErrCircuitOpen
		}
		if err == gobreaker.ErrTooManyRequests {
			return nil, errors.ErrCircuitOpen.WithMessage("too many requests in half-open state")
		}
		return nil, err
	}
	return result, nil
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreaker) String() string {
	counts := c.cb.Counts()
	return fmt.Sprintf("CircuitBreaker[%s]: state=%s, requests=%d, failures=%d",
		c.config.Name, c.cb.State(), counts.Requests, counts.TotalFailures)
}
