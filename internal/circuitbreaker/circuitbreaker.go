// Package circuitbreaker wraps sony/gobreaker/v2 behind a smaller
// constructor surface so call sites only need a name and an optional
// state-change hook. The connection manager wraps its nonce and balance
// RPC calls in it.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Config configures a CircuitBreaker. The zero value is not usable;
// build one with DefaultConfig and override fields as needed.
type Config struct {
	Name          string
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns a Config that trips after five consecutive
// failures and stays open for 30 seconds before probing again.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// CircuitBreaker executes calls that return a typed result, short-
// circuiting with gobreaker.ErrOpenState once the breaker trips.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New builds a CircuitBreaker[T] from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   cfg.ReadyToTrip,
		OnStateChange: cfg.OnStateChange,
	}
	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs req through the breaker.
func (c *CircuitBreaker[T]) Execute(req func() (T, error)) (T, error) {
	return c.cb.Execute(req)
}

// State reports the breaker's current state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}
