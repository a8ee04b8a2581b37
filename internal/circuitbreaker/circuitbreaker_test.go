package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestCircuitBreaker_ExecutePassesThroughSuccess(t *testing.T) {
	cb := New[int](DefaultConfig("test"))

	got, err := cb.Execute(func() (int, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
}

func TestCircuitBreaker_ExecutePropagatesFailure(t *testing.T) {
	cb := New[int](DefaultConfig("test"))

	wantErr := errors.New("boom")
	_, err := cb.Execute(func() (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestCircuitBreaker_TripsOpenAfterConsecutiveFailures(t *testing.T) {
	cfg := Config{
		Name:        "test",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	}
	cb := New[int](cfg)

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(func() (int, error) {
			return 0, errors.New("fail")
		})
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to be open after consecutive failures, got %v", cb.State())
	}

	_, err := cb.Execute(func() (int, error) {
		return 1, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState while open, got %v", err)
	}
}

func TestCircuitBreaker_OnStateChangeHookFires(t *testing.T) {
	var transitions []gobreaker.State
	cfg := Config{
		Name:        "test",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	}
	cb := New[int](cfg)

	_, _ = cb.Execute(func() (int, error) {
		return 0, errors.New("fail")
	})

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Fatalf("expected a single transition to StateOpen, got %v", transitions)
	}
}
