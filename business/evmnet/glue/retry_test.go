package glue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fd1az/arbitrage-bot/internal/logger"
)

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	got, err := Retry(context.Background(), 3, func(ctx context.Context) (int, error) {
		return 5, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestRetry_RetriesUntilSuccess(t *testing.T) {
	var attempts int
	got, err := Retry(context.Background(), 5, func(ctx context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 9, nil
	}, WithInterval(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	wantErr := errors.New("always fails")
	var attempts int
	_, err := Retry(context.Background(), 3, func(ctx context.Context) (int, error) {
		attempts++
		return 0, wantErr
	}, WithInterval(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_OnErrorHookInvokedPerAttempt(t *testing.T) {
	var gotAttempts []uint
	_, err := Retry(context.Background(), 3, func(ctx context.Context) (int, error) {
		return 0, errors.New("fail")
	}, WithInterval(time.Millisecond), WithMaxDelay(5*time.Millisecond),
		WithOnError(func(attempt uint, err error) {
			gotAttempts = append(gotAttempts, attempt)
		}))
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(gotAttempts) != 2 {
		t.Fatalf("expected onError to fire twice (between 3 attempts), got %v", gotAttempts)
	}
}

func TestRetry_PanickingOnErrorHookDoesNotEscapeRetryLoop(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelDebug, "test")
	var attempts int
	_, err := Retry(context.Background(), 3, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("fail")
	}, WithInterval(time.Millisecond), WithMaxDelay(5*time.Millisecond), WithLogger(log),
		WithOnError(func(attempt uint, err error) {
			panic("boom")
		}))
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts != 3 {
		t.Fatalf("expected all 3 attempts to run despite panicking hook, got %d", attempts)
	}
}

func TestRetry_ContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	_, err := Retry(ctx, 10, func(ctx context.Context) (int, error) {
		attempts++
		cancel()
		return 0, errors.New("fail")
	}, WithInterval(time.Millisecond), WithMaxDelay(5*time.Millisecond))
	if err == nil {
		t.Fatal("expected an error")
	}
	if attempts >= 10 {
		t.Fatalf("expected cancellation to stop retries early, ran %d attempts", attempts)
	}
}
