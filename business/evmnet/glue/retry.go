// Package glue holds the small shared helpers consumed by the contract
// caller, connection manager and transaction executor: retry-with-
// backoff, a receipt-wait loop, and a parallel bulk fetcher. None of it
// is EVM-specific on its own; it is grouped here because all three
// callers are in this bounded context.
package glue

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/fd1az/arbitrage-bot/internal/logger"
)

// options configures Retry.
type options struct {
	minDelay time.Duration
	maxDelay time.Duration
	onError  func(attempt uint, err error)
	log      logger.LoggerInterface
}

// Option configures a retry helper call.
type Option func(*options)

// WithInterval sets the initial retry delay (default 1s).
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.minDelay = d }
}

// WithMaxDelay caps the backoff delay (default 60s).
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) { o.maxDelay = d }
}

// WithOnError registers a hook invoked between attempts with the
// attempt number (1-indexed) and the error that triggered the retry.
func WithOnError(fn func(attempt uint, err error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithLogger supplies a logger used to report a panic or error raised
// by the onError hook itself, so a misbehaving caller callback cannot
// poison the retry loop.
func WithLogger(log logger.LoggerInterface) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) *options {
	o := &options{
		minDelay: time.Second,
		maxDelay: 60 * time.Second,
	}
	for _, fn := range opts {
		fn(o)
	}
	return o
}

// Retry runs attemptFn up to maxRetries times, with exponential backoff
// bounded by [minDelay, maxDelay] (1s/60s by default, matching the
// spec's callWithRetry defaults). It returns the first successful
// result, or the last error once attempts are exhausted.
func Retry[T any](ctx context.Context, maxRetries int, attemptFn func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := buildOptions(opts)
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var result T
	var attemptNum uint

	err := retry.Do(
		func() error {
			attemptNum++
			v, err := attemptFn(ctx)
			if err != nil {
				return err
			}
			result = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)),
		retry.Delay(o.minDelay),
		retry.MaxDelay(o.maxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			callOnError(o, n+1, err)
		}),
	)

	return result, err
}

// callOnError invokes the caller-supplied onError hook, recovering and
// logging any panic rather than letting it escape the retry loop.
func callOnError(o *options, attempt uint, err error) {
	if o.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && o.log != nil {
			o.log.Error(context.Background(), "retry onError hook panicked", "attempt", attempt, "panic", r)
		}
	}()
	o.onError(attempt, err)
}

