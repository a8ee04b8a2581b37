package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/arbitrage-bot/business/evmnet/glue"
	"github.com/fd1az/arbitrage-bot/internal/apm"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/queue"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/evmnet"
	meterName  = "github.com/fd1az/arbitrage-bot/business/evmnet"
)

type callerMetrics struct {
	totalCalls   metric.Int64Counter
	callsInQueue metric.Int64UpDownCounter
}

// ContractCaller is a retrying facade over idempotent read calls,
// enqueued onto a throttled queue so a burst of reads cannot exceed the
// RPC endpoint's rate budget.
type ContractCaller struct {
	queue      *queue.Queue
	log        logger.LoggerInterface
	tracer     apm.Tracer
	maxRetries int
	metrics    *callerMetrics
}

// NewContractCaller builds a ContractCaller on top of q, with up to
// maxRetries attempts per logical call.
func NewContractCaller(q *queue.Queue, log logger.LoggerInterface, maxRetries int) (*ContractCaller, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	c := &ContractCaller{
		queue:      q,
		log:        log,
		tracer:     apm.NewTracer(tracerName),
		maxRetries: maxRetries,
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("contract caller: init metrics: %w", err)
	}

	return c, nil
}

// QueueDepth reports how many calls are currently queued or in flight.
func (c *ContractCaller) QueueDepth() int {
	return c.queue.Size() + c.queue.InFlight()
}

func (c *ContractCaller) initMetrics() error {
	meter := otel.Meter(meterName)

	totalCalls, err := meter.Int64Counter(
		"evmnet_contract_calls_total",
		metric.WithDescription("Total contract read calls attempted"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	callsInQueue, err := meter.Int64UpDownCounter(
		"evmnet_contract_calls_in_queue",
		metric.WithDescription("Contract read calls currently queued or in flight"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics = &callerMetrics{totalCalls: totalCalls, callsInQueue: callsInQueue}
	return nil
}

// MakeCall wraps viewFn in a retrying envelope of up to maxRetries
// attempts, each a fresh enqueue onto the throttled queue so retries
// respect the same rate limit as first attempts. It returns the first
// successful value or the last error once attempts are exhausted.
//
// MakeCall is a package-level generic function, not a method, because
// Go methods cannot carry their own type parameters.
func MakeCall[T any](ctx context.Context, c *ContractCaller, viewFn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := c.tracer.StartSpanFromContext(ctx, "evmnet.contract_call")
	defer span.End()

	attempt := func(ctx context.Context) (T, error) {
		c.metrics.totalCalls.Add(ctx, 1)
		c.metrics.callsInQueue.Add(ctx, 1)
		defer c.metrics.callsInQueue.Add(ctx, -1)

		return queue.AddTyped(c.queue, func() (T, error) {
			return viewFn(ctx)
		}).Await()
	}

	result, err := glue.Retry(ctx, c.maxRetries, attempt, glue.WithLogger(c.log))
	if err != nil {
		wrapped := apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
		span.RecordError(wrapped)
		span.SetAttributes(attribute.Int("attempts", c.maxRetries))
		var zero T
		return zero, wrapped
	}

	return result, nil
}
