package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fd1az/arbitrage-bot/business/evmnet/evmconst"
	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
	"github.com/fd1az/arbitrage-bot/internal/apm"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/queue"
)

// TxInstrumentationEvent is the structured record emitted for every
// executed transaction, regardless of outcome.
type TxInstrumentationEvent struct {
	TxTo           string
	TxType         string
	TxHash         string
	TimeExecCalled time.Time
	WaitSubmit     time.Duration
	WaitConfirm    time.Duration
	WaitError      time.Duration
	RPCEndpoint    string
	UserAddress    string
	Error          error
	ParsedError    string
}

// TransactionExecutor serializes state-changing transactions over a
// dedicated, concurrency-1 throttled queue so nonce allocation and
// submission are never interleaved across goroutines.
type TransactionExecutor struct {
	queue  *queue.Queue
	conn   ConnectionManager
	log    logger.LoggerInterface
	tracer apm.Tracer

	nowFunc func() time.Time

	mu              sync.Mutex
	nonce           *uint64
	lastTxTimestamp time.Time

	beforeTransaction func(ctx context.Context, tx *domain.QueuedTransaction) error
	afterTransaction  func(event TxInstrumentationEvent)
	gasSettings       GasSettingProvider
}

// TransactionExecutorOption configures optional executor hooks.
type TransactionExecutorOption func(*TransactionExecutor)

// WithBeforeTransaction registers a hook run just before composing the
// submission request; an error it returns aborts the attempt and is
// routed to OnSubmissionError.
func WithBeforeTransaction(fn func(ctx context.Context, tx *domain.QueuedTransaction) error) TransactionExecutorOption {
	return func(e *TransactionExecutor) { e.beforeTransaction = fn }
}

// WithAfterTransaction registers a hook invoked with the instrumentation
// event once the submission attempt completes and, for a submitted
// transaction, again once the receipt wait settles.
func WithAfterTransaction(fn func(event TxInstrumentationEvent)) TransactionExecutorOption {
	return func(e *TransactionExecutor) { e.afterTransaction = fn }
}

// WithGasSettingProvider overrides the default ("Average") gas setting
// resolution used when a queued transaction does not override gas price.
func WithGasSettingProvider(fn GasSettingProvider) TransactionExecutorOption {
	return func(e *TransactionExecutor) { e.gasSettings = fn }
}

// WithNowFunc overrides the executor's clock; used by tests.
func WithNowFunc(fn func() time.Time) TransactionExecutorOption {
	return func(e *TransactionExecutor) { e.nowFunc = fn }
}

// NewTransactionExecutor builds a TransactionExecutor backed by its own
// internal (3, 100ms, 1) throttled queue.
func NewTransactionExecutor(conn ConnectionManager, log logger.LoggerInterface, opts ...TransactionExecutorOption) (*TransactionExecutor, error) {
	q, err := queue.New(
		evmconst.TxExecutorMaxInvocationsPerInterval,
		evmconst.TxExecutorInvocationInterval,
		evmconst.TxExecutorMaxConcurrency,
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeQueueConfigInvalid, apperror.WithCause(err))
	}

	e := &TransactionExecutor{
		queue:       q,
		conn:        conn,
		log:         log,
		tracer:      apm.NewTracer(tracerName),
		nowFunc:     time.Now,
		gasSettings: func() string { return string(domain.GasSettingAverage) },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Close releases the executor's internal queue.
func (e *TransactionExecutor) Close() {
	e.queue.Close()
}

// QueueTransaction resolves the gas price up front, allocates the
// pending transaction's two futures, enqueues the execution, and
// returns immediately.
func (e *TransactionExecutor) QueueTransaction(ctx context.Context, tx *domain.QueuedTransaction) *domain.PendingTransaction {
	if tx.Overrides.GasPrice == nil {
		prices := e.conn.GetAutoGasPrices()
		gwei := domain.ResolveAutoGasPriceGwei(prices, e.gasSettings())
		tx.Overrides.GasPrice = domain.GweiToWei(gwei)
	}

	pending := domain.NewPendingTransaction()

	e.queue.Add(func() (any, error) {
		e.execute(ctx, tx, pending)
		return nil, nil
	})

	return pending
}

// execute runs inside the internal queue (concurrency 1), so it never
// races with another transaction's nonce allocation.
func (e *TransactionExecutor) execute(ctx context.Context, tx *domain.QueuedTransaction, pending *domain.PendingTransaction) {
	ctx, span := e.tracer.StartSpanFromContext(ctx, "evmnet.tx_execute")
	span.SetAttributes(attribute.String("action_id", tx.ActionID), attribute.String("method", tx.MethodName))
	defer span.End()

	event := TxInstrumentationEvent{
		TxTo:           tx.Contract.Address().Hex(),
		TxType:         tx.MethodName,
		TimeExecCalled: e.nowFunc(),
		RPCEndpoint:    e.conn.RPCURL(),
	}
	if addr, ok := e.conn.GetAddress(); ok {
		event.UserAddress = addr.Hex()
	}

	nonce, err := e.resolveNonce(ctx)
	if err != nil {
		e.failSubmission(tx, pending, &event, span, apperror.CodeSubmitError, err)
		return
	}

	if e.beforeTransaction != nil {
		if err := e.beforeTransaction(ctx, tx); err != nil {
			e.failSubmission(tx, pending, &event, span, apperror.CodeSubmitError, err)
			return
		}
	}

	overrides := domain.TransactionOverrides{GasLimit: evmconst.DefaultGasLimit}.Clone()
	if tx.Overrides.GasLimit != 0 {
		overrides.GasLimit = tx.Overrides.GasLimit
	}
	if tx.Overrides.GasPrice != nil {
		overrides.GasPrice = tx.Overrides.GasPrice
	}

	submitStart := e.nowFunc()
	response, err := e.submitWithTimeout(ctx, tx, nonce, overrides)
	event.WaitSubmit = e.nowFunc().Sub(submitStart)

	if err != nil {
		code := apperror.CodeSubmitError
		if errors.Is(err, context.DeadlineExceeded) {
			code = apperror.CodeSubmitTimeout
		}
		e.failSubmission(tx, pending, &event, span, code, err)
		return
	}

	e.onSubmissionSuccess(nonce)

	event.TxHash = response.Hash().Hex()
	pending.Submitted.Resolve(response)
	if tx.OnTransactionResponse != nil {
		safeInvoke(e.log, "onTransactionResponse", func() { tx.OnTransactionResponse(response) })
	}

	e.deliverInstrumentation(event)
	span.SetStatus(codes.Ok, "submitted")

	go e.awaitConfirmation(detachContext(ctx), tx, pending, response.Hash(), event)
}

func (e *TransactionExecutor) submitWithTimeout(ctx context.Context, tx *domain.QueuedTransaction, nonce uint64, overrides domain.TransactionOverrides) (*types.Transaction, error) {
	submitCtx, cancel := context.WithTimeout(ctx, evmconst.TxSubmitTimeout)
	defer cancel()

	opts, err := e.conn.TransactOpts(nonce, overrides.GasPrice, overrides.GasLimit)
	if err != nil {
		return nil, err
	}

	type result struct {
		tx  *types.Transaction
		err error
	}
	ch := make(chan result, 1)

	go func() {
		response, err := tx.Contract.Transact(submitCtx, opts, tx.MethodName, tx.Args...)
		ch <- result{tx: response, err: err}
	}()

	select {
	case <-submitCtx.Done():
		return nil, fmt.Errorf("submit timeout for action %q: %w", tx.ActionID, submitCtx.Err())
	case r := <-ch:
		return r.tx, r.err
	}
}

// resolveNonce implements the nonce-staleness refresh: a nonce already
// in use within NonceStaleAfter is reused, otherwise a fresh value is
// fetched from the chain.
func (e *TransactionExecutor) resolveNonce(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	stale := e.nonce == nil || e.nowFunc().Sub(e.lastTxTimestamp) > evmconst.NonceStaleAfter
	current := e.nonce
	e.mu.Unlock()

	if !stale && current != nil {
		return *current, nil
	}

	fresh, err := e.conn.GetNonce(ctx)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.nonce = &fresh
	e.mu.Unlock()

	return fresh, nil
}

// onSubmissionSuccess advances the nonce and records the submission
// timestamp; only called once a submission has actually succeeded.
func (e *TransactionExecutor) onSubmissionSuccess(usedNonce uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := usedNonce + 1
	e.nonce = &next
	e.lastTxTimestamp = e.nowFunc()
}

func (e *TransactionExecutor) failSubmission(tx *domain.QueuedTransaction, pending *domain.PendingTransaction, event *TxInstrumentationEvent, span apm.Span, code apperror.Code, err error) {
	wrapped := apperror.New(code, apperror.WithCause(err), apperror.WithContext(tx.ActionID))
	event.Error = wrapped
	event.ParsedError = parseErrorBody(err)

	pending.Submitted.Reject(wrapped)
	if tx.OnSubmissionError != nil {
		safeInvoke(e.log, "onSubmissionError", func() { tx.OnSubmissionError(wrapped) })
	}

	span.RecordError(wrapped)
	e.deliverInstrumentation(*event)
}

// awaitConfirmation is the detached child task that waits for a mined
// receipt: it shares the same pending completion handles as execute but
// does not hold the executor's queue slot. event carries the submission-
// phase instrumentation already delivered by execute; awaitConfirmation
// fills in the confirmation-phase timing and re-delivers it once the
// receipt wait settles.
func (e *TransactionExecutor) awaitConfirmation(ctx context.Context, tx *domain.QueuedTransaction, pending *domain.PendingTransaction, hash common.Hash, event TxInstrumentationEvent) {
	confirmStart := e.nowFunc()
	receipt, err := e.conn.WaitForTransaction(ctx, hash)
	if err != nil {
		event.WaitError = e.nowFunc().Sub(confirmStart)

		wrapped := apperror.New(apperror.CodeReceiptError, apperror.WithCause(err), apperror.WithContext(tx.ActionID))
		pending.Confirmed.Reject(wrapped)
		if tx.OnReceiptError != nil {
			safeInvoke(e.log, "onReceiptError", func() { tx.OnReceiptError(wrapped) })
		}
		e.log.Warn(ctx, "transaction receipt wait failed",
			"action_id", tx.ActionID, "tx_hash", hash.Hex(), "error", wrapped)

		event.Error = wrapped
		event.ParsedError = parseErrorBody(err)
		e.deliverInstrumentation(event)
		return
	}
	event.WaitConfirm = e.nowFunc().Sub(confirmStart)

	pending.Confirmed.Resolve(receipt)
	if tx.OnTransactionReceipt != nil {
		safeInvoke(e.log, "onTransactionReceipt", func() { tx.OnTransactionReceipt(receipt) })
	}

	if receipt.Status != 1 {
		revertErr := apperror.New(apperror.CodeTransactionReverted, apperror.WithContext(tx.ActionID))
		e.log.Error(ctx, "transaction reverted",
			"action_id", tx.ActionID, "tx_hash", hash.Hex(), "error", revertErr)
	}

	e.deliverInstrumentation(event)
}

func (e *TransactionExecutor) deliverInstrumentation(event TxInstrumentationEvent) {
	fields := []any{
		"tx_to", event.TxTo,
		"tx_type", event.TxType,
		"tx_hash", event.TxHash,
		"time_exec_called", event.TimeExecCalled,
		"wait_submit", event.WaitSubmit,
		"wait_confirm", event.WaitConfirm,
		"wait_error", event.WaitError,
		"rpc_endpoint", event.RPCEndpoint,
		"user_address", event.UserAddress,
	}
	if event.Error != nil {
		fields = append(fields, "error", event.Error, "parsed_error", event.ParsedError)
	}
	e.log.Info(context.Background(), "transaction executed", fields...)

	if e.afterTransaction != nil {
		safeInvoke(e.log, "afterTransaction", func() { e.afterTransaction(event) })
	}
}

// safeInvoke runs fn, recovering and logging any panic so a misbehaving
// caller callback cannot take down the executor's goroutine.
func safeInvoke(log logger.LoggerInterface, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(context.Background(), "callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}

// parseErrorBody best-effort decodes an RPC error's raw body, falling
// back to the plain error string.
func parseErrorBody(err error) string {
	type bodyHaver interface{ ErrorData() any }
	if bh, ok := err.(bodyHaver); ok {
		if data, ok := bh.ErrorData().([]byte); ok {
			return string(data)
		}
	}
	return err.Error()
}

// detachContext strips ctx's cancellation/deadline (but keeps its
// values) for the confirmation wait, which must outlive the submission
// context it was derived from.
func detachContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
