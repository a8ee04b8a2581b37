package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-bot/internal/queue"
)

// TransactionOverrides carries the optional per-call gas settings a
// caller may supply; zero values mean "let the executor decide".
type TransactionOverrides struct {
	GasPrice *big.Int
	GasLimit uint64
}

// Clone returns a value copy of o so a caller's overrides can be
// overlaid onto a fresh copy of the executor's defaults without
// aliasing either struct.
func (o TransactionOverrides) Clone() TransactionOverrides {
	clone := o
	if o.GasPrice != nil {
		clone.GasPrice = new(big.Int).Set(o.GasPrice)
	}
	return clone
}

// QueuedTransaction is a caller's request to submit a state-changing
// call. ActionID is opaque and stable across the transaction's entire
// lifecycle; exactly one of OnSubmissionError/OnReceiptError fires on
// failure, and on success both OnTransactionResponse and
// OnTransactionReceipt fire, in that order.
type QueuedTransaction struct {
	ActionID   string
	Contract   ContractHandle
	MethodName string
	Args       []any
	Overrides  TransactionOverrides

	OnSubmissionError     func(error)
	OnReceiptError        func(error)
	OnTransactionResponse func(*types.Transaction)
	OnTransactionReceipt  func(*types.Receipt)
}

// PendingTransaction is the caller-visible two-phase completion handle:
// Submitted resolves once the transaction is accepted into the mempool,
// Confirmed once it is mined. If Submitted fails, Confirmed is never
// resolved or rejected — it is simply abandoned.
type PendingTransaction struct {
	Submitted *queue.Future[*types.Transaction]
	Confirmed *queue.Future[*types.Receipt]
}

// NewPendingTransaction allocates the pair of independent futures a
// queued transaction resolves through.
func NewPendingTransaction() *PendingTransaction {
	return &PendingTransaction{
		Submitted: queue.NewFuture[*types.Transaction](),
		Confirmed: queue.NewFuture[*types.Receipt](),
	}
}
