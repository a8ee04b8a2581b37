// Package evmconst holds the shared constants and defaults consumed by the
// connection manager, contract caller and transaction executor that live
// in the evmnet bounded context's app/, infra/ and glue/ subpackages. It
// is kept separate from the evmnet package itself (which wires up those
// subpackages) so that the subpackages can depend on these constants
// without creating an import cycle back through the wiring package.
package evmconst

import "time"

// DefaultMaxCallRetries bounds how many attempts the contract caller
// makes for a single read call before giving up.
const DefaultMaxCallRetries = 5

// MaxAutoGasPriceGwei is the safety ceiling the gas oracle client clamps
// every returned tier to, regardless of what the oracle reports.
const MaxAutoGasPriceGwei = 500

// DefaultGasLimit is used when a queued transaction does not override it.
const DefaultGasLimit uint64 = 2_000_000

// NonceStaleAfter is how long the transaction executor trusts a
// previously fetched nonce before refetching it from the chain.
const NonceStaleAfter = 5 * time.Minute

// TxSubmitTimeout bounds how long a single transaction submission may
// take before it is reported as a submission failure.
const TxSubmitTimeout = 30 * time.Second

// ReceiptPollTimeout bounds a single getTransactionReceipt attempt while
// waiting for confirmation.
const ReceiptPollTimeout = 30 * time.Second

// BalancePollInterval is how often the connection manager refreshes the
// signer's balance, when a signer is configured.
const BalancePollInterval = 10 * time.Second

// GasPricesPollInterval is how often the connection manager refreshes
// gas prices from the oracle client.
const GasPricesPollInterval = 15 * time.Second

// GasOracleCacheTTL is how long the gas oracle client reuses its last
// fetched reading before it is willing to hit the oracle again, so a
// burst of on-demand lookups between two poll ticks collapses into one
// request.
const GasOracleCacheTTL = 3 * time.Second

// BlockDebounceInterval is the leading+trailing debounce window applied
// to the block-number listener.
const BlockDebounceInterval = 1 * time.Second

// MaxEmptyBulkRetries caps how many times AggregateBulkGetter retries a
// chunk that came back empty before accepting the empty result, resolving
// the open question of an unbounded empty-batch retry loop.
const MaxEmptyBulkRetries = 8

// ContractCallerQueue is the default throttled-queue shape for the
// contract caller: up to 10 call starts per 100ms, 20 concurrently.
const (
	ContractCallerMaxInvocationsPerInterval = 10
	ContractCallerInvocationInterval        = 100 * time.Millisecond
	ContractCallerMaxConcurrency            = 20
)

// TxExecutorQueue is the transaction executor's internal queue shape: at
// most 3 starts per 100ms, strictly one in flight, giving a total order
// over submissions.
const (
	TxExecutorMaxInvocationsPerInterval = 3
	TxExecutorInvocationInterval        = 100 * time.Millisecond
	TxExecutorMaxConcurrency            = 1
)
