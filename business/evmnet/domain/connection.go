// Package domain contains the core domain types for the EVM client
// networking context: connection state, gas price tiers, contract
// handles, and the queued/pending transaction shapes that flow between
// the transaction executor and its callers.
package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ConnectionState mirrors the lifecycle of the underlying RPC connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionSnapshot is a point-in-time view of the connection manager's
// state, published on demand (e.g. for a status display) rather than
// streamed field-by-field; the streamed fields live on the four event
// buses the connection manager owns.
type ConnectionSnapshot struct {
	State      ConnectionState
	RPCURL     string
	BlockNumber uint64
	Balance    *big.Int
	GasPrices  GasPrices
	Reconnects int
	UsingPoll  bool
	LastUpdate time.Time
}

// ParsedLog is the decoded form of an on-chain event log: the event name
// and its arguments keyed by ABI field name.
type ParsedLog struct {
	Name string
	Args map[string]any
}

// ContractHandle is the callable surface a contract loader produces. It
// intentionally mirrors go-ethereum's accounts/abi/bind.BoundContract
// method-by-name shape rather than a generated, statically typed
// binding, since the spec calls for a registry of handles addressed
// generically by method name.
type ContractHandle interface {
	Address() common.Address
	ParseLog(log types.Log) (ParsedLog, error)
	// Call invokes a read-only method and unmarshals the result into out.
	Call(ctx context.Context, out *[]any, methodName string, args ...any) error
	// Transact invokes a state-changing method and returns the signed,
	// broadcast transaction.
	Transact(ctx context.Context, opts *bind.TransactOpts, methodName string, args ...any) (*types.Transaction, error)
}

// Loader produces a live contract handle bound to the given address and
// backend, optionally carrying a signer. It is invoked once at
// registration time and again by reloadContracts whenever the provider
// or signer changes.
type Loader func(ctx context.Context, address common.Address, backend bind.ContractBackend, signer *bind.TransactOpts) (ContractHandle, error)

// EventFilter narrows subscribeToContractEvents to a set of addresses
// and/or topics; either may be left empty to mean "no restriction".
type EventFilter struct {
	Addresses []common.Address
	Topics    [][]common.Hash
}

// EventHandlers maps an ABI event name to the function invoked with its
// decoded arguments. Events with no matching handler are silently
// ignored, per spec.
type EventHandlers map[string]func(ParsedLog)
