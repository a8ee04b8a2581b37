// Package app contains the contract caller and transaction executor —
// the two pieces of application logic that sit on top of the throttled
// queue and the connection manager's ports.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
)

// ConnectionManager is the subset of the connection manager's surface
// consumed by the contract caller and transaction executor. It is kept
// narrow so both can be tested against a hand-written fake rather than
// the full infra implementation.
type ConnectionManager interface {
	// GetContract returns the handle registered for address, or an
	// error if nothing was ever loaded at that address.
	GetContract(address common.Address) (domain.ContractHandle, error)

	// GetAutoGasPrices returns the connection manager's last polled
	// gas price tiers.
	GetAutoGasPrices() domain.GasPrices

	// GetNonce returns the signer's current transaction count,
	// retry-wrapped and circuit-broken; 0 if no signer is configured.
	GetNonce(ctx context.Context) (uint64, error)

	// GetAddress returns the signer's address, or false if no signer
	// is configured.
	GetAddress() (common.Address, bool)

	// TransactOpts builds the bind.TransactOpts used to sign and submit
	// a transaction at the given nonce, gas price and gas limit.
	TransactOpts(nonce uint64, gasPrice *big.Int, gasLimit uint64) (*bind.TransactOpts, error)

	// WaitForTransaction blocks (subject to ctx) until hash is mined
	// and returns its receipt.
	WaitForTransaction(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// RPCURL returns the endpoint currently in use, for instrumentation.
	RPCURL() string
}

// GasSettingProvider returns the caller's current auto-gas setting
// ("Slow", "Average", "Fast", or a literal gwei value) each time a
// transaction needs a gas price resolved.
type GasSettingProvider func() string
