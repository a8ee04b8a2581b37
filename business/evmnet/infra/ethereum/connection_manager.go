// Package ethereum provides the EVM-facing infrastructure adapters:
// the connection manager that owns the live provider and contract
// registry, the gas price oracle client, and the bound-contract handle
// implementation.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
	"github.com/fd1az/arbitrage-bot/business/evmnet/evmconst"
	"github.com/fd1az/arbitrage-bot/business/evmnet/glue"
	"github.com/fd1az/arbitrage-bot/internal/apperror"
	"github.com/fd1az/arbitrage-bot/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-bot/internal/eventbus"
	"github.com/fd1az/arbitrage-bot/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-bot/business/evmnet/infra/ethereum"
	meterName  = "github.com/fd1az/arbitrage-bot/business/evmnet/infra/ethereum"

	blockPollInterval = 8 * time.Second
)

// connectionManagerMetrics holds OTEL metric instruments.
type connectionManagerMetrics struct {
	reconnects      metric.Int64Counter
	connectionState metric.Int64Gauge
	blocksReceived  metric.Int64Counter
}

// registeredContract pairs a live handle with the loader that produced
// it, so reloadContracts can rebuild the handle against a new provider
// or signer.
type registeredContract struct {
	handle domain.ContractHandle
	loader domain.Loader
}

// ConnectionManager owns the live JSON-RPC/websocket provider, the
// contract handle registry, and the gas/balance/block polling loops. It
// is the sole writer of nonce-adjacent state consumed by the
// transaction executor via GetNonce/TransactOpts.
type ConnectionManager struct {
	log logger.LoggerInterface

	gasOracle        *GasOracleClient
	gasSettingsMu    sync.RWMutex
	gasPrices        domain.GasPrices

	mu        sync.RWMutex
	client    *ethclient.Client
	rpcURL    string
	chainID   *big.Int
	contracts map[common.Address]*registeredContract

	signerMu   sync.RWMutex
	privateKey *ecdsa.PrivateKey
	address    common.Address
	hasSigner  bool

	state      atomic.Value // domain.ConnectionState
	lastBlock  atomic.Uint64
	reconnects atomic.Int32

	blockNumberBus *eventbus.Bus[uint64]
	gasPricesBus   *eventbus.Bus[domain.GasPrices]
	balanceBus     *eventbus.Bus[*big.Int]
	rpcURLBus      *eventbus.Bus[string]

	nonceCB   *circuitbreaker.CircuitBreaker[uint64]
	balanceCB *circuitbreaker.CircuitBreaker[*big.Int]

	watcherMu   sync.Mutex
	subscribers []contractSubscription

	done   chan struct{}
	closed atomic.Bool

	tracer  trace.Tracer
	metrics *connectionManagerMetrics
}

type contractSubscription struct {
	contract domain.ContractHandle
	handlers domain.EventHandlers
	filter   domain.EventFilter
}

// NewConnectionManager dials rpcURL and starts the gas-price and
// balance polling loops. gasOracle may be nil if auto gas pricing is
// not needed.
func NewConnectionManager(ctx context.Context, rpcURL string, gasOracle *GasOracleClient, log logger.LoggerInterface) (*ConnectionManager, error) {
	m := &ConnectionManager{
		log:            log,
		gasOracle:      gasOracle,
		gasPrices:      domain.GasPrices{Slow: 1, Average: 1, Fast: 1},
		contracts:      make(map[common.Address]*registeredContract),
		blockNumberBus: eventbus.New[uint64](true),
		gasPricesBus:   eventbus.New[domain.GasPrices](true),
		balanceBus:     eventbus.New[*big.Int](true),
		rpcURLBus:      eventbus.New[string](true),
		done:           make(chan struct{}),
		tracer:         otel.Tracer(tracerName),
	}
	m.state.Store(domain.StateDisconnected)

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("connection manager: init metrics: %w", err)
	}
	m.initCircuitBreakers()

	if err := m.SetRPCURL(ctx, rpcURL); err != nil {
		return nil, err
	}

	go m.runGasPricesPoller(ctx)
	go m.runBalancePoller(ctx)
	go m.watchBlocks(ctx)

	return m, nil
}

func (m *ConnectionManager) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	m.metrics = &connectionManagerMetrics{}

	m.metrics.reconnects, err = meter.Int64Counter(
		"evmnet_connection_reconnects_total",
		metric.WithDescription("Total provider reconnect attempts"),
	)
	if err != nil {
		return err
	}

	m.metrics.connectionState, err = meter.Int64Gauge(
		"evmnet_connection_state",
		metric.WithDescription("Connection state (0=disconnected,1=connecting,2=connected,3=reconnecting)"),
	)
	if err != nil {
		return err
	}

	m.metrics.blocksReceived, err = meter.Int64Counter(
		"evmnet_blocks_received_total",
		metric.WithDescription("Total new block heads observed"),
	)
	return err
}

func (m *ConnectionManager) initCircuitBreakers() {
	m.nonceCB = circuitbreaker.New[uint64](circuitbreaker.DefaultConfig("evmnet-nonce"))
	m.balanceCB = circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("evmnet-balance"))
}

// SetRPCURL builds a new provider, reloads every registered contract
// against it, publishes the change, then swaps the provider reference.
// Contracts are reloaded before the swap is visible to new callers.
func (m *ConnectionManager) SetRPCURL(ctx context.Context, rpcURL string) error {
	ctx, span := m.tracer.Start(ctx, "evmnet.connection.set_rpc_url",
		trace.WithAttributes(attribute.String("url", rpcURL)),
	)
	defer span.End()

	m.setState(domain.StateConnecting)

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		m.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err), apperror.WithContext(rpcURL))
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		span.RecordError(err)
		client.Close()
		m.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err), apperror.WithContext("chain id"))
	}

	m.mu.Lock()
	oldClient := m.client
	m.client = client
	m.rpcURL = rpcURL
	m.chainID = chainID
	m.mu.Unlock()

	if err := m.reloadContracts(ctx); err != nil {
		m.log.Warn(ctx, "reload contracts after rpc url change failed", "error", err)
	}

	m.rpcURLBus.Publish(rpcURL)
	m.setState(domain.StateConnected)

	if oldClient != nil {
		oldClient.Close()
	}

	span.SetStatus(codes.Ok, "connected")
	return nil
}

// SetAccount installs privateKeyHex as the signer, refreshes the
// balance, and reloads every contract so it carries the new signer.
func (m *ConnectionManager) SetAccount(ctx context.Context, privateKeyHex string) error {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithCause(err))
	}

	m.signerMu.Lock()
	m.privateKey = key
	m.address = crypto.PubkeyToAddress(key.PublicKey)
	m.hasSigner = true
	m.signerMu.Unlock()

	if _, err := m.LoadBalance(ctx, m.address); err != nil {
		m.log.Warn(ctx, "initial balance load failed", "error", err)
	}

	if err := m.reloadContracts(ctx); err != nil {
		m.log.Warn(ctx, "reload contracts after account change failed", "error", err)
	}

	return nil
}

// LoadContract invokes loader against the current provider and signer,
// stores both the handle and the loader, and returns the handle.
func (m *ConnectionManager) LoadContract(ctx context.Context, address common.Address, loader domain.Loader) (domain.ContractHandle, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	opts := m.currentSignerOpts()

	handle, err := loader(ctx, address, client, opts)
	if err != nil {
		return nil, apperror.New(apperror.CodeContractCallFailed, apperror.WithCause(err))
	}

	m.mu.Lock()
	m.contracts[address] = &registeredContract{handle: handle, loader: loader}
	m.mu.Unlock()

	return handle, nil
}

// GetContract implements app.ConnectionManager.
func (m *ConnectionManager) GetContract(address common.Address) (domain.ContractHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.contracts[address]
	if !ok {
		return nil, apperror.New(apperror.CodeNotFound, apperror.WithContext("contract never loaded: "+address.Hex()))
	}
	return entry.handle, nil
}

// reloadContracts replaces every registered contract's handle by
// re-invoking its loader against the current provider/signer, under
// the single registry mutex.
func (m *ConnectionManager) reloadContracts(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client := m.client
	opts := m.currentSignerOpts()

	var firstErr error
	for addr, entry := range m.contracts {
		handle, err := entry.loader(ctx, addr, client, opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		entry.handle = handle
	}
	return firstErr
}

func (m *ConnectionManager) currentSignerOpts() *bind.TransactOpts {
	m.signerMu.RLock()
	defer m.signerMu.RUnlock()

	if !m.hasSigner {
		return nil
	}

	m.mu.RLock()
	chainID := m.chainID
	m.mu.RUnlock()

	opts, err := bind.NewKeyedTransactorWithChainID(m.privateKey, chainID)
	if err != nil {
		return nil
	}
	return opts
}

// GetAddress returns the signer's address, or false if none configured.
func (m *ConnectionManager) GetAddress() (common.Address, bool) {
	m.signerMu.RLock()
	defer m.signerMu.RUnlock()
	return m.address, m.hasSigner
}

// RPCURL returns the endpoint currently in use.
func (m *ConnectionManager) RPCURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rpcURL
}

// GetAutoGasPrices returns the last polled gas price tiers.
func (m *ConnectionManager) GetAutoGasPrices() domain.GasPrices {
	m.gasSettingsMu.RLock()
	defer m.gasSettingsMu.RUnlock()
	return m.gasPrices
}

// GetNonce returns the signer's pending transaction count, retry-wrapped
// and circuit-broken; 0 if no signer is configured.
func (m *ConnectionManager) GetNonce(ctx context.Context) (uint64, error) {
	addr, ok := m.GetAddress()
	if !ok {
		return 0, nil
	}

	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	return m.nonceCB.Execute(func() (uint64, error) {
		return glue.Retry(ctx, evmconst.DefaultMaxCallRetries, func(ctx context.Context) (uint64, error) {
			return client.PendingNonceAt(ctx, addr)
		}, glue.WithLogger(m.log))
	})
}

// TransactOpts builds the bind.TransactOpts used to sign and submit a
// transaction at the given nonce, gas price and gas limit.
func (m *ConnectionManager) TransactOpts(nonce uint64, gasPrice *big.Int, gasLimit uint64) (*bind.TransactOpts, error) {
	opts := m.currentSignerOpts()
	if opts == nil {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithContext("no signer configured"))
	}

	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.GasLimit = gasLimit
	opts.NoSend = false

	return opts, nil
}

// SignMessage signs digest with the configured signer; fails if none.
func (m *ConnectionManager) SignMessage(digest []byte) ([]byte, error) {
	m.signerMu.RLock()
	defer m.signerMu.RUnlock()

	if !m.hasSigner {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithContext("no signer configured"))
	}

	return crypto.Sign(digest, m.privateKey)
}

// LoadBalance retrieves addr's balance, retry-wrapped and circuit-broken,
// and publishes it on the balance stream.
func (m *ConnectionManager) LoadBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	balance, err := m.balanceCB.Execute(func() (*big.Int, error) {
		return glue.Retry(ctx, evmconst.DefaultMaxCallRetries, func(ctx context.Context) (*big.Int, error) {
			return client.BalanceAt(ctx, addr, nil)
		}, glue.WithLogger(m.log))
	})
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err))
	}

	m.balanceBus.Publish(balance)
	return balance, nil
}

// WaitForTransaction blocks until hash is mined, polling the receipt
// via the retry/backoff loop in glue.WaitForTransaction.
func (m *ConnectionManager) WaitForTransaction(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	return waitForTransactionReceipt(ctx, client, hash)
}

// State returns the connection's current lifecycle state.
func (m *ConnectionManager) State() domain.ConnectionState {
	return m.state.Load().(domain.ConnectionState)
}

// Snapshot returns a point-in-time view of the connection's state, for
// a status display.
func (m *ConnectionManager) Snapshot() domain.ConnectionSnapshot {
	m.mu.RLock()
	rpcURL := m.rpcURL
	m.mu.RUnlock()

	return domain.ConnectionSnapshot{
		State:       m.State(),
		RPCURL:      rpcURL,
		BlockNumber: m.lastBlock.Load(),
		GasPrices:   m.GetAutoGasPrices(),
		Reconnects:  int(m.reconnects.Load()),
		LastUpdate:  time.Now(),
	}
}

func (m *ConnectionManager) setState(state domain.ConnectionState) {
	m.state.Store(state)

	var v int64
	switch state {
	case domain.StateDisconnected:
		v = 0
	case domain.StateConnecting:
		v = 1
	case domain.StateConnected:
		v = 2
	case domain.StateReconnecting:
		v = 3
	}
	m.metrics.connectionState.Record(context.Background(), v)
}

// SubscribeToContractEvents installs a block-driven log watcher for
// contract: each new block (debounced per BlockDebounceInterval) fetches
// logs in [min(prevBlock+1, latest), latest] matching filter, parses
// them via the contract's ABI, and dispatches to handlers by event name.
func (m *ConnectionManager) SubscribeToContractEvents(contract domain.ContractHandle, handlers domain.EventHandlers, filter domain.EventFilter) {
	m.watcherMu.Lock()
	m.subscribers = append(m.subscribers, contractSubscription{contract: contract, handlers: handlers, filter: filter})
	m.watcherMu.Unlock()
}

// runGasPricesPoller refreshes gas prices on GasPricesPollInterval.
func (m *ConnectionManager) runGasPricesPoller(ctx context.Context) {
	ticker := time.NewTicker(evmconst.GasPricesPollInterval)
	defer ticker.Stop()

	m.refreshGasPrices(ctx)

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshGasPrices(ctx)
		}
	}
}

// runBalancePoller refreshes the signer's balance on BalancePollInterval,
// skipping ticks while no signer is configured. SetAccount triggers an
// immediate refresh when a signer first becomes available, so this loop
// only needs to keep it current afterward.
func (m *ConnectionManager) runBalancePoller(ctx context.Context) {
	ticker := time.NewTicker(evmconst.BalancePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			addr, ok := m.GetAddress()
			if !ok {
				continue
			}
			if _, err := m.LoadBalance(ctx, addr); err != nil {
				m.log.Warn(ctx, "balance poll failed", "error", err)
			}
		}
	}
}

func (m *ConnectionManager) refreshGasPrices(ctx context.Context) {
	if m.gasOracle == nil {
		return
	}

	prices := m.gasOracle.Fetch(ctx)

	m.gasSettingsMu.Lock()
	m.gasPrices = prices
	m.gasSettingsMu.Unlock()

	m.gasPricesBus.Publish(prices)
}

// watchBlocks is the block-number-changed fan-out: it tries
// SubscribeNewHead first, falling back to polling at blockPollInterval
// when the endpoint does not support subscriptions (matching the
// go-ethereum behavior of returning rpc.ErrNotificationsUnsupported),
// and applies a 1s leading+trailing debounce to each observed head
// before dispatching to registered contract-event subscribers.
func (m *ConnectionManager) watchBlocks(ctx context.Context) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	headers := make(chan *types.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		if !errors.Is(err, rpc.ErrNotificationsUnsupported) {
			m.log.Warn(ctx, "subscribe new head failed, falling back to polling", "error", err)
		}
		m.pollBlocks(ctx)
		return
	}
	defer sub.Unsubscribe()

	debounced := newLeadingTrailingDebouncer(evmconst.BlockDebounceInterval, func(header *types.Header) {
		m.onNewHead(ctx, header)
	})
	defer debounced.stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				m.log.Error(ctx, "block subscription error", "error", err)
				m.reconnects.Add(1)
				m.metrics.reconnects.Add(ctx, 1)
			}
			return
		case header := <-headers:
			debounced.fire(header)
		}
	}
}

func (m *ConnectionManager) pollBlocks(ctx context.Context) {
	ticker := time.NewTicker(blockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			client := m.client
			m.mu.RUnlock()

			header, err := client.HeaderByNumber(ctx, nil)
			if err != nil {
				m.log.Warn(ctx, "poll latest block failed", "error", err)
				continue
			}
			if header.Number.Uint64() <= m.lastBlock.Load() {
				continue
			}
			m.onNewHead(ctx, header)
		}
	}
}

func (m *ConnectionManager) onNewHead(ctx context.Context, header *types.Header) {
	prevBlock := m.lastBlock.Load()
	newBlock := header.Number.Uint64()
	m.lastBlock.Store(newBlock)
	m.metrics.blocksReceived.Add(ctx, 1)

	m.blockNumberBus.Publish(newBlock)

	fromBlock := prevBlock + 1
	if fromBlock > newBlock {
		fromBlock = newBlock
	}

	m.dispatchLogs(ctx, fromBlock, newBlock)
}

func (m *ConnectionManager) dispatchLogs(ctx context.Context, fromBlock, toBlock uint64) {
	m.watcherMu.Lock()
	subs := append([]contractSubscription(nil), m.subscribers...)
	m.watcherMu.Unlock()

	if len(subs) == 0 {
		return
	}

	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	for _, sub := range subs {
		addresses := sub.filter.Addresses
		if len(addresses) == 0 {
			addresses = []common.Address{sub.contract.Address()}
		}

		query := logFilterQuery(addresses, sub.filter.Topics, fromBlock, toBlock)

		logs, err := client.FilterLogs(ctx, query)
		if err != nil {
			m.log.Warn(ctx, "filter logs failed", "error", err, "from", fromBlock, "to", toBlock)
			continue
		}

		for _, l := range logs {
			parsed, err := sub.contract.ParseLog(l)
			if err != nil {
				continue
			}
			if handler, ok := sub.handlers[parsed.Name]; ok {
				handler(parsed)
			}
		}
	}
}

// BlockNumberStream, GasPricesStream, BalanceStream and RPCURLStream
// expose the connection manager's four event fan-outs.
func (m *ConnectionManager) BlockNumberStream() (<-chan uint64, func())               { return m.blockNumberBus.Subscribe() }
func (m *ConnectionManager) GasPricesStream() (<-chan domain.GasPrices, func())       { return m.gasPricesBus.Subscribe() }
func (m *ConnectionManager) BalanceStream() (<-chan *big.Int, func())                 { return m.balanceBus.Subscribe() }
func (m *ConnectionManager) RPCURLStream() (<-chan string, func())                    { return m.rpcURLBus.Subscribe() }

// Close stops the polling loops and closes the underlying client.
func (m *ConnectionManager) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		close(m.done)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}

	m.setState(domain.StateDisconnected)
	return nil
}
