// Package evmnet implements the EVM networking bounded context: the
// connection manager, gas price oracle, contract caller and
// transaction executor that together form the client-side networking
// layer against an Ethereum-compatible chain.
package evmnet

import (
	"context"

	"github.com/fd1az/arbitrage-bot/business/evmnet/app"
	evmnetDI "github.com/fd1az/arbitrage-bot/business/evmnet/di"
	"github.com/fd1az/arbitrage-bot/business/evmnet/evmconst"
	"github.com/fd1az/arbitrage-bot/business/evmnet/infra/ethereum"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/di"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
	"github.com/fd1az/arbitrage-bot/internal/queue"
)

// Module implements the evmnet bounded context.
type Module struct{}

// RegisterServices registers all evmnet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register GasOracleClient (private - internal dependency)
	di.RegisterToken(c, evmnetDI.GasOracleClient, func(sr di.ServiceRegistry) *ethereum.GasOracleClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.GasOracle.URL == "" {
			return nil
		}

		oracle, err := ethereum.NewGasOracleClient(cfg.GasOracle.URL, cfg.GasOracle.RequestsPerMinute, log)
		if err != nil {
			panic("failed to create gas oracle client: " + err.Error())
		}
		return oracle
	})

	// Register ConnectionManager (public - exposed to other modules)
	di.RegisterToken(c, evmnetDI.ConnectionManager, func(sr di.ServiceRegistry) *ethereum.ConnectionManager {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		oracle := evmnetDI.GetGasOracleClient(sr)

		conn, err := ethereum.NewConnectionManager(context.Background(), cfg.Ethereum.RPCURL, oracle, log)
		if err != nil {
			panic("failed to create connection manager: " + err.Error())
		}

		if cfg.Ethereum.PrivateKey != "" {
			if err := conn.SetAccount(context.Background(), cfg.Ethereum.PrivateKey); err != nil {
				log.Error(context.Background(), "failed to set signer account", "error", err)
			}
		}

		return conn
	})

	// Register ContractCaller (public - exposed to other modules)
	di.RegisterToken(c, evmnetDI.ContractCaller, func(sr di.ServiceRegistry) *app.ContractCaller {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		q, err := queue.New(
			evmconst.ContractCallerMaxInvocationsPerInterval,
			evmconst.ContractCallerInvocationInterval,
			evmconst.ContractCallerMaxConcurrency,
		)
		if err != nil {
			panic("failed to create contract caller queue: " + err.Error())
		}

		caller, err := app.NewContractCaller(q, log, cfg.Executor.ContractCallerMaxRetries)
		if err != nil {
			panic("failed to create contract caller: " + err.Error())
		}
		return caller
	})

	// Register TransactionExecutor (public - exposed to other modules)
	di.RegisterToken(c, evmnetDI.TransactionExecutor, func(sr di.ServiceRegistry) *app.TransactionExecutor {
		log := sr.Get("logger").(logger.LoggerInterface)
		conn := evmnetDI.GetConnectionManager(sr)

		executor, err := app.NewTransactionExecutor(conn, log)
		if err != nil {
			panic("failed to create transaction executor: " + err.Error())
		}
		return executor
	})

	return nil
}

// Startup initializes the evmnet module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Instantiating the connection manager and executors eagerly surfaces
	// dial failures during startup rather than on first use.
	evmnetDI.GetConnectionManager(mono.Services())
	evmnetDI.GetContractCaller(mono.Services())
	evmnetDI.GetTransactionExecutor(mono.Services())

	log.Info(ctx, "evmnet module started")
	return nil
}
