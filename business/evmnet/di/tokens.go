// Package di contains dependency injection tokens for the evmnet context.
package di

import (
	"github.com/fd1az/arbitrage-bot/business/evmnet/app"
	"github.com/fd1az/arbitrage-bot/business/evmnet/infra/ethereum"
	"github.com/fd1az/arbitrage-bot/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConnectionManager   = di.NewToken[*ethereum.ConnectionManager]("evmnet.ConnectionManager")
	ContractCaller      = di.NewToken[*app.ContractCaller]("evmnet.ContractCaller")
	TransactionExecutor = di.NewToken[*app.TransactionExecutor]("evmnet.TransactionExecutor")
)

// Private dependency tokens - internal to the evmnet module
var (
	GasOracleClient = di.NewToken[*ethereum.GasOracleClient]("evmnet:gasOracleClient")
)

// Helper functions for type-safe access
func GetConnectionManager(c di.ServiceRegistry) *ethereum.ConnectionManager {
	return di.GetToken(c, ConnectionManager)
}

func GetContractCaller(c di.ServiceRegistry) *app.ContractCaller {
	return di.GetToken(c, ContractCaller)
}

func GetTransactionExecutor(c di.ServiceRegistry) *app.TransactionExecutor {
	return di.GetToken(c, TransactionExecutor)
}

func GetGasOracleClient(c di.ServiceRegistry) *ethereum.GasOracleClient {
	return di.GetToken(c, GasOracleClient)
}
