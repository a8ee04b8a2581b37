package ethereum

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/arbitrage-bot/business/evmnet/glue"
)

// waitForTransactionReceipt polls client for hash's receipt through
// glue.WaitForTransaction, treating go-ethereum's
// ethereum.NotFound as "not ready yet" rather than a hard failure.
func waitForTransactionReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	fetch := func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return receipt, err
	}

	return glue.WaitForTransaction(ctx, fetch, hash, glue.DefaultMaxReceiptRetries)
}
