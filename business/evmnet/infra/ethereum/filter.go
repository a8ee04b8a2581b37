package ethereum

import (
	"math/big"

	ethereumpkg "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// logFilterQuery builds the eth_getLogs query for [fromBlock, toBlock]
// restricted to addresses and, if present, topics.
func logFilterQuery(addresses []common.Address, topics [][]common.Hash, fromBlock, toBlock uint64) ethereumpkg.FilterQuery {
	return ethereumpkg.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
		Topics:    topics,
	}
}
