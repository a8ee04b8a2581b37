package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BlockHead is the subset of an Ethereum block header the connection
// manager's watcher cares about.
type BlockHead struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  time.Time
	GasLimit   uint64
	GasUsed    uint64
	BaseFee    *big.Int
}
