package glue

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultMaxReceiptRetries bounds how many times WaitForTransaction
// polls for a receipt before giving up.
const DefaultMaxReceiptRetries = 30

// ReceiptFetcher fetches the receipt for hash, returning
// (nil, nil) while the transaction is still pending.
type ReceiptFetcher func(ctx context.Context, hash common.Hash) (*types.Receipt, error)

// errReceiptNotReady is returned by the poll loop to signal "no receipt
// yet, try again" to the retry library; it is also the error
// WaitForTransaction returns when every attempt ends without a receipt.
var errReceiptNotReady = errors.New("glue: receipt not ready")

// WaitForTransaction polls fetch(hash) until a receipt is available,
// under a 30-second timeout per attempt and exponential backoff with
// factor 1.5 starting at 2s and capped at 60s, up to maxRetries
// attempts. It fails if no receipt ever arrives.
func WaitForTransaction(ctx context.Context, fetch ReceiptFetcher, hash common.Hash, maxRetries int) (*types.Receipt, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxReceiptRetries
	}

	var receipt *types.Receipt

	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			r, err := fetch(attemptCtx, hash)
			if err != nil {
				return err
			}
			if r == nil {
				return errReceiptNotReady
			}
			receipt = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			d := time.Duration(float64(2*time.Second) * math.Pow(1.5, float64(n)))
			if d > 60*time.Second {
				d = 60 * time.Second
			}
			return d
		}),
	)
	if err != nil {
		return nil, err
	}

	return receipt, nil
}
