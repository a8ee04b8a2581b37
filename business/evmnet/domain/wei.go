package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var weiPerGwei = decimal.New(1, 9)

// GweiToWei converts a gwei amount (as reported by the gas oracle) to a
// wei *big.Int, going through decimal.Decimal to avoid the rounding
// drift of a plain float64*1e9 multiplication.
func GweiToWei(gwei float64) *big.Int {
	d := decimal.NewFromFloat(gwei).Mul(weiPerGwei)
	return d.BigInt()
}

// WeiToGwei is the inverse of GweiToWei, used when reporting a wei price
// back out in gwei for logs and diagnostics.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	d := decimal.NewFromBigInt(wei, 0).Div(weiPerGwei)
	f, _ := d.Float64()
	return f
}
