package domain

import (
	"math/big"
	"testing"
)

func TestGweiToWei(t *testing.T) {
	tests := []struct {
		name string
		gwei float64
		want *big.Int
	}{
		{"one gwei", 1, big.NewInt(1_000_000_000)},
		{"zero", 0, big.NewInt(0)},
		{"fractional gwei", 1.5, big.NewInt(1_500_000_000)},
		{"twenty gwei", 20, big.NewInt(20_000_000_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GweiToWei(tt.gwei)
			if got.Cmp(tt.want) != 0 {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestWeiToGwei(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want float64
	}{
		{"one gwei", big.NewInt(1_000_000_000), 1},
		{"zero", big.NewInt(0), 0},
		{"nil", nil, 0},
		{"twenty gwei", big.NewInt(20_000_000_000), 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeiToGwei(tt.wei)
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGweiToWei_WeiToGwei_RoundTrip(t *testing.T) {
	for _, gwei := range []float64{1, 5.25, 100, 0.001} {
		wei := GweiToWei(gwei)
		got := WeiToGwei(wei)
		if got != gwei {
			t.Fatalf("round trip for %v gwei: got %v", gwei, got)
		}
	}
}
