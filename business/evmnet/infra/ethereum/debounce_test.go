package ethereum

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

func TestLeadingTrailingDebouncer_FirstCallFiresImmediately(t *testing.T) {
	var mu sync.Mutex
	var got []uint64
	d := newLeadingTrailingDebouncer(50*time.Millisecond, func(h *types.Header) {
		mu.Lock()
		got = append(got, h.Number.Uint64())
		mu.Unlock()
	})
	defer d.stop()

	d.fire(&types.Header{Number: big.NewInt(1)})

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected an immediate leading fire with [1], got %v", got)
	}
}

func TestLeadingTrailingDebouncer_BurstCollapsesToLeadingAndTrailing(t *testing.T) {
	var mu sync.Mutex
	var got []uint64
	d := newLeadingTrailingDebouncer(30*time.Millisecond, func(h *types.Header) {
		mu.Lock()
		got = append(got, h.Number.Uint64())
		mu.Unlock()
	})
	defer d.stop()

	d.fire(&types.Header{Number: big.NewInt(1)})
	d.fire(&types.Header{Number: big.NewInt(2)})
	d.fire(&types.Header{Number: big.NewInt(3)})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 fires (leading + trailing), got %v", got)
	}
	if got[0] != 1 {
		t.Fatalf("expected the leading fire to carry the first value, got %v", got[0])
	}
	if got[1] != 3 {
		t.Fatalf("expected the trailing fire to carry the last value, got %v", got[1])
	}
}

func TestLeadingTrailingDebouncer_QuietPeriodResetsLeadingEdge(t *testing.T) {
	var mu sync.Mutex
	var got []uint64
	d := newLeadingTrailingDebouncer(20*time.Millisecond, func(h *types.Header) {
		mu.Lock()
		got = append(got, h.Number.Uint64())
		mu.Unlock()
	})
	defer d.stop()

	d.fire(&types.Header{Number: big.NewInt(1)})
	time.Sleep(60 * time.Millisecond)
	d.fire(&types.Header{Number: big.NewInt(2)})
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 independent leading fires across quiet periods, got %v", got)
	}
	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected fires [1 2], got %v", got)
	}
}

