package ethereum

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

// leadingTrailingDebouncer collapses a burst of fire calls into at most
// two invocations of fn: the first call in a quiet period fires
// immediately (leading edge), and any further calls within interval
// collapse into a single trailing fire carrying the last value once
// the period elapses.
type leadingTrailingDebouncer struct {
	interval time.Duration
	fn       func(*types.Header)

	mu      sync.Mutex
	timer   *time.Timer
	pending *types.Header
	idle    bool
}

func newLeadingTrailingDebouncer(interval time.Duration, fn func(*types.Header)) *leadingTrailingDebouncer {
	return &leadingTrailingDebouncer{interval: interval, fn: fn, idle: true}
}

func (d *leadingTrailingDebouncer) fire(header *types.Header) {
	d.mu.Lock()

	if d.idle {
		d.idle = false
		d.mu.Unlock()
		d.fn(header)
		d.armTrailing()
		return
	}

	d.pending = header
	d.mu.Unlock()
}

// armTrailing starts (or restarts) the window after which a pending
// trailing value, if any, fires.
func (d *leadingTrailingDebouncer) armTrailing() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.onWindowElapsed)
}

func (d *leadingTrailingDebouncer) onWindowElapsed() {
	d.mu.Lock()
	pending := d.pending
	d.pending = nil

	if pending == nil {
		d.idle = true
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.fn(pending)
	d.armTrailing()
}

func (d *leadingTrailingDebouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
