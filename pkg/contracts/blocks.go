package contracts

import (
	"sync/atomic"
	"time"
)

// BlockSource supplies the monotonically non-decreasing block counter that
// expiry, permit windows, and voting windows are measured against. Engines
// read it once at the start of each transition.
type BlockSource interface {
	Height() uint64
}

// ManualBlocks is a hand-advanced block source for tests and replay.
type ManualBlocks struct {
	height atomic.Uint64
}

// NewManualBlocks starts a manual source at the given height.
func NewManualBlocks(start uint64) *ManualBlocks {
	m := &ManualBlocks{}
	m.height.Store(start)
	return m
}

func (m *ManualBlocks) Height() uint64 { return m.height.Load() }

// Advance moves the counter forward by n blocks.
func (m *ManualBlocks) Advance(n uint64) { m.height.Add(n) }

// IntervalBlocks derives the height from wall-clock time: one block per
// interval since genesis. Heights never decrease because time doesn't.
type IntervalBlocks struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewIntervalBlocks creates a wall-clock block source.
func NewIntervalBlocks(genesis time.Time, interval time.Duration) *IntervalBlocks {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &IntervalBlocks{genesis: genesis, interval: interval, now: time.Now}
}

// WithClock overrides the clock for testing.
func (b *IntervalBlocks) WithClock(now func() time.Time) *IntervalBlocks {
	b.now = now
	return b
}

func (b *IntervalBlocks) Height() uint64 {
	elapsed := b.now().Sub(b.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / b.interval)
}
