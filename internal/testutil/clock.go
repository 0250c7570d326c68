package testutil

import (
	"sync"
	"time"
)

// Epoch is the wall time DeterministicClock starts from.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests that advances by a fixed step
// on every reading, so event timestamps are identical across runs.
//
// Thread-safety: All methods are safe for concurrent use.
type DeterministicClock struct {
	mu   sync.Mutex
	step time.Duration
	tick int64
}

// NewDeterministicClock creates a clock that starts at Epoch and advances
// one millisecond per reading. The first call to Now returns Epoch+1ms.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Millisecond}
}

// Now advances the clock and returns the new time. It has the signature of
// time.Now so it can be passed to pipeline.WithNow.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	return Epoch.Add(time.Duration(c.tick) * c.step)
}

// Ticks returns how many times Now has been called.
func (c *DeterministicClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
