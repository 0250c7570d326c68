package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// stageLock is a mutex that counts how often callers had to wait for it.
// The counters are atomics so they can be sampled without taking the lock.
type stageLock struct {
	mu sync.Mutex

	acquisitions atomic.Int64
	contended    atomic.Int64
	waitNanos    atomic.Int64
}

func (l *stageLock) Lock() {
	l.acquisitions.Add(1)
	if l.mu.TryLock() {
		return
	}
	start := time.Now()
	l.mu.Lock()
	l.contended.Add(1)
	l.waitNanos.Add(int64(time.Since(start)))
}

func (l *stageLock) Unlock() {
	l.mu.Unlock()
}

// Contention is a sample of one stage lock's counters.
type Contention struct {
	Stage        string        `json:"stage"`
	Acquisitions int64         `json:"acquisitions"`
	Contended    int64         `json:"contended"`
	Wait         time.Duration `json:"wait_ns"`
}

func (l *stageLock) sample(stage string) Contention {
	return Contention{
		Stage:        stage,
		Acquisitions: l.acquisitions.Load(),
		Contended:    l.contended.Load(),
		Wait:         time.Duration(l.waitNanos.Load()),
	}
}
