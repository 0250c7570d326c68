package pipeline

import (
	"sync"
	"sync/atomic"
)

// Handle is the opaque id of a frame or batch admitted to a pipeline.
// Frames and batches share one id space; a handle is never reissued.
type Handle int64

// handleTable maps live handles to the index of the stage holding them.
//
// It is a leaf lock: code holding mu never acquires a stage lock. Entries
// only change while the owning stage locks are held, so a reader that locks
// the recorded stage and then re-reads the table sees a stable answer.
type handleTable struct {
	next atomic.Int64

	mu    sync.RWMutex
	where map[Handle]int
}

func newHandleTable() *handleTable {
	return &handleTable{where: make(map[Handle]int)}
}

func (t *handleTable) issue() Handle {
	return Handle(t.next.Add(1))
}

func (t *handleTable) lookup(h Handle) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.where[h]
	return idx, ok
}

func (t *handleTable) place(h Handle, stage int) {
	t.mu.Lock()
	t.where[h] = stage
	t.mu.Unlock()
}

func (t *handleTable) retire(hs ...Handle) {
	t.mu.Lock()
	for _, h := range hs {
		delete(t.where, h)
	}
	t.mu.Unlock()
}

func (t *handleTable) live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.where)
}
