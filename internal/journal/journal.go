// Package journal queues deferred mutations of a frame.
//
// A Journal is applied or cleared as a unit. Apply replays records in FIFO
// order; a record that does not fit the frame's current state is skipped and
// reported, never fatal.
package journal

import (
	"sync"

	"github.com/roach88/framepipe/internal/video"
)

// Skip describes a record Apply could not carry out.
type Skip struct {
	Index int
	Kind  string
	Err   error
}

// Outcome summarizes one Apply.
type Outcome struct {
	Applied int
	Skipped []Skip
}

// Pending reports whether Apply found any records.
func (o Outcome) Pending() bool {
	return o.Applied > 0 || len(o.Skipped) > 0
}

// Journal is a FIFO of records for one frame. Safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty journal.
func New() *Journal {
	return &Journal{}
}

// Push appends records in order.
func (j *Journal) Push(records ...Record) {
	j.mu.Lock()
	j.records = append(j.records, records...)
	j.mu.Unlock()
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.records)
}

// Records returns a copy of the pending records.
func (j *Journal) Records() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Drain removes and returns all pending records.
func (j *Journal) Drain() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.records
	j.records = nil
	return out
}

// Apply replays the pending records against f and empties the journal.
// Records pushed while Apply runs stay queued for the next call.
func (j *Journal) Apply(f *video.Frame) Outcome {
	var out Outcome
	for i, r := range j.Drain() {
		if err := r.Apply(f); err != nil {
			out.Skipped = append(out.Skipped, Skip{Index: i, Kind: r.Kind(), Err: err})
			continue
		}
		out.Applied++
	}
	return out
}

// Clear discards the pending records and returns how many there were.
func (j *Journal) Clear() int {
	return len(j.Drain())
}
