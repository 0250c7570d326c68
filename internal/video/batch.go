package video

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/framepipe/internal/errs"
)

// Member is one frame inside a Batch.
type Member struct {
	ID    int64
	Frame *Frame
}

// Batch is an ordered aggregate of frames keyed by member id.
//
// Member ids are the handles the frames had before they were packed. The
// member set is guarded by the batch's own lock.
type Batch struct {
	mu      sync.Mutex
	members []Member
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends f under memberID. Returns INVALID_ARGUMENT if the id is taken.
func (b *Batch) Add(memberID int64, f *Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.indexLocked(memberID) >= 0 {
		return errs.New(errs.CodeInvalidArgument, "member id already in batch").
			With("member", fmt.Sprintf("%d", memberID))
	}
	b.members = append(b.members, Member{ID: memberID, Frame: f})
	return nil
}

// Frame returns the member frame with the given id.
func (b *Batch) Frame(memberID int64) (*Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.indexLocked(memberID)
	if i < 0 {
		return nil, false
	}
	return b.members[i].Frame, true
}

// MemberIDs returns member ids in packing order.
func (b *Batch) MemberIDs() []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]int64, len(b.members))
	for i, m := range b.members {
		ids[i] = m.ID
	}
	return ids
}

// Members returns the members in packing order.
func (b *Batch) Members() []Member {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.members)
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.members)
}

// Split moves the members named by ids into a new batch, keeping their
// relative order. Either every id moves or none does: unknown or repeated
// ids yield INVALID_SUBSET and leave b untouched.
func (b *Batch) Split(ids []int64) (*Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if want[id] {
			return nil, errs.New(errs.CodeInvalidSubset, "member id repeated in subset").
				With("member", fmt.Sprintf("%d", id))
		}
		if b.indexLocked(id) < 0 {
			return nil, errs.New(errs.CodeInvalidSubset, "member %d not in batch", id)
		}
		want[id] = true
	}

	out := &Batch{}
	kept := b.members[:0:0]
	for _, m := range b.members {
		if want[m.ID] {
			out.members = append(out.members, m)
		} else {
			kept = append(kept, m)
		}
	}
	b.members = kept
	return out, nil
}

// Merge appends the members of other in order. Used to undo a Split.
func (b *Batch) Merge(other *Batch) {
	moved := other.Members()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.members = append(b.members, moved...)
}

func (b *Batch) indexLocked(memberID int64) int {
	return slices.IndexFunc(b.members, func(m Member) bool { return m.ID == memberID })
}
