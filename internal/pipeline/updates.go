package pipeline

import (
	"fmt"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/journal"
	"github.com/roach88/framepipe/internal/video"
)

// AddFrameUpdate queues records on the journal of frame h.
// Returns UNKNOWN_HANDLE, or STAGE_KIND_MISMATCH if h is a batch.
func (p *Pipeline) AddFrameUpdate(h Handle, records ...journal.Record) error {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return err
	}
	defer unlock()
	if pl.kind != FramePayload {
		return errs.New(errs.CodeStageKindMismatch, "handle is a batch; use AddBatchedFrameUpdate").
			With("handle", fmt.Sprintf("%d", h))
	}
	pl.journal.Push(records...)
	return nil
}

// AddBatchedFrameUpdate queues records on the journal of one member of
// batch h. Returns INVALID_SUBSET if member is not in the batch.
func (p *Pipeline) AddBatchedFrameUpdate(h Handle, memberID Handle, records ...journal.Record) error {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return err
	}
	defer unlock()
	if pl.kind != BatchPayload {
		return errs.New(errs.CodeStageKindMismatch, "handle is a frame; use AddFrameUpdate").
			With("handle", fmt.Sprintf("%d", h))
	}
	if _, ok := pl.batch.Frame(int64(memberID)); !ok {
		return errs.New(errs.CodeInvalidSubset, "member %d not in batch", memberID).
			With("handle", fmt.Sprintf("%d", h))
	}
	p.member(pl, int64(memberID)).journal.Push(records...)
	return nil
}

// PendingUpdates returns the number of queued records for h, summed over
// members for a batch.
func (p *Pipeline) PendingUpdates(h Handle) (int, error) {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return pl.pending(), nil
}

// ApplyUpdates replays the journal of frame h, or of every member of batch
// h, and empties it. Records that do not fit the frame's current state are
// skipped. Returns whether any record was pending; a second call in a row
// returns false and changes nothing.
func (p *Pipeline) ApplyUpdates(h Handle) (bool, error) {
	st, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return false, err
	}
	defer unlock()

	span := p.opSpan(pl.span, "apply_updates", "stage", st.name)
	defer span.End()

	var total journal.Outcome
	apply := func(memberID int64, f *video.Frame, j *journal.Journal) {
		out := j.Apply(f)
		total.Applied += out.Applied
		for _, s := range out.Skipped {
			p.logger.Debug("update skipped",
				"pipeline", p.name,
				"handle", h,
				"member", memberID,
				"record", s.Kind,
				"index", s.Index,
				"error", s.Err,
			)
		}
		total.Skipped = append(total.Skipped, out.Skipped...)
	}
	if pl.kind == FramePayload {
		apply(int64(h), pl.frame, pl.journal)
	} else {
		for _, m := range pl.batch.Members() {
			apply(m.ID, m.Frame, p.member(pl, m.ID).journal)
		}
	}

	if !total.Pending() {
		return false, nil
	}
	span.SetAttribute("applied", total.Applied)
	span.SetAttribute("skipped", len(total.Skipped))
	p.emit(Event{
		Type:    EventApplied,
		Handle:  h,
		Kind:    pl.kind,
		From:    st.name,
		To:      st.name,
		Applied: total.Applied,
		Skipped: len(total.Skipped),
	})
	return true, nil
}

// ClearUpdates discards the journal of frame h, or of every member of batch
// h, without touching the frames. Returns whether any record was discarded.
func (p *Pipeline) ClearUpdates(h Handle) (bool, error) {
	st, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return false, err
	}
	defer unlock()

	span := p.opSpan(pl.span, "clear_updates", "stage", st.name)
	defer span.End()

	dropped := 0
	if pl.kind == FramePayload {
		dropped = pl.journal.Clear()
	} else {
		for _, m := range pl.members {
			dropped += m.journal.Clear()
		}
	}
	if dropped == 0 {
		return false, nil
	}
	span.SetAttribute("dropped", dropped)
	p.emit(Event{Type: EventCleared, Handle: h, Kind: pl.kind, From: st.name, To: st.name, Skipped: dropped})
	return true, nil
}
