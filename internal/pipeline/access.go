package pipeline

import (
	"fmt"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/video"
)

// Evicted is what Delete hands back: the frame or the batch that left.
type Evicted struct {
	Kind  PayloadKind
	Frame *video.Frame
	Batch *video.Batch
}

// Delete evicts h from the pipeline and retires the handle. Pending updates
// are discarded. The event carries snapshots of the departing frames.
func (p *Pipeline) Delete(h Handle) (Evicted, error) {
	st, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return Evicted{}, err
	}
	defer unlock()

	out := Evicted{Kind: pl.kind, Frame: pl.frame, Batch: pl.batch}
	var snaps []video.FrameSnapshot
	if pl.kind == FramePayload {
		pl.journal.Clear()
		snaps = []video.FrameSnapshot{pl.frame.Snapshot()}
	} else {
		for _, m := range pl.batch.Members() {
			ms := p.member(pl, m.ID)
			ms.journal.Clear()
			ms.span.End()
			snaps = append(snaps, m.Frame.Snapshot())
		}
	}
	p.opSpan(pl.span, "delete", "stage", st.name).End()
	pl.span.End()

	delete(st.items, h)
	p.handles.retire(h)
	p.emit(Event{Type: EventDeleted, Handle: h, Kind: pl.kind, From: st.name, Frames: snaps})

	p.logger.Debug("deleted", "pipeline", p.name, "handle", h, "stage", st.name)
	return out, nil
}

// Frame returns the frame behind h.
// Returns STAGE_KIND_MISMATCH if h is a batch.
func (p *Pipeline) Frame(h Handle) (*video.Frame, error) {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if pl.kind != FramePayload {
		return nil, errs.New(errs.CodeStageKindMismatch, "handle is a batch").With("handle", fmt.Sprintf("%d", h))
	}
	return pl.frame, nil
}

// WithFrame runs fn on the frame behind h while its stage is locked, so h
// cannot be moved or deleted until fn returns. fn must not call back into p.
func (p *Pipeline) WithFrame(h Handle, fn func(*video.Frame) error) error {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return err
	}
	defer unlock()
	if pl.kind != FramePayload {
		return errs.New(errs.CodeStageKindMismatch, "handle is a batch").With("handle", fmt.Sprintf("%d", h))
	}
	return fn(pl.frame)
}

// Batch returns the batch behind h.
func (p *Pipeline) Batch(h Handle) (*video.Batch, error) {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if pl.kind != BatchPayload {
		return nil, errs.New(errs.CodeStageKindMismatch, "handle is a frame").With("handle", fmt.Sprintf("%d", h))
	}
	return pl.batch, nil
}

// BatchedFrame returns member memberID of batch h.
// Returns INVALID_SUBSET if the batch has no such member.
func (p *Pipeline) BatchedFrame(h Handle, memberID Handle) (*video.Frame, error) {
	b, err := p.Batch(h)
	if err != nil {
		return nil, err
	}
	f, ok := b.Frame(int64(memberID))
	if !ok {
		return nil, errs.New(errs.CodeInvalidSubset, "member %d not in batch", memberID).
			With("handle", fmt.Sprintf("%d", h))
	}
	return f, nil
}

// StageOf returns the name of the stage currently holding h.
func (p *Pipeline) StageOf(h Handle) (string, error) {
	idx, ok := p.handles.lookup(h)
	if !ok {
		return "", errs.UnknownHandle(int64(h))
	}
	return p.stages[idx].name, nil
}

// KindOf reports whether h is a frame or a batch.
func (p *Pipeline) KindOf(h Handle) (PayloadKind, error) {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return pl.kind, nil
}

// StageLen returns the number of entities in the named stage.
func (p *Pipeline) StageLen(name string) (int, error) {
	idx, err := p.stageIndex(name)
	if err != nil {
		return 0, err
	}
	unlock := p.lockStages(idx)
	defer unlock()
	return len(p.stages[idx].items), nil
}

// StageKind returns the payload kind the named stage accepts.
func (p *Pipeline) StageKind(name string) (PayloadKind, error) {
	idx, err := p.stageIndex(name)
	if err != nil {
		return 0, err
	}
	return p.stages[idx].kind, nil
}

// Stages lists the stages in declaration order with their occupancy.
// Each stage is sampled under its own lock, so the list is not one atomic
// snapshot of the whole pipeline.
func (p *Pipeline) Stages() []StageInfo {
	out := make([]StageInfo, len(p.stages))
	for i, st := range p.stages {
		st.lock.Lock()
		out[i] = StageInfo{Name: st.name, Kind: st.kind, Len: len(st.items)}
		st.lock.Unlock()
	}
	return out
}

// Handles returns the handles in the named stage, in no particular order.
func (p *Pipeline) Handles(name string) ([]Handle, error) {
	idx, err := p.stageIndex(name)
	if err != nil {
		return nil, err
	}
	st := p.stages[idx]
	st.lock.Lock()
	defer st.lock.Unlock()
	out := make([]Handle, 0, len(st.items))
	for h := range st.items {
		out = append(out, h)
	}
	return out, nil
}

// Live returns the number of handles currently in a stage.
func (p *Pipeline) Live() int {
	return p.handles.live()
}

// TraceContext returns the propagation carrier (W3C traceparent) of h's
// root span.
func (p *Pipeline) TraceContext(h Handle) (map[string]string, error) {
	_, pl, unlock, err := p.acquireOne(h)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return p.tracer.Propagate(pl.span), nil
}

// Contention samples every stage lock's counters without locking.
func (p *Pipeline) Contention() []Contention {
	out := make([]Contention, len(p.stages))
	for i, st := range p.stages {
		out[i] = st.lock.sample(st.name)
	}
	return out
}
