package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/video"
)

// MoveAsIs moves the frame or batch h to dest without changing its packing.
//
// Without subset the whole entity moves and h is returned. With subset (batch
// members, named by the handles their frames had when packed) only those
// members move: they form a new batch under a fresh handle, which is
// returned, and the rest stay behind under h. A subset naming every member
// is a whole move.
//
// Errors: UNKNOWN_HANDLE, UNKNOWN_STAGE, STAGE_KIND_MISMATCH, and
// INVALID_SUBSET for a subset on a frame or with ids that are not members.
// On error nothing moves.
func (p *Pipeline) MoveAsIs(h Handle, dest string, subset ...Handle) (Handle, error) {
	destIdx, err := p.stageIndex(dest)
	if err != nil {
		return 0, err
	}
	src, pl, unlock, err := p.acquireOne(h, destIdx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	dst := p.stages[destIdx]
	if pl.kind != dst.kind {
		return 0, kindMismatch(h, pl.kind, dst)
	}
	if len(subset) > 0 {
		if pl.kind != BatchPayload {
			return 0, errs.New(errs.CodeInvalidSubset, "subset given for a frame handle").
				With("handle", fmt.Sprintf("%d", h))
		}
		ids := make([]int64, len(subset))
		for i, s := range subset {
			ids[i] = int64(s)
		}
		part, err := pl.batch.Split(ids)
		if err != nil {
			return 0, fmt.Errorf("move batch %d: %w", h, err)
		}
		if pl.batch.Len() > 0 {
			return p.moveSplit(h, pl, part, src, dst), nil
		}
		pl.batch.Merge(part)
	}

	span := p.opSpan(pl.span, "move_as_is", "from", src.name, "to", dst.name)
	delete(src.items, h)
	dst.items[h] = pl
	p.handles.place(h, destIdx)
	p.emit(Event{Type: EventMoved, Handle: h, Kind: pl.kind, From: src.name, To: dst.name})
	span.End()

	p.logger.Debug("moved", "pipeline", p.name, "handle", h, "from", src.name, "to", dst.name)
	return h, nil
}

// MoveManyAsIs moves every handle in handles, whole, to dest. The handles
// may sit in different stages but must all match dest's kind.
//
// All-or-nothing: on UNKNOWN_HANDLE (including a repeated handle),
// UNKNOWN_STAGE or STAGE_KIND_MISMATCH nothing moves.
func (p *Pipeline) MoveManyAsIs(handles []Handle, dest string) error {
	if len(handles) == 0 {
		return nil
	}
	seen := make(map[Handle]bool, len(handles))
	for _, h := range handles {
		if seen[h] {
			return errs.UnknownHandle(int64(h)).With("reason", "repeated")
		}
		seen[h] = true
	}
	destIdx, err := p.stageIndex(dest)
	if err != nil {
		return err
	}
	locs, unlock, err := p.acquire(handles, destIdx)
	if err != nil {
		return err
	}
	defer unlock()

	dst := p.stages[destIdx]
	for i, h := range handles {
		if pl := p.stages[locs[i]].items[h]; pl.kind != dst.kind {
			return kindMismatch(h, pl.kind, dst)
		}
	}
	for i, h := range handles {
		src := p.stages[locs[i]]
		pl := src.items[h]
		span := p.opSpan(pl.span, "move_as_is", "from", src.name, "to", dst.name)
		delete(src.items, h)
		dst.items[h] = pl
		p.handles.place(h, destIdx)
		p.emit(Event{Type: EventMoved, Handle: h, Kind: pl.kind, From: src.name, To: dst.name})
		span.End()
	}

	p.logger.Debug("moved", "pipeline", p.name, "handles", len(handles), "to", dst.name)
	return nil
}

// moveSplit places part, split off from the batch h, in dst under a fresh
// handle. Caller holds the locks of src and dst.
func (p *Pipeline) moveSplit(h Handle, pl *payload, part *video.Batch, src, dst *stage) Handle {
	nh := p.handles.issue()
	npl := &payload{
		kind:    BatchPayload,
		span:    p.opSpan(pl.span, "batch", "split_from", int64(h)),
		batch:   part,
		members: make(map[int64]*member, part.Len()),
	}
	for _, id := range part.MemberIDs() {
		npl.members[id] = p.member(pl, id)
		delete(pl.members, id)
	}

	span := p.opSpan(pl.span, "move_as_is", "from", src.name, "to", dst.name, "subset", part.Len())
	dst.items[nh] = npl
	p.handles.place(nh, dst.index)
	p.emit(Event{Type: EventSplit, Handle: h, Kind: BatchPayload, From: src.name, To: dst.name, Related: []Handle{nh}})
	span.End()

	p.logger.Debug("split batch", "pipeline", p.name, "handle", h, "new_handle", nh,
		"members", part.Len(), "from", src.name, "to", dst.name)
	return nh
}

// MoveAndPackFrames removes the frames handles from their stages (which may
// differ), packs them into one new batch in the given order, and inserts the
// batch into dest. The input handles are retired; each frame keeps its
// journal and its old handle becomes its member id.
//
// All-or-nothing: on UNKNOWN_HANDLE (including a repeated handle),
// UNKNOWN_STAGE, STAGE_KIND_MISMATCH or an empty list nothing changes.
func (p *Pipeline) MoveAndPackFrames(handles []Handle, dest string) (Handle, error) {
	if len(handles) == 0 {
		return 0, errs.New(errs.CodeInvalidArgument, "no frames to pack")
	}
	seen := make(map[Handle]bool, len(handles))
	for _, h := range handles {
		if seen[h] {
			return 0, errs.UnknownHandle(int64(h)).With("reason", "repeated")
		}
		seen[h] = true
	}
	destIdx, err := p.stageIndex(dest)
	if err != nil {
		return 0, err
	}
	dst := p.stages[destIdx]
	if dst.kind != BatchPayload {
		return 0, errs.New(errs.CodeStageKindMismatch, "pack destination must be a batch stage").
			With("stage", dst.name)
	}

	locs, unlock, err := p.acquire(handles, destIdx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	for i, h := range handles {
		if pl := p.stages[locs[i]].items[h]; pl.kind != FramePayload {
			return 0, errs.New(errs.CodeStageKindMismatch, "only frames can be packed").
				With("handle", fmt.Sprintf("%d", h))
		}
	}

	bh := p.handles.issue()
	root := p.tracer.Start("batch")
	batch := video.NewBatch()
	members := make(map[int64]*member, len(handles))
	var from []string
	for i, h := range handles {
		src := p.stages[locs[i]]
		pl := src.items[h]
		if err := batch.Add(int64(h), pl.frame); err != nil {
			// unreachable: handles are unique
			root.End()
			return 0, err
		}
		members[int64(h)] = &member{journal: pl.journal, span: pl.span}
		p.opSpan(pl.span, "move_and_pack_frames", "from", src.name, "to", dst.name, "batch", int64(bh)).End()
		if !slices.Contains(from, src.name) {
			from = append(from, src.name)
		}
	}
	for i, h := range handles {
		delete(p.stages[locs[i]].items, h)
	}
	p.handles.retire(handles...)
	dst.items[bh] = &payload{kind: BatchPayload, span: root, batch: batch, members: members}
	p.handles.place(bh, destIdx)
	p.emit(Event{
		Type:    EventPacked,
		Handle:  bh,
		Kind:    BatchPayload,
		From:    strings.Join(from, ","),
		To:      dst.name,
		Related: append([]Handle(nil), handles...),
	})

	p.logger.Debug("packed", "pipeline", p.name, "batch", bh, "frames", len(handles), "to", dst.name)
	return bh, nil
}

// MoveAndUnpackBatch dissolves batch h into dest. Each member frame is
// admitted under a fresh handle, with its journal; handles are returned in
// packing order. h is retired.
//
// Errors: UNKNOWN_HANDLE, UNKNOWN_STAGE, STAGE_KIND_MISMATCH. On error
// nothing changes.
func (p *Pipeline) MoveAndUnpackBatch(h Handle, dest string) ([]Handle, error) {
	out, _, err := p.unpack(h, dest, -1)
	return out, err
}

// MoveAndUnpackBatchLimit is MoveAndUnpackBatch for callers that can take at
// most limit frames. The member count is always returned; when it exceeds
// limit the batch is left where it is and the slice is nil.
func (p *Pipeline) MoveAndUnpackBatchLimit(h Handle, dest string, limit int) ([]Handle, int, error) {
	if limit < 0 {
		return nil, 0, errs.New(errs.CodeInvalidArgument, "negative limit %d", limit)
	}
	return p.unpack(h, dest, limit)
}

func (p *Pipeline) unpack(h Handle, dest string, limit int) ([]Handle, int, error) {
	destIdx, err := p.stageIndex(dest)
	if err != nil {
		return nil, 0, err
	}
	dst := p.stages[destIdx]
	if dst.kind != FramePayload {
		return nil, 0, errs.New(errs.CodeStageKindMismatch, "unpack destination must be a frame stage").
			With("stage", dst.name)
	}
	src, pl, unlock, err := p.acquireOne(h, destIdx)
	if err != nil {
		return nil, 0, err
	}
	defer unlock()
	if pl.kind != BatchPayload {
		return nil, 0, errs.New(errs.CodeStageKindMismatch, "only batches can be unpacked").
			With("handle", fmt.Sprintf("%d", h))
	}

	members := pl.batch.Members()
	if limit >= 0 && len(members) > limit {
		return nil, len(members), nil
	}
	out := make([]Handle, 0, len(members))
	for _, m := range members {
		ms := p.member(pl, m.ID)
		nh := p.handles.issue()
		p.opSpan(ms.span, "move_and_unpack_batch", "from", src.name, "to", dst.name, "handle", int64(nh)).End()
		dst.items[nh] = &payload{kind: FramePayload, span: ms.span, frame: m.Frame, journal: ms.journal}
		p.handles.place(nh, destIdx)
		out = append(out, nh)
	}
	delete(src.items, h)
	p.handles.retire(h)
	pl.span.End()
	p.emit(Event{
		Type:    EventUnpacked,
		Handle:  h,
		Kind:    BatchPayload,
		From:    src.name,
		To:      dst.name,
		Related: append([]Handle(nil), out...),
	})

	p.logger.Debug("unpacked", "pipeline", p.name, "batch", h, "frames", len(out), "to", dst.name)
	return out, len(out), nil
}
