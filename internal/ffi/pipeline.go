package ffi

import (
	"github.com/roach88/framepipe/internal/attribute"
	"github.com/roach88/framepipe/internal/geometry"
	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/video"
)

func handles(ids []int64) []pipeline.Handle {
	out := make([]pipeline.Handle, len(ids))
	for i, id := range ids {
		out[i] = pipeline.Handle(id)
	}
	return out
}

// MoveAsIs moves the frames or batches ids, whole, to dest. All-or-nothing.
func MoveAsIs(ph PipelineHandle, dest string, ids []int64) Status {
	p, st := lookup(ph)
	if st != StatusOK {
		return st
	}
	return StatusOf(p.MoveManyAsIs(handles(ids), dest))
}

// MoveBatchSubset moves members of batch to dest as a new batch and returns
// its handle, or batch itself when members names every member.
func MoveBatchSubset(ph PipelineHandle, dest string, batch int64, members []int64) (int64, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return 0, st
	}
	h, err := p.MoveAsIs(pipeline.Handle(batch), dest, handles(members)...)
	if err != nil {
		return 0, StatusOf(err)
	}
	return int64(h), StatusOK
}

// MoveAndPackFrames packs the frames ids into a new batch in dest and
// returns its handle.
func MoveAndPackFrames(ph PipelineHandle, dest string, ids []int64) (int64, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return 0, st
	}
	h, err := p.MoveAndPackFrames(handles(ids), dest)
	if err != nil {
		return 0, StatusOf(err)
	}
	return int64(h), StatusOK
}

// MoveAndUnpackBatch unpacks batch into dest and writes the new frame
// handles into out. The required length is always returned. When out is
// shorter than the batch nothing is unpacked and the status is
// BUFFER_TOO_SMALL.
func MoveAndUnpackBatch(ph PipelineHandle, dest string, batch int64, out []int64) (int, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return 0, st
	}
	hs, need, err := p.MoveAndUnpackBatchLimit(pipeline.Handle(batch), dest, len(out))
	if err != nil {
		return 0, StatusOf(err)
	}
	if need > len(out) {
		return need, StatusBufferTooSmall
	}
	for i, h := range hs {
		out[i] = int64(h)
	}
	return len(hs), StatusOK
}

// ApplyUpdates reports whether any pending update was applied to id.
func ApplyUpdates(ph PipelineHandle, id int64) (bool, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return false, st
	}
	ok, err := p.ApplyUpdates(pipeline.Handle(id))
	return ok, StatusOf(err)
}

// ClearUpdates reports whether any pending update of id was discarded.
func ClearUpdates(ph PipelineHandle, id int64) (bool, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return false, st
	}
	ok, err := p.ClearUpdates(pipeline.Handle(id))
	return ok, StatusOf(err)
}

// BoxKind selects which box of an object UpdateFrameMeta writes.
type BoxKind int32

const (
	DetectionBox BoxKind = iota
	TrackingBox
)

// InferenceMeta is one model result for an existing object.
type InferenceMeta struct {
	ID         int64
	Confidence float32
	TrackID    int64
	Box        BoundingBox
}

// UpdateFrameMeta writes inference results onto the objects of frame. Every
// entry is checked before any is written: an unknown object id is
// NOT_FOUND, a bad box MALFORMED_GEOMETRY, a confidence outside [0, 1]
// INVALID_ARGUMENT.
func UpdateFrameMeta(ph PipelineHandle, frame int64, metas []InferenceMeta, kind BoxKind) Status {
	p, st := lookup(ph)
	if st != StatusOK {
		return st
	}
	err := p.WithFrame(pipeline.Handle(frame), func(f *video.Frame) error {
		boxes := make([]geometry.BoundingBox, len(metas))
		for i, m := range metas {
			if _, err := f.Object(m.ID); err != nil {
				return err
			}
			b, err := m.Box.toGeometry()
			if err != nil {
				return err
			}
			boxes[i] = b
			if err := attribute.ValidateConfidence(m.Confidence); err != nil {
				return err
			}
		}

		for i, m := range metas {
			o, err := f.Object(m.ID)
			if err != nil {
				return err
			}
			if err := o.SetConfidence(m.Confidence); err != nil {
				return err
			}
			switch kind {
			case TrackingBox:
				err = o.SetTrackingInfo(video.TrackingInfo{Box: boxes[i], TrackID: m.TrackID})
			default:
				err = o.SetDetectionBox(boxes[i])
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return StatusOf(err)
}
