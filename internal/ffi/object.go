package ffi

import (
	"github.com/roach88/framepipe/internal/pipeline"
	"github.com/roach88/framepipe/internal/video"
)

func object(ph PipelineHandle, frame, id int64) (*video.Object, Status) {
	p, st := lookup(ph)
	if st != StatusOK {
		return nil, st
	}
	f, err := p.Frame(pipeline.Handle(frame))
	if err != nil {
		return nil, StatusOf(err)
	}
	o, err := f.Object(id)
	if err != nil {
		return nil, StatusOf(err)
	}
	return o, StatusOK
}

// copyString writes s into buf when it fits and returns len(s).
func copyString(s string, buf []byte) int {
	if len(s) <= len(buf) {
		copy(buf, s)
	}
	return len(s)
}

// ObjectID confirms the object exists and returns its id.
func ObjectID(ph PipelineHandle, frame, id int64) (int64, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return 0, st
	}
	return o.ID(), StatusOK
}

// ObjectConfidence returns the confidence and whether it is set.
func ObjectConfidence(ph PipelineHandle, frame, id int64) (float32, bool, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return 0, false, st
	}
	c, ok := o.Confidence()
	return c, ok, StatusOK
}

func SetObjectConfidence(ph PipelineHandle, frame, id int64, c float32) Status {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return st
	}
	return StatusOf(o.SetConfidence(c))
}

func ClearObjectConfidence(ph PipelineHandle, frame, id int64) Status {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return st
	}
	o.ClearConfidence()
	return StatusOK
}

// ObjectNamespace writes the namespace into buf and returns its byte length.
func ObjectNamespace(ph PipelineHandle, frame, id int64, buf []byte) (int, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return 0, st
	}
	return copyString(o.Namespace(), buf), StatusOK
}

func ObjectLabel(ph PipelineHandle, frame, id int64, buf []byte) (int, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return 0, st
	}
	return copyString(o.Label(), buf), StatusOK
}

func ObjectDrawLabel(ph PipelineHandle, frame, id int64, buf []byte) (int, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return 0, st
	}
	return copyString(o.DrawLabel(), buf), StatusOK
}

func ObjectDetectionBox(ph PipelineHandle, frame, id int64) (BoundingBox, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return BoundingBox{}, st
	}
	return fromGeometry(o.DetectionBox()), StatusOK
}

func SetObjectDetectionBox(ph PipelineHandle, frame, id int64, bb BoundingBox) Status {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return st
	}
	b, err := bb.toGeometry()
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(o.SetDetectionBox(b))
}

// ObjectTrackingInfo returns the tracking box and id, and whether the object
// is tracked at all.
func ObjectTrackingInfo(ph PipelineHandle, frame, id int64) (BoundingBox, int64, bool, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return BoundingBox{}, 0, false, st
	}
	ti, ok := o.TrackingInfo()
	if !ok {
		return BoundingBox{}, 0, false, StatusOK
	}
	return fromGeometry(ti.Box), ti.TrackID, true, StatusOK
}

func SetObjectTrackingInfo(ph PipelineHandle, frame, id int64, bb BoundingBox, trackID int64) Status {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return st
	}
	b, err := bb.toGeometry()
	if err != nil {
		return StatusOf(err)
	}
	return StatusOf(o.SetTrackingInfo(video.TrackingInfo{Box: b, TrackID: trackID}))
}

func ClearObjectTrackingInfo(ph PipelineHandle, frame, id int64) Status {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return st
	}
	o.ClearTrackingInfo()
	return StatusOK
}

// FloatVec is the result of ObjectFloatVecAttribute.
type FloatVec struct {
	// Len is the number of floats in the value; the caller buffer holds them
	// only when it was at least this long.
	Len           int
	Confidence    float32
	ConfidenceSet bool
}

// ObjectFloatVecAttribute copies value idx of attribute (namespace, name)
// into buf. Returns NOT_FOUND for a missing attribute or index,
// INVALID_ARGUMENT when the value is not a float vector and
// BUFFER_TOO_SMALL, with Len set, when buf is short.
func ObjectFloatVecAttribute(ph PipelineHandle, frame, id int64, namespace, name string, idx int, buf []float64) (FloatVec, Status) {
	o, st := object(ph, frame, id)
	if st != StatusOK {
		return FloatVec{}, st
	}
	v, err := o.AttributeValue(namespace, name, idx)
	if err != nil {
		return FloatVec{}, StatusOf(err)
	}
	floats, ok := v.AsFloats()
	if !ok {
		return FloatVec{}, StatusInvalidArgument
	}
	out := FloatVec{Len: len(floats)}
	out.Confidence, out.ConfidenceSet = v.Confidence()
	if len(buf) < len(floats) {
		return out, StatusBufferTooSmall
	}
	copy(buf, floats)
	return out, StatusOK
}
