package video

import (
	"github.com/roach88/framepipe/internal/attribute"
	"github.com/roach88/framepipe/internal/geometry"
)

// ObjectSnapshot is a plain copy of an Object, safe to serialize.
type ObjectSnapshot struct {
	ID           int64                 `json:"id"`
	Namespace    string                `json:"namespace"`
	Label        string                `json:"label"`
	DrawLabel    string                `json:"draw_label,omitempty"`
	Confidence   *float32              `json:"confidence,omitempty"`
	DetectionBox geometry.BoundingBox  `json:"detection_box"`
	Tracking     *TrackingInfo         `json:"tracking,omitempty"`
	Attributes   []attribute.Attribute `json:"attributes,omitempty"`
}

// FrameSnapshot is a plain copy of a Frame, safe to serialize.
type FrameSnapshot struct {
	UUID       string                `json:"uuid"`
	SourceID   string                `json:"source_id"`
	Framerate  string                `json:"framerate"`
	Width      int64                 `json:"width"`
	Height     int64                 `json:"height"`
	PTS        int64                 `json:"pts"`
	DTS        *int64                `json:"dts,omitempty"`
	Duration   *int64                `json:"duration,omitempty"`
	Keyframe   *bool                 `json:"keyframe,omitempty"`
	CreatedAt  int64                 `json:"created_at"`
	Objects    []ObjectSnapshot      `json:"objects"`
	Attributes []attribute.Attribute `json:"attributes,omitempty"`
}

// MemberSnapshot is one frame of a BatchSnapshot.
type MemberSnapshot struct {
	ID    int64         `json:"id"`
	Frame FrameSnapshot `json:"frame"`
}

// BatchSnapshot is a plain copy of a Batch.
type BatchSnapshot struct {
	Members []MemberSnapshot `json:"members"`
}

// Snapshot copies the object's current state.
func (o *Object) Snapshot() ObjectSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := ObjectSnapshot{
		ID:           o.id,
		Namespace:    o.namespace,
		Label:        o.label,
		DrawLabel:    o.drawLabel,
		DetectionBox: o.detectionBox,
		Attributes:   o.attrs.All(),
	}
	if o.confidenceSet {
		c := o.confidence
		s.Confidence = &c
	}
	if o.tracking != nil {
		ti := *o.tracking
		s.Tracking = &ti
	}
	return s
}

// Snapshot copies the frame and all of its objects.
func (f *Frame) Snapshot() FrameSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := FrameSnapshot{
		UUID:       f.uuid.String(),
		SourceID:   f.sourceID,
		Framerate:  f.framerate,
		Width:      f.width,
		Height:     f.height,
		PTS:        f.pts,
		DTS:        f.dts,
		Duration:   f.duration,
		Keyframe:   f.keyframe,
		CreatedAt:  f.createdAt,
		Objects:    make([]ObjectSnapshot, 0, len(f.objects)),
		Attributes: f.attrs.All(),
	}
	for _, o := range f.objects {
		s.Objects = append(s.Objects, o.Snapshot())
	}
	return s
}

// Snapshot copies every member frame in packing order.
func (b *Batch) Snapshot() BatchSnapshot {
	members := b.Members()
	s := BatchSnapshot{Members: make([]MemberSnapshot, len(members))}
	for i, m := range members {
		s.Members[i] = MemberSnapshot{ID: m.ID, Frame: m.Frame.Snapshot()}
	}
	return s
}
