package video

import (
	"sync"

	"github.com/roach88/framepipe/internal/attribute"
	"github.com/roach88/framepipe/internal/geometry"
)

// TrackingInfo is the tracker's box and track id for an object.
// It is set and cleared as a unit.
type TrackingInfo struct {
	Box     geometry.BoundingBox `json:"box"`
	TrackID int64                `json:"track_id"`
}

// Object is one detection on a frame.
//
// Every accessor takes the object's lock, so a single field write is never
// observed half-done. Objects are owned by exactly one Frame.
type Object struct {
	mu sync.RWMutex

	id            int64
	namespace     string
	label         string
	drawLabel     string
	confidence    float32
	confidenceSet bool
	detectionBox  geometry.BoundingBox
	tracking      *TrackingInfo
	attrs         *attribute.Store
}

// ObjectOption configures an Object at construction.
type ObjectOption func(*Object)

// WithConfidence records the detector confidence.
func WithConfidence(c float32) ObjectOption {
	return func(o *Object) {
		o.confidence = c
		o.confidenceSet = true
	}
}

// WithDrawLabel sets the label used for rendering.
func WithDrawLabel(label string) ObjectOption {
	return func(o *Object) {
		o.drawLabel = label
	}
}

// WithTracking attaches tracking info.
func WithTracking(box geometry.BoundingBox, trackID int64) ObjectOption {
	return func(o *Object) {
		o.tracking = &TrackingInfo{Box: box, TrackID: trackID}
	}
}

// WithAttribute stores attr on the new object.
func WithAttribute(attr attribute.Attribute) ObjectOption {
	return func(o *Object) {
		o.attrs.Put(attr)
	}
}

// NewObject creates an object with a required detection box.
// Returns MALFORMED_GEOMETRY for a bad box and INVALID_ARGUMENT for a
// confidence outside [0, 1].
func NewObject(id int64, namespace, label string, box geometry.BoundingBox, opts ...ObjectOption) (*Object, error) {
	o := &Object{
		id:           id,
		namespace:    namespace,
		label:        label,
		detectionBox: box,
		attrs:        attribute.NewStore(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if o.confidenceSet {
		if err := attribute.ValidateConfidence(o.confidence); err != nil {
			return nil, err
		}
	}
	if o.tracking != nil {
		if err := o.tracking.Box.Validate(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// ID returns the object id, unique within its frame.
func (o *Object) ID() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

func (o *Object) setID(id int64) {
	o.mu.Lock()
	o.id = id
	o.mu.Unlock()
}

func (o *Object) Namespace() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.namespace
}

func (o *Object) Label() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.label
}

// DrawLabel returns the rendering label, falling back to Label when unset.
func (o *Object) DrawLabel() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.drawLabel == "" {
		return o.label
	}
	return o.drawLabel
}

func (o *Object) SetDrawLabel(label string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.drawLabel = label
}

// Confidence returns the confidence and whether one is set.
func (o *Object) Confidence() (float32, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.confidence, o.confidenceSet
}

// SetConfidence records c. Returns INVALID_ARGUMENT unless 0 ≤ c ≤ 1.
func (o *Object) SetConfidence(c float32) error {
	if err := attribute.ValidateConfidence(c); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.confidence = c
	o.confidenceSet = true
	return nil
}

// ClearConfidence removes the confidence. Returns false if none was set.
func (o *Object) ClearConfidence() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	had := o.confidenceSet
	o.confidence = 0
	o.confidenceSet = false
	return had
}

func (o *Object) DetectionBox() geometry.BoundingBox {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.detectionBox
}

// SetDetectionBox replaces the detection box. There is no clear: a detection
// always has a box.
func (o *Object) SetDetectionBox(b geometry.BoundingBox) error {
	if err := b.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detectionBox = b
	return nil
}

// TrackingInfo returns the tracking info and whether it is set.
func (o *Object) TrackingInfo() (TrackingInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.tracking == nil {
		return TrackingInfo{}, false
	}
	return *o.tracking, true
}

func (o *Object) SetTrackingInfo(ti TrackingInfo) error {
	if err := ti.Box.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tracking = &ti
	return nil
}

// ClearTrackingInfo removes tracking info. Returns false if none was set.
func (o *Object) ClearTrackingInfo() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	had := o.tracking != nil
	o.tracking = nil
	return had
}

// AttributeValue returns value idx of attribute (namespace, name).
func (o *Object) AttributeValue(namespace, name string, idx int) (attribute.Value, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.attrs.Get(namespace, name, idx)
}

func (o *Object) Attribute(namespace, name string) (attribute.Attribute, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.attrs.Attribute(namespace, name)
}

// SetAttribute replaces the value sequence of (namespace, name).
func (o *Object) SetAttribute(namespace, name string, values ...attribute.Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attrs.Set(namespace, name, values...)
}

func (o *Object) AppendAttributeValue(namespace, name string, v attribute.Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attrs.Append(namespace, name, v)
}

// PutAttribute stores attr, returning the attribute it replaced.
func (o *Object) PutAttribute(attr attribute.Attribute) (attribute.Attribute, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attrs.Put(attr)
}

func (o *Object) DeleteAttribute(namespace, name string) (attribute.Attribute, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attrs.Delete(namespace, name)
}

func (o *Object) FindAttributes(q attribute.Query) []attribute.Key {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.attrs.Find(q)
}

func (o *Object) AttributeKeys() []attribute.Key {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.attrs.Keys()
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	o.mu.RLock()
	defer o.mu.RUnlock()
	c := &Object{
		id:            o.id,
		namespace:     o.namespace,
		label:         o.label,
		drawLabel:     o.drawLabel,
		confidence:    o.confidence,
		confidenceSet: o.confidenceSet,
		detectionBox:  o.detectionBox,
		attrs:         o.attrs.Clone(),
	}
	if o.tracking != nil {
		ti := *o.tracking
		c.tracking = &ti
	}
	return c
}

func (o *Object) transform(ops []geometry.Transform) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.detectionBox = geometry.ApplyAll(o.detectionBox, ops)
	if o.tracking != nil {
		o.tracking.Box = geometry.ApplyAll(o.tracking.Box, ops)
	}
}
