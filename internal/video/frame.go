package video

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/framepipe/internal/attribute"
	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/geometry"
)

// IDCollisionPolicy decides what AddObject does when the frame already holds
// an object with the same id.
type IDCollisionPolicy int

const (
	// GenerateNewID assigns max(id)+1 to the incoming object.
	GenerateNewID IDCollisionPolicy = iota
	// Overwrite replaces the existing object in place.
	Overwrite
	// ErrorOnCollision rejects the object with ID_COLLISION.
	ErrorOnCollision
)

func (p IDCollisionPolicy) String() string {
	switch p {
	case GenerateNewID:
		return "generate_new_id"
	case Overwrite:
		return "overwrite"
	case ErrorOnCollision:
		return "error"
	}
	return fmt.Sprintf("IDCollisionPolicy(%d)", int(p))
}

// Frame is one video frame with its detections and frame-level attributes.
//
// Metadata is fixed at construction. Objects keep insertion order and are
// unique by id. A Frame is safe for concurrent use; the frame lock is always
// taken before an object lock, never the reverse.
type Frame struct {
	mu sync.RWMutex

	uuid      uuid.UUID
	sourceID  string
	framerate string
	width     int64
	height    int64
	pts       int64
	dts       *int64
	duration  *int64
	keyframe  *bool
	createdAt int64

	objects []*Object
	byID    map[int64]*Object
	attrs   *attribute.Store
}

// FrameOption configures a Frame at construction.
type FrameOption func(*Frame)

// WithUUID fixes the frame UUID instead of generating one.
func WithUUID(id uuid.UUID) FrameOption {
	return func(f *Frame) { f.uuid = id }
}

// WithUUIDSource draws the frame UUID from src.
func WithUUIDSource(src UUIDSource) FrameOption {
	return func(f *Frame) { f.uuid = src.NewUUID() }
}

func WithFramerate(rate string) FrameOption {
	return func(f *Frame) { f.framerate = rate }
}

// WithSize sets the frame width and height in pixels.
func WithSize(width, height int64) FrameOption {
	return func(f *Frame) { f.width, f.height = width, height }
}

func WithPTS(pts int64) FrameOption {
	return func(f *Frame) { f.pts = pts }
}

func WithDTS(dts int64) FrameOption {
	return func(f *Frame) { f.dts = &dts }
}

func WithDuration(d int64) FrameOption {
	return func(f *Frame) { f.duration = &d }
}

func WithKeyframe(k bool) FrameOption {
	return func(f *Frame) { f.keyframe = &k }
}

// WithCreatedAt overrides the creation timestamp.
func WithCreatedAt(t time.Time) FrameOption {
	return func(f *Frame) { f.createdAt = t.UnixNano() }
}

// NewFrame creates an empty frame for sourceID.
// The UUID defaults to a fresh UUIDv7.
func NewFrame(sourceID string, opts ...FrameOption) *Frame {
	f := &Frame{
		sourceID:  sourceID,
		framerate: "30/1",
		createdAt: time.Now().UnixNano(),
		byID:      make(map[int64]*Object),
		attrs:     attribute.NewStore(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.uuid == uuid.Nil {
		f.uuid = UUIDv7Source{}.NewUUID()
	}
	return f
}

func (f *Frame) UUID() uuid.UUID { return f.uuid }

func (f *Frame) SourceID() string { return f.sourceID }

func (f *Frame) Framerate() string { return f.framerate }

// Size returns width and height in pixels.
func (f *Frame) Size() (int64, int64) { return f.width, f.height }

func (f *Frame) PTS() int64 { return f.pts }

// DTS returns the decode timestamp and whether one is set.
func (f *Frame) DTS() (int64, bool) { return deref(f.dts) }

func (f *Frame) Duration() (int64, bool) { return deref(f.duration) }

func (f *Frame) Keyframe() (bool, bool) {
	if f.keyframe == nil {
		return false, false
	}
	return *f.keyframe, true
}

// CreatedAt returns the creation time in Unix nanoseconds.
func (f *Frame) CreatedAt() int64 { return f.createdAt }

// AddObject adds obj to the frame and returns the id it ends up with.
func (f *Frame) AddObject(obj *Object, policy IDCollisionPolicy) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := obj.ID()
	existing, collides := f.byID[id]
	if !collides {
		f.objects = append(f.objects, obj)
		f.byID[id] = obj
		return id, nil
	}

	switch policy {
	case Overwrite:
		i := slices.Index(f.objects, existing)
		f.objects[i] = obj
		f.byID[id] = obj
		return id, nil
	case GenerateNewID:
		id = f.maxIDLocked() + 1
		obj.setID(id)
		f.objects = append(f.objects, obj)
		f.byID[id] = obj
		return id, nil
	default:
		return 0, errs.New(errs.CodeIDCollision, "object id already present in frame").
			With("object", fmt.Sprintf("%d", id))
	}
}

func (f *Frame) maxIDLocked() int64 {
	var maxID int64
	for id := range f.byID {
		if id > maxID {
			maxID = id
		}
	}
	return maxID
}

// Object returns the object with the given id, or NOT_FOUND.
func (f *Frame) Object(id int64) (*Object, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	obj, ok := f.byID[id]
	if !ok {
		return nil, errs.New(errs.CodeNotFound, "object not in frame").With("object", fmt.Sprintf("%d", id))
	}
	return obj, nil
}

// Objects returns the frame's objects in insertion order.
func (f *Frame) Objects() []*Object {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.objects)
}

// ObjectsByLabel returns the objects with the given namespace and label.
func (f *Frame) ObjectsByLabel(namespace, label string) []*Object {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*Object
	for _, o := range f.objects {
		if o.Namespace() == namespace && o.Label() == label {
			out = append(out, o)
		}
	}
	return out
}

func (f *Frame) ObjectCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.objects)
}

// DeleteObject removes and returns the object with the given id.
func (f *Frame) DeleteObject(id int64) (*Object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.byID[id]
	if !ok {
		return nil, false
	}
	delete(f.byID, id)
	f.objects = slices.DeleteFunc(f.objects, func(o *Object) bool { return o == obj })
	return obj, true
}

// TransformGeometry applies ops in order to every detection and tracking box.
func (f *Frame) TransformGeometry(ops ...geometry.Transform) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, o := range f.objects {
		o.transform(ops)
	}
}

func (f *Frame) AttributeValue(namespace, name string, idx int) (attribute.Value, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attrs.Get(namespace, name, idx)
}

func (f *Frame) Attribute(namespace, name string) (attribute.Attribute, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attrs.Attribute(namespace, name)
}

func (f *Frame) SetAttribute(namespace, name string, values ...attribute.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs.Set(namespace, name, values...)
}

func (f *Frame) AppendAttributeValue(namespace, name string, v attribute.Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs.Append(namespace, name, v)
}

func (f *Frame) PutAttribute(attr attribute.Attribute) (attribute.Attribute, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrs.Put(attr)
}

func (f *Frame) DeleteAttribute(namespace, name string) (attribute.Attribute, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attrs.Delete(namespace, name)
}

func (f *Frame) FindAttributes(q attribute.Query) []attribute.Key {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attrs.Find(q)
}

func (f *Frame) AttributeKeys() []attribute.Key {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.attrs.Keys()
}

// Clone returns a deep copy of the frame, including its UUID.
func (f *Frame) Clone() *Frame {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := &Frame{
		uuid:      f.uuid,
		sourceID:  f.sourceID,
		framerate: f.framerate,
		width:     f.width,
		height:    f.height,
		pts:       f.pts,
		dts:       f.dts,
		duration:  f.duration,
		keyframe:  f.keyframe,
		createdAt: f.createdAt,
		objects:   make([]*Object, 0, len(f.objects)),
		byID:      make(map[int64]*Object, len(f.objects)),
		attrs:     f.attrs.Clone(),
	}
	for _, o := range f.objects {
		oc := o.Clone()
		c.objects = append(c.objects, oc)
		c.byID[oc.id] = oc
	}
	return c
}

func deref(p *int64) (int64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
