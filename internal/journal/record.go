package journal

import (
	"fmt"

	"github.com/roach88/framepipe/internal/attribute"
	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/geometry"
	"github.com/roach88/framepipe/internal/video"
)

// Record is one deferred mutation of a frame.
//
// Apply returns an error when the record makes no sense against the frame's
// current state (missing object, nothing to clear, policy refusal). The
// journal treats that as a skipped record, not a failure.
type Record interface {
	Apply(f *video.Frame) error
	Kind() string
}

// Target addresses either the frame itself or one of its objects.
type Target struct {
	objectID int64
	object   bool
}

// OnFrame targets frame-level attributes.
func OnFrame() Target { return Target{} }

// OnObject targets the object with the given id.
func OnObject(id int64) Target { return Target{objectID: id, object: true} }

// ObjectID returns the targeted object id, if any.
func (t Target) ObjectID() (int64, bool) { return t.objectID, t.object }

func (t Target) String() string {
	if !t.object {
		return "frame"
	}
	return fmt.Sprintf("object:%d", t.objectID)
}

type attributeHolder interface {
	Attribute(namespace, name string) (attribute.Attribute, bool)
	PutAttribute(attribute.Attribute) (attribute.Attribute, bool)
	AppendAttributeValue(namespace, name string, v attribute.Value)
	DeleteAttribute(namespace, name string) (attribute.Attribute, bool)
}

func (t Target) resolve(f *video.Frame) (attributeHolder, error) {
	if !t.object {
		return f, nil
	}
	o, err := f.Object(t.objectID)
	if err != nil {
		return nil, err
	}
	return o, nil
}

var errNothingToClear = errs.New(errs.CodeNotFound, "nothing to clear")

// SetConfidence sets an object's confidence.
type SetConfidence struct {
	ObjectID   int64
	Confidence float32
}

func (SetConfidence) Kind() string { return "set_confidence" }

func (r SetConfidence) Apply(f *video.Frame) error {
	o, err := f.Object(r.ObjectID)
	if err != nil {
		return err
	}
	return o.SetConfidence(r.Confidence)
}

// ClearConfidence removes an object's confidence.
type ClearConfidence struct {
	ObjectID int64
}

func (ClearConfidence) Kind() string { return "clear_confidence" }

func (r ClearConfidence) Apply(f *video.Frame) error {
	o, err := f.Object(r.ObjectID)
	if err != nil {
		return err
	}
	if !o.ClearConfidence() {
		return errNothingToClear
	}
	return nil
}

// SetDetectionBox replaces an object's detection box.
type SetDetectionBox struct {
	ObjectID int64
	Box      geometry.BoundingBox
}

func (SetDetectionBox) Kind() string { return "set_detection_box" }

func (r SetDetectionBox) Apply(f *video.Frame) error {
	o, err := f.Object(r.ObjectID)
	if err != nil {
		return err
	}
	return o.SetDetectionBox(r.Box)
}

// SetTrackingInfo sets an object's tracking box and id.
type SetTrackingInfo struct {
	ObjectID int64
	Info     video.TrackingInfo
}

func (SetTrackingInfo) Kind() string { return "set_tracking_info" }

func (r SetTrackingInfo) Apply(f *video.Frame) error {
	o, err := f.Object(r.ObjectID)
	if err != nil {
		return err
	}
	return o.SetTrackingInfo(r.Info)
}

// ClearTrackingInfo removes an object's tracking info.
type ClearTrackingInfo struct {
	ObjectID int64
}

func (ClearTrackingInfo) Kind() string { return "clear_tracking_info" }

func (r ClearTrackingInfo) Apply(f *video.Frame) error {
	o, err := f.Object(r.ObjectID)
	if err != nil {
		return err
	}
	if !o.ClearTrackingInfo() {
		return errNothingToClear
	}
	return nil
}

// AddAttributeValue appends one value to an attribute.
type AddAttributeValue struct {
	Target    Target
	Namespace string
	Name      string
	Value     attribute.Value
}

func (AddAttributeValue) Kind() string { return "add_attribute_value" }

func (r AddAttributeValue) Apply(f *video.Frame) error {
	h, err := r.Target.resolve(f)
	if err != nil {
		return err
	}
	h.AppendAttributeValue(r.Namespace, r.Name, r.Value)
	return nil
}

// SetAttribute stores a whole attribute, resolving clashes with Policy.
type SetAttribute struct {
	Target    Target
	Attribute attribute.Attribute
	Policy    AttributePolicy
}

func (SetAttribute) Kind() string { return "set_attribute" }

func (r SetAttribute) Apply(f *video.Frame) error {
	h, err := r.Target.resolve(f)
	if err != nil {
		return err
	}
	key := r.Attribute.Key()
	if _, exists := h.Attribute(key.Namespace, key.Name); exists {
		switch r.Policy {
		case KeepOwn:
			return errs.New(errs.CodeInvalidArgument, "attribute kept by policy").With("key", key.String())
		case ErrorWhenDuplicate:
			return errs.New(errs.CodeInvalidArgument, "attribute already present").With("key", key.String())
		}
	}
	h.PutAttribute(r.Attribute)
	return nil
}

// DeleteAttribute removes an attribute.
type DeleteAttribute struct {
	Target    Target
	Namespace string
	Name      string
}

func (DeleteAttribute) Kind() string { return "delete_attribute" }

func (r DeleteAttribute) Apply(f *video.Frame) error {
	h, err := r.Target.resolve(f)
	if err != nil {
		return err
	}
	if _, ok := h.DeleteAttribute(r.Namespace, r.Name); !ok {
		return errs.New(errs.CodeNotFound, "attribute not found").
			With("key", attribute.NewKey(r.Namespace, r.Name).String())
	}
	return nil
}

// AddObject adds a copy of Object to the frame, resolving label clashes
// with Policy. Id clashes always get a fresh id.
type AddObject struct {
	Object *video.Object
	Policy ObjectPolicy
}

func (AddObject) Kind() string { return "add_object" }

func (r AddObject) Apply(f *video.Frame) error {
	if r.Object == nil {
		return errs.New(errs.CodeInvalidArgument, "nil object")
	}
	obj := r.Object.Clone()
	same := f.ObjectsByLabel(obj.Namespace(), obj.Label())
	switch r.Policy {
	case ErrorIfLabelsCollide:
		if len(same) > 0 {
			return errs.New(errs.CodeInvalidArgument, "label already present").
				With("label", obj.Namespace()+"/"+obj.Label())
		}
	case ReplaceSameLabel:
		for _, o := range same {
			f.DeleteObject(o.ID())
		}
	}
	_, err := f.AddObject(obj, video.GenerateNewID)
	return err
}

// DeleteObject removes an object from the frame.
type DeleteObject struct {
	ObjectID int64
}

func (DeleteObject) Kind() string { return "delete_object" }

func (r DeleteObject) Apply(f *video.Frame) error {
	if _, ok := f.DeleteObject(r.ObjectID); !ok {
		return errs.New(errs.CodeNotFound, "object not in frame").With("object", fmt.Sprintf("%d", r.ObjectID))
	}
	return nil
}

// TransformGeometry scales and shifts every box on the frame.
type TransformGeometry struct {
	Ops []geometry.Transform
}

func (TransformGeometry) Kind() string { return "transform_geometry" }

func (r TransformGeometry) Apply(f *video.Frame) error {
	f.TransformGeometry(r.Ops...)
	return nil
}
