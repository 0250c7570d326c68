package attribute

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/roach88/framepipe/internal/errs"
	"github.com/roach88/framepipe/internal/geometry"
)

// Kind names the payload type of a Value.
type Kind int

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindInts
	KindFloat
	KindFloats
	KindString
	KindStrings
	KindBox
)

var kindNames = [...]string{
	KindNone:    "none",
	KindBool:    "bool",
	KindInt:     "int",
	KindInts:    "ints",
	KindFloat:   "float",
	KindFloats:  "floats",
	KindString:  "string",
	KindStrings: "strings",
	KindBox:     "box",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Payload is a sealed interface over the supported value kinds.
// Only the *Value types in this file implement it.
type Payload interface {
	kind() Kind
}

// NoneValue is a value that carries only a confidence.
type NoneValue struct{}

type BoolValue bool

type IntValue int64

type IntsValue []int64

type FloatValue float64

// FloatsValue is the feature-vector payload.
type FloatsValue []float64

type StringValue string

type StringsValue []string

type BoxValue geometry.BoundingBox

func (NoneValue) kind() Kind    { return KindNone }
func (BoolValue) kind() Kind    { return KindBool }
func (IntValue) kind() Kind     { return KindInt }
func (IntsValue) kind() Kind    { return KindInts }
func (FloatValue) kind() Kind   { return KindFloat }
func (FloatsValue) kind() Kind  { return KindFloats }
func (StringValue) kind() Kind  { return KindString }
func (StringsValue) kind() Kind { return KindStrings }
func (BoxValue) kind() Kind     { return KindBox }

// Value is one element of an attribute's value sequence.
//
// The confidence is optional; confidenceSet distinguishes "not recorded"
// from a recorded confidence of 0.
type Value struct {
	payload       Payload
	confidence    float32
	confidenceSet bool
}

// New wraps p in a Value without a confidence. A nil payload becomes NoneValue.
func New(p Payload) Value {
	if p == nil {
		p = NoneValue{}
	}
	return Value{payload: clonePayload(p)}
}

// Floats returns a feature-vector value.
func Floats(v ...float64) Value {
	return New(FloatsValue(v))
}

// Ints returns an integer-vector value.
func Ints(v ...int64) Value {
	return New(IntsValue(v))
}

// String returns a string value.
func String(s string) Value {
	return New(StringValue(s))
}

// Box returns a bounding-box value.
func Box(b geometry.BoundingBox) Value {
	return New(BoxValue(b))
}

// Kind returns the payload kind.
func (v Value) Kind() Kind {
	if v.payload == nil {
		return KindNone
	}
	return v.payload.kind()
}

// Payload returns a copy of the payload.
func (v Value) Payload() Payload {
	if v.payload == nil {
		return NoneValue{}
	}
	return clonePayload(v.payload)
}

// AsFloats returns the feature vector when the value is KindFloats.
func (v Value) AsFloats() ([]float64, bool) {
	f, ok := v.payload.(FloatsValue)
	if !ok {
		return nil, false
	}
	return slices.Clone([]float64(f)), true
}

// Confidence returns the confidence and whether one was recorded.
func (v Value) Confidence() (float32, bool) {
	return v.confidence, v.confidenceSet
}

// WithConfidence returns v carrying confidence c.
// Returns an INVALID_ARGUMENT error unless 0 ≤ c ≤ 1.
func (v Value) WithConfidence(c float32) (Value, error) {
	if err := ValidateConfidence(c); err != nil {
		return Value{}, err
	}
	v.confidence = c
	v.confidenceSet = true
	return v, nil
}

// WithoutConfidence returns v with no confidence recorded.
func (v Value) WithoutConfidence() Value {
	v.confidence = 0
	v.confidenceSet = false
	return v
}

// ValidateConfidence checks that c is a probability.
func ValidateConfidence(c float32) error {
	if math.IsNaN(float64(c)) || c < 0 || c > 1 {
		return errs.New(errs.CodeInvalidArgument, "confidence %g outside [0, 1]", c)
	}
	return nil
}

func (v Value) clone() Value {
	if v.payload != nil {
		v.payload = clonePayload(v.payload)
	}
	return v
}

func clonePayload(p Payload) Payload {
	switch t := p.(type) {
	case IntsValue:
		return IntsValue(slices.Clone([]int64(t)))
	case FloatsValue:
		return FloatsValue(slices.Clone([]float64(t)))
	case StringsValue:
		return StringsValue(slices.Clone([]string(t)))
	}
	return p
}

type valueJSON struct {
	Kind       string   `json:"kind"`
	Value      any      `json:"value,omitempty"`
	Confidence *float32 `json:"confidence,omitempty"`
}

// MarshalJSON renders the value as {"kind", "value", "confidence"}.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.Kind().String()}
	switch t := v.payload.(type) {
	case nil, NoneValue:
	case BoxValue:
		out.Value = geometry.BoundingBox(t)
	default:
		out.Value = t
	}
	if v.confidenceSet {
		c := v.confidence
		out.Confidence = &c
	}
	return json.Marshal(out)
}
