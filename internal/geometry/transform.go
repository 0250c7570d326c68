package geometry

import "fmt"

// TransformKind identifies a geometry transformation step.
type TransformKind int

const (
	TransformScale TransformKind = iota
	TransformShift
)

// Transform is one step of a frame-wide geometry transformation.
type Transform struct {
	Kind TransformKind
	X    float64
	Y    float64
}

// ScaleBy returns a transform that scales by (sx, sy).
func ScaleBy(sx, sy float64) Transform {
	return Transform{Kind: TransformScale, X: sx, Y: sy}
}

// ShiftBy returns a transform that translates by (dx, dy).
func ShiftBy(dx, dy float64) Transform {
	return Transform{Kind: TransformShift, X: dx, Y: dy}
}

// Apply applies the transform to b.
func (t Transform) Apply(b BoundingBox) BoundingBox {
	switch t.Kind {
	case TransformScale:
		return b.Scale(t.X, t.Y)
	case TransformShift:
		return b.Shift(t.X, t.Y)
	}
	return b
}

func (t Transform) String() string {
	switch t.Kind {
	case TransformScale:
		return fmt.Sprintf("scale(%g, %g)", t.X, t.Y)
	case TransformShift:
		return fmt.Sprintf("shift(%g, %g)", t.X, t.Y)
	}
	return fmt.Sprintf("Transform(%d)", int(t.Kind))
}

// ApplyAll applies ops to b in order.
func ApplyAll(b BoundingBox, ops []Transform) BoundingBox {
	for _, op := range ops {
		b = op.Apply(b)
	}
	return b
}
