package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/roach88/framepipe/internal/errs"
)

// BoundingBox is a possibly rotated rectangle given by its centre and extents.
//
// BoundingBox is an immutable value: Scale and Shift return new boxes.
// Angle is in radians and is only meaningful when Oriented is true; an
// axis-aligned box behaves as if Angle were 0 regardless of the stored value.
type BoundingBox struct {
	XC       float64 `json:"xc" yaml:"xc"`
	YC       float64 `json:"yc" yaml:"yc"`
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	Angle    float64 `json:"angle" yaml:"angle"`
	Oriented bool    `json:"oriented" yaml:"oriented"`
}

// New creates an axis-aligned box.
// Returns a MALFORMED_GEOMETRY error if width or height is negative.
func New(xc, yc, width, height float64) (BoundingBox, error) {
	b := BoundingBox{XC: xc, YC: yc, Width: width, Height: height}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return b, nil
}

// NewOriented creates a box rotated by angle radians around its centre.
func NewOriented(xc, yc, width, height, angle float64) (BoundingBox, error) {
	b := BoundingBox{XC: xc, YC: yc, Width: width, Height: height, Angle: angle, Oriented: true}
	if err := b.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return b, nil
}

// NewLTRB creates an axis-aligned box from its left, top, right and bottom edges.
func NewLTRB(left, top, right, bottom float64) (BoundingBox, error) {
	return New((left+right)/2, (top+bottom)/2, right-left, bottom-top)
}

// Must panics if err is non-nil. Intended for literals in tests and fixtures.
func Must(b BoundingBox, err error) BoundingBox {
	if err != nil {
		panic(err)
	}
	return b
}

// Validate checks the extents invariant.
func (b BoundingBox) Validate() error {
	if b.Width < 0 || b.Height < 0 || math.IsNaN(b.Width) || math.IsNaN(b.Height) {
		return errs.New(errs.CodeMalformedGeometry, "width and height must be non-negative").
			With("width", fmt.Sprintf("%g", b.Width)).
			With("height", fmt.Sprintf("%g", b.Height))
	}
	return nil
}

// EffectiveAngle returns Angle for oriented boxes and 0 otherwise.
func (b BoundingBox) EffectiveAngle() float64 {
	if !b.Oriented {
		return 0
	}
	return b.Angle
}

// IsAxisAligned reports whether the box edges are parallel to the axes.
func (b BoundingBox) IsAxisAligned() bool {
	return b.EffectiveAngle() == 0
}

// Area returns width × height.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Center returns the box centre.
func (b BoundingBox) Center() r2.Vec {
	return r2.Vec{X: b.XC, Y: b.YC}
}

// Vertices returns the four corners in counter-clockwise order.
func (b BoundingBox) Vertices() Polygon {
	hw, hh := b.Width/2, b.Height/2
	c := b.Center()
	corners := Polygon{
		{X: b.XC - hw, Y: b.YC - hh},
		{X: b.XC + hw, Y: b.YC - hh},
		{X: b.XC + hw, Y: b.YC + hh},
		{X: b.XC - hw, Y: b.YC + hh},
	}
	if b.IsAxisAligned() {
		return corners
	}
	rot := r2.NewRotation(b.Angle, c)
	for i, p := range corners {
		corners[i] = rot.Rotate(p)
	}
	return corners
}

// LTRB returns the edges of the axis-aligned hull of the box.
func (b BoundingBox) LTRB() (left, top, right, bottom float64) {
	if b.IsAxisAligned() {
		return b.XC - b.Width/2, b.YC - b.Height/2, b.XC + b.Width/2, b.YC + b.Height/2
	}
	vs := b.Vertices()
	left, top = math.Inf(1), math.Inf(1)
	right, bottom = math.Inf(-1), math.Inf(-1)
	for _, v := range vs {
		left = math.Min(left, v.X)
		right = math.Max(right, v.X)
		top = math.Min(top, v.Y)
		bottom = math.Max(bottom, v.Y)
	}
	return left, top, right, bottom
}

// Wrapping returns the smallest axis-aligned box containing b.
func (b BoundingBox) Wrapping() BoundingBox {
	l, t, r, bt := b.LTRB()
	return BoundingBox{XC: (l + r) / 2, YC: (t + bt) / 2, Width: r - l, Height: bt - t}
}

// Shift returns the box translated by (dx, dy).
func (b BoundingBox) Shift(dx, dy float64) BoundingBox {
	b.XC += dx
	b.YC += dy
	return b
}

// Scale returns the box with its centre and extents scaled by (sx, sy).
//
// Axis-aligned boxes scale exactly. For a rotated box with sx != sy the image
// of the rectangle is a parallelogram; the result keeps the scaled lengths of
// the two box axes and the direction of the scaled width axis.
func (b BoundingBox) Scale(sx, sy float64) BoundingBox {
	out := b
	out.XC = b.XC * sx
	out.YC = b.YC * sy
	if b.IsAxisAligned() {
		out.Width = b.Width * math.Abs(sx)
		out.Height = b.Height * math.Abs(sy)
		return out
	}
	sin, cos := math.Sincos(b.Angle)
	out.Width = b.Width * math.Hypot(sx*cos, sy*sin)
	out.Height = b.Height * math.Hypot(sx*sin, sy*cos)
	out.Angle = math.Atan2(sy*sin, sx*cos)
	return out
}

// String renders the box for logs.
func (b BoundingBox) String() string {
	if b.Oriented {
		return fmt.Sprintf("(%g, %g, %g, %g, %g rad)", b.XC, b.YC, b.Width, b.Height, b.Angle)
	}
	return fmt.Sprintf("(%g, %g, %g, %g)", b.XC, b.YC, b.Width, b.Height)
}
