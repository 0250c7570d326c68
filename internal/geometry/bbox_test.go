package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/roach88/framepipe/internal/errs"
)

func TestNew_RejectsNegativeExtents(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
	}{
		{"negative width", -1, 2},
		{"negative height", 2, -0.5},
		{"nan width", math.NaN(), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(0, 0, tt.width, tt.height)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrMalformedGeometry))

			_, err = NewOriented(0, 0, tt.width, tt.height, 0.5)
			assert.True(t, errors.Is(err, errs.ErrMalformedGeometry))
		})
	}
}

func TestNew_ZeroExtentsAllowed(t *testing.T) {
	b, err := New(1, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, b.Area())
}

func TestNewLTRB(t *testing.T) {
	b, err := NewLTRB(0, 0, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, BoundingBox{XC: 5, YC: 2, Width: 10, Height: 4}, b)

	l, top, r, bottom := b.LTRB()
	assert.Equal(t, []float64{0, 0, 10, 4}, []float64{l, top, r, bottom})

	_, err = NewLTRB(10, 0, 0, 4)
	assert.True(t, errors.Is(err, errs.ErrMalformedGeometry))
}

func TestEffectiveAngle_IgnoredWhenNotOriented(t *testing.T) {
	b := BoundingBox{XC: 0, YC: 0, Width: 2, Height: 2, Angle: 1.2}
	assert.Equal(t, 0.0, b.EffectiveAngle())
	assert.True(t, b.IsAxisAligned())

	o := Must(NewOriented(0, 0, 2, 2, 1.2))
	assert.Equal(t, 1.2, o.EffectiveAngle())
	assert.False(t, o.IsAxisAligned())
}

func TestScale_AxisAligned(t *testing.T) {
	b := Must(New(10, 20, 4, 6))
	got := b.Scale(2, 0.5)

	assert.Equal(t, BoundingBox{XC: 20, YC: 10, Width: 8, Height: 3}, got)
	assert.Equal(t, Must(New(10, 20, 4, 6)), b, "receiver must be unchanged")
}

func TestScale_OrientedUniform(t *testing.T) {
	b := Must(NewOriented(1, 1, 2, 4, 0.3))
	got := b.Scale(2, 2)

	assert.InDelta(t, 2.0, got.XC, 1e-12)
	assert.InDelta(t, 2.0, got.YC, 1e-12)
	assert.InDelta(t, 4.0, got.Width, 1e-12)
	assert.InDelta(t, 8.0, got.Height, 1e-12)
	assert.InDelta(t, 0.3, got.Angle, 1e-12)
	assert.True(t, got.Oriented)
}

func TestShift_Pure(t *testing.T) {
	b := Must(New(1, 2, 3, 4))
	got := b.Shift(10, -2)

	assert.Equal(t, BoundingBox{XC: 11, YC: 0, Width: 3, Height: 4}, got)
	assert.Equal(t, 1.0, b.XC)
}

func TestVertices_CounterClockwise(t *testing.T) {
	b := Must(New(0, 0, 2, 2))
	vs := b.Vertices()

	require.Len(t, vs, 4)
	assert.Equal(t, r2.Vec{X: -1, Y: -1}, vs[0])
	assert.Equal(t, r2.Vec{X: 1, Y: 1}, vs[2])

	var twice float64
	for i := range vs {
		twice += r2.Cross(vs[i], vs[(i+1)%4])
	}
	assert.Greater(t, twice, 0.0)
}

func TestWrapping_RotatedSquare(t *testing.T) {
	b := Must(NewOriented(5, 5, 2, 2, math.Pi/4))
	w := b.Wrapping()

	assert.InDelta(t, 5.0, w.XC, 1e-9)
	assert.InDelta(t, 5.0, w.YC, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, w.Width, 1e-9)
	assert.InDelta(t, 2*math.Sqrt2, w.Height, 1e-9)
	assert.False(t, w.Oriented)
}

func TestPolygonArea_WindingIndependent(t *testing.T) {
	ccw := Polygon{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 3}, {X: 0, Y: 3}}
	cw := Polygon{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 2, Y: 3}, {X: 2, Y: 0}}

	assert.Equal(t, 6.0, ccw.Area())
	assert.Equal(t, 6.0, cw.Area())
	assert.Equal(t, 0.0, Polygon{{X: 0, Y: 0}, {X: 1, Y: 1}}.Area())
}

func TestTransform_ApplyAll(t *testing.T) {
	b := Must(New(1, 1, 2, 2))
	got := ApplyAll(b, []Transform{ScaleBy(2, 3), ShiftBy(1, -1)})

	assert.Equal(t, BoundingBox{XC: 3, YC: 2, Width: 4, Height: 6}, got)
	assert.Equal(t, "scale(2, 3)", ScaleBy(2, 3).String())
	assert.Equal(t, "shift(1, -1)", ShiftBy(1, -1).String())
}
