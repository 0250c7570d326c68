package ffi

import "github.com/roach88/framepipe/internal/geometry"

// BoundingBox is the flat box record exchanged with foreign callers.
type BoundingBox struct {
	XC       float32
	YC       float32
	Width    float32
	Height   float32
	Angle    float32
	Oriented bool
}

func fromGeometry(b geometry.BoundingBox) BoundingBox {
	return BoundingBox{
		XC:       float32(b.XC),
		YC:       float32(b.YC),
		Width:    float32(b.Width),
		Height:   float32(b.Height),
		Angle:    float32(b.Angle),
		Oriented: b.Oriented,
	}
}

func (b BoundingBox) toGeometry() (geometry.BoundingBox, error) {
	if b.Oriented {
		return geometry.NewOriented(float64(b.XC), float64(b.YC), float64(b.Width), float64(b.Height), float64(b.Angle))
	}
	return geometry.New(float64(b.XC), float64(b.YC), float64(b.Width), float64(b.Height))
}
