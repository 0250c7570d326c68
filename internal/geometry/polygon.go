package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Polygon is a closed sequence of vertices; the last vertex connects to the first.
type Polygon []r2.Vec

// Area returns the absolute shoelace area of the polygon.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var twice float64
	for i := range p {
		twice += r2.Cross(p[i], p[(i+1)%len(p)])
	}
	return math.Abs(twice) / 2
}

// Clip returns the part of p inside clip (Sutherland–Hodgman).
// clip must be convex with counter-clockwise winding; Vertices satisfies both.
func (p Polygon) Clip(clip Polygon) Polygon {
	out := p
	for i := range clip {
		if len(out) == 0 {
			return nil
		}
		a, b := clip[i], clip[(i+1)%len(clip)]
		in := out
		out = make(Polygon, 0, len(in)+1)
		for j := range in {
			cur, next := in[j], in[(j+1)%len(in)]
			curIn, nextIn := inside(a, b, cur), inside(a, b, next)
			switch {
			case curIn && nextIn:
				out = append(out, next)
			case curIn && !nextIn:
				out = append(out, intersect(a, b, cur, next))
			case !curIn && nextIn:
				out = append(out, intersect(a, b, cur, next), next)
			}
		}
	}
	return out
}

// inside reports whether p is on the left of (or on) the directed edge a→b.
func inside(a, b, p r2.Vec) bool {
	return r2.Cross(r2.Sub(b, a), r2.Sub(p, a)) >= 0
}

// intersect returns the point where segment p→q crosses the line through a→b.
func intersect(a, b, p, q r2.Vec) r2.Vec {
	edge := r2.Sub(b, a)
	seg := r2.Sub(q, p)
	denom := r2.Cross(edge, seg)
	if denom == 0 {
		return q
	}
	t := r2.Cross(edge, r2.Sub(a, p)) / denom
	return r2.Add(p, r2.Scale(t, seg))
}
