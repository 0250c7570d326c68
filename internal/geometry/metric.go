package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/framepipe/internal/errs"
)

// MetricKind selects the overlap ratio computed by Metric.
type MetricKind int

const (
	// IoU is intersection over union.
	IoU MetricKind = iota
	// IoS is intersection over the area of the smaller box.
	IoS
	// IoOther is intersection over the area of the second box.
	IoOther
)

// String returns the canonical name of the metric.
func (k MetricKind) String() string {
	switch k {
	case IoU:
		return "iou"
	case IoS:
		return "ios"
	case IoOther:
		return "io_other"
	default:
		return fmt.Sprintf("MetricKind(%d)", int(k))
	}
}

// ParseMetricKind parses "iou", "ios" or "io_other" (case-insensitive).
func ParseMetricKind(s string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "iou":
		return IoU, nil
	case "ios":
		return IoS, nil
	case "io_other", "ioother":
		return IoOther, nil
	}
	return 0, errs.New(errs.CodeInvalidArgument, "unknown metric %q", s)
}

// IntersectionArea returns the area shared by a and b.
//
// Two axis-aligned boxes use the closed form; anything rotated is clipped as
// polygons. The operands are put in a canonical order first so the result does
// not depend on argument order.
func IntersectionArea(a, b BoundingBox) float64 {
	if a.Area() == 0 || b.Area() == 0 {
		return 0
	}
	if a.IsAxisAligned() && b.IsAxisAligned() {
		al, at, ar, ab := a.LTRB()
		bl, bt, br, bb := b.LTRB()
		w := math.Min(ar, br) - math.Max(al, bl)
		h := math.Min(ab, bb) - math.Max(at, bt)
		if w <= 0 || h <= 0 {
			return 0
		}
		return w * h
	}
	if canonicalLess(b, a) {
		a, b = b, a
	}
	return a.Vertices().Clip(b.Vertices()).Area()
}

// Metric computes the overlap ratio of a and b. The result is in [0, 1];
// boxes that do not overlap, or whose denominator area is zero, yield 0.
func Metric(a, b BoundingBox, kind MetricKind) float64 {
	inter := IntersectionArea(a, b)
	if inter <= 0 {
		return 0
	}
	var denom float64
	switch kind {
	case IoU:
		denom = a.Area() + b.Area() - inter
	case IoS:
		denom = math.Min(a.Area(), b.Area())
	case IoOther:
		denom = b.Area()
	default:
		return 0
	}
	if denom <= 0 {
		return 0
	}
	return math.Min(1, inter/denom)
}

func canonicalLess(a, b BoundingBox) bool {
	ka := [5]float64{a.XC, a.YC, a.Width, a.Height, a.EffectiveAngle()}
	kb := [5]float64{b.XC, b.YC, b.Width, b.Height, b.EffectiveAngle()}
	for i := range ka {
		if ka[i] != kb[i] {
			return ka[i] < kb[i]
		}
	}
	return false
}
