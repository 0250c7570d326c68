// Package geometry implements bounding boxes and the overlap metrics used to
// compare detections.
//
// Boxes are centre/extent rectangles, optionally rotated. Overlap between two
// axis-aligned boxes is computed in closed form; rotated boxes are clipped as
// convex polygons using gonum's r2 vector helpers.
package geometry
