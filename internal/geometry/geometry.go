// Package geometry holds the small pixel-space helpers shared by the
// landmark, symmetry and measurement code.
package geometry

import (
	"errors"
	"image"
	"math"
)

// ErrEmptyInput is returned by Mean when there is nothing to average.
var ErrEmptyInput = errors.New("geometry: empty point set")

// Point is a position in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Image rounds the point down to integer pixel coordinates.
func (p Point) Image() image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

// Distance returns the Euclidean distance between p1 and p2.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// Angle returns the absolute angle in degrees of the vector p1->p2 against
// the horizontal axis. The result is in [0, 180]; a horizontal segment is 0
// regardless of direction.
func Angle(p1, p2 Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	if dy == 0 {
		return 0
	}
	return math.Abs(math.Atan2(dy, dx) * 180 / math.Pi)
}

// SignedAngle is Angle without the absolute value, in (-180, 180].
func SignedAngle(p1, p2 Point) float64 {
	return math.Atan2(p2.Y-p1.Y, p2.X-p1.X) * 180 / math.Pi
}

// Mean returns the componentwise mean of points.
func Mean(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrEmptyInput
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}, nil
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// SpanX returns max(x) - min(x) over points, or 0 for an empty set.
func SpanX(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	lo, hi := points[0].X, points[0].X
	for _, p := range points[1:] {
		lo = math.Min(lo, p.X)
		hi = math.Max(hi, p.X)
	}
	return hi - lo
}
