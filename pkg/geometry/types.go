// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Transform is a 2D projective-family transform in homogeneous form.
// Row-major; a point (x, y) maps to M * [x y 1]^T.
type Transform [3][3]float64

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) Transform {
	t := Identity()
	t[0][2] = tx
	t[1][2] = ty
	return t
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) Transform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return Transform{
		{cos, -sin, 0},
		{sin, cos, 0},
		{0, 0, 1},
	}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) Transform {
	return Transform{
		{sx, 0, 0},
		{0, sy, 0},
		{0, 0, 1},
	}
}

// FromAffine builds a transform from the six affine parameters.
// [a b tx]
// [c d ty]
func FromAffine(a, b, tx, c, d, ty float64) Transform {
	return Transform{
		{a, b, tx},
		{c, d, ty},
		{0, 0, 1},
	}
}

// IsAffine reports whether the bottom row is exactly [0 0 1].
func (t Transform) IsAffine() bool {
	return t[2][0] == 0 && t[2][1] == 0 && t[2][2] == 1
}

// Apply applies the transform to a point. The homogeneous divide is only
// performed when the resulting w is not 1.
func (t Transform) Apply(p Point2D) Point2D {
	x := t[0][0]*p.X + t[0][1]*p.Y + t[0][2]
	y := t[1][0]*p.X + t[1][1]*p.Y + t[1][2]
	w := t[2][0]*p.X + t[2][1]*p.Y + t[2][2]
	if w != 1 {
		x /= w
		y /= w
	}
	return Point2D{X: x, Y: y}
}

// Compose returns this transform composed with another (this * other),
// i.e. other is applied first.
func (t Transform) Compose(other Transform) Transform {
	var r Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = t[i][0]*other[0][j] + t[i][1]*other[1][j] + t[i][2]*other[2][j]
		}
	}
	return r
}

// Inverse returns the inverse transform, if it exists.
func (t Transform) Inverse() (Transform, bool) {
	c00 := t[1][1]*t[2][2] - t[1][2]*t[2][1]
	c01 := t[1][2]*t[2][0] - t[1][0]*t[2][2]
	c02 := t[1][0]*t[2][1] - t[1][1]*t[2][0]
	det := t[0][0]*c00 + t[0][1]*c01 + t[0][2]*c02
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}

	invDet := 1.0 / det
	return Transform{
		{
			c00 * invDet,
			(t[0][2]*t[2][1] - t[0][1]*t[2][2]) * invDet,
			(t[0][1]*t[1][2] - t[0][2]*t[1][1]) * invDet,
		},
		{
			c01 * invDet,
			(t[0][0]*t[2][2] - t[0][2]*t[2][0]) * invDet,
			(t[0][2]*t[1][0] - t[0][0]*t[1][2]) * invDet,
		},
		{
			c02 * invDet,
			(t[0][1]*t[2][0] - t[0][0]*t[2][1]) * invDet,
			(t[0][0]*t[1][1] - t[0][1]*t[1][0]) * invDet,
		},
	}, true
}

// IsFinite reports whether every entry is a finite number.
func (t Transform) IsFinite() bool {
	for i := range t {
		for _, v := range t[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// RotationDegrees returns the rotation angle of the linear part in degrees.
func (t Transform) RotationDegrees() float64 {
	return math.Atan2(t[1][0], t[0][0]) * 180 / math.Pi
}

// ScaleFactor returns the scale of the linear part along the x axis.
func (t Transform) ScaleFactor() float64 {
	return math.Sqrt(t[0][0]*t[0][0] + t[1][0]*t[1][0])
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
