package geometry

import (
	"cmp"
	"math"
	"slices"
)

// ConvexHull computes the convex hull of a set of points using Graham scan.
// Returns the points forming the convex hull in counter-clockwise order.
// Collinear points on the hull boundary are dropped.
func ConvexHull(points []Point2D) []Point2D {
	if len(points) < 3 {
		return slices.Clone(points)
	}

	pts := slices.Clone(points)

	// Lowest y, leftmost on ties.
	lowest := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Y < pts[lowest].Y ||
			(pts[i].Y == pts[lowest].Y && pts[i].X < pts[lowest].X) {
			lowest = i
		}
	}
	pts[0], pts[lowest] = pts[lowest], pts[0]
	pivot := pts[0]

	rest := pts[1:]
	slices.SortFunc(rest, func(a, b Point2D) int {
		cross := crossProduct(pivot, a, b)
		switch {
		case cross > 0:
			return -1
		case cross < 0:
			return 1
		}
		return cmp.Compare(distSq(pivot, a), distSq(pivot, b))
	})

	hull := []Point2D{pivot}
	for _, p := range rest {
		for len(hull) > 1 && crossProduct(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}

// PolygonArea returns the unsigned area of a simple polygon (shoelace formula).
func PolygonArea(polygon []Point2D) float64 {
	if len(polygon) < 3 {
		return 0
	}
	var sum float64
	for i, p := range polygon {
		q := polygon[(i+1)%len(polygon)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// crossProduct computes the cross product of vectors OA and OB.
func crossProduct(o, a, b Point2D) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// distSq computes the squared distance between two points.
func distSq(a, b Point2D) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}
