package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformApply(t *testing.T) {
	tests := []struct {
		name string
		tf   Transform
		in   Point2D
		want Point2D
	}{
		{"identity", Identity(), NewPoint2D(3, 4), NewPoint2D(3, 4)},
		{"translation", Translation(1, -2), NewPoint2D(3, 4), NewPoint2D(4, 2)},
		{"scale", Scale(2, 3), NewPoint2D(3, 4), NewPoint2D(6, 12)},
		{"rotation 90", Rotation(math.Pi / 2), NewPoint2D(1, 0), NewPoint2D(0, 1)},
		{"projective divide", Transform{{2, 0, 0}, {0, 2, 0}, {0, 0, 2}}, NewPoint2D(3, 4), NewPoint2D(3, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tf.Apply(tt.in)
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
		})
	}
}

func TestTransformComposeOrder(t *testing.T) {
	// Compose applies the argument first.
	move := Translation(10, 0)
	rot := Rotation(math.Pi / 2)

	got := rot.Compose(move).Apply(NewPoint2D(0, 0))
	assert.InDelta(t, 0, got.X, 1e-12)
	assert.InDelta(t, 10, got.Y, 1e-12)

	got = move.Compose(rot).Apply(NewPoint2D(0, 0))
	assert.InDelta(t, 10, got.X, 1e-12)
	assert.InDelta(t, 0, got.Y, 1e-12)
}

func TestTransformInverse(t *testing.T) {
	tf := FromAffine(1.2, 0.3, 5, -0.1, 0.9, -7)
	inv, ok := tf.Inverse()
	require.True(t, ok)

	p := NewPoint2D(12.5, -3.25)
	back := inv.Apply(tf.Apply(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)

	_, ok = Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestTransformProperties(t *testing.T) {
	assert.True(t, Identity().IsAffine())
	assert.False(t, Transform{{1, 0, 0}, {0, 1, 0}, {0.1, 0, 1}}.IsAffine())
	assert.True(t, Identity().IsFinite())
	assert.False(t, Transform{{math.NaN(), 0, 0}, {0, 1, 0}, {0, 0, 1}}.IsFinite())

	tf := Rotation(math.Pi / 6).Compose(Scale(2, 2))
	assert.InDelta(t, 30, tf.RotationDegrees(), 1e-9)
	assert.InDelta(t, 2, tf.ScaleFactor(), 1e-9)
}

func TestCentroidAndBoundingBox(t *testing.T) {
	pts := []Point2D{{0, 0}, {4, 0}, {4, 2}, {0, 2}}
	assert.Equal(t, NewPoint2D(2, 1), Centroid(pts))
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 4, Height: 2}, BoundingBox(pts))
	assert.Equal(t, Point2D{}, Centroid(nil))
	assert.Equal(t, Rect{}, BoundingBox(nil))
}

func TestConvexHullArea(t *testing.T) {
	pts := []Point2D{{2, 2}, {0, 0}, {4, 0}, {1, 3}, {4, 4}, {0, 4}, {2, 0}}
	hull := ConvexHull(pts)
	assert.ElementsMatch(t, []Point2D{{0, 0}, {4, 0}, {4, 4}, {0, 4}}, hull)
	assert.InDelta(t, 16, PolygonArea(hull), 1e-12)
	assert.Equal(t, Point2D{2, 2}, pts[0], "input is not reordered")

	line := ConvexHull([]Point2D{{0, 0}, {1, 0}, {2, 0}})
	assert.Zero(t, PolygonArea(line))
	assert.Zero(t, PolygonArea(nil))
}
