package alignment

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imcreg/internal/controlpoints"
	"imcreg/pkg/geometry"
)

func matchedFrom(src, dst []geometry.Point2D) controlpoints.MatchedSet {
	m := make(controlpoints.MatchedSet, len(src))
	for i := range src {
		m[i] = controlpoints.Pair{ID: i + 1, Source: src[i], Target: dst[i]}
	}
	return m
}

func mapPoints(t geometry.Transform, pts []geometry.Point2D) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

var allKinds = []TransformKind{Euclidean, Similarity, Affine}

func TestEstimateNeedsThreePoints(t *testing.T) {
	m := matchedFrom(
		[]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}},
		[]geometry.Point2D{{X: 1, Y: 1}, {X: 2, Y: 1}},
	)
	for _, kind := range allKinds {
		tf, err := Estimate(kind, m)
		require.NoError(t, err)
		assert.Nil(t, tf, kind.String())
	}

	tf, err := Estimate(Affine, nil)
	require.NoError(t, err)
	assert.Nil(t, tf)
}

func TestEstimateAffineExactOnThreePoints(t *testing.T) {
	m := matchedFrom(
		[]geometry.Point2D{{X: 10, Y: 20}, {X: 200, Y: 35}, {X: 40, Y: 180}},
		[]geometry.Point2D{{X: 3, Y: 7}, {X: 150, Y: -12}, {X: 61, Y: 140}},
	)
	tf, err := Estimate(Affine, m)
	require.NoError(t, err)
	require.NotNil(t, tf)
	for _, r := range Residuals(*tf, m) {
		assert.Less(t, r, 1e-9)
	}
}

func TestEstimateEuclideanTranslation(t *testing.T) {
	m := matchedFrom(
		[]geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}},
		[]geometry.Point2D{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}},
	)
	tf, err := Estimate(Euclidean, m)
	require.NoError(t, err)
	require.NotNil(t, tf)

	want := geometry.Translation(1, 1)
	for i := range want {
		for j := range want[i] {
			assert.InDelta(t, want[i][j], tf[i][j], 1e-9)
		}
	}
	res := Residuals(*tf, m)
	require.Len(t, res, 3)
	for _, r := range res {
		assert.InDelta(t, 0, r, 1e-9)
	}
}

func TestEstimateRecoversKnownTransforms(t *testing.T) {
	src := []geometry.Point2D{{X: 12, Y: 5}, {X: 140, Y: 22}, {X: 60, Y: 170}, {X: 200, Y: 210}, {X: 95, Y: 90}}

	tests := []struct {
		kind TransformKind
		tf   geometry.Transform
	}{
		{Euclidean, geometry.Translation(-4, 9).Compose(geometry.Rotation(0.3))},
		{Similarity, geometry.Translation(15, -2).Compose(geometry.Rotation(-1.1)).Compose(geometry.Scale(1.7, 1.7))},
		{Affine, geometry.FromAffine(1.2, 0.25, 30, -0.1, 0.8, -12)},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := EstimateFromPoints(tt.kind, src, mapPoints(tt.tf, src))
			require.NoError(t, err)
			require.NotNil(t, got)
			for i := range tt.tf {
				for j := range tt.tf[i] {
					assert.InDelta(t, tt.tf[i][j], got[i][j], 1e-8)
				}
			}
		})
	}
}

func TestEstimateEuclideanHasUnitScale(t *testing.T) {
	src := []geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}}
	dst := mapPoints(geometry.Rotation(0.5).Compose(geometry.Scale(2, 2)), src)

	tf, err := EstimateFromPoints(Euclidean, src, dst)
	require.NoError(t, err)
	require.NotNil(t, tf)
	assert.InDelta(t, 1, tf.ScaleFactor(), 1e-9)
	assert.InDelta(t, 0.5*180/math.Pi, tf.RotationDegrees(), 1e-9)
}

func TestEstimateRejectsReflection(t *testing.T) {
	src := []geometry.Point2D{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 2}, {X: 3, Y: 5}}
	dst := mapPoints(geometry.Scale(-1, 1), src)

	for _, kind := range []TransformKind{Euclidean, Similarity} {
		tf, err := EstimateFromPoints(kind, src, dst)
		require.NoError(t, err)
		require.NotNil(t, tf)
		det := tf[0][0]*tf[1][1] - tf[0][1]*tf[1][0]
		assert.Greater(t, det, 0.0, kind.String())
	}
}

func TestEstimateDegenerate(t *testing.T) {
	collinear := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 5, Y: 5}}
	tf, err := EstimateFromPoints(Affine, collinear, collinear)
	require.NoError(t, err)
	assert.Nil(t, tf)

	same := []geometry.Point2D{{X: 3, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 3}}
	for _, kind := range allKinds {
		tf, err := EstimateFromPoints(kind, same, collinear[:3])
		require.NoError(t, err)
		assert.Nil(t, tf, kind.String())
	}
}

func TestEstimateErrors(t *testing.T) {
	pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, err := EstimateFromPoints(TransformKind(9), pts, pts)
	assert.ErrorIs(t, err, ErrUnsupportedTransformKind)

	_, err = EstimateFromPoints(Affine, pts, pts[:2])
	assert.Error(t, err)
}

func TestFamilyOrderingOfResiduals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	truth := geometry.FromAffine(1.1, 0.2, 40, -0.15, 0.9, -25)

	for trial := 0; trial < 20; trial++ {
		src := make([]geometry.Point2D, 8)
		for i := range src {
			src[i] = geometry.Point2D{X: rng.Float64() * 500, Y: rng.Float64() * 500}
		}
		dst := mapPoints(truth, src)
		for i := range dst {
			dst[i] = dst[i].Add(geometry.Point2D{X: rng.NormFloat64(), Y: rng.NormFloat64()})
		}
		m := matchedFrom(src, dst)

		var sse [3]float64
		for i, kind := range allKinds {
			tf, err := Estimate(kind, m)
			require.NoError(t, err)
			require.NotNil(t, tf)
			sse[i] = sumSquares(Residuals(*tf, m))
		}
		assert.GreaterOrEqual(t, sse[0], sse[1]-1e-6, "euclidean vs similarity")
		assert.GreaterOrEqual(t, sse[1], sse[2]-1e-6, "similarity vs affine")
	}
}

func TestComposeOrder(t *testing.T) {
	est := geometry.Rotation(0.4)
	pre := geometry.Translation(5, -3)
	post := geometry.Scale(2, 0.5)

	joint := Compose(&est, &pre, &post)
	require.NotNil(t, joint)

	for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 2}, {X: -30, Y: 12.5}} {
		want := post.Apply(est.Apply(pre.Apply(p)))
		got := joint.Apply(p)
		assert.InDelta(t, want.X, got.X, 1e-9)
		assert.InDelta(t, want.Y, got.Y, 1e-9)
	}
}

func TestComposePartial(t *testing.T) {
	est := geometry.Translation(1, 2)
	pre := geometry.Scale(3, 3)

	assert.Nil(t, Compose(nil, &pre, nil))
	assert.Equal(t, est, *Compose(&est, nil, nil))
	assert.Equal(t, est.Compose(pre), *Compose(&est, &pre, nil))
	assert.Equal(t, pre.Compose(est), *Compose(&est, nil, &pre))
}

func TestResidualStats(t *testing.T) {
	s := ResidualStats([]float64{3, 4})
	assert.InDelta(t, 3.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(12.5), s.RMS, 1e-12)
	assert.Equal(t, 4.0, s.Max)
	assert.Equal(t, Stats{}, ResidualStats(nil))
}

func TestParseTransformKind(t *testing.T) {
	for _, kind := range allKinds {
		got, err := ParseTransformKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, got)
		assert.Equal(t, 3, kind.MinPoints())
	}
	got, err := ParseTransformKind(" Affine")
	require.NoError(t, err)
	assert.Equal(t, Affine, got)
	assert.Equal(t, 6, Affine.DegreesOfFreedom())

	_, err = ParseTransformKind("projective")
	assert.ErrorIs(t, err, ErrUnsupportedTransformKind)
}
