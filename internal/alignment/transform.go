package alignment

import (
	"fmt"
	"math"

	"imcreg/internal/controlpoints"
	"imcreg/pkg/geometry"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// MinPoints is the number of matched control points needed before any
// family is estimated.
const MinPoints = 3

// rankTol is the smallest singular value ratio accepted as full rank.
const rankTol = 1e-10

// Estimate fits a transform of the given family mapping the matched source
// points onto their targets. It returns nil without error when there are too
// few points or the configuration is degenerate.
func Estimate(kind TransformKind, matched controlpoints.MatchedSet) (*geometry.Transform, error) {
	return EstimateFromPoints(kind, matched.Sources(), matched.Targets())
}

// EstimateFromPoints is Estimate for plain point slices.
func EstimateFromPoints(kind TransformKind, src, dst []geometry.Point2D) (*geometry.Transform, error) {
	if len(src) != len(dst) {
		return nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}

	var (
		t  geometry.Transform
		ok bool
	)
	switch kind {
	case Euclidean:
		t, ok = computeSimilarity(src, dst, false)
	case Similarity:
		t, ok = computeSimilarity(src, dst, true)
	case Affine:
		t, ok = computeAffineLeastSquares(src, dst)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedTransformKind, kind)
	}
	if !ok || !t.IsFinite() {
		return nil, nil
	}
	return &t, nil
}

// computeSimilarity computes the least-squares rotation, translation and
// (optionally) uniform scale with the Umeyama closed form.
func computeSimilarity(src, dst []geometry.Point2D, withScale bool) (geometry.Transform, bool) {
	if len(src) < MinPoints {
		return geometry.Transform{}, false
	}
	n := float64(len(src))

	srcC := geometry.Centroid(src)
	dstC := geometry.Centroid(dst)

	// Cross-covariance of centred target and source coordinates.
	cov := mat.NewDense(2, 2, nil)
	var srcVar float64
	for i := range src {
		s := src[i].Sub(srcC)
		d := dst[i].Sub(dstC)
		cov.Set(0, 0, cov.At(0, 0)+d.X*s.X)
		cov.Set(0, 1, cov.At(0, 1)+d.X*s.Y)
		cov.Set(1, 0, cov.At(1, 0)+d.Y*s.X)
		cov.Set(1, 1, cov.At(1, 1)+d.Y*s.Y)
		srcVar += s.X*s.X + s.Y*s.Y
	}
	cov.Scale(1/n, cov)
	srcVar /= n
	if srcVar == 0 {
		return geometry.Transform{}, false
	}

	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDFull) {
		return geometry.Transform{}, false
	}
	values := svd.Values(nil)
	if values[0] <= rankTol*srcVar {
		return geometry.Transform{}, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Force a proper rotation.
	sign := 1.0
	if mat.Det(&u)*mat.Det(&v) < 0 {
		sign = -1
	}
	var r mat.Dense
	r.Product(&u, mat.NewDiagDense(2, []float64{1, sign}), v.T())

	scale := 1.0
	if withScale {
		scale = (values[0] + sign*values[1]) / srcVar
	}

	a, b := scale*r.At(0, 0), scale*r.At(0, 1)
	c, d := scale*r.At(1, 0), scale*r.At(1, 1)
	tx := dstC.X - (a*srcC.X + b*srcC.Y)
	ty := dstC.Y - (c*srcC.X + d*srcC.Y)
	return geometry.FromAffine(a, b, tx, c, d, ty), true
}

// computeAffineLeastSquares computes an affine transform using least squares.
// Rank-deficient designs (e.g. collinear source points) are rejected.
func computeAffineLeastSquares(src, dst []geometry.Point2D) (geometry.Transform, bool) {
	n := len(src)
	if n < MinPoints {
		return geometry.Transform{}, false
	}

	// Rows [x y 1]; one right-hand side per output coordinate.
	A := mat.NewDense(n, 3, nil)
	B := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		A.Set(i, 0, src[i].X)
		A.Set(i, 1, src[i].Y)
		A.Set(i, 2, 1)
		B.Set(i, 0, dst[i].X)
		B.Set(i, 1, dst[i].Y)
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDNone) {
		return geometry.Transform{}, false
	}
	values := svd.Values(nil)
	if values[0] == 0 || values[2]/values[0] < rankTol {
		return geometry.Transform{}, false
	}

	// Solve using QR decomposition
	var qr mat.QR
	qr.Factorize(A)

	var params mat.Dense
	if err := qr.SolveTo(&params, false, B); err != nil {
		return geometry.Transform{}, false
	}

	return geometry.FromAffine(
		params.At(0, 0), params.At(1, 0), params.At(2, 0),
		params.At(0, 1), params.At(1, 1), params.At(2, 1),
	), true
}

// Residuals returns, in matched order, the distance between each transformed
// source point and its target.
func Residuals(t geometry.Transform, matched controlpoints.MatchedSet) []float64 {
	res := make([]float64, len(matched))
	for i, p := range matched {
		res[i] = t.Apply(p.Source).Distance(p.Target)
	}
	return res
}

// Stats summarises a residual vector.
type Stats struct {
	Mean float64 `json:"mean"`
	RMS  float64 `json:"rms"`
	Max  float64 `json:"max"`
}

// ResidualStats computes mean, RMS and maximum of the residuals.
func ResidualStats(residuals []float64) Stats {
	if len(residuals) == 0 {
		return Stats{}
	}
	n := float64(len(residuals))
	return Stats{
		Mean: floats.Sum(residuals) / n,
		RMS:  math.Sqrt(floats.Dot(residuals, residuals) / n),
		Max:  floats.Max(residuals),
	}
}

// Compose builds the joint transform post ∘ estimated ∘ pre. Missing pre or
// post transforms are skipped; a missing estimate yields no joint transform.
func Compose(estimated, pre, post *geometry.Transform) *geometry.Transform {
	if estimated == nil {
		return nil
	}
	joint := *estimated
	if pre != nil {
		joint = joint.Compose(*pre)
	}
	if post != nil {
		joint = post.Compose(joint)
	}
	return &joint
}
