// Command transformtest fits every transform family to control points and
// prints how well each one explains them.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"

	"imcreg/internal/alignment"
	"imcreg/internal/controlpoints"
	"imcreg/pkg/geometry"
)

func main() {
	points := flag.String("p", "", "Path to a matched control points CSV")
	synthetic := flag.Int("synthetic", 0, "Generate this many random point pairs instead of reading -p")
	noise := flag.Float64("noise", 0.5, "Standard deviation of the noise added to synthetic targets (pixels)")
	seed := flag.Int64("seed", 1, "Random seed for synthetic points")
	flag.Parse()

	var matched controlpoints.MatchedSet
	var truth *geometry.Transform
	switch {
	case *points != "":
		m, err := controlpoints.Load(*points)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load control points: %v\n", err)
			os.Exit(1)
		}
		matched = m
		fmt.Printf("=== %s: %d matched control points ===\n", *points, len(matched))
	case *synthetic > 0:
		t, m := syntheticPoints(*synthetic, *noise, rand.New(rand.NewSource(*seed)))
		matched, truth = m, &t
		fmt.Printf("=== %d synthetic control points, noise σ=%.2f ===\n", len(matched), *noise)
		printTransform("true", t)
	default:
		fmt.Println("Usage: transformtest -p <points.csv> | -synthetic <n> [-noise <px>] [-seed <n>]")
		os.Exit(1)
	}

	prevSSE := math.Inf(1)
	for _, kind := range []alignment.TransformKind{alignment.Euclidean, alignment.Similarity, alignment.Affine} {
		fmt.Printf("\n=== %s (%d DoF) ===\n", kind, kind.DegreesOfFreedom())
		t, err := alignment.Estimate(kind, matched)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Estimation failed: %v\n", err)
			os.Exit(1)
		}
		if t == nil {
			fmt.Println("  no transform (too few or degenerate points)")
			continue
		}
		printTransform("estimated", *t)

		res := alignment.Residuals(*t, matched)
		stats := alignment.ResidualStats(res)
		sse := 0.0
		for _, r := range res {
			sse += r * r
		}
		fmt.Printf("  residuals: mean %.4f  rms %.4f  max %.4f  sse %.4f\n", stats.Mean, stats.RMS, stats.Max, sse)
		if sse > prevSSE+1e-9 {
			fmt.Printf("  WARNING: sse larger than the more constrained family (%.4f)\n", prevSSE)
		}
		prevSSE = sse

		if truth != nil {
			worst := 0.0
			for _, p := range matched {
				worst = math.Max(worst, t.Apply(p.Source).Distance(truth.Apply(p.Source)))
			}
			fmt.Printf("  max deviation from true transform at control points: %.4f\n", worst)
		}
	}
}

// syntheticPoints draws a random similarity transform and n source points in
// a 1000x1000 field, mapping them with added Gaussian noise.
func syntheticPoints(n int, noise float64, rng *rand.Rand) (geometry.Transform, controlpoints.MatchedSet) {
	t := geometry.Translation(rng.Float64()*200-100, rng.Float64()*200-100).
		Compose(geometry.Rotation(rng.Float64()*math.Pi/2 - math.Pi/4)).
		Compose(geometry.Scale(0.5+rng.Float64(), 0.5+rng.Float64()))

	matched := make(controlpoints.MatchedSet, n)
	for i := range matched {
		src := geometry.Point2D{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
		dst := t.Apply(src)
		dst.X += rng.NormFloat64() * noise
		dst.Y += rng.NormFloat64() * noise
		matched[i] = controlpoints.Pair{ID: i + 1, Source: src, Target: dst}
	}
	return t, matched
}

func printTransform(label string, t geometry.Transform) {
	fmt.Printf("  %s: rotation %.4f°, scale %.5f, translation (%.3f, %.3f)\n",
		label, t.RotationDegrees(), t.ScaleFactor(), t[0][2], t[1][2])
}
