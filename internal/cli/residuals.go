package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"imcreg/internal/alignment"
	"imcreg/internal/controlpoints"
	"imcreg/pkg/geometry"
)

var (
	residualsKind      string
	residualsTransform string
)

func init() {
	rootCmd.AddCommand(newResidualsCmd())
}

func newResidualsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "residuals <points.csv>",
		Short: "Report per-point residuals of a matched control points file",
		Long: `The residuals command fits the requested transform families to a
matched control points file and prints the distance between every mapped
source point and its target. With --transform the saved transform is
evaluated instead.

Example:
  imcreg residuals cp.csv
  imcreg residuals cp.csv --kind euclidean --json
  imcreg residuals cp.csv --transform joint.npy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResiduals(args)
		},
	}
	cmd.Flags().StringVar(&residualsKind, "kind", "all", "Transform family: euclidean, similarity, affine or all")
	cmd.Flags().StringVar(&residualsTransform, "transform", "", "Evaluate this transform file instead of estimating")
	return cmd
}

// fitReport holds the residuals of one transform against the control points.
type fitReport struct {
	Kind      string              `json:"kind"`
	Transform *geometry.Transform `json:"transform"`
	IDs       []int               `json:"ids,omitempty"`
	Residuals []float64           `json:"residuals,omitempty"`
	Stats     *alignment.Stats    `json:"stats,omitempty"`
}

func runResiduals(args []string) error {
	matched, err := controlpoints.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load control points: %w", err)
	}
	printVerbose("Loaded %d matched control point(s) from %s\n", len(matched), args[0])

	ids := make([]int, len(matched))
	for i, p := range matched {
		ids[i] = p.ID
	}

	var fits []fitReport
	if residualsTransform != "" {
		t, err := alignment.LoadTransform(residualsTransform)
		if err != nil {
			return err
		}
		fits = append(fits, fitOf("file", &t, matched, ids))
	} else {
		kinds, err := residualKinds(residualsKind)
		if err != nil {
			return err
		}
		for _, kind := range kinds {
			t, err := alignment.Estimate(kind, matched)
			if err != nil {
				return err
			}
			fits = append(fits, fitOf(kind.String(), t, matched, ids))
		}
	}

	if jsonOut {
		return printJSON(fits)
	}
	for _, f := range fits {
		if f.Transform == nil {
			printInfo("%-10s  no transform (%d matched point(s), need at least %d non-degenerate)\n",
				f.Kind, len(matched), alignment.MinPoints)
			continue
		}
		printInfo("%-10s  mean %.4f  rms %.4f  max %.4f\n", f.Kind, f.Stats.Mean, f.Stats.RMS, f.Stats.Max)
		for i, r := range f.Residuals {
			printVerbose("    %4d  %.4f\n", f.IDs[i], r)
		}
	}
	return nil
}

func fitOf(kind string, t *geometry.Transform, matched controlpoints.MatchedSet, ids []int) fitReport {
	f := fitReport{Kind: kind, Transform: t}
	if t == nil {
		return f
	}
	f.IDs = ids
	f.Residuals = alignment.Residuals(*t, matched)
	stats := alignment.ResidualStats(f.Residuals)
	f.Stats = &stats
	return f
}

func residualKinds(name string) ([]alignment.TransformKind, error) {
	if name == "all" {
		return []alignment.TransformKind{alignment.Euclidean, alignment.Similarity, alignment.Affine}, nil
	}
	kind, err := alignment.ParseTransformKind(name)
	if err != nil {
		return nil, err
	}
	return []alignment.TransformKind{kind}, nil
}
