package cli

import (
	"github.com/spf13/cobra"

	"imcreg/internal/alignment"
	"imcreg/pkg/geometry"
)

func init() {
	rootCmd.AddCommand(newShowCmd())
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <transform>",
		Short: "Print a saved transform",
		Long: `The show command reads a transform file (.npy or .json) and prints
the matrix together with its rotation, scale and translation.

Example:
  imcreg show out/transforms/IMC_01.npy
  imcreg show joint.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args)
		},
	}
}

// transformSummary describes a transform matrix.
type transformSummary struct {
	Path        string             `json:"path"`
	Matrix      geometry.Transform `json:"matrix"`
	Affine      bool               `json:"affine"`
	Rotation    float64            `json:"rotation_degrees"`
	Scale       float64            `json:"scale"`
	Translation geometry.Point2D   `json:"translation"`
	Invertible  bool               `json:"invertible"`
}

func runShow(args []string) error {
	t, err := alignment.LoadTransform(args[0])
	if err != nil {
		return err
	}
	_, invertible := t.Inverse()
	sum := transformSummary{
		Path:        args[0],
		Matrix:      t,
		Affine:      t.IsAffine(),
		Rotation:    t.RotationDegrees(),
		Scale:       t.ScaleFactor(),
		Translation: geometry.Point2D{X: t[0][2], Y: t[1][2]},
		Invertible:  invertible,
	}

	if jsonOut {
		return printJSON(sum)
	}
	printInfo("%s\n", sum.Path)
	for _, row := range t {
		printInfo("  [% 14.6f % 14.6f % 14.6f]\n", row[0], row[1], row[2])
	}
	printInfo("  rotation:    %.4f°\n", sum.Rotation)
	printInfo("  scale:       %.6f\n", sum.Scale)
	printInfo("  translation: (%.3f, %.3f)\n", sum.Translation.X, sum.Translation.Y)
	if !sum.Affine {
		printInfo("  projective bottom row\n")
	}
	if !sum.Invertible {
		printInfo("  singular\n")
	}
	return nil
}
