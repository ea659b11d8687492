package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"imcreg/internal/viewer"
)

var (
	registerDryRun     bool
	registerSkipImages bool
)

func init() {
	rootCmd.AddCommand(newRegisterCmd())
}

func newRegisterCmd() *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Re-estimate and save the transforms of every pair",
		Long: `The register command walks every pair of the session, estimates the
transform from the saved control points and writes the joint transform and
the transformed coordinates. Pairs without saved control points, and pairs
whose files are not images of a supported format, are reported and left
untouched.

Example:
  imcreg register --project study.imcreg.json
  imcreg register --source he.png --target imc.tiff --points cp.csv --transform joint.npy --kind similarity
  imcreg register --project study.imcreg.json --dry-run --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, &opts)
		},
	}
	addSessionFlags(cmd, &opts)
	cmd.Flags().BoolVar(&registerDryRun, "dry-run", false, "Estimate without writing any file")
	cmd.Flags().BoolVar(&registerSkipImages, "skip-images", false, "Do not open the image files")
	return cmd
}

func runRegister(cmd *cobra.Command, opts *sessionOptions) error {
	s, probes, err := openSession(cmd, opts, !registerSkipImages)
	if err != nil {
		return err
	}
	defer s.Close()

	reports := make([]pairReport, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		if i > 0 {
			if err := s.Next(); err != nil {
				return err
			}
		}
		r := report(s, probes)
		r.Skipped = unsupportedImage(r.Source, r.Target)
		if r.Matched > 0 && r.Skipped == "" && !registerDryRun {
			if _, err := s.Save(); err != nil {
				return err
			}
			r.Saved = true
		}
		reports = append(reports, r)
		if !jsonOut {
			printReport(r)
		}
	}

	if jsonOut {
		return printJSON(reports)
	}
	return nil
}

// unsupportedImage names the first path without a known image extension.
func unsupportedImage(paths ...string) string {
	for _, p := range paths {
		if !viewer.IsSupportedFormat(p) {
			return fmt.Sprintf("%s is not a supported image (%v)", filepath.Base(p), viewer.SupportedFormats())
		}
	}
	return ""
}
