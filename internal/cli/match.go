package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"

	"imcreg/internal/filematch"
	"imcreg/internal/navigator"
)

func init() {
	rootCmd.AddCommand(newMatchCmd())
}

func newMatchCmd() *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show how the files of a directory project are paired",
		Long: `The match command pairs the source, target and coordinate directories
with the configured strategy and lists every pair together with the files
the session would write for it. Nothing is created or written.

Example:
  imcreg match --mode dir --source he/ --target imc/ --points out/points --transform out/transforms
  imcreg match --project study.imcreg.json --strategy filename --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, &opts)
		},
	}
	addSessionFlags(cmd, &opts)
	return cmd
}

func runMatch(cmd *cobra.Command, opts *sessionOptions) error {
	p, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	cfg, err := sessionConfig(p)
	if err != nil {
		return err
	}
	if cfg.Dirs == nil {
		return errors.New("match needs a directory project (--mode dir)")
	}

	res, err := filematch.Match(cmd.Context(), cfg.Dirs.Match)
	if err != nil {
		return err
	}
	set := navigator.FromMatch(res, cfg.Dirs.Destinations)
	pairs := make([]navigator.Pair, set.Len())
	for i := range pairs {
		pairs[i] = set.At(i)
	}

	if jsonOut {
		return printJSON(pairs)
	}

	if len(pairs) == 0 {
		printInfo("No matching files found (%s strategy)\n", cfg.Dirs.Match.Strategy)
		return nil
	}
	printInfo("%d pair(s), %s strategy:\n", len(pairs), cfg.Dirs.Match.Strategy)
	for i, pair := range pairs {
		printInfo("  [%d] %s -> %s\n", i+1, filepath.Base(pair.Source), filepath.Base(pair.Target))
		if pair.SourceCoords != "" {
			printVerbose("      coordinates: %s\n", pair.SourceCoords)
		}
		printVerbose("      points:      %s\n", pair.ControlPoints)
		printVerbose("      transform:   %s\n", pair.Transform)
		if pair.TransformedCoords != "" {
			printVerbose("      transformed: %s\n", pair.TransformedCoords)
		}
	}
	return nil
}
