package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"imcreg/internal/project"
)

func init() {
	rootCmd.AddCommand(newProjectCmd())
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect project files",
	}
	cmd.AddCommand(newProjectInitCmd(), newProjectShowCmd())
	return cmd
}

func newProjectInitCmd() *cobra.Command {
	var opts sessionOptions
	cmd := &cobra.Command{
		Use:   "init <project.imcreg.json>",
		Short: "Write the session flags to a project file",
		Long: `The init command validates the session flags and stores them in a
project file. Paths are stored relative to the project file.

Example:
  imcreg project init study.imcreg.json --mode dir --source he --target imc \
      --points out/points --transform out/transforms --kind similarity`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjectInit(cmd, &opts, args[0])
		},
	}
	addSessionFlags(cmd, &opts)
	return cmd
}

func runProjectInit(cmd *cobra.Command, opts *sessionOptions, path string) error {
	p, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	if _, err := sessionConfig(p); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), ".imcreg.json")
	out := project.New(name, p.Mode)
	created := out.Created
	*out = *p
	out.Version, out.Created = 1, created
	if out.Name == "" {
		out.Name = name
	}
	out.Rel(abs)
	if err := out.Save(abs); err != nil {
		return err
	}
	printInfo("Wrote %s\n", path)
	return nil
}

func newProjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <project.imcreg.json>",
		Short: "Print a project file with resolved paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := project.Load(args[0])
			if err != nil {
				return err
			}
			p = p.Resolved(args[0])
			if err := p.Validate(); err != nil {
				return err
			}
			if jsonOut {
				return printJSON(p)
			}
			printInfo("%s (%s mode, %s transform)\n", p.Name, p.Mode, p.TransformKind)
			printInfo("  source:             %s\n", p.Source)
			printInfo("  target:             %s\n", p.Target)
			printInfo("  control points:     %s\n", p.ControlPoints)
			printInfo("  joint transform:    %s\n", p.JointTransform)
			if p.SourceCoords != "" {
				printInfo("  source coords:      %s\n", p.SourceCoords)
				printInfo("  transformed coords: %s\n", p.TransformedCoords)
			}
			if p.Mode == project.ModeDir {
				printInfo("  matching:           %s\n", p.MatchingStrategy)
			}
			return nil
		},
	}
}
