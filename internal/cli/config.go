package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"imcreg/internal/alignment"
	"imcreg/internal/app"
	"imcreg/internal/filematch"
	"imcreg/internal/navigator"
	"imcreg/internal/project"
)

// sessionOptions collects the flags that describe a session. The flag
// values are written straight into a project file.
type sessionOptions struct {
	project string
	file    project.File
}

// fields maps flag names to the project field they set.
func fields(f *project.File) map[string]*string {
	return map[string]*string{
		"mode":               &f.Mode,
		"source":             &f.Source,
		"target":             &f.Target,
		"points":             &f.ControlPoints,
		"transform":          &f.JointTransform,
		"source-coords":      &f.SourceCoords,
		"transformed-coords": &f.TransformedCoords,
		"kind":               &f.TransformKind,
		"transform-format":   &f.TransformFormat,
		"pre":                &f.PreTransform,
		"post":               &f.PostTransform,
		"strategy":           &f.MatchingStrategy,
		"source-regex":       &f.SourceRegex,
		"target-regex":       &f.TargetRegex,
		"coords-regex":       &f.SourceCoordsRegex,
	}
}

func addSessionFlags(cmd *cobra.Command, o *sessionOptions) {
	fs := cmd.Flags()
	fs.StringVarP(&o.project, "project", "p", "", "Project file; explicit flags override its settings")
	fs.StringVar(&o.file.Mode, "mode", project.ModeFile, "Selection mode: file (one pair) or dir (directories)")
	fs.StringVar(&o.file.Source, "source", "", "Source image, or source image directory")
	fs.StringVar(&o.file.Target, "target", "", "Target image, or target image directory")
	fs.StringVar(&o.file.ControlPoints, "points", "", "Matched control points CSV, or its directory")
	fs.StringVar(&o.file.JointTransform, "transform", "", "Joint transform file (.npy or .json), or its directory")
	fs.StringVar(&o.file.SourceCoords, "source-coords", "", "Source cell coordinates CSV, or its directory")
	fs.StringVar(&o.file.TransformedCoords, "transformed-coords", "", "Transformed cell coordinates CSV, or its directory")
	fs.StringVar(&o.file.TransformKind, "kind", "affine", "Transform family: euclidean, similarity or affine")
	fs.StringVar(&o.file.TransformFormat, "transform-format", "npy", "Transform file format in dir mode: npy or json")
	fs.StringVar(&o.file.PreTransform, "pre", "", "Fixed transform applied before the estimated one")
	fs.StringVar(&o.file.PostTransform, "post", "", "Fixed transform applied after the estimated one")
	fs.StringVar(&o.file.MatchingStrategy, "strategy", "alphabetical", "File matching strategy: alphabetical, filename or regex")
	fs.StringVar(&o.file.SourceRegex, "source-regex", "", "Pattern extracting the matching key from source names")
	fs.StringVar(&o.file.TargetRegex, "target-regex", "", "Pattern extracting the matching key from target names")
	fs.StringVar(&o.file.SourceCoordsRegex, "coords-regex", "", "Pattern extracting the matching key from coordinate file names")
}

// resolve returns the effective project: the project file, if any, with
// explicitly set flags applied on top.
func (o *sessionOptions) resolve(cmd *cobra.Command) (*project.File, error) {
	if o.project == "" {
		f := o.file
		return &f, f.Validate()
	}

	p, err := project.Load(o.project)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	p = p.Resolved(o.project)

	dst := fields(p)
	for name, value := range fields(&o.file) {
		if cmd.Flags().Changed(name) {
			*dst[name] = *value
		}
	}
	return p, p.Validate()
}

// sessionConfig converts a validated project into a session configuration.
func sessionConfig(p *project.File) (app.Config, error) {
	kind, err := alignment.ParseTransformKind(p.TransformKind)
	if err != nil {
		return app.Config{}, err
	}
	cfg := app.Config{
		Kind:          kind,
		PreTransform:  p.PreTransform,
		PostTransform: p.PostTransform,
	}

	switch p.Mode {
	case project.ModeFile:
		cfg.Files = &navigator.Pair{
			Source:            p.Source,
			Target:            p.Target,
			ControlPoints:     p.ControlPoints,
			Transform:         p.JointTransform,
			SourceCoords:      p.SourceCoords,
			TransformedCoords: p.TransformedCoords,
		}
	case project.ModeDir:
		strategy, err := filematch.ParseStrategy(p.MatchingStrategy)
		if err != nil {
			return app.Config{}, err
		}
		ext, err := transformExt(p.TransformFormat)
		if err != nil {
			return app.Config{}, err
		}
		cfg.Dirs = &app.DirConfig{
			Match: filematch.Request{
				SourceDir:   p.Source,
				TargetDir:   p.Target,
				CoordsDir:   p.SourceCoords,
				Strategy:    strategy,
				SourceRegex: p.SourceRegex,
				TargetRegex: p.TargetRegex,
				CoordsRegex: p.SourceCoordsRegex,
			},
			Destinations: navigator.Destinations{
				ControlPointsDir:     p.ControlPoints,
				TransformDir:         p.JointTransform,
				TransformedCoordsDir: p.TransformedCoords,
				TransformExt:         ext,
			},
		}
	default:
		return app.Config{}, fmt.Errorf("%w: unknown mode %q", project.ErrInvalidConfig, p.Mode)
	}
	return cfg, cfg.Validate()
}

func transformExt(format string) (string, error) {
	switch format {
	case "", "npy":
		return navigator.ExtNPY, nil
	case "json":
		return navigator.ExtJSON, nil
	}
	return "", fmt.Errorf("%w: unsupported transform format %q", project.ErrInvalidConfig, format)
}
