package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"imcreg/internal/alignment"
	"imcreg/internal/filematch"
	"imcreg/internal/navigator"
)

// ErrInvalidConfig is returned for a configuration that cannot start a session.
var ErrInvalidConfig = errors.New("invalid session configuration")

// DirConfig selects pairs by matching directory contents.
type DirConfig struct {
	Match        filematch.Request
	Destinations navigator.Destinations
}

// Config is everything a session needs. Exactly one of Files and Dirs is set.
type Config struct {
	// Files registers a single literal pair.
	Files *navigator.Pair
	// Dirs registers every matched pair of a set of directories.
	Dirs *DirConfig

	Kind alignment.TransformKind

	// Optional fixed transforms around the estimated one. A path that does
	// not exist is treated as no transform.
	PreTransform  string
	PostTransform string
}

// Validate checks the configuration without touching the file system.
func (c Config) Validate() error {
	switch {
	case c.Files == nil && c.Dirs == nil:
		return fmt.Errorf("%w: either files or directories must be given", ErrInvalidConfig)
	case c.Files != nil && c.Dirs != nil:
		return fmt.Errorf("%w: files and directories are mutually exclusive", ErrInvalidConfig)
	}

	switch c.Kind {
	case alignment.Euclidean, alignment.Similarity, alignment.Affine:
	default:
		return fmt.Errorf("%w: %v", alignment.ErrUnsupportedTransformKind, c.Kind)
	}

	if c.Files != nil {
		f := c.Files
		if f.Source == "" || f.Target == "" || f.ControlPoints == "" || f.Transform == "" {
			return fmt.Errorf("%w: source, target, control points and transform paths are required", ErrInvalidConfig)
		}
		return checkTransformExt(filepath.Ext(f.Transform))
	}

	d := c.Dirs
	switch d.Match.Strategy {
	case filematch.Alphabetical, filematch.Filename, filematch.Regex:
	default:
		return fmt.Errorf("%w: %v", filematch.ErrUnsupportedStrategy, d.Match.Strategy)
	}
	if d.Match.SourceDir == "" || d.Match.TargetDir == "" {
		return fmt.Errorf("%w: source and target directories are required", ErrInvalidConfig)
	}
	if d.Destinations.ControlPointsDir == "" || d.Destinations.TransformDir == "" {
		return fmt.Errorf("%w: control points and transform directories are required", ErrInvalidConfig)
	}
	if d.Destinations.TransformExt == "" {
		return nil
	}
	return checkTransformExt(d.Destinations.TransformExt)
}

// checkTransformExt rejects transform files no codec can write, before any
// edit reaches the control points file.
func checkTransformExt(ext string) error {
	switch strings.ToLower(ext) {
	case navigator.ExtNPY, navigator.ExtJSON:
		return nil
	}
	return fmt.Errorf("%w: unsupported transform extension %q", ErrInvalidConfig, ext)
}
