// Package project provides registration project file handling and persistence.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrInvalidConfig is returned by Validate for an incomplete project.
var ErrInvalidConfig = errors.New("invalid project")

// Selection modes.
const (
	ModeFile = "file"
	ModeDir  = "dir"
)

// File represents a registration project file (.imcreg.json). Paths are
// stored relative to the project file when possible.
type File struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// Mode is ModeFile (a single pair of files) or ModeDir (directories).
	Mode string `json:"mode"`

	Source            string `json:"source"`
	Target            string `json:"target"`
	ControlPoints     string `json:"control_points"`
	JointTransform    string `json:"joint_transform"`
	SourceCoords      string `json:"source_coords,omitempty"`
	TransformedCoords string `json:"transformed_coords,omitempty"`

	TransformKind string `json:"transform_kind"`
	// TransformFormat is "npy" (default) or "json"; directory mode only.
	TransformFormat string `json:"transform_format,omitempty"`

	PreTransform  string `json:"pre_transform,omitempty"`
	PostTransform string `json:"post_transform,omitempty"`

	// Directory mode file matching.
	MatchingStrategy  string `json:"matching_strategy,omitempty"`
	SourceRegex       string `json:"source_regex,omitempty"`
	TargetRegex       string `json:"target_regex,omitempty"`
	SourceCoordsRegex string `json:"source_coords_regex,omitempty"`
}

// New creates a new project file with default settings.
func New(name, mode string) *File {
	now := time.Now()
	return &File{
		Version:          1,
		Name:             name,
		Created:          now,
		Modified:         now,
		Mode:             mode,
		TransformKind:    "affine",
		TransformFormat:  "npy",
		MatchingStrategy: "alphabetical",
	}
}

// Load loads a project from a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var proj File
	if err := json.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &proj, nil
}

// Save saves the project to a file.
func (p *File) Save(path string) error {
	p.Modified = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the fields required by the selected mode are set.
func (p *File) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch p.Mode {
	case ModeFile, ModeDir:
	default:
		return fmt.Errorf("%w: mode must be %q or %q, got %q", ErrInvalidConfig, ModeFile, ModeDir, p.Mode)
	}

	require("source", p.Source)
	require("target", p.Target)
	require("control_points", p.ControlPoints)
	require("joint_transform", p.JointTransform)
	require("transform_kind", p.TransformKind)
	if p.Mode == ModeDir {
		require("matching_strategy", p.MatchingStrategy)
	}
	if p.TransformedCoords != "" {
		require("source_coords", p.SourceCoords)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrInvalidConfig, missing)
	}
	return nil
}

// Rel rewrites every path relative to the project file's directory where
// possible.
func (p *File) Rel(projectPath string) {
	base := filepath.Dir(projectPath)
	for _, field := range p.paths() {
		if *field == "" || !filepath.IsAbs(*field) {
			continue
		}
		if rel, err := filepath.Rel(base, *field); err == nil {
			*field = rel
		}
	}
	p.Modified = time.Now()
}

// Resolved returns a copy with every relative path made absolute against the
// project file's directory.
func (p *File) Resolved(projectPath string) *File {
	c := *p
	base := filepath.Dir(projectPath)
	for _, field := range c.paths() {
		if *field == "" || filepath.IsAbs(*field) {
			continue
		}
		*field = filepath.Join(base, *field)
	}
	return &c
}

func (p *File) paths() []*string {
	return []*string{
		&p.Source,
		&p.Target,
		&p.ControlPoints,
		&p.JointTransform,
		&p.SourceCoords,
		&p.TransformedCoords,
		&p.PreTransform,
		&p.PostTransform,
	}
}
