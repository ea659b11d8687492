// Package navigator keeps the aligned file lists of a registration job and a
// cursor over the current pair.
package navigator

import (
	"errors"
	"fmt"
	"path/filepath"

	"imcreg/internal/filematch"
)

var (
	// ErrEmptyMatchSet is returned when there are no pairs to navigate.
	ErrEmptyMatchSet = errors.New("no matching files found")
	// ErrIndexOutOfRange is returned by Seek for an index outside [0, n).
	ErrIndexOutOfRange = errors.New("pair index out of range")
)

// Transform artifact extensions.
const (
	ExtNPY  = ".npy"
	ExtJSON = ".json"
)

// AlignmentError reports file lists of different lengths.
type AlignmentError struct {
	What     string
	Got      int
	Expected int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s list has %d entries, expected %d", e.What, e.Got, e.Expected)
}

// Pair holds every path belonging to one logical image pair. Optional paths
// are empty when not configured.
type Pair struct {
	Source            string `json:"source"`
	Target            string `json:"target"`
	ControlPoints     string `json:"control_points"`
	Transform         string `json:"transform"`
	SourceCoords      string `json:"source_coords,omitempty"`
	TransformedCoords string `json:"transformed_coords,omitempty"`
}

// Set is the position-aligned list of file paths. SourceCoords and
// TransformedCoords are nil when not configured.
type Set struct {
	Source            []string
	Target            []string
	ControlPoints     []string
	Transform         []string
	SourceCoords      []string
	TransformedCoords []string
}

// Len returns the number of pairs.
func (s Set) Len() int {
	return len(s.Source)
}

// Validate checks that every configured list has the same length.
func (s Set) Validate() error {
	n := len(s.Source)
	lists := []struct {
		what     string
		paths    []string
		optional bool
	}{
		{"target", s.Target, false},
		{"control points", s.ControlPoints, false},
		{"transform", s.Transform, false},
		{"source coordinates", s.SourceCoords, true},
		{"transformed coordinates", s.TransformedCoords, true},
	}
	for _, l := range lists {
		if l.optional && l.paths == nil {
			continue
		}
		if len(l.paths) != n {
			return &AlignmentError{What: l.what, Got: len(l.paths), Expected: n}
		}
	}
	return nil
}

// At returns the paths at index i.
func (s Set) At(i int) Pair {
	p := Pair{
		Source:        s.Source[i],
		Target:        s.Target[i],
		ControlPoints: s.ControlPoints[i],
		Transform:     s.Transform[i],
	}
	if s.SourceCoords != nil {
		p.SourceCoords = s.SourceCoords[i]
	}
	if s.TransformedCoords != nil {
		p.TransformedCoords = s.TransformedCoords[i]
	}
	return p
}

// Single builds a one-pair set for single-file mode.
func Single(p Pair) Set {
	s := Set{
		Source:        []string{p.Source},
		Target:        []string{p.Target},
		ControlPoints: []string{p.ControlPoints},
		Transform:     []string{p.Transform},
	}
	if p.SourceCoords != "" {
		s.SourceCoords = []string{p.SourceCoords}
	}
	if p.TransformedCoords != "" {
		s.TransformedCoords = []string{p.TransformedCoords}
	}
	return s
}

// Destinations names the output directories of directory mode.
type Destinations struct {
	ControlPointsDir     string
	TransformDir         string
	TransformedCoordsDir string // optional
	// TransformExt is ExtNPY or ExtJSON; empty means ExtNPY.
	TransformExt string
}

// FromMatch derives the destination paths of every matched pair from the
// target file stems.
func FromMatch(res filematch.Result, dst Destinations) Set {
	ext := dst.TransformExt
	if ext == "" {
		ext = ExtNPY
	}

	s := Set{
		Source:        res.Source,
		Target:        res.Target,
		SourceCoords:  res.Coords,
		ControlPoints: make([]string, len(res.Target)),
		Transform:     make([]string, len(res.Target)),
	}
	if dst.TransformedCoordsDir != "" {
		s.TransformedCoords = make([]string, len(res.Target))
	}
	for i, target := range res.Target {
		stem := filematch.Stem(target)
		s.ControlPoints[i] = filepath.Join(dst.ControlPointsDir, stem+".csv")
		s.Transform[i] = filepath.Join(dst.TransformDir, stem+ext)
		if s.TransformedCoords != nil {
			s.TransformedCoords[i] = filepath.Join(dst.TransformedCoordsDir, stem+".csv")
		}
	}
	return s
}

// Navigator is a cyclic cursor over a Set.
type Navigator struct {
	set   Set
	index int
}

// New creates a navigator positioned on the first pair.
func New(set Set) (*Navigator, error) {
	if set.Len() == 0 {
		return nil, ErrEmptyMatchSet
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &Navigator{set: set}, nil
}

// Next moves to the following pair, wrapping around at the end.
func (n *Navigator) Next() {
	n.index = (n.index + 1) % n.set.Len()
}

// Prev moves to the preceding pair, wrapping around at the start.
func (n *Navigator) Prev() {
	l := n.set.Len()
	n.index = ((n.index-1)%l + l) % l
}

// Seek moves to pair i.
func (n *Navigator) Seek(i int) error {
	if i < 0 || i >= n.set.Len() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, n.set.Len())
	}
	n.index = i
	return nil
}

// Index returns the current position.
func (n *Navigator) Index() int {
	return n.index
}

// Len returns the number of pairs.
func (n *Navigator) Len() int {
	return n.set.Len()
}

// Current returns the paths of the current pair.
func (n *Navigator) Current() Pair {
	return n.set.At(n.index)
}

// Pairs returns every pair in order.
func (n *Navigator) Pairs() []Pair {
	pairs := make([]Pair, n.set.Len())
	for i := range pairs {
		pairs[i] = n.set.At(i)
	}
	return pairs
}
