// Package controlpoints holds user-placed landmark points and their
// source/target correspondences.
package controlpoints

import (
	"errors"
	"fmt"
	"slices"

	"imcreg/pkg/geometry"
)

var (
	// ErrUnknownID is returned when an edit refers to an ID not in the set.
	ErrUnknownID = errors.New("unknown control point id")
	// ErrInvalidID is returned for non-positive or duplicate IDs.
	ErrInvalidID = errors.New("invalid control point id")
)

// Role identifies which image of a pair a point set belongs to.
type Role int

const (
	Source Role = iota
	Target
)

func (r Role) String() string {
	switch r {
	case Source:
		return "source"
	case Target:
		return "target"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole converts "source" or "target" to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "source":
		return Source, nil
	case "target":
		return Target, nil
	}
	return 0, fmt.Errorf("unsupported image role %q", s)
}

// ControlPoint is a landmark with a stable identifier.
type ControlPoint struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Point returns the location of the control point.
func (c ControlPoint) Point() geometry.Point2D {
	return geometry.Point2D{X: c.X, Y: c.Y}
}

// PointSet is the ordered set of control points placed on one image.
// IDs are handed out monotonically and never reused after deletion.
type PointSet struct {
	points []ControlPoint
	nextID int
}

// NewPointSet creates a set holding the given points.
func NewPointSet(points ...ControlPoint) (*PointSet, error) {
	s := &PointSet{nextID: 1}
	if err := s.Replace(points); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps in a new point list. The ID high-water mark only grows, so
// IDs deleted earlier stay retired.
func (s *PointSet) Replace(points []ControlPoint) error {
	seen := make(map[int]bool, len(points))
	for _, p := range points {
		if p.ID <= 0 || seen[p.ID] {
			return fmt.Errorf("%w: %d", ErrInvalidID, p.ID)
		}
		seen[p.ID] = true
	}

	s.points = slices.Clone(points)
	if s.nextID < 1 {
		s.nextID = 1
	}
	for _, p := range points {
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
	}
	return nil
}

// Add places a new point and returns its ID.
func (s *PointSet) Add(x, y float64) int {
	if s.nextID < 1 {
		s.nextID = 1
	}
	id := s.nextID
	s.nextID++
	s.points = append(s.points, ControlPoint{ID: id, X: x, Y: y})
	return id
}

// Move relocates an existing point.
func (s *PointSet) Move(id int, x, y float64) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	s.points[i].X = x
	s.points[i].Y = y
	return nil
}

// Delete removes a point. Its ID is not handed out again.
func (s *PointSet) Delete(id int) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownID, id)
	}
	s.points = slices.Delete(s.points, i, i+1)
	return nil
}

// Get returns the point with the given ID.
func (s *PointSet) Get(id int) (ControlPoint, bool) {
	i := s.index(id)
	if i < 0 {
		return ControlPoint{}, false
	}
	return s.points[i], true
}

// Points returns a copy of the points in insertion order.
func (s *PointSet) Points() []ControlPoint {
	return slices.Clone(s.points)
}

// IDs returns the point IDs in set order.
func (s *PointSet) IDs() []int {
	ids := make([]int, len(s.points))
	for i, p := range s.points {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of points.
func (s *PointSet) Len() int {
	return len(s.points)
}

// NextID returns the ID the next Add will use.
func (s *PointSet) NextID() int {
	return s.nextID
}

// Clone returns an independent copy.
func (s *PointSet) Clone() *PointSet {
	return &PointSet{points: slices.Clone(s.points), nextID: s.nextID}
}

func (s *PointSet) index(id int) int {
	return slices.IndexFunc(s.points, func(p ControlPoint) bool { return p.ID == id })
}

// Pair is one matched correspondence.
type Pair struct {
	ID     int
	Source geometry.Point2D
	Target geometry.Point2D
}

// MatchedSet is the inner join of a source and target set, ordered by ID.
type MatchedSet []Pair

// Match joins two point sets on ID. Points present on only one image are
// left out. Either set may be nil.
func Match(source, target *PointSet) MatchedSet {
	if source == nil || target == nil {
		return MatchedSet{}
	}

	targets := make(map[int]ControlPoint, target.Len())
	for _, p := range target.points {
		targets[p.ID] = p
	}

	matched := MatchedSet{}
	for _, sp := range source.points {
		tp, ok := targets[sp.ID]
		if !ok {
			continue
		}
		matched = append(matched, Pair{ID: sp.ID, Source: sp.Point(), Target: tp.Point()})
	}
	slices.SortFunc(matched, func(a, b Pair) int { return a.ID - b.ID })
	return matched
}

// Sources returns the source locations in matched order.
func (m MatchedSet) Sources() []geometry.Point2D {
	pts := make([]geometry.Point2D, len(m))
	for i, p := range m {
		pts[i] = p.Source
	}
	return pts
}

// Targets returns the target locations in matched order.
func (m MatchedSet) Targets() []geometry.Point2D {
	pts := make([]geometry.Point2D, len(m))
	for i, p := range m {
		pts[i] = p.Target
	}
	return pts
}

// Split rebuilds the per-image point sets sharing the matched IDs.
func (m MatchedSet) Split() (source, target []ControlPoint) {
	source = make([]ControlPoint, len(m))
	target = make([]ControlPoint, len(m))
	for i, p := range m {
		source[i] = ControlPoint{ID: p.ID, X: p.Source.X, Y: p.Source.Y}
		target[i] = ControlPoint{ID: p.ID, X: p.Target.X, Y: p.Target.Y}
	}
	return source, target
}
