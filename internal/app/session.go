// Package app provides the registration session: navigation over matched
// image pairs, control point edits and the persistence that follows them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"

	"imcreg/internal/alignment"
	"imcreg/internal/controlpoints"
	"imcreg/internal/coords"
	"imcreg/internal/filematch"
	"imcreg/internal/navigator"
	"imcreg/pkg/geometry"
)

// ErrNoPair is returned by edits while no pair is displayed.
var ErrNoPair = errors.New("no image pair is loaded")

// State is the session's display state.
type State int

const (
	StateEmpty State = iota
	StateDisplaying
)

func (s State) String() string {
	if s == StateDisplaying {
		return "displaying"
	}
	return "empty"
}

// Update is the refreshed state handed back after an edit.
type Update struct {
	Matched controlpoints.MatchedSet
	// Transform is the estimated transform, JointTransform the one applied to
	// coordinates. Both are nil until enough points are matched.
	Transform         *geometry.Transform
	JointTransform    *geometry.Transform
	Residuals         []float64
	TransformedCoords *coords.Table
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithViewers attaches the image collaborators for the source and target roles.
func WithViewers(source, target Viewer) Option {
	return func(s *Session) {
		s.viewers = [2]Viewer{source, target}
	}
}

// Session holds the registration state of the current image pair.
type Session struct {
	mu  sync.Mutex
	lmu sync.RWMutex

	cfg     Config
	logger  *log.Logger
	nav     *navigator.Navigator
	viewers [2]Viewer

	pre, post *geometry.Transform

	state  State
	points [2]*controlpoints.PointSet

	matched           controlpoints.MatchedSet
	transform         *geometry.Transform
	joint             *geometry.Transform
	sourceCoords      *coords.Table
	transformedCoords *coords.Table

	writesSuppressed bool

	listeners map[EventType][]EventListener
	pending   []event
}

// NewSession validates the configuration, matches files, loads the fixed
// transforms and displays the first pair. Any failure aborts construction.
func NewSession(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:       cfg,
		logger:    log.Default(),
		listeners: make(map[EventType][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.pre, err = s.loadFixedTransform("pre", cfg.PreTransform); err != nil {
		return nil, err
	}
	if s.post, err = s.loadFixedTransform("post", cfg.PostTransform); err != nil {
		return nil, err
	}

	var set navigator.Set
	if cfg.Files != nil {
		set = navigator.Single(*cfg.Files)
	} else {
		res, err := filematch.Match(ctx, cfg.Dirs.Match)
		if err != nil {
			return nil, err
		}
		set = navigator.FromMatch(res, cfg.Dirs.Destinations)
	}
	if s.nav, err = navigator.New(set); err != nil {
		return nil, err
	}

	if cfg.Dirs != nil {
		if err := makeDirs(cfg.Dirs.Destinations); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.unlock()
	if err := s.load(); err != nil {
		s.closeViewers()
		return nil, err
	}
	return s, nil
}

func (s *Session) loadFixedTransform(name, path string) (*geometry.Transform, error) {
	if path == "" {
		return nil, nil
	}
	t, err := alignment.LoadTransform(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Printf("session: %s-transform %s not found, ignoring", name, path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s-transform: %w", name, err)
	}
	return &t, nil
}

func makeDirs(d navigator.Destinations) error {
	for _, dir := range []string{d.ControlPointsDir, d.TransformDir, d.TransformedCoordsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Next displays the following pair, wrapping around.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.unlock()
	s.nav.Next()
	return s.load()
}

// Prev displays the preceding pair, wrapping around.
func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.unlock()
	s.nav.Prev()
	return s.load()
}

// Seek displays pair i.
func (s *Session) Seek(i int) error {
	s.mu.Lock()
	defer s.unlock()
	if err := s.nav.Seek(i); err != nil {
		return err
	}
	return s.load()
}

// Reload re-reads the current pair from disk.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.unlock()
	return s.load()
}

// suppressWrites disables persistence until the returned function is called.
func (s *Session) suppressWrites() (restore func()) {
	prev := s.writesSuppressed
	s.writesSuppressed = true
	return func() {
		s.writesSuppressed = prev
	}
}

// load displays the navigator's current pair. It re-materialises the saved
// control points through the same path as an edit, with writes suppressed.
func (s *Session) load() error {
	defer s.suppressWrites()()

	s.state = StateEmpty
	pair := s.nav.Current()

	if err := s.openViewers(pair); err != nil {
		return err
	}

	var matched controlpoints.MatchedSet
	if isFile(pair.ControlPoints) {
		m, err := controlpoints.Load(pair.ControlPoints)
		if err != nil {
			return err
		}
		matched = m
	}
	src, dst := matched.Split()
	for role, pts := range [][]controlpoints.ControlPoint{src, dst} {
		set, err := controlpoints.NewPointSet(pts...)
		if err != nil {
			return fmt.Errorf("%s: %w", pair.ControlPoints, err)
		}
		s.points[role] = set
	}

	s.sourceCoords = nil
	if pair.SourceCoords != "" && isFile(pair.SourceCoords) {
		t, err := coords.Load(pair.SourceCoords)
		if err != nil {
			return err
		}
		if t.Len() > 0 {
			if _, err := t.Points(); err != nil {
				return fmt.Errorf("%s: %w", pair.SourceCoords, err)
			}
			s.sourceCoords = t
		}
	}

	s.state = StateDisplaying
	if _, err := s.commit(); err != nil {
		return err
	}

	s.logger.Printf("session: loaded pair %d/%d (%s -> %s), %d matched control points",
		s.nav.Index()+1, s.nav.Len(), pair.Source, pair.Target, len(s.matched))
	s.queue(EventPairLoaded, pair)
	return nil
}

func (s *Session) openViewers(pair navigator.Pair) error {
	for role, path := range []string{pair.Source, pair.Target} {
		v := s.viewers[role]
		if v == nil {
			continue
		}
		if err := v.Close(); err != nil {
			return fmt.Errorf("closing %s image: %w", controlpoints.Role(role), err)
		}
		if err := v.Open(path); err != nil {
			return fmt.Errorf("opening %s image: %w", controlpoints.Role(role), err)
		}
	}
	return nil
}

func (s *Session) closeViewers() {
	for role, v := range s.viewers {
		if v == nil {
			continue
		}
		if err := v.Close(); err != nil {
			s.logger.Printf("session: closing %s image: %v", controlpoints.Role(role), err)
		}
	}
}

// Close releases the viewers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.unlock()
	s.closeViewers()
	s.state = StateEmpty
}

// OnControlPointsChanged replaces the point set of one image and persists
// the matched points, the joint transform and the transformed coordinates,
// in that order. A failed write is returned; the edit stays applied.
func (s *Session) OnControlPointsChanged(role controlpoints.Role, points []controlpoints.ControlPoint) (Update, error) {
	s.mu.Lock()
	defer s.unlock()
	return s.edit(role, func(set *controlpoints.PointSet) error {
		return set.Replace(points)
	})
}

// AddPoint places a new control point and returns its ID.
func (s *Session) AddPoint(role controlpoints.Role, x, y float64) (int, Update, error) {
	s.mu.Lock()
	defer s.unlock()
	var id int
	u, err := s.edit(role, func(set *controlpoints.PointSet) error {
		id = set.Add(x, y)
		return nil
	})
	return id, u, err
}

// AddPair places a correspondence on both images under one new ID, taken
// past the high-water mark of either set, and persists once.
func (s *Session) AddPair(src, dst geometry.Point2D) (int, Update, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.state != StateDisplaying {
		return 0, Update{}, ErrNoPair
	}

	source := s.points[controlpoints.Source].Clone()
	target := s.points[controlpoints.Target].Clone()
	id := max(source.NextID(), target.NextID())
	if err := source.Replace(append(source.Points(), controlpoints.ControlPoint{ID: id, X: src.X, Y: src.Y})); err != nil {
		return 0, Update{}, err
	}
	if err := target.Replace(append(target.Points(), controlpoints.ControlPoint{ID: id, X: dst.X, Y: dst.Y})); err != nil {
		return 0, Update{}, err
	}
	s.points[controlpoints.Source] = source
	s.points[controlpoints.Target] = target
	u, err := s.commit()
	return id, u, err
}

// MovePoint relocates a control point.
func (s *Session) MovePoint(role controlpoints.Role, id int, x, y float64) (Update, error) {
	s.mu.Lock()
	defer s.unlock()
	return s.edit(role, func(set *controlpoints.PointSet) error {
		return set.Move(id, x, y)
	})
}

// DeletePoint removes a control point.
func (s *Session) DeletePoint(role controlpoints.Role, id int) (Update, error) {
	s.mu.Lock()
	defer s.unlock()
	return s.edit(role, func(set *controlpoints.PointSet) error {
		return set.Delete(id)
	})
}

// Save persists the current state of the pair as an edit would.
func (s *Session) Save() (Update, error) {
	s.mu.Lock()
	defer s.unlock()
	if s.state != StateDisplaying {
		return Update{}, ErrNoPair
	}
	return s.commit()
}

// edit applies fn to a copy of the role's point set and commits it. The
// copy is discarded if fn fails.
func (s *Session) edit(role controlpoints.Role, fn func(*controlpoints.PointSet) error) (Update, error) {
	if s.state != StateDisplaying {
		return Update{}, ErrNoPair
	}
	if role != controlpoints.Source && role != controlpoints.Target {
		return Update{}, fmt.Errorf("unsupported image role %v", role)
	}

	set := s.points[role].Clone()
	if err := fn(set); err != nil {
		return Update{}, err
	}
	s.points[role] = set
	return s.commit()
}

// commit recomputes the derived state from the point sets and, unless
// writes are suppressed, persists it.
func (s *Session) commit() (Update, error) {
	s.matched = controlpoints.Match(s.points[controlpoints.Source], s.points[controlpoints.Target])

	transform, err := alignment.Estimate(s.cfg.Kind, s.matched)
	if err != nil {
		return Update{}, err
	}
	s.transform = transform
	s.joint = alignment.Compose(transform, s.pre, s.post)
	s.queue(EventTransformChanged, s.joint)

	s.transformedCoords, err = coords.Project(s.sourceCoords, s.joint)
	if err != nil {
		return Update{}, err
	}

	u := s.update()
	if s.writesSuppressed {
		return u, nil
	}
	return u, s.persist()
}

func (s *Session) persist() error {
	pair := s.nav.Current()

	if err := controlpoints.Save(pair.ControlPoints, s.matched); err != nil {
		return fmt.Errorf("saving control points: %w", err)
	}
	s.queue(EventControlPointsSaved, pair.ControlPoints)

	if s.joint != nil {
		if err := alignment.SaveTransform(pair.Transform, *s.joint); err != nil {
			return fmt.Errorf("saving transform: %w", err)
		}
		s.queue(EventTransformSaved, pair.Transform)
	}

	if s.transformedCoords != nil && pair.TransformedCoords != "" {
		if err := coords.Save(pair.TransformedCoords, s.transformedCoords); err != nil {
			return fmt.Errorf("saving transformed coordinates: %w", err)
		}
		s.queue(EventTransformedCoordsSaved, pair.TransformedCoords)
	}
	return nil
}

func (s *Session) update() Update {
	u := Update{
		Matched:           s.matched,
		Transform:         s.transform,
		JointTransform:    s.joint,
		TransformedCoords: s.transformedCoords,
	}
	if s.transform != nil {
		u.Residuals = alignment.Residuals(*s.transform, s.matched)
	}
	return u
}

// State returns the display state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Index returns the position of the current pair.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Index()
}

// Len returns the number of pairs.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Len()
}

// Current returns the paths of the current pair.
func (s *Session) Current() navigator.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// Pairs returns the paths of every pair.
func (s *Session) Pairs() []navigator.Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Pairs()
}

// Kind returns the transform family being estimated.
func (s *Session) Kind() alignment.TransformKind {
	return s.cfg.Kind
}

// Points returns the control points of one image.
func (s *Session) Points(role controlpoints.Role) []controlpoints.ControlPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.points[role] == nil {
		return nil
	}
	return s.points[role].Points()
}

// Snapshot returns the derived state of the current pair.
func (s *Session) Snapshot() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update()
}

// Matched returns the matched control points of the current pair.
func (s *Session) Matched() controlpoints.MatchedSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matched
}

// Transform returns the estimated transform, nil when absent.
func (s *Session) Transform() *geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transform
}

// JointTransform returns the transform applied to coordinates, nil when absent.
func (s *Session) JointTransform() *geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joint
}

// Residuals returns the per-point residuals of the estimated transform.
func (s *Session) Residuals() []float64 {
	return s.Snapshot().Residuals
}

// TransformedCoords returns the projected coordinate table, if any.
func (s *Session) TransformedCoords() *coords.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transformedCoords
}

// SourceCoords returns the loaded source coordinate table, if any.
func (s *Session) SourceCoords() *coords.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceCoords
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
