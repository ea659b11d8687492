// Package filematch pairs up corresponding files across source, target and
// optional coordinate directories.
package filematch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrUnsupportedStrategy is returned for an unknown matching strategy.
var ErrUnsupportedStrategy = errors.New("unsupported file matching strategy")

// Strategy selects how files in different directories are paired.
type Strategy int

const (
	Alphabetical Strategy = iota + 1
	Filename
	Regex
)

func (s Strategy) String() string {
	switch s {
	case Alphabetical:
		return "alphabetical"
	case Filename:
		return "filename"
	case Regex:
		return "regex"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a strategy name (case-insensitive) to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "alphabetical":
		return Alphabetical, nil
	case "filename":
		return Filename, nil
	case "regex":
		return Regex, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
}

// MatchCountError reports directories that cannot be paired positionally
// because they hold different numbers of files.
type MatchCountError struct {
	What     string
	Got      int
	Expected int
}

func (e *MatchCountError) Error() string {
	return fmt.Sprintf("number of %s (%d) does not match the number of source images (%d)", e.What, e.Got, e.Expected)
}

// ConfigError reports an unusable matching request.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Request describes the directories to match.
type Request struct {
	SourceDir string
	TargetDir string
	// CoordsDir is optional; only .csv files are considered.
	CoordsDir string

	Strategy Strategy

	// Patterns for the Regex strategy. CoordsRegex is required only when
	// CoordsDir is set.
	SourceRegex string
	TargetRegex string
	CoordsRegex string
}

// Result holds position-aligned file lists. Coords is nil when no
// coordinates directory was requested.
type Result struct {
	Source []string
	Target []string
	Coords []string
}

// Len returns the number of matched pairs.
func (r Result) Len() int {
	return len(r.Source)
}

// criterion decides whether candidate corresponds to source.
type criterion func(candidate, source string) bool

// Match lists the request's directories and pairs their files.
func Match(ctx context.Context, req Request) (Result, error) {
	var match func(source, target, coords []string) (Result, error)

	switch req.Strategy {
	case Alphabetical:
		match = matchAlphabetical
	case Filename:
		match = func(source, target, coords []string) (Result, error) {
			return matchBy(source, target, coords, sameStem, sameStem), nil
		}
	case Regex:
		targetFn, coordsFn, err := regexCriteria(req)
		if err != nil {
			return Result{}, err
		}
		match = func(source, target, coords []string) (Result, error) {
			return matchBy(source, target, coords, targetFn, coordsFn), nil
		}
	default:
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedStrategy, req.Strategy)
	}

	source, target, coords, err := listAll(ctx, req)
	if err != nil {
		return Result{}, err
	}

	res, err := match(source, target, coords)
	if err != nil {
		return Result{}, err
	}
	log.Printf("match: %s strategy paired %d of %d source files", req.Strategy, res.Len(), len(source))
	return res, nil
}

// listAll reads the three directories concurrently.
func listAll(ctx context.Context, req Request) (source, target, coords []string, err error) {
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		source, err = ListFiles(req.SourceDir, "")
		return err
	})
	g.Go(func() (err error) {
		target, err = ListFiles(req.TargetDir, "")
		return err
	})
	if req.CoordsDir != "" {
		g.Go(func() (err error) {
			coords, err = ListFiles(req.CoordsDir, ".csv")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	return source, target, coords, nil
}

// ListFiles returns the regular, non-hidden files of dir in directory order
// (lexical by name). A non-empty suffix filters by extension, ignoring case.
func ListFiles(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if suffix != "" && !strings.EqualFold(filepath.Ext(name), suffix) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// Stem returns the file name without directory and final extension.
func Stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func matchAlphabetical(source, target, coords []string) (Result, error) {
	sortByStem(source)
	sortByStem(target)
	if len(target) != len(source) {
		return Result{}, &MatchCountError{What: "target images", Got: len(target), Expected: len(source)}
	}
	if coords != nil {
		sortByStem(coords)
		if len(coords) != len(source) {
			return Result{}, &MatchCountError{What: "coordinate files", Got: len(coords), Expected: len(source)}
		}
	}
	return Result{Source: source, Target: target, Coords: coords}, nil
}

func sortByStem(files []string) {
	slices.SortStableFunc(files, func(a, b string) int {
		if c := strings.Compare(Stem(a), Stem(b)); c != 0 {
			return c
		}
		return strings.Compare(filepath.Base(a), filepath.Base(b))
	})
}

// matchBy keeps each source file for which a target (and, when coords is
// non-nil, a coordinates file) satisfies the criterion. Unmatched source
// files are dropped.
func matchBy(source, target, coords []string, targetFn, coordsFn criterion) Result {
	res := Result{Source: []string{}, Target: []string{}}
	if coords != nil {
		res.Coords = []string{}
	}

	for _, src := range source {
		tgt, ok := first(target, src, targetFn)
		if !ok {
			continue
		}
		var crd string
		if coords != nil {
			crd, ok = first(coords, src, coordsFn)
			if !ok {
				continue
			}
		}
		res.Source = append(res.Source, src)
		res.Target = append(res.Target, tgt)
		if coords != nil {
			res.Coords = append(res.Coords, crd)
		}
	}
	return res
}

func first(candidates []string, source string, fn criterion) (string, bool) {
	for _, c := range candidates {
		if fn(c, source) {
			return c, true
		}
	}
	return "", false
}

func sameStem(candidate, source string) bool {
	return Stem(candidate) == Stem(source)
}

func regexCriteria(req Request) (targetFn, coordsFn criterion, err error) {
	sourceRe, err := compile("source regex", req.SourceRegex)
	if err != nil {
		return nil, nil, err
	}
	targetRe, err := compile("target regex", req.TargetRegex)
	if err != nil {
		return nil, nil, err
	}
	targetFn = regexCriterion(targetRe, sourceRe)

	if req.CoordsDir != "" {
		coordsRe, err := compile("coordinates regex", req.CoordsRegex)
		if err != nil {
			return nil, nil, err
		}
		coordsFn = regexCriterion(coordsRe, sourceRe)
	}
	return targetFn, coordsFn, nil
}

func compile(field, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, &ConfigError{Field: field, Err: errors.New("pattern is required for regex matching")}
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &ConfigError{Field: field, Err: err}
	}
	return re, nil
}

// regexCriterion compares the first match of each pattern against the file
// name. A name that does not match its pattern never corresponds.
func regexCriterion(candidateRe, sourceRe *regexp.Regexp) criterion {
	return func(candidate, source string) bool {
		c := candidateRe.FindStringIndex(filepath.Base(candidate))
		s := sourceRe.FindStringIndex(filepath.Base(source))
		if c == nil || s == nil {
			return false
		}
		return filepath.Base(candidate)[c[0]:c[1]] == filepath.Base(source)[s[0]:s[1]]
	}
}
