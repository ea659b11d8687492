package controlpoints

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"imcreg/pkg/geometry"
)

// ErrMalformed is returned when a matched control points file cannot be parsed.
var ErrMalformed = errors.New("malformed control points file")

// Columns of the matched control points table. The unnamed leading column
// holds the shared control point ID.
var columns = []string{"x_source", "y_source", "x_target", "y_target"}

// Write encodes the matched set as CSV with the ID as row index.
func Write(w io.Writer, m MatchedSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{""}, columns...)); err != nil {
		return err
	}
	for _, p := range m {
		record := []string{
			strconv.Itoa(p.ID),
			formatFloat(p.Source.X),
			formatFloat(p.Source.Y),
			formatFloat(p.Target.X),
			formatFloat(p.Target.Y),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a matched control points table. The header's index column
// may be empty or named "id"; the remaining columns may appear in any order.
func Read(r io.Reader) (MatchedSet, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return MatchedSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	idCol := 0
	if i, ok := idx["id"]; ok {
		idCol = i
	}
	cols := make([]int, len(columns))
	for i, name := range columns {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformed, name)
		}
		cols[i] = c
	}

	matched := MatchedSet{}
	seen := make(map[int]bool)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[idCol]))
		if err != nil || id <= 0 || seen[id] {
			return nil, fmt.Errorf("%w: line %d: bad id %q", ErrMalformed, line, record[idCol])
		}
		seen[id] = true

		var v [4]float64
		for i, c := range cols {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(record[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s: %v", ErrMalformed, line, columns[i], err)
			}
		}
		matched = append(matched, Pair{
			ID:     id,
			Source: geometry.Point2D{X: v[0], Y: v[1]},
			Target: geometry.Point2D{X: v[2], Y: v[3]},
		})
	}
	return matched, nil
}

// Load reads a matched control points file.
func Load(path string) (MatchedSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Save writes a matched control points file, replacing any existing one.
func Save(path string, m MatchedSet) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
