// Package coords reads, writes and projects tables of pixel coordinates.
package coords

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"imcreg/pkg/geometry"
)

// Coordinate column names.
const (
	ColumnX = "X"
	ColumnY = "Y"
)

// ErrMissingColumn is returned when a table has no X or Y column.
var ErrMissingColumn = errors.New("coordinate table is missing an X or Y column")

// CellError reports an X or Y cell that is not a number.
type CellError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("row %d column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}

// Table is a row-oriented coordinate table. Every cell is kept as read so
// columns other than X and Y round-trip unchanged.
type Table struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Columns returns the indexes of the X and Y columns.
func (t *Table) Columns() (x, y int, err error) {
	x = slices.Index(t.Header, ColumnX)
	y = slices.Index(t.Header, ColumnY)
	if x < 0 || y < 0 {
		return -1, -1, ErrMissingColumn
	}
	return x, y, nil
}

// Points parses the X and Y columns.
func (t *Table) Points() ([]geometry.Point2D, error) {
	xi, yi, err := t.Columns()
	if err != nil {
		return nil, err
	}
	pts := make([]geometry.Point2D, len(t.Rows))
	for r, row := range t.Rows {
		x, err := parseCell(row, r, xi, ColumnX)
		if err != nil {
			return nil, err
		}
		y, err := parseCell(row, r, yi, ColumnY)
		if err != nil {
			return nil, err
		}
		pts[r] = geometry.Point2D{X: x, Y: y}
	}
	return pts, nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{Header: slices.Clone(t.Header), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		c.Rows[i] = slices.Clone(row)
	}
	return c
}

// Project maps every row's X and Y through the transform and returns a new
// table; other cells, row order and row count are preserved. A nil
// transform yields a nil table.
func Project(t *Table, transform *geometry.Transform) (*Table, error) {
	if transform == nil || t == nil {
		return nil, nil
	}

	pts, err := t.Points()
	if err != nil {
		return nil, err
	}
	xi, yi, _ := t.Columns()

	out := t.Clone()
	for r, p := range pts {
		q := transform.Apply(p)
		out.Rows[r][xi] = formatFloat(q.X)
		out.Rows[r][yi] = formatFloat(q.Y)
	}
	return out, nil
}

// Read decodes a CSV table with a header row and no index column.
// An empty input yields an empty table.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Write encodes the table as CSV without an index column.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// Load reads a coordinate table file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Save writes a coordinate table file, replacing any existing one.
func Save(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseCell(row []string, r, col int, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, &CellError{Row: r, Column: name, Value: row[col], Err: err}
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
