package coords

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imcreg/pkg/geometry"
)

const cells = `cell_id,X,area,Y,label
1,10,52.5,20,"tumor, core"
2,0.5,7,-3,stroma
3,100,1e3,200,
`

func mustRead(t *testing.T, s string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(s))
	require.NoError(t, err)
	return tbl
}

func TestProjectPreservesRowsAndColumns(t *testing.T) {
	in := mustRead(t, cells)
	tf := geometry.Translation(5, -1).Compose(geometry.Scale(2, 2))

	out, err := Project(in, &tf)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, in.Len(), out.Len())
	assert.Equal(t, in.Header, out.Header)

	xi, yi, err := in.Columns()
	require.NoError(t, err)
	pts, err := in.Points()
	require.NoError(t, err)
	got, err := out.Points()
	require.NoError(t, err)

	for r := range in.Rows {
		for c := range in.Rows[r] {
			if c == xi || c == yi {
				continue
			}
			assert.Equal(t, in.Rows[r][c], out.Rows[r][c], "row %d col %d", r, c)
		}
		want := tf.Apply(pts[r])
		assert.InDelta(t, want.X, got[r].X, 1e-12)
		assert.InDelta(t, want.Y, got[r].Y, 1e-12)
	}

	// The input table is not modified.
	assert.Equal(t, "10", in.Rows[0][xi])
	assert.Equal(t, "25", out.Rows[0][xi])
	assert.Equal(t, "39", out.Rows[0][yi])
}

func TestProjectWithoutTransform(t *testing.T) {
	out, err := Project(mustRead(t, cells), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestProjectErrors(t *testing.T) {
	tf := geometry.Identity()

	_, err := Project(mustRead(t, "a,Y\n1,2\n"), &tf)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Project(mustRead(t, "X,Y\n1,abc\n"), &tf)
	var cellErr *CellError
	require.ErrorAs(t, err, &cellErr)
	assert.Equal(t, ColumnY, cellErr.Column)
	assert.Equal(t, 0, cellErr.Row)
}

func TestProjectHeaderOnly(t *testing.T) {
	tf := geometry.Identity()
	out, err := Project(mustRead(t, "X,Y,z\n"), &tf)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"X", "Y", "z"}, out.Header)
}

func TestReadWriteRoundTrip(t *testing.T) {
	in := mustRead(t, cells)
	path := filepath.Join(t.TempDir(), "cells.csv")
	require.NoError(t, Save(path, in))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.Equal(t, cells, buf.String())
}

func TestReadEmpty(t *testing.T) {
	tbl := mustRead(t, "")
	assert.Equal(t, 0, tbl.Len())
	var nilTable *Table
	assert.Equal(t, 0, nilTable.Len())
}

func TestReadRaggedRows(t *testing.T) {
	_, err := Read(strings.NewReader("X,Y\n1,2,3\n"))
	assert.Error(t, err)
}
