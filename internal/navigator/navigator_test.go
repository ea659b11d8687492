package navigator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imcreg/internal/filematch"
)

func threePairs() Set {
	return FromMatch(filematch.Result{
		Source: []string{"/s/a.png", "/s/b.png", "/s/c.png"},
		Target: []string{"/t/x.tif", "/t/y.tif", "/t/z.tif"},
	}, Destinations{ControlPointsDir: "/cp", TransformDir: "/tf"})
}

func TestFromMatchDerivesPathsFromTargetStem(t *testing.T) {
	set := FromMatch(filematch.Result{
		Source: []string{"/s/a.png"},
		Target: []string{"/t/x.ome.tif"},
		Coords: []string{"/c/a.csv"},
	}, Destinations{
		ControlPointsDir:     "/cp",
		TransformDir:         "/tf",
		TransformedCoordsDir: "/out",
		TransformExt:         ExtJSON,
	})

	require.NoError(t, set.Validate())
	assert.Equal(t, Pair{
		Source:            "/s/a.png",
		Target:            "/t/x.ome.tif",
		ControlPoints:     filepath.Join("/cp", "x.ome.csv"),
		Transform:         filepath.Join("/tf", "x.ome.json"),
		SourceCoords:      "/c/a.csv",
		TransformedCoords: filepath.Join("/out", "x.ome.csv"),
	}, set.At(0))
}

func TestFromMatchDefaultsToNPY(t *testing.T) {
	set := threePairs()
	assert.Equal(t, filepath.Join("/tf", "y.npy"), set.At(1).Transform)
	assert.Nil(t, set.TransformedCoords)
	assert.Empty(t, set.At(1).TransformedCoords)
}

func TestNavigatorWrapsAround(t *testing.T) {
	nav, err := New(threePairs())
	require.NoError(t, err)
	assert.Equal(t, 0, nav.Index())
	assert.Equal(t, 3, nav.Len())

	nav.Prev()
	assert.Equal(t, 2, nav.Index())
	assert.Equal(t, "/s/c.png", nav.Current().Source)

	nav.Next()
	assert.Equal(t, 0, nav.Index())
	nav.Next()
	nav.Next()
	nav.Next()
	assert.Equal(t, 0, nav.Index())
}

func TestNavigatorSinglePair(t *testing.T) {
	nav, err := New(Single(Pair{Source: "s.png", Target: "t.png", ControlPoints: "cp.csv", Transform: "tf.npy"}))
	require.NoError(t, err)

	before := nav.Current()
	nav.Next()
	assert.Equal(t, 0, nav.Index())
	assert.Equal(t, before, nav.Current())
	nav.Prev()
	assert.Equal(t, 0, nav.Index())
	assert.Nil(t, Single(before).SourceCoords)
}

func TestNavigatorSeek(t *testing.T) {
	nav, err := New(threePairs())
	require.NoError(t, err)

	require.NoError(t, nav.Seek(2))
	assert.Equal(t, "/t/z.tif", nav.Current().Target)
	assert.ErrorIs(t, nav.Seek(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, nav.Seek(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, nav.Index())
	assert.Len(t, nav.Pairs(), 3)
}

func TestNewRejectsEmptyAndMisaligned(t *testing.T) {
	_, err := New(Set{})
	assert.ErrorIs(t, err, ErrEmptyMatchSet)

	set := threePairs()
	set.SourceCoords = []string{"/c/a.csv"}
	_, err = New(set)
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
	assert.Equal(t, "source coordinates", alignErr.What)
}
