package filematch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkdir creates a directory holding empty files with the given names.
func mkdir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	return dir
}

func bases(paths []string) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

func TestAlphabeticalPairsBySortOrder(t *testing.T) {
	src := mkdir(t, "b.png", "a.png")
	dst := mkdir(t, "y.png", "x.png")

	res, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, Strategy: Alphabetical})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, bases(res.Source))
	assert.Equal(t, []string{"x.png", "y.png"}, bases(res.Target))
	assert.Nil(t, res.Coords)
}

func TestAlphabeticalSortsByStem(t *testing.T) {
	// By full name "a.b.png" < "a.png", by stem "a" < "a.b".
	src := mkdir(t, "a.b.png", "a.png")
	dst := mkdir(t, "1.tif", "2.tif")

	res, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, Strategy: Alphabetical})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "a.b.png"}, bases(res.Source))
}

func TestAlphabeticalCountMismatch(t *testing.T) {
	src := mkdir(t, "a.png", "b.png")
	dst := mkdir(t, "x.png")

	_, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, Strategy: Alphabetical})
	var countErr *MatchCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 1, countErr.Got)
	assert.Equal(t, 2, countErr.Expected)

	crd := mkdir(t, "a.csv")
	dst = mkdir(t, "x.png", "y.png")
	_, err = Match(context.Background(), Request{SourceDir: src, TargetDir: dst, CoordsDir: crd, Strategy: Alphabetical})
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, "coordinate files", countErr.What)
}

func TestAlphabeticalWithCoords(t *testing.T) {
	src := mkdir(t, "a.png", "b.png")
	dst := mkdir(t, "x.png", "y.png")
	crd := mkdir(t, "q.CSV", "p.csv", "notes.txt")

	res, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, CoordsDir: crd, Strategy: Alphabetical})
	require.NoError(t, err)
	assert.Equal(t, []string{"p.csv", "q.CSV"}, bases(res.Coords))
	assert.Equal(t, len(res.Source), len(res.Target))
	assert.Equal(t, len(res.Source), len(res.Coords))
}

func TestFilenameDropsUnmatched(t *testing.T) {
	src := mkdir(t, "img1.png", "img2.png")
	dst := mkdir(t, "img1.tif")

	res, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, Strategy: Filename})
	require.NoError(t, err)
	assert.Equal(t, []string{"img1.png"}, bases(res.Source))
	assert.Equal(t, []string{"img1.tif"}, bases(res.Target))
}

func TestFilenameRequiresCoordsMatch(t *testing.T) {
	src := mkdir(t, "img1.png", "img2.png", "img3.png")
	dst := mkdir(t, "img1.tif", "img2.tif")
	crd := mkdir(t, "img2.csv", "img3.csv", "img1.txt")

	res, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, CoordsDir: crd, Strategy: Filename})
	require.NoError(t, err)
	assert.Equal(t, []string{"img2.png"}, bases(res.Source))
	assert.Equal(t, []string{"img2.tif"}, bases(res.Target))
	assert.Equal(t, []string{"img2.csv"}, bases(res.Coords))
}

func TestFilenameNoMatchesIsEmptyNotError(t *testing.T) {
	res, err := Match(context.Background(), Request{
		SourceDir: mkdir(t, "a.png"),
		TargetDir: mkdir(t, "b.png"),
		Strategy:  Filename,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestRegexComparesMatchedSubstrings(t *testing.T) {
	src := mkdir(t, "slide_001_he.png", "slide_002_he.png", "other.png")
	dst := mkdir(t, "IMC_001.mcd", "IMC_003.mcd")
	crd := mkdir(t, "cells_001.csv", "cells_002.csv")

	res, err := Match(context.Background(), Request{
		SourceDir:   src,
		TargetDir:   dst,
		CoordsDir:   crd,
		Strategy:    Regex,
		SourceRegex: `\d{3}`,
		TargetRegex: `\d{3}`,
		CoordsRegex: `\d{3}`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"slide_001_he.png"}, bases(res.Source))
	assert.Equal(t, []string{"IMC_001.mcd"}, bases(res.Target))
	assert.Equal(t, []string{"cells_001.csv"}, bases(res.Coords))
}

func TestRegexConfigErrors(t *testing.T) {
	src := mkdir(t, "a.png")
	dst := mkdir(t, "a.png")

	_, err := Match(context.Background(), Request{SourceDir: src, TargetDir: dst, Strategy: Regex, SourceRegex: "(", TargetRegex: "a"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "source regex", cfgErr.Field)

	_, err = Match(context.Background(), Request{
		SourceDir: src, TargetDir: dst, CoordsDir: mkdir(t), Strategy: Regex,
		SourceRegex: "a", TargetRegex: "a",
	})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "coordinates regex", cfgErr.Field)
}

func TestListFilesSkipsHiddenAndDirs(t *testing.T) {
	dir := mkdir(t, "a.png", ".hidden.png", "b.PNG")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := ListFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.PNG"}, bases(files))

	files, err = ListFiles(dir, ".png")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.PNG"}, bases(files))
}

func TestMatchErrors(t *testing.T) {
	_, err := Match(context.Background(), Request{Strategy: Strategy(42)})
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)

	_, err = Match(context.Background(), Request{SourceDir: filepath.Join(t.TempDir(), "missing"), TargetDir: t.TempDir(), Strategy: Filename})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]Strategy{"alphabetical": Alphabetical, "Filename": Filename, " regex ": Regex} {
		got, err := ParseStrategy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NotEmpty(t, got.String())
	}
	_, err := ParseStrategy("fuzzy")
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "a.b", Stem("/x/a.b.png"))
	assert.Equal(t, "noext", Stem("noext"))
}
