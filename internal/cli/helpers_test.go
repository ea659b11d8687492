package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

// execute runs a freshly built command with args and captures its output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	return captureOutput(t, cmd.Execute)
}

// resetFlags restores the global output flags.
func resetFlags(t *testing.T, asJSON bool) {
	t.Helper()
	quiet = false
	verbose = false
	jsonOut = asJSON
	registerDryRun = false
	registerSkipImages = false
	residualsKind = "all"
	residualsTransform = ""
}

// assertJSON checks that output is valid JSON and decodes it into v.
func assertJSON(t *testing.T, output string, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected ...string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, f.Close())
}

// translatedPoints is a matched control points file related by a (5, -3)
// translation.
const translatedPoints = ",x_source,y_source,x_target,y_target\n" +
	"1,0,0,5,-3\n" +
	"2,100,0,105,-3\n" +
	"3,0,100,5,97\n" +
	"4,100,100,105,97\n"
