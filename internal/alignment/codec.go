package alignment

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"imcreg/pkg/geometry"
)

// ErrBadTransformFile is returned when a transform artifact cannot be decoded.
var ErrBadTransformFile = errors.New("bad transform file")

var npyMagic = []byte("\x93NUMPY")

var (
	npyDescr   = regexp.MustCompile(`'descr'\s*:\s*'([<>|=]?f8)'`)
	npyFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShape   = regexp.MustCompile(`'shape'\s*:\s*\(\s*(\d+)\s*,\s*(\d+)\s*,?\s*\)`)
)

// transformJSON is the on-disk JSON form of a transform.
type transformJSON struct {
	Matrix [3][3]float64 `json:"matrix"`
}

// SaveTransform writes a transform artifact. The format follows the file
// extension: ".npy" (NumPy array, float64, shape (3, 3)) or ".json".
func SaveTransform(path string, t geometry.Transform) error {
	var buf bytes.Buffer
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		if err := WriteNPY(&buf, t); err != nil {
			return err
		}
	case ".json":
		data, err := json.MarshalIndent(transformJSON{Matrix: t}, "", "  ")
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	default:
		return fmt.Errorf("%w: unsupported extension %q", ErrBadTransformFile, filepath.Ext(path))
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadTransform reads a transform artifact written by SaveTransform or by
// numpy.save. A 2×3 affine matrix is accepted and completed with [0 0 1].
func LoadTransform(path string) (geometry.Transform, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.Transform{}, err
	}
	defer f.Close()

	var t geometry.Transform
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		t, err = ReadNPY(bufio.NewReader(f))
	case ".json":
		var doc transformJSON
		if err = json.NewDecoder(f).Decode(&doc); err != nil {
			err = fmt.Errorf("%w: %v", ErrBadTransformFile, err)
		}
		t = doc.Matrix
	default:
		err = fmt.Errorf("%w: unsupported extension %q", ErrBadTransformFile, filepath.Ext(path))
	}
	if err != nil {
		return geometry.Transform{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteNPY encodes a transform in NumPy format version 1.0.
func WriteNPY(w io.Writer, t geometry.Transform) error {
	header := "{'descr': '<f8', 'fortran_order': False, 'shape': (3, 3), }"
	// magic(6) + version(2) + length(2) + header + '\n' is padded to 64 bytes.
	total := len(npyMagic) + 4 + len(header) + 1
	if rem := total % 64; rem != 0 {
		header += strings.Repeat(" ", 64-rem)
	}
	header += "\n"

	var buf bytes.Buffer
	buf.Write(npyMagic)
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for i := range t {
		for _, v := range t[i] {
			_ = binary.Write(&buf, binary.LittleEndian, v)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ReadNPY decodes a float64 array of shape (3, 3) or (2, 3).
func ReadNPY(r io.Reader) (geometry.Transform, error) {
	prefix := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return geometry.Transform{}, fmt.Errorf("%w: %v", ErrBadTransformFile, err)
	}
	if !bytes.Equal(prefix[:len(npyMagic)], npyMagic) {
		return geometry.Transform{}, fmt.Errorf("%w: not a .npy file", ErrBadTransformFile)
	}

	var headerLen int
	switch major := prefix[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return geometry.Transform{}, fmt.Errorf("%w: %v", ErrBadTransformFile, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return geometry.Transform{}, fmt.Errorf("%w: %v", ErrBadTransformFile, err)
		}
		headerLen = int(n)
	default:
		return geometry.Transform{}, fmt.Errorf("%w: unsupported .npy version %d", ErrBadTransformFile, major)
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return geometry.Transform{}, fmt.Errorf("%w: %v", ErrBadTransformFile, err)
	}

	descr := npyDescr.FindSubmatch(header)
	if descr == nil {
		return geometry.Transform{}, fmt.Errorf("%w: only float64 arrays are supported", ErrBadTransformFile)
	}
	var order binary.ByteOrder = binary.LittleEndian
	if descr[1][0] == '>' {
		order = binary.BigEndian
	}
	fortran := npyFortran.FindSubmatch(header)
	if fortran == nil {
		return geometry.Transform{}, fmt.Errorf("%w: missing fortran_order", ErrBadTransformFile)
	}
	shape := npyShape.FindSubmatch(header)
	if shape == nil {
		return geometry.Transform{}, fmt.Errorf("%w: expected a 2-d array", ErrBadTransformFile)
	}
	rows, _ := strconv.Atoi(string(shape[1]))
	cols, _ := strconv.Atoi(string(shape[2]))
	if (rows != 3 && rows != 2) || cols != 3 {
		return geometry.Transform{}, fmt.Errorf("%w: unexpected shape (%d, %d)", ErrBadTransformFile, rows, cols)
	}

	values := make([]float64, rows*cols)
	if err := binary.Read(r, order, values); err != nil {
		return geometry.Transform{}, fmt.Errorf("%w: %v", ErrBadTransformFile, err)
	}

	t := geometry.Identity()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if string(fortran[1]) == "True" {
				t[i][j] = values[j*rows+i]
			} else {
				t[i][j] = values[i*cols+j]
			}
		}
	}
	if !t.IsFinite() {
		return geometry.Transform{}, fmt.Errorf("%w: non-finite entries", ErrBadTransformFile)
	}
	return t, nil
}
