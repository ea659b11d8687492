// Package viewer provides a headless image collaborator for sessions run
// without a display. It reads image headers only.
package viewer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Info describes the open image.
type Info struct {
	Path   string  `json:"path"`
	Format string  `json:"format,omitempty"` // empty when the format is not recognised
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPI    float64 `json:"dpi,omitempty"`
}

// Probe implements the session's Viewer by decoding image headers.
type Probe struct {
	mu      sync.Mutex
	logger  *log.Logger
	current *Info
}

// New creates a Probe logging to logger, or to the standard logger if nil.
func New(logger *log.Logger) *Probe {
	if logger == nil {
		logger = log.Default()
	}
	return &Probe{logger: logger}
}

// Open reads the header of the image at path. A file whose format is not
// recognised is still opened, with zero dimensions.
func (p *Probe) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	info := &Info{Path: path}
	cfg, format, err := image.DecodeConfig(f)
	switch {
	case errors.Is(err, image.ErrFormat):
		p.logger.Printf("viewer: %s: unrecognised image format", path)
	case err != nil:
		return fmt.Errorf("failed to decode image header: %w", err)
	default:
		info.Format = format
		info.Width = cfg.Width
		info.Height = cfg.Height
		p.logger.Printf("viewer: opened %s (%s, %dx%d)", filepath.Base(path), format, cfg.Width, cfg.Height)
	}

	if info.Format == "tiff" {
		if dpi, err := tiffDPI(f); err == nil {
			info.DPI = dpi
		}
	}

	p.mu.Lock()
	p.current = info
	p.mu.Unlock()
	return nil
}

// Close forgets the open image.
func (p *Probe) Close() error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

// Info returns the open image, if any.
func (p *Probe) Info() (Info, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Info{}, false
	}
	return *p.current, true
}

// SupportedFormats returns the file extensions with a registered decoder.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
}

// IsSupportedFormat checks if the given path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// TIFF tags and field types used by tiffDPI.
const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimeter = 3
)

// tiffDPI reads the resolution tags of the first IFD.
func tiffDPI(r io.ReaderAt) (float64, error) {
	header := make([]byte, 8)
	if _, err := r.ReadAt(header, 0); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a valid TIFF file")
	}

	ifd := int64(order.Uint32(header[4:8]))
	count := make([]byte, 2)
	if _, err := r.ReadAt(count, ifd); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	unit := uint16(2) // inches
	entry := make([]byte, 12)
	for i := int64(0); i < int64(order.Uint16(count)); i++ {
		if _, err := r.ReadAt(entry, ifd+2+12*i); err != nil {
			return 0, err
		}
		tag := order.Uint16(entry[0:2])
		typ := order.Uint16(entry[2:4])
		switch {
		case tag == tagXResolution && typ == typeRational:
			xRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagYResolution && typ == typeRational:
			yRes = readRational(r, int64(order.Uint32(entry[8:12])), order)
		case tag == tagResolutionUnit && typ == typeShort:
			unit = order.Uint16(entry[8:10])
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags found")
	}
	if unit == unitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

func readRational(r io.ReaderAt, offset int64, order binary.ByteOrder) float64 {
	buf := make([]byte, 8)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return 0
	}
	num, denom := order.Uint32(buf[0:4]), order.Uint32(buf[4:8])
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
