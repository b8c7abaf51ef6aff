// Package dem loads digital elevation models into hillshade grids.
//
// Supported sources are NumPy .npy arrays, ESRI ASCII grids and the
// Ragnarok Online GAT and GND heightmaps. Any of them may be gzip-compressed.
package dem

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/relief/pkg/hillshade"
)

// Decoding errors.
var (
	ErrUnknownFormat = errors.New("unknown elevation format")
	ErrUnsupported   = errors.New("unsupported elevation data")
	ErrTruncated     = errors.New("truncated elevation data")
	ErrMalformed     = errors.New("malformed elevation data")
)

// maxCells bounds the grids any decoder will allocate.
const maxCells = 1 << 28

func checkCells(rows, cols int) error {
	if rows < 0 || cols < 0 || (rows > 0 && cols > maxCells/rows) {
		return fmt.Errorf("%w: %dx%d grid is too large", ErrUnsupported, rows, cols)
	}
	return nil
}

// Format identifies an elevation file format.
type Format int

// Known formats.
const (
	FormatUnknown Format = iota
	FormatNPY
	FormatASCII
	FormatGAT
	FormatGND
)

// String returns the canonical format name.
func (f Format) String() string {
	switch f {
	case FormatNPY:
		return "npy"
	case FormatASCII:
		return "asc"
	case FormatGAT:
		return "gat"
	case FormatGND:
		return "gnd"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseFormat maps a format name (case-insensitive, leading dot optional)
// to a Format. An empty name yields FormatUnknown without error.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "":
		return FormatUnknown, nil
	case "npy":
		return FormatNPY, nil
	case "asc", "ascii", "esri":
		return FormatASCII, nil
	case "gat":
		return FormatGAT, nil
	case "gnd":
		return FormatGND, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath guesses the format from a file extension, looking through
// a trailing .gz.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(trimGzip(path)))
	if err != nil {
		return FormatUnknown
	}
	return f
}

func trimGzip(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		return path[:len(path)-3]
	}
	return path
}

// Decode reads a grid in the given format from r.
func Decode(r io.Reader, f Format) (hillshade.Grid, error) {
	switch f {
	case FormatNPY:
		return DecodeNPY(r)
	case FormatASCII:
		a, err := DecodeASCII(r)
		if err != nil {
			return hillshade.Grid{}, err
		}
		return a.Grid, nil
	case FormatGAT, FormatGND:
		data, err := io.ReadAll(r)
		if err != nil {
			return hillshade.Grid{}, err
		}
		if f == FormatGAT {
			return DecodeGAT(data)
		}
		return DecodeGND(data)
	default:
		return hillshade.Grid{}, fmt.Errorf("%w: %s", ErrUnknownFormat, f)
	}
}

// DecodeBytes decodes an in-memory file, un-gzipping it first when it
// starts with the gzip magic.
func DecodeBytes(data []byte, f Format) (hillshade.Grid, error) {
	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return hillshade.Grid{}, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return Decode(r, f)
}

// Open loads a grid from disk. When f is FormatUnknown the format is taken
// from the file extension.
func Open(path string, f Format) (hillshade.Grid, error) {
	if f == FormatUnknown {
		f = FormatFromPath(path)
		if f == FormatUnknown {
			return hillshade.Grid{}, fmt.Errorf("%w: cannot infer from %s", ErrUnknownFormat, path)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return hillshade.Grid{}, fmt.Errorf("reading elevation file: %w", err)
	}
	g, err := DecodeBytes(data, f)
	if err != nil {
		return hillshade.Grid{}, fmt.Errorf("decoding %s as %s: %w", path, f, err)
	}
	return g, nil
}

// Stats summarises a grid. Min, Max and Mean ignore non-finite cells.
type Stats struct {
	Rows, Cols int
	Min, Max   float64
	Mean       float64
	NonFinite  int
}

// Describe computes Stats for g. With no finite cells Min, Max and Mean are NaN.
func Describe(g hillshade.Grid) Stats {
	s := Stats{Rows: g.Rows, Cols: g.Cols, Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	n := 0
	for _, v := range g.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.NonFinite++
			continue
		}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
		n++
	}
	if n == 0 {
		s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = sum / float64(n)
	return s
}
