// Package raster encodes hillshade intensity rasters as images or arrays.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/Faultbox/relief/pkg/dem"
	"github.com/Faultbox/relief/pkg/hillshade"
)

// ErrUnknownFormat is returned for unrecognised output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding.
type Format int

// Output formats.
const (
	FormatUnknown Format = iota
	FormatPNG
	FormatBMP
	FormatTIFF
	FormatNPY // raw float32 intensities
)

// String returns the canonical format name.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	case FormatNPY:
		return "npy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseFormat maps a name such as "png" or ".tif" to a Format.
// An empty name yields FormatUnknown without error.
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(name), ".") {
	case "":
		return FormatUnknown, nil
	case "png":
		return FormatPNG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "npy":
		return FormatNPY, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatUnknown
	}
	return f
}

// Options controls encoding.
type Options struct {
	Format Format
	// Invert maps full light to black, like matplotlib's "Greys" colormap.
	Invert bool
	// Scale resamples image outputs by this factor. 0 and 1 keep the size.
	// Ignored for NPY.
	Scale float64
}

// Gray converts intensities to an 8-bit grayscale image, rounding to the
// nearest level.
func Gray(s hillshade.Shade, invert bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, s.Cols, s.Rows))
	for r := 0; r < s.Rows; r++ {
		row := img.Pix[r*img.Stride : r*img.Stride+s.Cols]
		for c := range row {
			level := toLevel(s.Data[r*s.Cols+c])
			if invert {
				level = 255 - level
			}
			row[c] = level
		}
	}
	return img
}

func toLevel(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(float64(v)))
}

// Resize scales img by factor using Catmull-Rom resampling.
// Dimensions are rounded and kept at least one pixel.
func Resize(img image.Image, factor float64) *image.Gray {
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*factor)))
	h := max(1, int(math.Round(float64(b.Dy())*factor)))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Image builds the grayscale image Encode would write for an image format.
func Image(s hillshade.Shade, opts Options) image.Image {
	img := Gray(s, opts.Invert)
	if opts.Scale > 0 && opts.Scale != 1 && s.Rows > 0 && s.Cols > 0 {
		return Resize(img, opts.Scale)
	}
	return img
}

// Encode writes s to w.
func Encode(w io.Writer, s hillshade.Shade, opts Options) error {
	if opts.Format == FormatNPY {
		return dem.EncodeNPY(w, s.Rows, s.Cols, s.Data)
	}

	img := Image(s, opts)
	switch opts.Format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, opts.Format)
	}
}

// WriteFile encodes s to path, creating parent directories. When
// opts.Format is FormatUnknown it is taken from the extension.
func WriteFile(path string, s hillshade.Shade, opts Options) error {
	if opts.Format == FormatUnknown {
		opts.Format = FormatFromPath(path)
		if opts.Format == FormatUnknown {
			return fmt.Errorf("%w: cannot infer from %s", ErrUnknownFormat, path)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	if err := Encode(file, s, opts); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", opts.Format, err)
	}
	return file.Close()
}
