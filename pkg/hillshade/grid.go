// Package hillshade computes relief shading for digital elevation models.
//
// The pipeline is elevation grid → (dz/dx, dz/dy) → (slope, aspect) →
// intensity. Every stage is a pure function and every derived grid has the
// shape of its input.
package hillshade

import (
	"fmt"
	"math"
)

// Grid is a dense row-major 2-D array of float64 samples.
// Cell (r, c) is stored at Data[r*Cols+c].
type Grid struct {
	Rows int
	Cols int
	Data []float64
}

// NewGrid allocates a zero-filled grid.
func NewGrid(rows, cols int) (Grid, error) {
	if rows < 0 || cols < 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d", ErrInvalidShape, rows, cols)
	}
	return Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}, nil
}

// FromRows builds a grid from a slice of rows. All rows must have equal length.
func FromRows(rows [][]float64) (Grid, error) {
	if len(rows) == 0 {
		return Grid{}, nil
	}
	cols := len(rows[0])
	g := Grid{Rows: len(rows), Cols: cols, Data: make([]float64, 0, len(rows)*cols)}
	for r, row := range rows {
		if len(row) != cols {
			return Grid{}, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrShapeMismatch, r, len(row), cols)
		}
		g.Data = append(g.Data, row...)
	}
	return g, nil
}

// FromData wraps data without copying. len(data) must equal rows*cols.
func FromData(rows, cols int, data []float64) (Grid, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return Grid{}, fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidShape, rows, cols, len(data))
	}
	return Grid{Rows: rows, Cols: cols, Data: data}, nil
}

// At returns the sample at (r, c). Out-of-range coordinates read as 0,
// which is the padding the convolution uses.
func (g Grid) At(r, c int) float64 {
	if r < 0 || c < 0 || r >= g.Rows || c >= g.Cols {
		return 0
	}
	return g.Data[r*g.Cols+c]
}

// Set stores v at (r, c).
func (g Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// SameShape reports whether g and o have identical dimensions.
func (g Grid) SameShape(o Grid) bool {
	return g.Rows == o.Rows && g.Cols == o.Cols
}

// Len returns the number of cells.
func (g Grid) Len() int {
	return g.Rows * g.Cols
}

// Clone returns a deep copy.
func (g Grid) Clone() Grid {
	data := make([]float64, len(g.Data))
	copy(data, g.Data)
	return Grid{Rows: g.Rows, Cols: g.Cols, Data: data}
}

// Shade is the output intensity raster, row-major, values in [0, 255].
type Shade struct {
	Rows int
	Cols int
	Data []float32
}

// At returns the intensity at (r, c).
func (s Shade) At(r, c int) float32 {
	return s.Data[r*s.Cols+c]
}

// Range returns the minimum and maximum intensity.
// An empty raster yields (0, 0).
func (s Shade) Range() (min, max float32) {
	if len(s.Data) == 0 {
		return 0, 0
	}
	min, max = s.Data[0], s.Data[0]
	for _, v := range s.Data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Mean returns the average intensity, or 0 for an empty raster.
func (s Shade) Mean() float64 {
	if len(s.Data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s.Data {
		sum += float64(v)
	}
	return sum / float64(len(s.Data))
}

func checkShape(a, b Grid) error {
	if !a.SameShape(b) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrShapeMismatch, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	if len(a.Data) != a.Len() || len(b.Data) != b.Len() {
		return fmt.Errorf("%w: data length does not match dimensions", ErrInvalidShape)
	}
	return nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
