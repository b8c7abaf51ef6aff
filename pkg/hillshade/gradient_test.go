package hillshade

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func mustRows(t *testing.T, rows [][]float64) Grid {
	t.Helper()
	g, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	return g
}

// manualConvolve evaluates the flipped-kernel sum at (r, c) directly.
func manualConvolve(g Grid, k Kernel, r, c int) float64 {
	var sum float64
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			sum += k[1-i][1-j] * g.At(r+i, c+j)
		}
	}
	return sum
}

func TestGradients_CenterCell(t *testing.T) {
	g := mustRows(t, [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	})

	dzdx, dzdy, err := Gradients(g)
	if err != nil {
		t.Fatalf("Gradients failed: %v", err)
	}

	// Rows grow by 3 per step, columns by 1. The flipped kernel yields
	// (top - bottom)/8 and (left - right)/8 weighted 1-2-1.
	if got := dzdx.At(1, 1); got != -3 {
		t.Errorf("expected dz/dx -3 at center, got %v", got)
	}
	if got := dzdy.At(1, 1); got != -1 {
		t.Errorf("expected dz/dy -1 at center, got %v", got)
	}

	if want := manualConvolve(g, KernelX, 1, 1) / 8; dzdx.At(1, 1) != want {
		t.Errorf("dz/dx center %v does not match manual sum %v", dzdx.At(1, 1), want)
	}
	if want := manualConvolve(g, KernelY, 1, 1) / 8; dzdy.At(1, 1) != want {
		t.Errorf("dz/dy center %v does not match manual sum %v", dzdy.At(1, 1), want)
	}
}

func TestConvolve3x3_ZeroPadding(t *testing.T) {
	g := mustRows(t, [][]float64{
		{2, 7, 1, 8},
		{2, 8, 1, 8},
		{2, 8, 4, 5},
	})

	for _, k := range []Kernel{KernelX, KernelY} {
		out, err := Convolve3x3(g, k)
		if err != nil {
			t.Fatalf("Convolve3x3 failed: %v", err)
		}
		if !out.SameShape(g) {
			t.Fatalf("expected shape %dx%d, got %dx%d", g.Rows, g.Cols, out.Rows, out.Cols)
		}
		for r := 0; r < g.Rows; r++ {
			for c := 0; c < g.Cols; c++ {
				if got, want := out.At(r, c), manualConvolve(g, k, r, c); got != want {
					t.Errorf("cell (%d,%d): expected %v, got %v", r, c, want, got)
				}
			}
		}
	}
}

func TestConvolve3x3_Corner(t *testing.T) {
	g := mustRows(t, [][]float64{
		{1, 1},
		{1, 1},
	})
	out, err := Convolve3x3(g, KernelX)
	if err != nil {
		t.Fatalf("Convolve3x3 failed: %v", err)
	}
	// Top-left: only the row below exists, weighted -2 (self column) and -1 (right).
	want := mustRows(t, [][]float64{
		{-3, -3},
		{3, 3},
	})
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("unexpected convolution (-want +got):\n%s", diff)
	}
}

func TestGradients_ConstantGrid(t *testing.T) {
	rows := make([][]float64, 5)
	for i := range rows {
		rows[i] = []float64{42, 42, 42, 42, 42, 42}
	}
	g := mustRows(t, rows)

	dzdx, dzdy, err := Gradients(g)
	if err != nil {
		t.Fatalf("Gradients failed: %v", err)
	}
	for r := 1; r < g.Rows-1; r++ {
		for c := 1; c < g.Cols-1; c++ {
			if dzdx.At(r, c) != 0 || dzdy.At(r, c) != 0 {
				t.Errorf("interior cell (%d,%d): expected zero gradient, got (%v, %v)", r, c, dzdx.At(r, c), dzdy.At(r, c))
			}
		}
	}
	// Zero fill makes the border see a drop to 0.
	if dzdx.At(0, 2) >= 0 {
		t.Errorf("expected negative dz/dx on the top edge, got %v", dzdx.At(0, 2))
	}
}

func TestGradients_LinearRamp(t *testing.T) {
	// z = 2*col on a 4x5 grid.
	rows := make([][]float64, 4)
	for r := range rows {
		rows[r] = make([]float64, 5)
		for c := range rows[r] {
			rows[r][c] = 2 * float64(c)
		}
	}
	g := mustRows(t, rows)

	dzdx, dzdy, err := Gradients(g)
	if err != nil {
		t.Fatalf("Gradients failed: %v", err)
	}
	for r := 1; r < g.Rows-1; r++ {
		for c := 1; c < g.Cols-1; c++ {
			if dzdx.At(r, c) != 0 {
				t.Errorf("cell (%d,%d): expected dz/dx 0, got %v", r, c, dzdx.At(r, c))
			}
			// (left - right) * (1+2+1) / 8 = -4 * 4 / 8
			if dzdy.At(r, c) != -2 {
				t.Errorf("cell (%d,%d): expected dz/dy -2, got %v", r, c, dzdy.At(r, c))
			}
		}
	}
}

func TestGradients_DegenerateShapes(t *testing.T) {
	tests := []struct {
		name string
		rows [][]float64
	}{
		{"empty", nil},
		{"single cell", [][]float64{{5}}},
		{"single row", [][]float64{{1, 2, 3, 4}}},
		{"single column", [][]float64{{1}, {2}, {3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustRows(t, tt.rows)
			dzdx, dzdy, err := Gradients(g)
			if err != nil {
				t.Fatalf("Gradients failed: %v", err)
			}
			if !dzdx.SameShape(g) || !dzdy.SameShape(g) {
				t.Errorf("expected shape %dx%d, got %dx%d and %dx%d", g.Rows, g.Cols, dzdx.Rows, dzdx.Cols, dzdy.Rows, dzdy.Cols)
			}
			if len(dzdx.Data) != g.Len() || len(dzdy.Data) != g.Len() {
				t.Errorf("expected %d samples, got %d and %d", g.Len(), len(dzdx.Data), len(dzdy.Data))
			}
		})
	}
}

func TestGradients_SingleCell(t *testing.T) {
	g := mustRows(t, [][]float64{{8}})
	dzdx, dzdy, err := Gradients(g)
	if err != nil {
		t.Fatalf("Gradients failed: %v", err)
	}
	// Centre weights of both kernels are zero.
	if dzdx.Data[0] != 0 || dzdy.Data[0] != 0 {
		t.Errorf("expected zero gradient, got (%v, %v)", dzdx.Data[0], dzdy.Data[0])
	}
}

func TestGradients_NaNPropagates(t *testing.T) {
	g := mustRows(t, [][]float64{
		{1, 1, 1},
		{1, math.NaN(), 1},
		{1, 1, 1},
	})
	dzdx, dzdy, err := Gradients(g)
	if err != nil {
		t.Fatalf("Gradients failed: %v", err)
	}
	// NaN * 0 is NaN, so every cell within reach is poisoned.
	for i := range dzdx.Data {
		if !math.IsNaN(dzdx.Data[i]) || !math.IsNaN(dzdy.Data[i]) {
			t.Errorf("cell %d: expected NaN, got (%v, %v)", i, dzdx.Data[i], dzdy.Data[i])
		}
	}
}

func TestGradients_InvalidGrid(t *testing.T) {
	g := Grid{Rows: 2, Cols: 2, Data: []float64{1, 2, 3}}
	_, _, err := Gradients(g)
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("expected ErrInvalidShape, got %v", err)
	}
}

func TestGradients_WorkersMatchSequential(t *testing.T) {
	g, _ := NewGrid(37, 23)
	for i := range g.Data {
		g.Data[i] = math.Sin(float64(i)*0.37) * 100
	}

	seqX, seqY, err := gradients(g, 1)
	if err != nil {
		t.Fatalf("gradients failed: %v", err)
	}
	parX, parY, err := gradients(g, 6)
	if err != nil {
		t.Fatalf("gradients failed: %v", err)
	}
	if diff := cmp.Diff(seqX, parX, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("dz/dx differs (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seqY, parY, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("dz/dy differs (-seq +par):\n%s", diff)
	}
}
