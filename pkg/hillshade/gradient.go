package hillshade

import "fmt"

// Kernel is a 3x3 convolution kernel indexed [row][col].
type Kernel [3][3]float64

// Sobel-style derivative kernels. KernelX differentiates across rows,
// KernelY across columns.
var (
	KernelX = Kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
	KernelY = Kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
)

// kernelNorm is the sum of the positive weights of each Sobel kernel.
const kernelNorm = 8.0

// Convolve3x3 convolves g with k, returning a grid of the same shape.
// The kernel is flipped (true convolution, not correlation) and cells
// outside g read as zero.
func Convolve3x3(g Grid, k Kernel) (Grid, error) {
	return convolve(g, k, 1)
}

func convolve(g Grid, k Kernel, workers int) (Grid, error) {
	if len(g.Data) != g.Len() {
		return Grid{}, fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidShape, g.Rows, g.Cols, len(g.Data))
	}
	out, err := NewGrid(g.Rows, g.Cols)
	if err != nil {
		return Grid{}, err
	}
	bands(g.Rows, workers, func(r0, r1 int) {
		for r := r0; r < r1; r++ {
			for c := 0; c < g.Cols; c++ {
				var sum float64
				for p := 0; p < 3; p++ {
					for q := 0; q < 3; q++ {
						sum += k[p][q] * g.At(r+1-p, c+1-q)
					}
				}
				out.Data[r*g.Cols+c] = sum
			}
		}
	})
	return out, nil
}

// Gradients estimates the partial derivatives of the elevation surface.
// Both results have the shape of g and are normalised by the kernel weight.
func Gradients(g Grid) (dzdx, dzdy Grid, err error) {
	return gradients(g, 1)
}

func gradients(g Grid, workers int) (dzdx, dzdy Grid, err error) {
	dzdx, err = convolve(g, KernelX, workers)
	if err != nil {
		return Grid{}, Grid{}, fmt.Errorf("dz/dx: %w", err)
	}
	dzdy, err = convolve(g, KernelY, workers)
	if err != nil {
		return Grid{}, Grid{}, fmt.Errorf("dz/dy: %w", err)
	}
	for i := range dzdx.Data {
		dzdx.Data[i] /= kernelNorm
		dzdy.Data[i] /= kernelNorm
	}
	return dzdx, dzdy, nil
}
