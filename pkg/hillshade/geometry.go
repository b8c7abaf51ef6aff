package hillshade

import "math"

// Slope returns the surface steepness atan(sqrt(dx² + dy²)) per cell, in radians.
func Slope(dx, dy Grid) (Grid, error) {
	return elementwise(dx, dy, 1, slopeAt)
}

// Aspect returns atan2(dy, dx) per cell, in radians within (-π, π].
// The argument order fixes the compass convention relative to the grid axes.
func Aspect(dx, dy Grid) (Grid, error) {
	return elementwise(dx, dy, 1, aspectAt)
}

func slopeAt(x, y float64) float64 {
	return math.Atan(math.Sqrt(x*x + y*y))
}

func aspectAt(x, y float64) float64 {
	return math.Atan2(y, x)
}

func elementwise(a, b Grid, workers int, fn func(x, y float64) float64) (Grid, error) {
	if err := checkShape(a, b); err != nil {
		return Grid{}, err
	}
	out := Grid{Rows: a.Rows, Cols: a.Cols, Data: make([]float64, len(a.Data))}
	bands(a.Rows, workers, func(r0, r1 int) {
		for i := r0 * a.Cols; i < r1*a.Cols; i++ {
			out.Data[i] = fn(a.Data[i], b.Data[i])
		}
	})
	return out, nil
}
