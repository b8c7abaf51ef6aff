package hillshade

import (
	"fmt"
	"runtime"
	"sync"
)

// Options tunes how Render evaluates the pipeline. The zero value runs
// sequentially.
type Options struct {
	// Workers splits every stage into row bands evaluated concurrently.
	// 0 or 1 runs on the calling goroutine; negative uses runtime.NumCPU().
	Workers int
}

// Render runs the full pipeline: gradients, slope and aspect, then shading.
func Render(g Grid, light Light) (Shade, error) {
	return RenderWith(g, light, Options{})
}

// RenderWith is Render with explicit options. The result does not depend on
// the number of workers.
func RenderWith(g Grid, light Light, opts Options) (Shade, error) {
	workers := opts.Workers
	if workers < 0 {
		workers = runtime.NumCPU()
	}

	dzdx, dzdy, err := gradients(g, workers)
	if err != nil {
		return Shade{}, fmt.Errorf("estimating gradients: %w", err)
	}
	slope, err := elementwise(dzdx, dzdy, workers, slopeAt)
	if err != nil {
		return Shade{}, fmt.Errorf("computing slope: %w", err)
	}
	aspect, err := elementwise(dzdx, dzdy, workers, aspectAt)
	if err != nil {
		return Shade{}, fmt.Errorf("computing aspect: %w", err)
	}
	shade, err := computeShade(slope, aspect, light, workers)
	if err != nil {
		return Shade{}, fmt.Errorf("shading: %w", err)
	}
	return shade, nil
}

// bands calls fn over [0, rows) split into at most workers contiguous ranges.
func bands(rows, workers int, fn func(r0, r1 int)) {
	if workers <= 1 || rows < 2 {
		fn(0, rows)
		return
	}
	if workers > rows {
		workers = rows
	}
	per, rem := rows/workers, rows%workers

	var wg sync.WaitGroup
	wg.Add(workers)
	start := 0
	for w := 0; w < workers; w++ {
		n := per
		if w < rem {
			n++
		}
		go func(r0, r1 int) {
			defer wg.Done()
			fn(r0, r1)
		}(start, start+n)
		start += n
	}
	wg.Wait()
}
