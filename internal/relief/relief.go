// Package relief wires configuration, elevation sources, the shading
// pipeline and raster output into a single render.
package relief

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/relief/internal/config"
	"github.com/Faultbox/relief/internal/logger"
	"github.com/Faultbox/relief/pkg/dem"
	"github.com/Faultbox/relief/pkg/grf"
	"github.com/Faultbox/relief/pkg/hillshade"
	"github.com/Faultbox/relief/pkg/raster"
)

// ErrNoInput is returned when no elevation source is configured.
var ErrNoInput = errors.New("no input elevation file")

// Result describes a finished render.
type Result struct {
	Source    string
	Light     hillshade.Light
	Elevation dem.Stats
	Shade     hillshade.Shade
	Output    string // empty when nothing was written
	Elapsed   time.Duration
}

// Run loads the configured elevation grid, shades it and writes the output.
func Run(cfg *config.Config) (*Result, error) {
	start := time.Now()

	grid, source, err := Load(cfg.Input)
	if err != nil {
		return nil, err
	}
	stats := dem.Describe(grid)
	logger.Info("elevation loaded",
		zap.String("source", source),
		zap.Int("rows", stats.Rows),
		zap.Int("cols", stats.Cols),
		zap.Float64("min", stats.Min),
		zap.Float64("max", stats.Max),
		zap.Float64("mean", stats.Mean))
	if stats.NonFinite > 0 {
		logger.Warn("elevation has non-finite cells, they render as shadow",
			zap.Int("count", stats.NonFinite))
	}

	light := cfg.Light
	if cfg.Input.MapLight {
		if l, err := MapLight(cfg.Input); err != nil {
			logger.Warn("map light unavailable, using configured light", zap.Error(err))
		} else {
			light = l
		}
	}

	logger.Debug("rendering",
		zap.Float64("altitude", light.Altitude),
		zap.Float64("azimuth", light.Azimuth),
		zap.Int("workers", cfg.Output.Workers))
	shade, err := hillshade.RenderWith(grid, light, hillshade.Options{Workers: cfg.Output.Workers})
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", source, err)
	}
	lo, hi := shade.Range()
	logger.Info("shade computed",
		zap.Float32("min", lo),
		zap.Float32("max", hi),
		zap.Float64("mean", shade.Mean()))

	res := &Result{Source: source, Light: light, Elevation: stats, Shade: shade}
	if cfg.Output.Path != "" {
		if err := write(shade, cfg.Output); err != nil {
			return nil, err
		}
		res.Output = cfg.Output.Path
		logger.Info("output written", zap.String("path", cfg.Output.Path))
	}
	res.Elapsed = time.Since(start)
	logger.Debug("render finished", zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// Load reads the grid described by in: a plain file, or an entry of the
// GRF archive at in.Path when in.Entry is set. It also returns a display
// name for the source.
func Load(in config.InputConfig) (hillshade.Grid, string, error) {
	if in.Path == "" {
		return hillshade.Grid{}, "", ErrNoInput
	}
	format, err := dem.ParseFormat(in.Format)
	if err != nil {
		return hillshade.Grid{}, "", err
	}

	if in.Entry == "" {
		g, err := dem.Open(in.Path, format)
		return g, in.Path, err
	}

	source := in.Path + ":" + in.Entry
	data, err := readEntry(in.Path, in.Entry)
	if err != nil {
		return hillshade.Grid{}, source, err
	}

	if format == dem.FormatUnknown {
		format = dem.FormatFromPath(in.Entry)
		if format == dem.FormatUnknown {
			return hillshade.Grid{}, source, fmt.Errorf("%w: cannot infer from %s", dem.ErrUnknownFormat, in.Entry)
		}
	}
	g, err := dem.DecodeBytes(data, format)
	if err != nil {
		return hillshade.Grid{}, source, fmt.Errorf("decoding %s as %s: %w", source, format, err)
	}
	return g, source, nil
}

// MapLight reads the sun from the .rsw world file that accompanies the
// input map, in the same directory or archive.
func MapLight(in config.InputConfig) (hillshade.Light, error) {
	var data []byte
	var err error
	if in.Entry == "" {
		data, err = os.ReadFile(companion(in.Path))
	} else {
		data, err = readEntry(in.Path, companion(in.Entry))
	}
	if err != nil {
		return hillshade.Light{}, err
	}
	return dem.DecodeRSWLight(data)
}

// companion maps prontera.gat (or prontera.gnd.gz) to prontera.rsw.
func companion(name string) string {
	if strings.EqualFold(filepath.Ext(name), ".gz") {
		name = name[:len(name)-3]
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".rsw"
}

func readEntry(archivePath, entry string) ([]byte, error) {
	archive, err := grf.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	data, err := archive.Read(entry)
	if err != nil {
		return nil, err
	}
	logger.Debug("archive entry read", zap.String("entry", entry), zap.Int("bytes", len(data)))
	return data, nil
}

func write(s hillshade.Shade, out config.OutputConfig) error {
	format, err := raster.ParseFormat(out.Format)
	if err != nil {
		return err
	}
	if format == raster.FormatUnknown {
		format = raster.FormatFromPath(out.Path)
	}
	if format == raster.FormatNPY && (out.Invert || (out.Scale != 0 && out.Scale != 1)) {
		logger.Warn("npy output stores raw intensities, invert and scale are ignored")
	}
	return raster.WriteFile(out.Path, s, raster.Options{
		Format: format,
		Invert: out.Invert,
		Scale:  out.Scale,
	})
}
