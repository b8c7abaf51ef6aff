package config

import (
	"flag"
	"strconv"
)

// optionalFloat is a float flag that remembers whether it was given,
// so an explicit 0 still overrides the config file.
type optionalFloat struct {
	value float64
	set   bool
}

func (f *optionalFloat) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value, f.set = v, true
	return nil
}

func (f *optionalFloat) reset() {
	*f = optionalFloat{}
}

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagSave      = flag.Bool("save-config", false, "Write the effective config to the --config file (or the user config dir) and exit")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagInput     = flag.String("in", "", "Elevation file (npy, asc, gat, gnd, optionally .gz) or GRF archive")
	flagEntry     = flag.String("entry", "", "Elevation file inside the GRF archive given by -in")
	flagInFormat  = flag.String("format", "", "Input format (npy, asc, gat, gnd)")
	flagMapLight  = flag.Bool("map-light", false, "Use the sun of the map's .rsw file")
	flagOutput    = flag.String("out", "", "Output file")
	flagOutFormat = flag.String("out-format", "", "Output format (png, bmp, tiff, npy)")
	flagInvert    = flag.Bool("invert", false, "Render light areas dark")
	flagScale     = flag.Float64("scale", 0, "Resample the output image by this factor")
	flagWorkers   = flag.Int("workers", 0, "Goroutines per stage (<0 = one per CPU)")
)

var flagAltitude, flagAzimuth optionalFloat

func init() {
	flag.Var(&flagAltitude, "altitude", "Light altitude in degrees above the horizon")
	flag.Var(&flagAzimuth, "azimuth", "Light azimuth in degrees (compass bearing)")
}

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagInput != "" {
		cfg.Input.Path = *flagInput
	}
	if *flagEntry != "" {
		cfg.Input.Entry = *flagEntry
	}
	if *flagInFormat != "" {
		cfg.Input.Format = *flagInFormat
	}
	if *flagMapLight {
		cfg.Input.MapLight = true
	}
	if *flagOutput != "" {
		cfg.Output.Path = *flagOutput
	}
	if *flagOutFormat != "" {
		cfg.Output.Format = *flagOutFormat
	}
	if *flagInvert {
		cfg.Output.Invert = true
	}
	if *flagScale > 0 {
		cfg.Output.Scale = *flagScale
	}
	if *flagWorkers != 0 {
		cfg.Output.Workers = *flagWorkers
	}
	if flagAltitude.set {
		cfg.Light.Altitude = flagAltitude.value
	}
	if flagAzimuth.set {
		cfg.Light.Azimuth = flagAzimuth.value
	}
}
