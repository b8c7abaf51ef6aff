package hillshade

import "math"

// MaxIntensity is the brightest value a shaded cell can take.
const MaxIntensity = 255.0

// Light describes a distant light source in degrees.
// Altitude is measured above the horizon, Azimuth as a compass bearing.
// Values outside [0,90] and [0,360) are accepted and evaluated as given.
type Light struct {
	Altitude float64 `yaml:"altitude"`
	Azimuth  float64 `yaml:"azimuth"`
}

// DefaultLight is the conventional 45° altitude, 45° azimuth source.
func DefaultLight() Light {
	return Light{Altitude: 45, Azimuth: 45}
}

// Zenith returns the angle between the light and the vertical, in radians.
func (l Light) Zenith() float64 {
	return radians(90 - l.Altitude)
}

// AzimuthRad returns the azimuth in radians.
func (l Light) AzimuthRad() float64 {
	return radians(l.Azimuth)
}

// illuminator caches the light's trigonometric terms for per-cell evaluation.
type illuminator struct {
	cosZenith float64
	sinZenith float64
	azimuth   float64
}

func newIlluminator(l Light) illuminator {
	zenith := l.Zenith()
	return illuminator{
		cosZenith: math.Cos(zenith),
		sinZenith: math.Sin(zenith),
		azimuth:   l.AzimuthRad(),
	}
}

func (il illuminator) shade(slope, aspect float64) float32 {
	raw := il.cosZenith*math.Cos(slope) + il.sinZenith*math.Sin(slope)*math.Cos(il.azimuth-aspect)
	return float32(clampIntensity(MaxIntensity * raw))
}

// clampIntensity bounds v to [0, MaxIntensity]. NaN maps to 0 (full shadow).
func clampIntensity(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}

// ComputeShade combines slope and aspect (radians) with a light source
// into an intensity raster clamped to [0, 255].
func ComputeShade(slope, aspect Grid, light Light) (Shade, error) {
	return computeShade(slope, aspect, light, 1)
}

func computeShade(slope, aspect Grid, light Light, workers int) (Shade, error) {
	if err := checkShape(slope, aspect); err != nil {
		return Shade{}, err
	}
	il := newIlluminator(light)
	out := Shade{Rows: slope.Rows, Cols: slope.Cols, Data: make([]float32, len(slope.Data))}
	bands(slope.Rows, workers, func(r0, r1 int) {
		for i := r0 * slope.Cols; i < r1*slope.Cols; i++ {
			out.Data[i] = il.shade(slope.Data[i], aspect.Data[i])
		}
	})
	return out, nil
}
