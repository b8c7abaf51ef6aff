package hillshade

import (
	"errors"
	"math"
	"testing"
)

func TestComputeShade_FlatSurface(t *testing.T) {
	slope, _ := NewGrid(3, 4)
	aspect, _ := NewGrid(3, 4)
	for i := range aspect.Data {
		aspect.Data[i] = float64(i) - 5
	}

	for _, alt := range []float64{0, 10, 30, 45, 60, 90} {
		for _, az := range []float64{0, 45, 135, 270, 359} {
			shade, err := ComputeShade(slope, aspect, Light{Altitude: alt, Azimuth: az})
			if err != nil {
				t.Fatalf("ComputeShade failed: %v", err)
			}
			want := float32(clampIntensity(255 * math.Cos((90-alt)*math.Pi/180)))
			for i, v := range shade.Data {
				if v != want {
					t.Errorf("alt=%v az=%v cell %d: expected %v, got %v", alt, az, i, want, v)
				}
			}
		}
	}
}

func TestComputeShade_ZenithLight(t *testing.T) {
	slope := mustRows(t, [][]float64{{0, 0.1, 0.5, 1.0, math.Pi / 3}})
	aspect := mustRows(t, [][]float64{{0, 1, -2, 3, -math.Pi}})

	for _, az := range []float64{0, 90, 200} {
		shade, err := ComputeShade(slope, aspect, Light{Altitude: 90, Azimuth: az})
		if err != nil {
			t.Fatalf("ComputeShade failed: %v", err)
		}
		for i, s := range slope.Data {
			want := float32(255 * math.Cos(s))
			if shade.Data[i] != want {
				t.Errorf("az=%v cell %d: expected %v, got %v", az, i, want, shade.Data[i])
			}
		}
	}
}

func TestComputeShade_Clamp(t *testing.T) {
	t.Run("floor", func(t *testing.T) {
		// Vertical face pointing away from a light on the horizon.
		light := Light{Altitude: 0, Azimuth: 90}
		slope := mustRows(t, [][]float64{{math.Pi / 2}})
		aspect := mustRows(t, [][]float64{{light.AzimuthRad() + math.Pi}})

		shade, err := ComputeShade(slope, aspect, light)
		if err != nil {
			t.Fatalf("ComputeShade failed: %v", err)
		}
		if shade.Data[0] != 0 {
			t.Errorf("expected full shadow 0, got %v", shade.Data[0])
		}
	})

	t.Run("ceiling", func(t *testing.T) {
		slope := mustRows(t, [][]float64{{0}})
		aspect := mustRows(t, [][]float64{{0}})

		shade, err := ComputeShade(slope, aspect, Light{Altitude: 90, Azimuth: 0})
		if err != nil {
			t.Fatalf("ComputeShade failed: %v", err)
		}
		if shade.Data[0] != 255 {
			t.Errorf("expected 255, got %v", shade.Data[0])
		}
	})
}

func TestComputeShade_FacingLight(t *testing.T) {
	// A 45° face turned toward a 45° light receives the full beam.
	light := Light{Altitude: 45, Azimuth: 45}
	slope := mustRows(t, [][]float64{{math.Pi / 4}})
	aspect := mustRows(t, [][]float64{{light.AzimuthRad()}})

	shade, err := ComputeShade(slope, aspect, light)
	if err != nil {
		t.Fatalf("ComputeShade failed: %v", err)
	}
	if math.Abs(float64(shade.Data[0])-255) > 1e-3 {
		t.Errorf("expected ~255, got %v", shade.Data[0])
	}
}

func TestComputeShade_OutOfConventionLight(t *testing.T) {
	slope := mustRows(t, [][]float64{{0.3}})
	aspect := mustRows(t, [][]float64{{1.2}})

	a, err := ComputeShade(slope, aspect, Light{Altitude: 30, Azimuth: 100})
	if err != nil {
		t.Fatalf("ComputeShade failed: %v", err)
	}
	b, err := ComputeShade(slope, aspect, Light{Altitude: 30, Azimuth: 100 + 720})
	if err != nil {
		t.Fatalf("ComputeShade failed with out-of-range azimuth: %v", err)
	}
	if math.Abs(float64(a.Data[0]-b.Data[0])) > 1e-3 {
		t.Errorf("expected periodic azimuth, got %v vs %v", a.Data[0], b.Data[0])
	}

	// Below the horizon: evaluated, then clamped.
	c, err := ComputeShade(slope, aspect, Light{Altitude: -120, Azimuth: 0})
	if err != nil {
		t.Fatalf("ComputeShade failed with negative altitude: %v", err)
	}
	if c.Data[0] < 0 || c.Data[0] > 255 {
		t.Errorf("expected clamped value, got %v", c.Data[0])
	}
}

func TestComputeShade_NaN(t *testing.T) {
	slope := mustRows(t, [][]float64{{math.NaN()}})
	aspect := mustRows(t, [][]float64{{0}})

	shade, err := ComputeShade(slope, aspect, DefaultLight())
	if err != nil {
		t.Fatalf("ComputeShade failed: %v", err)
	}
	if shade.Data[0] != 0 {
		t.Errorf("expected NaN to clamp to 0, got %v", shade.Data[0])
	}
}

func TestComputeShade_ShapeMismatch(t *testing.T) {
	a, _ := NewGrid(2, 2)
	b, _ := NewGrid(2, 3)
	if _, err := ComputeShade(a, b, DefaultLight()); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestClampIntensity(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-10, 0},
		{0, 0},
		{math.Copysign(0, -1), 0},
		{12.5, 12.5},
		{255, 255},
		{300, 255},
		{math.Inf(1), 255},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := clampIntensity(tt.in); got != tt.want || math.Signbit(got) {
			t.Errorf("clampIntensity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLight_Angles(t *testing.T) {
	l := Light{Altitude: 90, Azimuth: 180}
	if l.Zenith() != 0 {
		t.Errorf("expected zenith 0, got %v", l.Zenith())
	}
	if l.AzimuthRad() != math.Pi {
		t.Errorf("expected azimuth π, got %v", l.AzimuthRad())
	}
	d := DefaultLight()
	if d.Altitude != 45 || d.Azimuth != 45 {
		t.Errorf("expected default light 45/45, got %+v", d)
	}
}
