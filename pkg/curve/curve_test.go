package curve

import (
	"errors"
	"math"
	"testing"
)

func mustCurve(t *testing.T, xs, ys []float64) *Curve {
	t.Helper()
	c, err := New(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error building curve: %v", err)
	}
	return c
}

func TestNewRejectsMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
	}{
		{name: "non-increasing axis", xs: []float64{0, 10, 5}, ys: []float64{0, 500, 400}},
		{name: "duplicate axis value", xs: []float64{0, 5, 5}, ys: []float64{0, 1, 2}},
		{name: "negative value", xs: []float64{0, 5}, ys: []float64{0, -1}},
		{name: "NaN value", xs: []float64{0, 5}, ys: []float64{0, math.NaN()}},
		{name: "infinite axis", xs: []float64{0, math.Inf(1)}, ys: []float64{0, 1}},
		{name: "missing axis", xs: nil, ys: nil},
		{name: "length mismatch", xs: []float64{0, 1, 2}, ys: []float64{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.xs, tt.ys)
			var curveErr *InvalidCurveError
			if !errors.As(err, &curveErr) {
				t.Fatalf("expected InvalidCurveError, got %v", err)
			}
		})
	}
}

func TestAtPowerCurveScenario(t *testing.T) {
	c := mustCurve(t, []float64{0, 5, 10, 15, 20}, []float64{0, 0, 1000, 1500, 1500})

	input := []float64{2, 7.5, 12, 25}
	expected := []float64{0, 500, 1200, 1500}

	for i, v := range input {
		got := c.At(v)
		if math.Abs(got-expected[i]) > 1e-9 {
			t.Errorf("At(%.1f): expected %.2f, got %.2f", v, expected[i], got)
		}
	}
}

func TestAtBoundaries(t *testing.T) {
	c := mustCurve(t, []float64{3, 4, 5, 12, 25}, []float64{0, 50, 150, 2000, 2000})

	for _, v := range []float64{-5, 0, 1.5, 2.999} {
		if got := c.At(v); got != 0 {
			t.Errorf("below minimum speed %.3f: expected exactly 0, got %v", v, got)
		}
	}

	for _, v := range []float64{25, 25.01, 40, 1000} {
		if got := c.At(v); got != 2000 {
			t.Errorf("at or above maximum speed %.2f: expected 2000, got %v", v, got)
		}
	}

	xs, ys := c.X(), c.Y()
	for i := range xs {
		if got := c.At(xs[i]); got != ys[i] {
			t.Errorf("tabulated point %.1f: expected exactly %v, got %v", xs[i], ys[i], got)
		}
	}

	if got := c.At(math.NaN()); !math.IsNaN(got) {
		t.Errorf("expected NaN for NaN input, got %v", got)
	}
}

func TestSinglePointCurve(t *testing.T) {
	c := mustCurve(t, []float64{5}, []float64{100})
	if c.At(4) != 0 || c.At(5) != 100 || c.At(6) != 100 {
		t.Errorf("unexpected single point evaluation: %v %v %v", c.At(4), c.At(5), c.At(6))
	}
}

func TestNewCopiesInput(t *testing.T) {
	xs := []float64{0, 1}
	ys := []float64{0, 10}
	c := mustCurve(t, xs, ys)
	ys[1] = 99
	if c.At(1) != 10 {
		t.Errorf("curve must not alias caller slices, got %v", c.At(1))
	}
}

func TestSum(t *testing.T) {
	a := mustCurve(t, []float64{0, 10}, []float64{0, 100})
	b := mustCurve(t, []float64{5, 15}, []float64{10, 20})

	sum, err := Sum([]float64{2, 1}, []*Curve{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[float64]float64{
		0:  0,            // b below its own minimum
		5:  2*50 + 10,    // a interpolated
		10: 2*100 + 15,   // b interpolated
		15: 2*100 + 20,   // a held flat
	}
	for x, want := range expected {
		if got := sum.At(x); math.Abs(got-want) > 1e-9 {
			t.Errorf("Sum at %.0f: expected %.2f, got %.2f", x, want, got)
		}
	}
	if sum.Len() != 4 {
		t.Errorf("expected union axis of 4 points, got %d", sum.Len())
	}
}

func TestMultiply(t *testing.T) {
	p := mustCurve(t, []float64{0, 10, 20}, []float64{0, 1000, 1000})
	eff := mustCurve(t, []float64{0, 20}, []float64{1.0, 0.8})

	reduced, err := p.Multiply(eff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := reduced.At(10); math.Abs(got-900) > 1e-9 {
		t.Errorf("expected 900 at 10 m/s, got %v", got)
	}
	if got := reduced.At(20); math.Abs(got-800) > 1e-9 {
		t.Errorf("expected 800 at 20 m/s, got %v", got)
	}
}

func TestScaleAxisMustStayIncreasing(t *testing.T) {
	c := mustCurve(t, []float64{1, 2, 3}, []float64{0, 1, 2})

	if _, err := c.ScaleAxis(func(x float64) float64 { return x * 1.1 }); err != nil {
		t.Errorf("unexpected error for monotonic scaling: %v", err)
	}
	if _, err := c.ScaleAxis(func(x float64) float64 { return -x }); err == nil {
		t.Error("expected error when axis order is reversed")
	}
}

func TestSmooth(t *testing.T) {
	xs := make([]float64, 0, 81)
	ys := make([]float64, 0, 81)
	for v := 0.0; v <= 40; v += 0.5 {
		xs = append(xs, v)
		ys = append(ys, 1000)
	}
	flat := mustCurve(t, xs, ys)

	smoothed, err := Smooth(flat, DefaultSmoothingParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if smoothed.Len() != flat.Len() {
		t.Fatalf("expected %d points, got %d", flat.Len(), smoothed.Len())
	}

	// an axis already reaching 40 m/s is not extended. The interior stays flat within
	// the truncated Gaussian mass.
	if got := smoothed.At(20); math.Abs(got-1000) > 5 {
		t.Errorf("expected ~1000 at 20 m/s, got %.2f", got)
	}

	_, err = Smooth(flat, SmoothingParams{BlockWidth: 0.5, BlockRange: 15, Method: StdDevTurbulenceIntensity})
	if err == nil {
		t.Error("expected error when turbulence intensity is missing")
	}
}

func TestSmoothReferenceValues(t *testing.T) {
	pc := mustCurve(t, []float64{0, 5, 10, 15, 20, 25}, []float64{0, 0, 1000, 1500, 1500, 1500})

	tests := []struct {
		name     string
		params   SmoothingParams
		expected map[float64]float64
	}{
		{
			name:   "turbulence intensity",
			params: SmoothingParams{BlockWidth: 0.5, BlockRange: 15, Method: StdDevTurbulenceIntensity, TurbulenceIntensity: 0.15},
			expected: map[float64]float64{
				0:    0,
				5:    57.572911852709964,
				10:   940.7306510478343,
				15:   1409.6038892315478,
				20:   1434.2617851661023,
				25:   789.436477459005,
				25.5: 710.5124627975699,
				30:   217.66923171232798,
				40:   2.1910375616960676,
			},
		},
		{
			name:   "Staffell Pfenninger",
			params: DefaultSmoothingParams(),
			expected: map[float64]float64{
				0:    0,
				5:    126.58220586095536,
				10:   899.2515154745228,
				15:   1340.4695267528532,
				20:   1275.3109019443848,
				25:   765.8675407978757,
				25.5: 713.3084151353721,
				30:   338.0861040656858,
				40:   7.6010012926215085,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			smoothed, err := Smooth(pc, tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// 0..25 plus zero-power points every 0.5 m/s up to 40
			if smoothed.Len() != 36 || smoothed.Max() != 40 {
				t.Fatalf("expected 36 points ending at 40 m/s, got %d ending at %v", smoothed.Len(), smoothed.Max())
			}
			for x, want := range tt.expected {
				if got := smoothed.At(x); math.Abs(got-want) > 1e-6*math.Max(1, want) {
					t.Errorf("smoothed(%.1f): expected %.9f, got %.9f", x, want, got)
				}
			}
			if smoothed.At(30) >= smoothed.At(25) {
				t.Errorf("expected the smoothed curve to ramp down after cut-out, got %.2f at 25 and %.2f at 30", smoothed.At(25), smoothed.At(30))
			}
		})
	}
}

func TestTurbulenceIntensity(t *testing.T) {
	got := TurbulenceIntensity(100, 0.15)
	want := 1 / math.Log(100/0.15)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
}
