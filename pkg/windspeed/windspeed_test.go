package windspeed

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/windfeed/pkg/weather"
)

const epsilon = 1e-6

func series(t *testing.T, heights map[float64][]float64) *weather.Series {
	t.Helper()
	var n int
	for _, v := range heights {
		n = len(v)
	}
	index := make([]time.Time, n)
	for i := range index {
		index[i] = time.Date(2010, 1, 1, i, 0, 0, 0, time.UTC)
	}
	s := weather.New(index)
	for h, v := range heights {
		if err := s.Add(weather.WindSpeed, h, v); err != nil {
			t.Fatalf("unexpected error adding column: %v", err)
		}
	}
	return s
}

func TestLogarithmicSpeed(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		h1, h2   float64
		z0       float64
		obstacle float64
		expected float64
	}{
		{name: "10 to 100 m", v: 5.0, h1: 10, h2: 100, z0: 0.15, expected: 7.74136523},
		{name: "10 to 100 m, faster", v: 6.5, h1: 10, h2: 100, z0: 0.15, expected: 10.0637748},
		{name: "with obstacle", v: 5.0, h1: 10, h2: 100, z0: 0.15, obstacle: 12, expected: 13.54925281},
		{name: "with obstacle, faster", v: 6.5, h1: 10, h2: 100, z0: 0.15, obstacle: 12, expected: 17.61402865},
		{name: "10 to 80 m, open terrain", v: 5.0, h1: 10, h2: 80, z0: 0.1, expected: 5.0 * math.Log(800) / math.Log(100)},
		{name: "same height", v: 5.0, h1: 80, h2: 80, z0: 0.1, expected: 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LogarithmicSpeed(tt.v, tt.h1, tt.h2, tt.z0, tt.obstacle)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.expected) > epsilon {
				t.Errorf("expected %.8f, got %.8f", tt.expected, got)
			}
		})
	}
}

func TestLogarithmicSpeedErrors(t *testing.T) {
	if _, err := LogarithmicSpeed(5.5, 10, 100, 0.15, 20); err == nil {
		t.Error("expected error when obstacle displacement exceeds measurement height")
	}
	if _, err := LogarithmicSpeed(5.5, 10, 100, 0, 0); err == nil {
		t.Error("expected error for zero roughness length")
	}
	if _, err := LogarithmicSpeed(5.5, 10, 100, 20, 0); err == nil {
		t.Error("expected error when roughness length exceeds measurement height")
	}
}

func TestHellmanSpeed(t *testing.T) {
	alpha, err := HellmanExponent(100, 0.15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		v        float64
		alpha    float64
		expected float64
	}{
		{name: "default exponent", v: 5.0, alpha: DefaultHellmanExponent, expected: 6.9474774},
		{name: "default exponent, faster", v: 6.5, alpha: DefaultHellmanExponent, expected: 9.03172},
		{name: "exponent from roughness", v: 5.0, alpha: alpha, expected: 7.12462437},
		{name: "exponent from roughness, faster", v: 6.5, alpha: alpha, expected: 9.26201168},
		{name: "fixed exponent", v: 5.0, alpha: 0.2, expected: 7.92446596},
		{name: "fixed exponent, faster", v: 6.5, alpha: 0.2, expected: 10.30180575},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HellmanSpeed(tt.v, 10, 100, tt.alpha)
			if math.Abs(got-tt.expected) > 1e-5 {
				t.Errorf("expected %.8f, got %.8f", tt.expected, got)
			}
		})
	}
}

func TestProfilesAreIdentityAtMeasurementHeight(t *testing.T) {
	w := series(t, map[float64][]float64{80: {0, 3.2, 12.5}})
	z0 := []float64{0.1, 0.1, 0.1}

	for _, model := range []ModelType{LogarithmicModel, HellmanModel, InterpolationModel} {
		t.Run(string(model), func(t *testing.T) {
			p, err := NewProfile(model, 0, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out, err := p.Correct(w, 80, z0, true)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			speeds, _ := w.Column(weather.WindSpeed, 80)
			for i := range speeds {
				if out.Values[i] != speeds[i] {
					t.Errorf("row %d: expected %v unchanged, got %v", i, speeds[i], out.Values[i])
				}
			}
		})
	}
}

func TestLogarithmicCorrectRowPolicy(t *testing.T) {
	w := series(t, map[float64][]float64{10: {5, -1, math.NaN(), 5}})
	z0 := []float64{0.15, 0.15, 0.15, 0}
	p := &Logarithmic{}

	out, err := p.Correct(w, 100, z0, false)
	if err != nil {
		t.Fatalf("unexpected error in lenient mode: %v", err)
	}
	if out.Invalid != 3 {
		t.Errorf("expected 3 invalid rows, got %d", out.Invalid)
	}
	if math.Abs(out.Values[0]-7.74136523) > epsilon {
		t.Errorf("expected 7.74136523 for the valid row, got %v", out.Values[0])
	}
	for _, i := range []int{1, 2, 3} {
		if !math.IsNaN(out.Values[i]) {
			t.Errorf("row %d: expected NaN, got %v", i, out.Values[i])
		}
	}

	_, err = p.Correct(w, 100, z0, true)
	var rowErr *weather.InvalidInputError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected InvalidInputError in strict mode, got %v", err)
	}
	if rowErr.Row != 1 {
		t.Errorf("expected first invalid row 1, got %d", rowErr.Row)
	}
}

func TestLogarithmicNeedsRoughness(t *testing.T) {
	w := series(t, map[float64][]float64{10: {5}})
	_, err := (&Logarithmic{}).Correct(w, 100, nil, false)

	var missing *weather.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
}

func TestLogarithmicObstacleSetupError(t *testing.T) {
	w := series(t, map[float64][]float64{10: {5}})
	_, err := (&Logarithmic{ObstacleHeight: 20}).Correct(w, 100, []float64{0.15}, false)
	if err == nil {
		t.Fatal("expected setup error for obstacle height")
	}
	var rowErr *weather.InvalidInputError
	if errors.As(err, &rowErr) {
		t.Error("obstacle error must not be reported as a row error")
	}
}

func TestHellmanCorrectFallsBackWithoutRoughness(t *testing.T) {
	w := series(t, map[float64][]float64{10: {5.0, 6.5}})
	out, err := (&Hellman{}).Correct(w, 100, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []float64{6.9474774, 9.03172}
	for i := range expected {
		if math.Abs(out.Values[i]-expected[i]) > 1e-5 {
			t.Errorf("row %d: expected %.6f, got %.6f", i, expected[i], out.Values[i])
		}
	}
}

func TestHellmanCorrectRowPolicy(t *testing.T) {
	w := series(t, map[float64][]float64{10: {5, -1, math.NaN(), 5, 5}})
	// the exponent is estimated per row, so rows without a usable roughness are invalid
	z0 := []float64{0.15, 0.15, 0.15, 0, math.NaN()}
	p := &Hellman{}

	out, err := p.Correct(w, 100, z0, false)
	if err != nil {
		t.Fatalf("unexpected error in lenient mode: %v", err)
	}
	if out.Invalid != 4 {
		t.Errorf("expected 4 invalid rows, got %d", out.Invalid)
	}
	if math.Abs(out.Values[0]-7.12462437) > epsilon {
		t.Errorf("expected 7.12462437 for the valid row, got %v", out.Values[0])
	}
	for _, i := range []int{1, 2, 3, 4} {
		if !math.IsNaN(out.Values[i]) {
			t.Errorf("row %d: expected NaN, got %v", i, out.Values[i])
		}
	}

	_, err = p.Correct(w, 100, z0, true)
	var rowErr *weather.InvalidInputError
	if !errors.As(err, &rowErr) {
		t.Fatalf("expected InvalidInputError in strict mode, got %v", err)
	}
	if rowErr.Row != 1 {
		t.Errorf("expected first invalid row 1, got %d", rowErr.Row)
	}

	// a fixed exponent does not read the roughness length
	out, err = (&Hellman{Exponent: 1.0 / 7}).Correct(w, 100, z0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Invalid != 2 {
		t.Errorf("expected 2 invalid rows with a fixed exponent, got %d", out.Invalid)
	}
}

func TestHellmanHeightSetupError(t *testing.T) {
	tests := []struct {
		name      string
		height    float64
		hubHeight float64
	}{
		{name: "measurement at ground level", height: 0, hubHeight: 100},
		{name: "negative measurement height", height: -10, hubHeight: 100},
		{name: "non-positive hub height", height: 10, hubHeight: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := series(t, map[float64][]float64{tt.height: {5}})
			_, err := (&Hellman{}).Correct(w, tt.hubHeight, []float64{0.15}, false)
			if err == nil {
				t.Fatal("expected setup error for non-positive height")
			}
			var rowErr *weather.InvalidInputError
			if errors.As(err, &rowErr) {
				t.Error("height error must not be reported as a row error")
			}
		})
	}
}

func TestInterpolationCorrect(t *testing.T) {
	w := series(t, map[float64][]float64{
		10:  {4, 4},
		80:  {6, 7},
		120: {7, 9},
	})

	out, err := (&Interpolation{}).Correct(w, 100, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []float64{6.5, 8}
	for i := range expected {
		if math.Abs(out.Values[i]-expected[i]) > epsilon {
			t.Errorf("row %d: expected %.2f, got %.2f", i, expected[i], out.Values[i])
		}
	}

	// extrapolation above the highest measurement
	out, err = (&Interpolation{}).Correct(w, 160, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(out.Values[0]-8) > epsilon {
		t.Errorf("expected 8 m/s extrapolated at 160 m, got %v", out.Values[0])
	}
}

func TestNewProfileUnknown(t *testing.T) {
	if _, err := NewProfile("linear-ish", 0, 0); err == nil {
		t.Error("expected error for unknown model")
	}
}
