package power

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/weather"
)

func index(n int) []time.Time {
	idx := make([]time.Time, n)
	for i := range idx {
		idx[i] = time.Date(2010, 1, 1, i, 0, 0, 0, time.UTC)
	}
	return idx
}

func mustCurve(t *testing.T, xs, ys []float64) *curve.Curve {
	t.Helper()
	c, err := curve.New(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestEvaluatePowerCurve(t *testing.T) {
	pc := &PowerCurve{Curve: mustCurve(t, []float64{0, 5, 10, 15, 20}, []float64{0, 0, 1000, 1500, 1500})}
	speeds := []float64{2, 7.5, 12, 25}

	out, err := Evaluate(pc, index(4), speeds, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []float64{0, 500, 1200, 1500}
	for i := range expected {
		if math.Abs(out.Values[i]-expected[i]) > 1e-9 {
			t.Errorf("row %d: expected %.1f, got %.1f", i, expected[i], out.Values[i])
		}
	}
	if out.Invalid != 0 || out.Clamped != 0 {
		t.Errorf("expected clean output, got %d invalid and %d clamped", out.Invalid, out.Clamped)
	}
}

func TestEvaluateInvalidRows(t *testing.T) {
	pc := &PowerCurve{Curve: mustCurve(t, []float64{0, 10}, []float64{0, 1000})}
	speeds := []float64{5, math.NaN(), -2, 0}

	out, err := Evaluate(pc, index(4), speeds, nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Invalid != 2 {
		t.Errorf("expected 2 invalid rows, got %d", out.Invalid)
	}
	if !math.IsNaN(out.Values[1]) || !math.IsNaN(out.Values[2]) {
		t.Errorf("invalid rows must be NaN, got %v", out.Values)
	}
	if out.Values[3] != 0 {
		t.Errorf("calm row must be a valid zero, got %v", out.Values[3])
	}

	_, err = Evaluate(pc, index(4), speeds, nil, Options{Strict: true})
	var rowErr *weather.InvalidInputError
	if !errors.As(err, &rowErr) || rowErr.Row != 1 {
		t.Errorf("expected strict error at row 1, got %v", err)
	}
}

func TestEvaluateCoefficientCurve(t *testing.T) {
	cp := &CoefficientCurve{
		Curve:         mustCurve(t, []float64{4, 5, 6}, []float64{0.3, 0.4, 0.5}),
		RotorDiameter: 80,
	}

	out, err := Evaluate(cp, index(2), []float64{2, 5.5}, []float64{1.3, 1.3}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Values[0] != 0 {
		t.Errorf("expected 0 below the curve, got %v", out.Values[0])
	}
	if math.Abs(out.Values[1]-244615.399) > 1e-3 {
		t.Errorf("expected 244615.399, got %.3f", out.Values[1])
	}

	_, err = Evaluate(cp, index(2), []float64{2, 5.5}, nil, Options{})
	var missing *weather.MissingInputError
	if !errors.As(err, &missing) {
		t.Errorf("expected missing density error, got %v", err)
	}
}

func TestEvaluateClampsToNominal(t *testing.T) {
	cp := &CoefficientCurve{
		Curve:         mustCurve(t, []float64{4, 5, 6}, []float64{0.3, 0.4, 0.5}),
		RotorDiameter: 80,
	}

	out, err := Evaluate(cp, index(2), []float64{4, 5.5}, []float64{1.3, 1.3}, Options{Nominal: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Values[1] != 100000 {
		t.Errorf("expected clamp at nominal power, got %v", out.Values[1])
	}
	if out.Clamped != 1 {
		t.Errorf("expected 1 clamped row, got %d", out.Clamped)
	}
}

func TestCurveCorrection(t *testing.T) {
	tests := []struct {
		name     string
		c        Characteristic
		expected float64
	}{
		{
			name:     "power curve",
			c:        &PowerCurve{Curve: mustCurve(t, []float64{4, 5, 6}, []float64{300, 400, 500})},
			expected: 461.00290572,
		},
		{
			name: "coefficient curve",
			c: &CoefficientCurve{
				Curve:         mustCurve(t, []float64{4, 5, 6}, []float64{0.3, 0.4, 0.5}),
				RotorDiameter: 80,
			},
			expected: 262869.785,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Correction: CurveCorrection, Exponent: density.ExponentSvenningsen}
			out, err := Evaluate(tt.c, index(3), []float64{2, 5.5, 5.5}, []float64{1.3, 1.3, 1.3}, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Values[0] != 0 {
				t.Errorf("expected 0 below the curve, got %v", out.Values[0])
			}
			for _, got := range out.Values[1:] {
				if math.Abs(got-tt.expected) > 1e-3 {
					t.Errorf("expected %.5f, got %.5f", tt.expected, got)
				}
			}
		})
	}
}

func TestObservationMatchesCurveCorrection(t *testing.T) {
	pc := &PowerCurve{Curve: mustCurve(t, []float64{3, 5, 10, 15, 25}, []float64{0, 200, 1500, 2000, 2000})}
	speeds := []float64{4.2, 7.7, 11.1, 14.9}
	rho := []float64{1.3, 1.18, 1.225, 1.1}

	obs, err := Evaluate(pc, index(4), speeds, rho, Options{Correction: ObservationCorrection, Exponent: density.ExponentIEC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shifted, err := Evaluate(pc, index(4), speeds, rho, Options{Correction: CurveCorrection, Exponent: density.ExponentIEC})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range speeds {
		if math.Abs(obs.Values[i]-shifted.Values[i]) > 1e-6 {
			t.Errorf("row %d: observation %.6f differs from curve %.6f", i, obs.Values[i], shifted.Values[i])
		}
	}

	_, err = Evaluate(pc, index(4), speeds, rho, Options{Correction: ObservationCorrection, Exponent: density.ExponentSvenningsen})
	if err == nil {
		t.Error("expected error for svenningsen exponent with observation correction")
	}
}
