package turbine

import (
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/weather"
	"github.com/chrissnell/windfeed/pkg/windspeed"
)

func mustCurve(t *testing.T, xs, ys []float64) *curve.Curve {
	t.Helper()
	c, err := curve.New(xs, ys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func newWeather(t *testing.T, n int, columns map[weather.Key][]float64) *weather.Series {
	t.Helper()
	index := make([]time.Time, n)
	for i := range index {
		index[i] = time.Date(2010, 1, 1, i, 0, 0, 0, time.UTC)
	}
	w := weather.New(index)
	for k, v := range columns {
		if err := w.Add(k.Variable, k.Height, v); err != nil {
			t.Fatalf("unexpected error adding %s: %v", k, err)
		}
	}
	return w
}

func scenarioTurbine(t *testing.T) *Spec {
	t.Helper()
	spec, err := New(Params{
		Name:       "scenario",
		HubHeight:  80,
		PowerCurve: mustCurve(t, []float64{0, 5, 10, 15, 20}, []float64{0, 0, 1000, 1500, 1500}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return spec
}

func TestNewSpec(t *testing.T) {
	pc := mustCurve(t, []float64{0, 10}, []float64{0, 1000})
	cp := mustCurve(t, []float64{0, 10}, []float64{0, 0.4})

	tests := []struct {
		name      string
		params    Params
		wantCurve bool
		wantCfg   bool
	}{
		{name: "both curves", params: Params{HubHeight: 80, PowerCurve: pc, CoefficientCurve: cp, RotorDiameter: 80}, wantCfg: true},
		{name: "no curve", params: Params{HubHeight: 80}, wantCurve: true},
		{name: "zero hub height", params: Params{PowerCurve: pc}, wantCfg: true},
		{name: "cp curve without rotor", params: Params{HubHeight: 80, CoefficientCurve: cp}, wantCfg: true},
		{name: "power curve", params: Params{HubHeight: 80, PowerCurve: pc}},
		{name: "cp curve", params: Params{HubHeight: 80, CoefficientCurve: cp, RotorDiameter: 80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.params)

			var curveErr *curve.InvalidCurveError
			var cfgErr *ConfigurationError
			switch {
			case tt.wantCurve:
				if !errors.As(err, &curveErr) {
					t.Errorf("expected InvalidCurveError, got %v", err)
				}
			case tt.wantCfg:
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigurationError, got %v", err)
				}
			default:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestNominalPowerFromCurve(t *testing.T) {
	spec := scenarioTurbine(t)
	if spec.NominalPower() != 1500 {
		t.Errorf("expected nominal power 1500 from the curve, got %v", spec.NominalPower())
	}
}

func TestComputePowerOutputScenario(t *testing.T) {
	w := newWeather(t, 4, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 80}:      {2, 7.5, 12, 25},
		{Variable: weather.RoughnessLength, Height: 0}: {0.1, 0.1, 0.1, 0.1},
	})

	mc, err := NewModelChain(scenarioTurbine(t), DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := mc.ComputePowerOutput(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []float64{0, 500, 1200, 1500}
	for i := range expected {
		if math.Abs(out.Values[i]-expected[i]) > 1e-9 {
			t.Errorf("row %d: expected %.1f, got %.1f", i, expected[i], out.Values[i])
		}
	}
	if !weather.SameIndex(out.Index, w.Index()) {
		t.Error("output index must equal the weather index")
	}
}

func TestRunCoefficientCurve(t *testing.T) {
	spec, err := New(Params{
		Name:             "cp",
		HubHeight:        100,
		RotorDiameter:    80,
		CoefficientCurve: mustCurve(t, []float64{4, 5, 6, 7, 8, 9, 10}, []float64{0.3, 0.4, 0.45, 0.45, 0.44, 0.42, 0.4}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := newWeather(t, 2, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 10}:      {5.0, 6.5},
		{Variable: weather.WindSpeed, Height: 8}:       {4.0, 5.0},
		{Variable: weather.RoughnessLength, Height: 0}: {0.15, 0.15},
		{Variable: weather.Temperature, Height: 2}:     {267, 268},
		{Variable: weather.Temperature, Height: 10}:    {267, 266},
		{Variable: weather.Pressure, Height: 0}:        {101125, 101000},
	})

	cfg := DefaultConfig()
	cfg.WindModel = windspeed.HellmanModel
	cfg.TemperatureModel = density.TemperatureInterpolation

	mc, err := NewModelChain(spec, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := mc.Run(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSpeed := []float64{7.12462, 9.26201}
	expectedRho := []float64{1.30305, 1.42702}
	for i := range expectedSpeed {
		if math.Abs(r.WindSpeed[i]-expectedSpeed[i]) > 1e-5 {
			t.Errorf("row %d: expected wind speed %.5f, got %.5f", i, expectedSpeed[i], r.WindSpeed[i])
		}
		if math.Abs(r.Density[i]-expectedRho[i]) > 1e-5 {
			t.Errorf("row %d: expected density %.5f, got %.5f", i, expectedRho[i], r.Density[i])
		}
		want := power.CoefficientPower(r.WindSpeed[i], r.Density[i], 80, spec.Characteristic().(*power.CoefficientCurve).Curve.At(r.WindSpeed[i]))
		if math.Abs(r.Power.Values[i]-want) > 1e-6 {
			t.Errorf("row %d: expected power %.3f, got %.3f", i, want, r.Power.Values[i])
		}
	}
}

func TestConfigurationErrors(t *testing.T) {
	spec := scenarioTurbine(t)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "both density corrections", mutate: func(c *Config) { c.CorrectObservation, c.CorrectCurve = true, true }},
		{name: "svenningsen observation", mutate: func(c *Config) {
			c.CorrectObservation = true
			c.DensityExponent = density.ExponentSvenningsen
		}},
		{name: "unknown wind model", mutate: func(c *Config) { c.WindModel = "geostrophic" }},
		{name: "unknown density model", mutate: func(c *Config) {
			c.CorrectCurve = true
			c.DensityModel = "guess"
		}},
		{name: "unknown terrain", mutate: func(c *Config) {
			c.RoughnessSource = RoughnessEstimated
			c.TerrainClass = "moon"
		}},
		{name: "estimated without value", mutate: func(c *Config) { c.RoughnessSource = RoughnessEstimated }},
		{name: "negative obstacle", mutate: func(c *Config) { c.ObstacleHeight = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewModelChain(spec, cfg)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigurationError, got %v", err)
			}
		})
	}
}

func TestMissingInputsBeforeComputation(t *testing.T) {
	w := newWeather(t, 1, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 10}: {5},
	})

	cfg := DefaultConfig()
	cfg.CorrectCurve = true
	mc, err := NewModelChain(scenarioTurbine(t), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = mc.Run(w)
	var missing *weather.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %v", err)
	}
	if missing.Variable != weather.RoughnessLength {
		t.Errorf("expected roughness length to be reported first, got %s", missing.Variable)
	}

	required := mc.RequiredInputs(w)
	want := []weather.Variable{weather.WindSpeed, weather.RoughnessLength, weather.Temperature, weather.Pressure}
	if len(required) != len(want) {
		t.Fatalf("expected %v, got %v", want, required)
	}
	for i := range want {
		if required[i] != want[i] {
			t.Errorf("expected %v, got %v", want, required)
		}
	}
}

func TestExponentialDensityTemperatureNeed(t *testing.T) {
	spec, err := New(Params{
		Name:             "cp",
		HubHeight:        100,
		RotorDiameter:    80,
		CoefficientCurve: mustCurve(t, []float64{0, 13, 25}, []float64{0.4, 0.4, 0.4}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.DensityModel = density.ExponentialModel

	mc, err := NewModelChain(spec, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// density measured at hub height is used as is
	atHub := newWeather(t, 1, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 100}:     {13},
		{Variable: weather.RoughnessLength, Height: 0}: {0.15},
		{Variable: weather.Density, Height: 100}:       {1.1},
	})
	required := mc.RequiredInputs(atHub)
	for _, v := range required {
		if v == weather.Temperature {
			t.Errorf("temperature must not be required, got %v", required)
		}
	}
	r, err := mc.Run(atHub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := power.CoefficientPower(13, 1.1, 80, 0.4)
	if math.Abs(r.Power.Values[0]-want) > 1e-6 {
		t.Errorf("expected power %.3f, got %.3f", want, r.Power.Values[0])
	}

	below := newWeather(t, 1, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 100}:     {13},
		{Variable: weather.RoughnessLength, Height: 0}: {0.15},
		{Variable: weather.Density, Height: 10}:        {1.2},
	})
	_, err = mc.Run(below)
	var missing *weather.MissingInputError
	if !errors.As(err, &missing) || missing.Variable != weather.Temperature {
		t.Errorf("expected missing temperature, got %v", err)
	}
}

func TestEstimatedRoughness(t *testing.T) {
	w := newWeather(t, 1, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 10}: {5},
	})
	spec, err := New(Params{Name: "t", HubHeight: 100, PowerCurve: mustCurve(t, []float64{0, 20}, []float64{0, 2000})})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := DefaultConfig()
	cfg.RoughnessSource = RoughnessEstimated
	cfg.RoughnessLength = 0.15

	mc, err := NewModelChain(spec, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := mc.Run(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r.WindSpeed[0]-7.74136523) > 1e-6 {
		t.Errorf("expected 7.74136523, got %v", r.WindSpeed[0])
	}
	if r.Density != nil {
		t.Error("power curve without correction must not compute density")
	}
}

func TestLenientRunLogsInvalidRows(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	w := newWeather(t, 3, map[weather.Key][]float64{
		{Variable: weather.WindSpeed, Height: 80}:      {5, -1, 12},
		{Variable: weather.RoughnessLength, Height: 0}: {0.1, 0.1, 0.1},
	})

	cfg := DefaultConfig()
	cfg.Logger = zap.New(core).Sugar()
	mc, err := NewModelChain(scenarioTurbine(t), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := mc.ComputePowerOutput(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Invalid != 1 || !math.IsNaN(out.Values[1]) {
		t.Errorf("expected row 1 to be invalid, got %v", out.Values)
	}
	if logs.FilterMessage("invalid rows in power output").Len() != 1 {
		t.Errorf("expected one warning about invalid rows, got %d entries", logs.Len())
	}

	cfg.Strict = true
	mc, err = NewModelChain(scenarioTurbine(t), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = mc.ComputePowerOutput(w)
	var rowErr *weather.InvalidInputError
	if !errors.As(err, &rowErr) || rowErr.Row != 1 {
		t.Errorf("expected strict row error at row 1, got %v", err)
	}
}
