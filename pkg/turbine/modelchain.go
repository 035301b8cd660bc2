package turbine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/weather"
	"github.com/chrissnell/windfeed/pkg/windspeed"
)

// ModelChain computes the power output of one turbine type from weather data.
// Its models are fixed at construction; Run is safe for concurrent use.
type ModelChain struct {
	spec       *Spec
	cfg        Config
	profile    windspeed.Profile
	density    density.Model
	correction power.Correction
	logger     *zap.SugaredLogger
}

// Result is the output of a model chain run
type Result struct {
	Power *power.Series

	// WindSpeed is the wind speed at hub height
	WindSpeed []float64

	// Density is the air density at hub height, nil when no model needed it
	Density []float64
}

// NewModelChain validates cfg for spec and selects the models
func NewModelChain(spec *Spec, cfg Config) (*ModelChain, error) {
	def := DefaultConfig()
	if cfg.WindModel == "" {
		cfg.WindModel = def.WindModel
	}
	if cfg.RoughnessSource == "" {
		cfg.RoughnessSource = def.RoughnessSource
	}
	if cfg.TemperatureModel == "" {
		cfg.TemperatureModel = def.TemperatureModel
	}
	if cfg.DensityModel == "" {
		cfg.DensityModel = def.DensityModel
	}
	if cfg.DensityExponent == "" {
		cfg.DensityExponent = def.DensityExponent
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	correction, _ := cfg.Correction()

	profile, err := windspeed.NewProfile(cfg.WindModel, cfg.HellmanExponent, cfg.ObstacleHeight)
	if err != nil {
		return nil, &ConfigurationError{Field: "wind_model", Reason: err.Error()}
	}

	mc := &ModelChain{
		spec:       spec,
		cfg:        cfg,
		profile:    profile,
		correction: correction,
		logger:     cfg.Logger,
	}
	if mc.logger == nil {
		mc.logger = zap.NewNop().Sugar()
	}

	if mc.needsDensity() {
		mc.density, err = density.NewModel(cfg.DensityModel)
		if err != nil {
			return nil, &ConfigurationError{Field: "density_model", Reason: err.Error()}
		}
	}

	mc.logger.Debugw("model chain configured",
		"turbine", spec.Name(),
		"wind_model", cfg.WindModel,
		"density_model", cfg.DensityModel,
		"correction", correction,
		"characteristic", spec.Characteristic().Type(),
	)

	return mc, nil
}

// Spec returns the turbine the chain computes
func (m *ModelChain) Spec() *Spec {
	return m.spec
}

// Config returns the effective configuration
func (m *ModelChain) Config() Config {
	return m.cfg
}

func (m *ModelChain) needsDensity() bool {
	return m.spec.Characteristic().NeedsDensity() || m.correction != power.NoCorrection
}

// RequiredInputs lists the weather variables the chain reads from w. Temperature is only
// listed when the density model reads it for the heights w provides.
func (m *ModelChain) RequiredInputs(w *weather.Series) []weather.Variable {
	vars := []weather.Variable{weather.WindSpeed}
	if m.profile.NeedsRoughness() && m.cfg.RoughnessSource == RoughnessMeasured {
		vars = append(vars, weather.RoughnessLength)
	}
	if m.density != nil {
		if m.density.NeedsTemperature(w, m.spec.HubHeight()) {
			vars = append(vars, weather.Temperature)
		}
		vars = append(vars, m.density.Requires()...)
	}
	return vars
}

// CheckInputs returns a *weather.MissingInputError for the first required variable w lacks
func (m *ModelChain) CheckInputs(w *weather.Series) error {
	for _, v := range m.RequiredInputs(w) {
		if !w.Has(v) {
			return &weather.MissingInputError{Variable: v, Reason: fmt.Sprintf("required for turbine %q", m.spec.Name())}
		}
	}
	return nil
}

// roughness returns the roughness length per row, or nil when none is available
func (m *ModelChain) roughness(w *weather.Series) ([]float64, error) {
	if m.cfg.RoughnessSource == RoughnessEstimated {
		z0, err := m.cfg.estimatedRoughness()
		if err != nil {
			return nil, err
		}
		values := make([]float64, w.Len())
		for i := range values {
			values[i] = z0
		}
		return values, nil
	}

	if !w.Has(weather.RoughnessLength) {
		return nil, nil
	}
	_, values, err := w.Closest(weather.RoughnessLength, 0)
	return values, err
}

// Run computes hub height wind speed, density when needed, and power output
func (m *ModelChain) Run(w *weather.Series) (*Result, error) {
	if err := m.CheckInputs(w); err != nil {
		return nil, err
	}

	z0, err := m.roughness(w)
	if err != nil {
		return nil, err
	}

	hub := m.spec.HubHeight()
	speed, err := m.profile.Correct(w, hub, z0, m.cfg.Strict)
	if err != nil {
		return nil, fmt.Errorf("turbine %q: wind speed at hub height: %w", m.spec.Name(), err)
	}
	m.logger.Debugw("wind speed at hub height",
		"turbine", m.spec.Name(),
		"model", m.profile.Type(),
		"from_height", speed.SourceHeight,
		"hub_height", hub,
		"invalid_rows", speed.Invalid,
	)

	result := &Result{WindSpeed: speed.Values}

	if m.density != nil {
		var tempHub []float64
		if m.density.NeedsTemperature(w, hub) {
			temps, err := density.HubTemperature(w, hub, m.cfg.TemperatureModel, m.cfg.Strict)
			if err != nil {
				return nil, fmt.Errorf("turbine %q: temperature at hub height: %w", m.spec.Name(), err)
			}
			tempHub = temps.Values
		}
		rho, err := m.density.Density(w, hub, tempHub, m.cfg.Strict)
		if err != nil {
			return nil, fmt.Errorf("turbine %q: density at hub height: %w", m.spec.Name(), err)
		}
		result.Density = rho.Values
	}

	out, err := power.Evaluate(m.spec.Characteristic(), w.Index(), result.WindSpeed, result.Density, power.Options{
		Nominal:    m.spec.NominalPower(),
		Correction: m.correction,
		Exponent:   m.cfg.DensityExponent,
		Strict:     m.cfg.Strict,
	})
	if err != nil {
		return nil, fmt.Errorf("turbine %q: power output: %w", m.spec.Name(), err)
	}

	if out.Invalid > 0 {
		m.logger.Warnw("invalid rows in power output", "turbine", m.spec.Name(), "rows", out.Invalid, "total", out.Len())
	}
	if out.Clamped > 0 {
		m.logger.Warnw("power output clamped to nominal power", "turbine", m.spec.Name(), "rows", out.Clamped, "nominal_power", m.spec.NominalPower())
	}

	result.Power = out
	return result, nil
}

// ComputePowerOutput returns the power output of one turbine for every row of w
func (m *ModelChain) ComputePowerOutput(w *weather.Series) (*power.Series, error) {
	r, err := m.Run(w)
	if err != nil {
		return nil, err
	}
	return r.Power, nil
}
