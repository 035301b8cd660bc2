package turbine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/windspeed"
)

// RoughnessSource selects where the roughness length comes from
type RoughnessSource string

const (
	// RoughnessMeasured reads the roughness_length column of the weather series
	RoughnessMeasured RoughnessSource = "measured"

	// RoughnessEstimated uses a configured roughness length or terrain class
	RoughnessEstimated RoughnessSource = "estimated"
)

// TerrainRoughness maps terrain classes to typical roughness lengths in m
var TerrainRoughness = map[string]float64{
	"water":    0.0002,
	"open":     0.03,
	"farmland": 0.1,
	"suburban": 0.4,
	"forest":   0.8,
	"city":     1.6,
}

// Config selects the models of a ModelChain
type Config struct {
	WindModel       windspeed.ModelType
	HellmanExponent float64 // 0 estimates the exponent
	ObstacleHeight  float64 // m

	RoughnessSource RoughnessSource
	RoughnessLength float64 // m, used with RoughnessEstimated
	TerrainClass    string  // used with RoughnessEstimated when RoughnessLength is 0

	TemperatureModel density.TemperatureModel
	DensityModel     density.ModelType

	// CorrectObservation and CorrectCurve are mutually exclusive
	CorrectObservation bool
	CorrectCurve       bool
	DensityExponent    density.Exponent

	// Strict returns the first invalid row as an error
	Strict bool

	Logger *zap.SugaredLogger
}

// DefaultConfig returns a logarithmic profile with measured roughness, barometric
// density and no density correction
func DefaultConfig() Config {
	return Config{
		WindModel:        windspeed.LogarithmicModel,
		RoughnessSource:  RoughnessMeasured,
		TemperatureModel: density.TemperatureLinearGradient,
		DensityModel:     density.BarometricModel,
		DensityExponent:  density.ExponentIEC,
	}
}

// Correction returns the density correction the flags select
func (c Config) Correction() (power.Correction, error) {
	switch {
	case c.CorrectObservation && c.CorrectCurve:
		return "", &ConfigurationError{Field: "density_correction", Reason: "observation and curve correction are mutually exclusive"}
	case c.CorrectObservation:
		return power.ObservationCorrection, nil
	case c.CorrectCurve:
		return power.CurveCorrection, nil
	default:
		return power.NoCorrection, nil
	}
}

// Validate checks c without building any models
func (c Config) Validate() error {
	correction, err := c.Correction()
	if err != nil {
		return err
	}
	if err := c.DensityExponent.Validate(); err != nil {
		return &ConfigurationError{Field: "density_exponent", Reason: err.Error()}
	}
	if correction == power.ObservationCorrection && c.DensityExponent == density.ExponentSvenningsen {
		return &ConfigurationError{Field: "density_exponent", Reason: "the svenningsen exponent applies to curve correction only"}
	}
	if err := c.TemperatureModel.Validate(); err != nil {
		return &ConfigurationError{Field: "temperature_model", Reason: err.Error()}
	}
	if c.HellmanExponent < 0 {
		return &ConfigurationError{Field: "hellman_exponent", Reason: fmt.Sprintf("negative exponent %g", c.HellmanExponent)}
	}
	if c.ObstacleHeight < 0 {
		return &ConfigurationError{Field: "obstacle_height", Reason: fmt.Sprintf("negative obstacle height %g", c.ObstacleHeight)}
	}

	switch c.RoughnessSource {
	case RoughnessMeasured, "":
	case RoughnessEstimated:
		if _, err := c.estimatedRoughness(); err != nil {
			return err
		}
	default:
		return &ConfigurationError{Field: "roughness_source", Reason: fmt.Sprintf("unknown source %q", c.RoughnessSource)}
	}
	return nil
}

func (c Config) estimatedRoughness() (float64, error) {
	if c.RoughnessLength > 0 {
		return c.RoughnessLength, nil
	}
	if c.TerrainClass != "" {
		z0, ok := TerrainRoughness[c.TerrainClass]
		if !ok {
			return 0, &ConfigurationError{Field: "terrain_class", Reason: fmt.Sprintf("unknown terrain class %q", c.TerrainClass)}
		}
		return z0, nil
	}
	return 0, &ConfigurationError{Field: "roughness_length", Reason: "estimated roughness needs a positive roughness length or a terrain class"}
}
