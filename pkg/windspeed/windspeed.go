// Package windspeed extrapolates measured wind speed to turbine hub height.
package windspeed

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/weather"
)

// ModelType selects a wind profile
type ModelType string

const (
	// LogarithmicModel uses the logarithmic wind profile
	LogarithmicModel ModelType = "logarithmic"

	// HellmanModel uses the Hellman power law
	HellmanModel ModelType = "hellman"

	// InterpolationModel interpolates linearly between two measurement heights
	InterpolationModel ModelType = "interpolation"
)

// Profile corrects the wind speed of a weather series to hub height
type Profile interface {
	// Type returns the model identifier
	Type() ModelType

	// NeedsRoughness reports whether Correct must be given a roughness length per row
	NeedsRoughness() bool

	// Correct returns the wind speed at hubHeight for every row of w.
	// z0 holds the roughness length per row and may be nil for profiles that do not need it.
	Correct(w *weather.Series, hubHeight float64, z0 []float64, strict bool) (*Corrected, error)
}

// Corrected is the hub height wind speed of every row. Invalid rows are NaN.
type Corrected struct {
	Values []float64

	// SourceHeight is the measurement height the values were derived from.
	// For interpolation it is the lower of the two heights used.
	SourceHeight float64

	Invalid int
}

// NewProfile returns the profile for the given model type
func NewProfile(model ModelType, hellmanExponent, obstacleHeight float64) (Profile, error) {
	switch model {
	case LogarithmicModel, "":
		return &Logarithmic{ObstacleHeight: obstacleHeight}, nil
	case HellmanModel:
		return &Hellman{Exponent: hellmanExponent}, nil
	case InterpolationModel:
		return &Interpolation{}, nil
	default:
		return nil, fmt.Errorf("unknown wind speed model %q", model)
	}
}

func checkSpeed(v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("wind speed is missing")
	}
	if v < 0 {
		return fmt.Errorf("negative wind speed %g", v)
	}
	return nil
}

func rowRoughness(z0 []float64, i int) (float64, error) {
	r := z0[i]
	if math.IsNaN(r) || r <= 0 {
		return 0, fmt.Errorf("roughness length %g is not positive", r)
	}
	return r, nil
}
