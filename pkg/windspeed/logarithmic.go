package windspeed

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/weather"
)

// Logarithmic is the logarithmic wind profile with an optional obstacle height.
// The zero-plane displacement is 0.7 times the obstacle height.
type Logarithmic struct {
	ObstacleHeight float64
}

// Type returns LogarithmicModel
func (l *Logarithmic) Type() ModelType {
	return LogarithmicModel
}

// NeedsRoughness is always true
func (l *Logarithmic) NeedsRoughness() bool {
	return true
}

// CheckHeights reports a setup error when the displacement reaches the measurement height
func (l *Logarithmic) CheckHeights(measurementHeight float64) error {
	if 0.7*l.ObstacleHeight >= measurementHeight {
		return fmt.Errorf("obstacle height %g m leaves no profile below the measurement height %g m", l.ObstacleHeight, measurementHeight)
	}
	return nil
}

// Correct implements Profile
func (l *Logarithmic) Correct(w *weather.Series, hubHeight float64, z0 []float64, strict bool) (*Corrected, error) {
	h1, speeds, err := w.Closest(weather.WindSpeed, hubHeight)
	if err != nil {
		return nil, err
	}
	if z0 == nil {
		return nil, &weather.MissingInputError{Variable: weather.RoughnessLength, Reason: "required by the logarithmic profile"}
	}
	if err := l.CheckHeights(h1); err != nil {
		return nil, err
	}

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		if err := checkSpeed(speeds[i]); err != nil {
			return 0, err
		}
		if h1 == hubHeight {
			return speeds[i], nil
		}
		r, err := rowRoughness(z0, i)
		if err != nil {
			return 0, err
		}
		return LogarithmicSpeed(speeds[i], h1, hubHeight, r, l.ObstacleHeight)
	})
	if err != nil {
		return nil, err
	}

	return &Corrected{Values: values, SourceHeight: h1, Invalid: invalid}, nil
}

// LogarithmicSpeed moves wind speed v from height h1 to h2 with the logarithmic profile
//
//	v2 = v * ln((h2 - d) / z0) / ln((h1 - d) / z0), d = 0.7 * obstacleHeight
func LogarithmicSpeed(v, h1, h2, z0, obstacleHeight float64) (float64, error) {
	if h1 == h2 {
		return v, nil
	}
	d := 0.7 * obstacleHeight
	if d >= h1 {
		return 0, fmt.Errorf("displacement %g m is not below measurement height %g m", d, h1)
	}
	if z0 <= 0 || math.IsNaN(z0) {
		return 0, fmt.Errorf("roughness length %g is not positive", z0)
	}

	lower := (h1 - d) / z0
	upper := (h2 - d) / z0
	if lower <= 1 {
		return 0, fmt.Errorf("roughness length %g m is not below measurement height %g m", z0, h1-d)
	}
	if upper <= 1 {
		return 0, fmt.Errorf("roughness length %g m is not below hub height %g m", z0, h2-d)
	}

	return v * math.Log(upper) / math.Log(lower), nil
}
