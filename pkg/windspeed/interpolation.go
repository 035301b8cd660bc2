package windspeed

import (
	"github.com/chrissnell/windfeed/pkg/weather"
)

// Interpolation interpolates or extrapolates linearly between the two wind speed
// measurements closest to hub height.
type Interpolation struct{}

// Type returns InterpolationModel
func (p *Interpolation) Type() ModelType {
	return InterpolationModel
}

// NeedsRoughness is always false
func (p *Interpolation) NeedsRoughness() bool {
	return false
}

// Correct implements Profile
func (p *Interpolation) Correct(w *weather.Series, hubHeight float64, _ []float64, strict bool) (*Corrected, error) {
	if speeds, ok := w.Column(weather.WindSpeed, hubHeight); ok {
		values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
			return speeds[i], checkSpeed(speeds[i])
		})
		if err != nil {
			return nil, err
		}
		return &Corrected{Values: values, SourceHeight: hubHeight, Invalid: invalid}, nil
	}

	h1, h2, err := w.ClosestPair(weather.WindSpeed, hubHeight)
	if err != nil {
		return nil, err
	}
	lower, _ := w.Column(weather.WindSpeed, h1)
	upper, _ := w.Column(weather.WindSpeed, h2)

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		if err := checkSpeed(lower[i]); err != nil {
			return 0, err
		}
		if err := checkSpeed(upper[i]); err != nil {
			return 0, err
		}
		v := weather.LinearAt(lower[i], upper[i], h1, h2, hubHeight)
		if err := checkSpeed(v); err != nil {
			return 0, err
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}

	return &Corrected{Values: values, SourceHeight: h1, Invalid: invalid}, nil
}
