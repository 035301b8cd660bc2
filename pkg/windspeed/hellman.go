package windspeed

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/weather"
)

// DefaultHellmanExponent is used when neither an exponent nor a roughness length is given
const DefaultHellmanExponent = 1.0 / 7.0

// Hellman is the power law wind profile v2 = v1 * (h2/h1)^alpha.
// With a zero Exponent alpha is estimated per row as 1/ln(h2/z0), or DefaultHellmanExponent
// when no roughness length is available.
type Hellman struct {
	Exponent float64
}

// Type returns HellmanModel
func (h *Hellman) Type() ModelType {
	return HellmanModel
}

// NeedsRoughness is false; a missing roughness falls back to DefaultHellmanExponent
func (h *Hellman) NeedsRoughness() bool {
	return false
}

// Correct implements Profile
func (h *Hellman) Correct(w *weather.Series, hubHeight float64, z0 []float64, strict bool) (*Corrected, error) {
	h1, speeds, err := w.Closest(weather.WindSpeed, hubHeight)
	if err != nil {
		return nil, err
	}
	if h1 <= 0 || hubHeight <= 0 {
		return nil, fmt.Errorf("hellman profile needs positive heights (measurement %g m, hub %g m)", h1, hubHeight)
	}

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		if err := checkSpeed(speeds[i]); err != nil {
			return 0, err
		}
		if h1 == hubHeight {
			return speeds[i], nil
		}

		alpha := h.Exponent
		if alpha == 0 {
			if z0 == nil {
				alpha = DefaultHellmanExponent
			} else {
				r, err := rowRoughness(z0, i)
				if err != nil {
					return 0, err
				}
				if alpha, err = HellmanExponent(hubHeight, r); err != nil {
					return 0, err
				}
			}
		}
		return HellmanSpeed(speeds[i], h1, hubHeight, alpha), nil
	})
	if err != nil {
		return nil, err
	}

	return &Corrected{Values: values, SourceHeight: h1, Invalid: invalid}, nil
}

// HellmanExponent estimates the Hellman exponent from hub height and roughness length
func HellmanExponent(hubHeight, z0 float64) (float64, error) {
	if z0 <= 0 || hubHeight/z0 <= 1 {
		return 0, fmt.Errorf("cannot estimate hellman exponent for hub height %g m and roughness length %g m", hubHeight, z0)
	}
	return 1 / math.Log(hubHeight/z0), nil
}

// HellmanSpeed moves wind speed v from height h1 to h2 with exponent alpha
func HellmanSpeed(v, h1, h2, alpha float64) float64 {
	return v * math.Pow(h2/h1, alpha)
}
