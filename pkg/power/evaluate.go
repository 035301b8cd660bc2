package power

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/weather"
)

// Correction selects where air density enters the power calculation
type Correction string

const (
	// NoCorrection evaluates the characteristic as tabulated
	NoCorrection Correction = "none"

	// ObservationCorrection normalizes the observed wind speed to standard density
	ObservationCorrection Correction = "observation"

	// CurveCorrection shifts the power curve wind speed axis to site density
	CurveCorrection Correction = "curve"
)

// Options control a single evaluation
type Options struct {
	// Nominal is the rated power in W. Results are clamped to it when it is positive.
	Nominal float64

	Correction Correction
	Exponent   density.Exponent

	// Strict returns the first invalid row as an error instead of marking it NaN
	Strict bool
}

// Series is a time-indexed power output in W. Invalid rows are NaN.
type Series struct {
	Index  []time.Time
	Values []float64

	// Invalid counts NaN rows
	Invalid int

	// Clamped counts rows limited to the nominal power
	Clamped int
}

// Len returns the number of rows
func (s *Series) Len() int {
	return len(s.Values)
}

// Evaluate computes the power output for every row of speed.
// rho is the density at hub height per row and may be nil when neither the
// characteristic nor the correction needs it.
func Evaluate(c Characteristic, index []time.Time, speed, rho []float64, opts Options) (*Series, error) {
	if len(speed) != len(index) {
		return nil, fmt.Errorf("got %d wind speeds for %d rows", len(speed), len(index))
	}

	correction := opts.Correction
	if correction == "" {
		correction = NoCorrection
	}
	if correction == ObservationCorrection && opts.Exponent == density.ExponentSvenningsen {
		return nil, errors.New("the svenningsen exponent applies to curve correction only")
	}

	needsDensity := c.NeedsDensity() || correction != NoCorrection
	if needsDensity && len(rho) != len(index) {
		return nil, &weather.MissingInputError{Variable: weather.Density, Reason: fmt.Sprintf("%s with %s correction needs density at hub height", c.Type(), correction)}
	}

	eval := c
	if correction == ObservationCorrection && c.Type() == CoefficientCurveModel {
		// a normalized wind speed is a standard density wind speed
		std, err := c.AsPowerCurve(density.StandardDensity)
		if err != nil {
			return nil, err
		}
		eval = &PowerCurve{Curve: std}
	}

	out := &Series{
		Index:  append([]time.Time(nil), index...),
		Values: make([]float64, len(index)),
	}

	var (
		shifted    *PowerCurve
		shiftedRho = math.NaN()
	)

	for i, v := range speed {
		var r float64
		if needsDensity {
			r = rho[i]
		}

		p, err := func() (float64, error) {
			if math.IsNaN(v) || v < 0 {
				return 0, fmt.Errorf("wind speed %g at hub height is invalid", v)
			}
			if needsDensity && !(r > 0) {
				return 0, fmt.Errorf("density %g at hub height is invalid", r)
			}

			switch correction {
			case ObservationCorrection:
				return eval.Power(density.NormalizeWindSpeed(v, r), density.StandardDensity), nil
			case CurveCorrection:
				if shifted == nil || r != shiftedRho {
					corrected, err := DensityCorrected(c, r, opts.Exponent)
					if err != nil {
						return 0, err
					}
					shifted, shiftedRho = corrected, r
				}
				return shifted.Power(v, r), nil
			default:
				return eval.Power(v, r), nil
			}
		}()
		if err == nil && (math.IsNaN(p) || math.IsInf(p, 0)) {
			err = errors.New("power is not finite")
		}

		if err != nil {
			if opts.Strict {
				return nil, &weather.InvalidInputError{Row: i, Time: index[i], Reason: err.Error()}
			}
			out.Values[i] = math.NaN()
			out.Invalid++
			continue
		}

		if p < 0 {
			p = 0
		}
		if opts.Nominal > 0 && p > opts.Nominal {
			p = opts.Nominal
			out.Clamped++
		}
		out.Values[i] = p
	}

	return out, nil
}
