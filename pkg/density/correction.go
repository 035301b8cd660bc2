package density

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/curve"
)

// Exponent selects the exponent of the density correction
type Exponent string

const (
	// ExponentIEC is the constant 1/3 of IEC 61400-12
	ExponentIEC Exponent = "iec"

	// ExponentSvenningsen rises from 1/3 at 7.5 m/s to 2/3 at 12.5 m/s
	ExponentSvenningsen Exponent = "svenningsen"
)

// Validate reports an unknown exponent
func (e Exponent) Validate() error {
	switch e {
	case ExponentIEC, ExponentSvenningsen, "":
		return nil
	}
	return fmt.Errorf("unknown density correction exponent %q", e)
}

// At returns the exponent for standard wind speed v
func (e Exponent) At(v float64) float64 {
	if e != ExponentSvenningsen {
		return 1.0 / 3.0
	}
	switch {
	case v <= 7.5:
		return 1.0 / 3.0
	case v >= 12.5:
		return 2.0 / 3.0
	default:
		return v/15 - 1.0/6.0
	}
}

// NormalizeWindSpeed converts a wind speed observed at density rho to the equivalent
// speed at StandardDensity, v·(rho/ρ0)^(1/3)
func NormalizeWindSpeed(v, rho float64) float64 {
	return v * math.Cbrt(rho/StandardDensity)
}

// CorrectCurve shifts the wind speed axis of a standard density power curve to site
// density rho: v_site = v_std·(ρ0/rho)^p(v_std)
func CorrectCurve(c *curve.Curve, rho float64, e Exponent) (*curve.Curve, error) {
	if !(rho > 0) {
		return nil, fmt.Errorf("density %g kg/m³ is not positive", rho)
	}
	ratio := StandardDensity / rho
	return c.ScaleAxis(func(v float64) float64 {
		return v * math.Pow(ratio, e.At(v))
	})
}
