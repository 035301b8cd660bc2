// Package power converts hub height wind speed into electrical power using a turbine's
// power curve or power coefficient curve.
package power

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/density"
)

// ModelType identifies the kind of characteristic curve
type ModelType string

const (
	// PowerCurveModel maps wind speed in m/s to power in W
	PowerCurveModel ModelType = "power_curve"

	// CoefficientCurveModel maps wind speed in m/s to the power coefficient cp
	CoefficientCurveModel ModelType = "power_coefficient_curve"
)

// Characteristic is a turbine's wind speed to power relation
type Characteristic interface {
	Type() ModelType

	// NeedsDensity reports whether Power reads the density argument
	NeedsDensity() bool

	// Power returns the power in W at wind speed v and density rho
	Power(v, rho float64) float64

	// AsPowerCurve tabulates the characteristic as a power curve at density rho
	AsPowerCurve(rho float64) (*curve.Curve, error)
}

// PowerCurve is a tabulated power curve measured at standard density
type PowerCurve struct {
	Curve *curve.Curve
}

// Type returns PowerCurveModel
func (p *PowerCurve) Type() ModelType { return PowerCurveModel }

// NeedsDensity is false
func (p *PowerCurve) NeedsDensity() bool { return false }

// Power interpolates the power curve at v
func (p *PowerCurve) Power(v, _ float64) float64 {
	return p.Curve.At(v)
}

// AsPowerCurve returns the curve itself
func (p *PowerCurve) AsPowerCurve(float64) (*curve.Curve, error) {
	return p.Curve, nil
}

// CoefficientCurve is a tabulated power coefficient curve of a rotor
type CoefficientCurve struct {
	Curve         *curve.Curve
	RotorDiameter float64
}

// Type returns CoefficientCurveModel
func (c *CoefficientCurve) Type() ModelType { return CoefficientCurveModel }

// NeedsDensity is true
func (c *CoefficientCurve) NeedsDensity() bool { return true }

// Power returns 0.5·rho·A·v³·cp(v) with A the swept rotor area
func (c *CoefficientCurve) Power(v, rho float64) float64 {
	return CoefficientPower(v, rho, c.RotorDiameter, c.Curve.At(v))
}

// AsPowerCurve evaluates the coefficient curve at its own wind speeds for density rho
func (c *CoefficientCurve) AsPowerCurve(rho float64) (*curve.Curve, error) {
	xs := c.Curve.X()
	ys := c.Curve.Y()
	for i := range xs {
		ys[i] = CoefficientPower(xs[i], rho, c.RotorDiameter, ys[i])
	}
	return curve.New(xs, ys)
}

// CoefficientPower returns 0.5·rho·π(d/2)²·v³·cp
func CoefficientPower(v, rho, diameter, cp float64) float64 {
	area := math.Pi * diameter * diameter / 4
	return 0.5 * rho * area * v * v * v * cp
}

// DensityCorrected returns c as a power curve whose wind speed axis is shifted to density
// rho. A coefficient curve is first tabulated at standard density.
func DensityCorrected(c Characteristic, rho float64, e density.Exponent) (*PowerCurve, error) {
	std, err := c.AsPowerCurve(density.StandardDensity)
	if err != nil {
		return nil, fmt.Errorf("could not tabulate %s at standard density: %w", c.Type(), err)
	}
	shifted, err := density.CorrectCurve(std, rho, e)
	if err != nil {
		return nil, err
	}
	return &PowerCurve{Curve: shifted}, nil
}
