// Package turbine describes wind turbines and computes their power output from weather data.
package turbine

import (
	"fmt"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/power"
)

// ConfigurationError reports mutually exclusive or unknown options. It is returned before
// any weather data is read.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Reason)
}

// Params are the raw values a Spec is built from
type Params struct {
	Name          string
	HubHeight     float64 // m
	RotorDiameter float64 // m
	NominalPower  float64 // W, 0 when unknown

	PowerCurve       *curve.Curve // m/s -> W
	CoefficientCurve *curve.Curve // m/s -> cp
}

// Spec is an immutable turbine description with exactly one characteristic curve
type Spec struct {
	name          string
	hubHeight     float64
	rotorDiameter float64
	nominalPower  float64

	characteristic power.Characteristic
}

// New validates p and builds a Spec.
// When no nominal power is given for a power curve turbine, the curve maximum is used.
func New(p Params) (*Spec, error) {
	if p.PowerCurve != nil && p.CoefficientCurve != nil {
		return nil, &ConfigurationError{Field: "curve", Reason: fmt.Sprintf("turbine %q has both a power curve and a power coefficient curve", p.Name)}
	}
	if p.PowerCurve == nil && p.CoefficientCurve == nil {
		return nil, &curve.InvalidCurveError{Index: -1, Reason: fmt.Sprintf("turbine %q has neither a power curve nor a power coefficient curve", p.Name)}
	}
	if !(p.HubHeight > 0) {
		return nil, &ConfigurationError{Field: "hub_height", Reason: fmt.Sprintf("turbine %q needs a positive hub height, got %g", p.Name, p.HubHeight)}
	}
	if p.NominalPower < 0 {
		return nil, &ConfigurationError{Field: "nominal_power", Reason: fmt.Sprintf("turbine %q has negative nominal power %g", p.Name, p.NominalPower)}
	}

	s := &Spec{
		name:          p.Name,
		hubHeight:     p.HubHeight,
		rotorDiameter: p.RotorDiameter,
		nominalPower:  p.NominalPower,
	}

	if p.PowerCurve != nil {
		s.characteristic = &power.PowerCurve{Curve: p.PowerCurve}
		if s.nominalPower == 0 {
			s.nominalPower = p.PowerCurve.MaxValue()
		}
		return s, nil
	}

	if !(p.RotorDiameter > 0) {
		return nil, &ConfigurationError{Field: "rotor_diameter", Reason: fmt.Sprintf("turbine %q needs a positive rotor diameter for its power coefficient curve", p.Name)}
	}
	s.characteristic = &power.CoefficientCurve{Curve: p.CoefficientCurve, RotorDiameter: p.RotorDiameter}
	return s, nil
}

// Name returns the turbine type name
func (s *Spec) Name() string { return s.name }

// HubHeight returns the hub height in m
func (s *Spec) HubHeight() float64 { return s.hubHeight }

// RotorDiameter returns the rotor diameter in m, 0 when unknown
func (s *Spec) RotorDiameter() float64 { return s.rotorDiameter }

// NominalPower returns the rated power in W, 0 when unknown
func (s *Spec) NominalPower() float64 { return s.nominalPower }

// Characteristic returns the turbine's power characteristic
func (s *Spec) Characteristic() power.Characteristic { return s.characteristic }

// PowerCurve returns the turbine's power curve at standard density. A power coefficient
// curve is tabulated at its own wind speeds.
func (s *Spec) PowerCurve() (*curve.Curve, error) {
	return s.characteristic.AsPowerCurve(density.StandardDensity)
}
