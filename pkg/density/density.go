// Package density derives air density at hub height and applies density corrections to
// wind speed or to power curves.
package density

import (
	"fmt"
	"math"

	"github.com/chrissnell/windfeed/pkg/weather"
)

const (
	// StandardDensity is the air density power curves are measured at, in kg/m³
	StandardDensity = 1.225

	// TemperatureGradient of the standard atmosphere in K/m
	TemperatureGradient = -0.0065

	standardTemperature = 288.15   // K
	standardPressure    = 101330.0 // Pa
	specificGasConstant = 287.058  // J/(kg·K), dry air

	gravity           = 9.80665   // m/s²
	molarMass         = 0.0289644 // kg/mol, dry air
	universalGasConst = 8.3144598 // J/(mol·K)
)

// ModelType selects how density at hub height is obtained
type ModelType string

const (
	// BarometricModel uses the barometric height equation on measured pressure
	BarometricModel ModelType = "barometric"

	// IdealGasModel uses the ideal gas equation on measured pressure
	IdealGasModel ModelType = "ideal_gas"

	// ExponentialModel extrapolates a measured density column exponentially
	ExponentialModel ModelType = "exponential"
)

// Model computes air density at hub height
type Model interface {
	Type() ModelType

	// Requires lists the weather variables the model reads besides temperature
	Requires() []weather.Variable

	// NeedsTemperature reports whether Density reads the hub height temperature for w
	NeedsTemperature(w *weather.Series, hubHeight float64) bool

	// Density returns the density at hubHeight for every row. tempHub is the temperature
	// at hub height per row.
	Density(w *weather.Series, hubHeight float64, tempHub []float64, strict bool) (*Result, error)
}

// Result holds a per-row series with invalid rows set to NaN
type Result struct {
	Values []float64

	// SourceHeight is the height of the measurement the values were derived from
	SourceHeight float64

	Invalid int
}

// NewModel returns the density model for the given type
func NewModel(model ModelType) (Model, error) {
	switch model {
	case BarometricModel, "":
		return barometric{}, nil
	case IdealGasModel:
		return idealGas{}, nil
	case ExponentialModel:
		return exponential{}, nil
	default:
		return nil, fmt.Errorf("unknown density model %q", model)
	}
}

// TemperatureAtHub moves temperature t measured at height from to height to using the
// standard linear gradient
func TemperatureAtHub(t, from, to float64) float64 {
	return t + TemperatureGradient*(to-from)
}

// TemperatureModel selects how temperature at hub height is obtained
type TemperatureModel string

const (
	// TemperatureLinearGradient applies TemperatureGradient to the measurement closest to hub height
	TemperatureLinearGradient TemperatureModel = "linear_gradient"

	// TemperatureInterpolation interpolates between the two measurement heights closest to hub height
	TemperatureInterpolation TemperatureModel = "interpolation"
)

// Validate reports an unknown temperature model
func (m TemperatureModel) Validate() error {
	switch m {
	case TemperatureLinearGradient, TemperatureInterpolation, "":
		return nil
	}
	return fmt.Errorf("unknown temperature model %q", m)
}

// HubTemperature returns the temperature at hub height for every row.
// A temperature measured exactly at hub height is used as is.
func HubTemperature(w *weather.Series, hubHeight float64, model TemperatureModel, strict bool) (*Result, error) {
	var (
		h     float64
		temps []float64
		err   error
	)

	if model == TemperatureInterpolation {
		h = hubHeight
		temps, err = w.Interpolate(weather.Temperature, hubHeight)
	} else {
		h, temps, err = w.Closest(weather.Temperature, hubHeight)
	}
	if err != nil {
		return nil, err
	}

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		t := temps[i]
		if h != hubHeight {
			t = TemperatureAtHub(t, h, hubHeight)
		}
		if !(t > 0) {
			return 0, fmt.Errorf("temperature %g K at hub height is not positive", t)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Values: values, SourceHeight: h, Invalid: invalid}, nil
}

// pressureAtHub applies the -1/8 hPa/m pressure gradient and returns Pa
func pressureAtHub(p, from, to float64) float64 {
	return (p/100 - (to-from)/8) * 100
}

// Barometric returns density from pressure p measured at height from and temperature
// tHub at hub height
func Barometric(p, from, hubHeight, tHub float64) float64 {
	return pressureAtHub(p, from, hubHeight) * StandardDensity * standardTemperature / (standardPressure * tHub)
}

// IdealGas returns density from pressure p measured at height from and temperature
// tHub at hub height
func IdealGas(p, from, hubHeight, tHub float64) float64 {
	return pressureAtHub(p, from, hubHeight) / (specificGasConstant * tHub)
}

// Exponential moves density rho measured at height from to hubHeight at temperature t
func Exponential(rho, from, hubHeight, t float64) float64 {
	return rho * math.Exp(-gravity*molarMass*(hubHeight-from)/(universalGasConst*t))
}

type pressureModel func(p, from, hubHeight, tHub float64) float64

func (fn pressureModel) density(w *weather.Series, hubHeight float64, tempHub []float64, strict bool) (*Result, error) {
	h, pressures, err := w.Closest(weather.Pressure, hubHeight)
	if err != nil {
		return nil, err
	}

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		if !(tempHub[i] > 0) {
			return 0, fmt.Errorf("temperature %g K at hub height is not positive", tempHub[i])
		}
		if !(pressures[i] > 0) {
			return 0, fmt.Errorf("pressure %g Pa is not positive", pressures[i])
		}
		rho := fn(pressures[i], h, hubHeight, tempHub[i])
		if !(rho > 0) {
			return 0, fmt.Errorf("density %g kg/m³ is not positive", rho)
		}
		return rho, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Values: values, SourceHeight: h, Invalid: invalid}, nil
}

type barometric struct{}

func (barometric) Type() ModelType { return BarometricModel }

func (barometric) Requires() []weather.Variable { return []weather.Variable{weather.Pressure} }

func (barometric) NeedsTemperature(*weather.Series, float64) bool { return true }

func (barometric) Density(w *weather.Series, hubHeight float64, tempHub []float64, strict bool) (*Result, error) {
	return pressureModel(Barometric).density(w, hubHeight, tempHub, strict)
}

type idealGas struct{}

func (idealGas) Type() ModelType { return IdealGasModel }

func (idealGas) Requires() []weather.Variable { return []weather.Variable{weather.Pressure} }

func (idealGas) NeedsTemperature(*weather.Series, float64) bool { return true }

func (idealGas) Density(w *weather.Series, hubHeight float64, tempHub []float64, strict bool) (*Result, error) {
	return pressureModel(IdealGas).density(w, hubHeight, tempHub, strict)
}

type exponential struct{}

func (exponential) Type() ModelType { return ExponentialModel }

func (exponential) Requires() []weather.Variable { return []weather.Variable{weather.Density} }

// NeedsTemperature is false when density is measured at hub height
func (exponential) NeedsTemperature(w *weather.Series, hubHeight float64) bool {
	h, _, err := w.Closest(weather.Density, hubHeight)
	return err == nil && h != hubHeight
}

func (exponential) Density(w *weather.Series, hubHeight float64, tempHub []float64, strict bool) (*Result, error) {
	h, measured, err := w.Closest(weather.Density, hubHeight)
	if err != nil {
		return nil, err
	}

	values, invalid, err := w.EvaluateRows(strict, func(i int) (float64, error) {
		if !(measured[i] > 0) {
			return 0, fmt.Errorf("density %g kg/m³ is not positive", measured[i])
		}
		if h == hubHeight {
			return measured[i], nil
		}
		if !(tempHub[i] > 0) {
			return 0, fmt.Errorf("temperature %g K at hub height is not positive", tempHub[i])
		}
		return Exponential(measured[i], h, hubHeight, tempHub[i]), nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Values: values, SourceHeight: h, Invalid: invalid}, nil
}
