package curve

import (
	"fmt"
	"sort"
)

// unionAxis merges the axes of all curves into one sorted axis without duplicates
func unionAxis(curves ...*Curve) []float64 {
	var axis []float64
	for _, c := range curves {
		axis = append(axis, c.xs...)
	}
	sort.Float64s(axis)

	out := axis[:0]
	for i, x := range axis {
		if i == 0 || x != axis[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// Sum returns the weighted pointwise sum of the given curves on the union of their axes.
// Each curve is evaluated with At, so a curve contributes 0 below its own first point
// and its last value beyond its own last point.
func Sum(weights []float64, curves []*Curve) (*Curve, error) {
	if len(curves) == 0 {
		return nil, &InvalidCurveError{Index: -1, Reason: "no curves to sum"}
	}
	if len(weights) != len(curves) {
		return nil, fmt.Errorf("got %d weights for %d curves", len(weights), len(curves))
	}

	axis := unionAxis(curves...)
	ys := make([]float64, len(axis))
	for k, c := range curves {
		for i, x := range axis {
			ys[i] += weights[k] * c.At(x)
		}
	}
	return New(axis, ys)
}

// Multiply returns the pointwise product of c and factor on the union of their axes.
// This is how an efficiency curve is applied to a power curve.
func (c *Curve) Multiply(factor *Curve) (*Curve, error) {
	axis := unionAxis(c, factor)
	ys := make([]float64, len(axis))
	for i, x := range axis {
		ys[i] = c.At(x) * factor.At(x)
	}
	return New(axis, ys)
}
