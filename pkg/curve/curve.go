// Package curve provides sorted interpolation tables used for turbine power curves,
// power coefficient curves and farm efficiency curves.
package curve

import (
	"fmt"
	"math"
	"sort"
)

// InvalidCurveError is returned when a table cannot be used as a characteristic curve.
type InvalidCurveError struct {
	Index  int
	Reason string
}

func (e *InvalidCurveError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid curve: %s", e.Reason)
	}
	return fmt.Sprintf("invalid curve at point %d: %s", e.Index, e.Reason)
}

// Curve is an immutable table of (x, y) points with a strictly increasing x axis.
// For turbine curves x is wind speed in m/s.
type Curve struct {
	xs []float64
	ys []float64
}

// Point is a single (x, y) pair of a curve
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// New validates and copies the given axis and values into a new Curve
func New(xs, ys []float64) (*Curve, error) {
	if len(xs) == 0 {
		return nil, &InvalidCurveError{Index: -1, Reason: "missing wind speed axis"}
	}
	if len(xs) != len(ys) {
		return nil, &InvalidCurveError{Index: -1, Reason: fmt.Sprintf("axis has %d points but %d values", len(xs), len(ys))}
	}

	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) {
			return nil, &InvalidCurveError{Index: i, Reason: "axis value is not finite"}
		}
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return nil, &InvalidCurveError{Index: i, Reason: "value is not finite"}
		}
		if ys[i] < 0 {
			return nil, &InvalidCurveError{Index: i, Reason: fmt.Sprintf("negative value %g", ys[i])}
		}
		if i > 0 && xs[i] <= xs[i-1] {
			return nil, &InvalidCurveError{Index: i, Reason: fmt.Sprintf("axis not strictly increasing (%g after %g)", xs[i], xs[i-1])}
		}
	}

	return &Curve{
		xs: append([]float64(nil), xs...),
		ys: append([]float64(nil), ys...),
	}, nil
}

// FromPoints builds a Curve from a list of points
func FromPoints(points []Point) (*Curve, error) {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	return New(xs, ys)
}

// Len returns the number of tabulated points
func (c *Curve) Len() int {
	return len(c.xs)
}

// X returns a copy of the axis
func (c *Curve) X() []float64 {
	return append([]float64(nil), c.xs...)
}

// Y returns a copy of the values
func (c *Curve) Y() []float64 {
	return append([]float64(nil), c.ys...)
}

// Points returns the table as a list of points
func (c *Curve) Points() []Point {
	points := make([]Point, len(c.xs))
	for i := range c.xs {
		points[i] = Point{X: c.xs[i], Y: c.ys[i]}
	}
	return points
}

// Min returns the smallest tabulated x
func (c *Curve) Min() float64 {
	return c.xs[0]
}

// Max returns the largest tabulated x
func (c *Curve) Max() float64 {
	return c.xs[len(c.xs)-1]
}

// Last returns the value at the largest tabulated x
func (c *Curve) Last() float64 {
	return c.ys[len(c.ys)-1]
}

// MaxValue returns the largest tabulated value
func (c *Curve) MaxValue() float64 {
	m := c.ys[0]
	for _, y := range c.ys[1:] {
		if y > m {
			m = y
		}
	}
	return m
}

// At evaluates the curve at x.
// Below the first point the result is 0, at or above the last point it is the last
// tabulated value. Between points it interpolates linearly. NaN yields NaN.
func (c *Curve) At(x float64) float64 {
	if math.IsNaN(x) {
		return math.NaN()
	}
	n := len(c.xs)
	if x < c.xs[0] {
		return 0
	}
	if x >= c.xs[n-1] {
		return c.ys[n-1]
	}

	// i is the first index with xs[i] >= x, so xs[i-1] < x <= xs[i]
	i := sort.SearchFloat64s(c.xs, x)
	if c.xs[i] == x {
		return c.ys[i]
	}
	x0, x1 := c.xs[i-1], c.xs[i]
	y0, y1 := c.ys[i-1], c.ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Evaluate applies At to every element of xs
func (c *Curve) Evaluate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = c.At(x)
	}
	return out
}

// Scale returns a copy of the curve with every value multiplied by f
func (c *Curve) Scale(f float64) (*Curve, error) {
	ys := make([]float64, len(c.ys))
	for i, y := range c.ys {
		ys[i] = y * f
	}
	return New(c.xs, ys)
}

// ScaleAxis returns a copy of the curve with the axis transformed by fn.
// The result is validated, so fn must keep the axis strictly increasing.
func (c *Curve) ScaleAxis(fn func(x float64) float64) (*Curve, error) {
	xs := make([]float64, len(c.xs))
	for i, x := range c.xs {
		xs[i] = fn(x)
	}
	return New(xs, c.ys)
}
