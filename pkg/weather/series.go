// Package weather holds time-indexed weather observations tagged by variable and
// measurement height.
package weather

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Variable names a weather quantity
type Variable string

const (
	// WindSpeed in m/s
	WindSpeed Variable = "wind_speed"

	// Temperature in K
	Temperature Variable = "temperature"

	// Pressure in Pa
	Pressure Variable = "pressure"

	// Density in kg/m³
	Density Variable = "density"

	// RoughnessLength in m. It does not depend on height and is stored at height 0.
	RoughnessLength Variable = "roughness_length"
)

// Key identifies a single column of a Series
type Key struct {
	Variable Variable
	Height   float64
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%gm", k.Variable, k.Height)
}

// Series is a set of columns sharing one time index. A Series is filled once with Add
// and treated as read-only afterwards.
type Series struct {
	index   []time.Time
	columns map[Key][]float64
}

// New creates an empty Series over the given time index
func New(index []time.Time) *Series {
	return &Series{
		index:   append([]time.Time(nil), index...),
		columns: make(map[Key][]float64),
	}
}

// Add stores a column. The values must have the same length as the index.
func (s *Series) Add(v Variable, height float64, values []float64) error {
	if len(values) != len(s.index) {
		return fmt.Errorf("column %s has %d values but the index has %d rows", Key{v, height}, len(values), len(s.index))
	}
	if math.IsNaN(height) || math.IsInf(height, 0) {
		return fmt.Errorf("column %s has a non-finite height", v)
	}
	s.columns[Key{v, height}] = append([]float64(nil), values...)
	return nil
}

// Index returns the time index. Callers must not modify it.
func (s *Series) Index() []time.Time {
	return s.index
}

// Len returns the number of rows
func (s *Series) Len() int {
	return len(s.index)
}

// Column returns the values stored for a variable at an exact height.
// Callers must not modify the returned slice.
func (s *Series) Column(v Variable, height float64) ([]float64, bool) {
	values, ok := s.columns[Key{v, height}]
	return values, ok
}

// Has reports whether at least one column of the variable exists
func (s *Series) Has(v Variable) bool {
	for k := range s.columns {
		if k.Variable == v {
			return true
		}
	}
	return false
}

// Keys returns every column key sorted by variable then height
func (s *Series) Keys() []Key {
	keys := make([]Key, 0, len(s.columns))
	for k := range s.columns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Variable != keys[j].Variable {
			return keys[i].Variable < keys[j].Variable
		}
		return keys[i].Height < keys[j].Height
	})
	return keys
}

// Heights returns the measurement heights of a variable in increasing order
func (s *Series) Heights(v Variable) []float64 {
	var heights []float64
	for k := range s.columns {
		if k.Variable == v {
			heights = append(heights, k.Height)
		}
	}
	sort.Float64s(heights)
	return heights
}

// Closest returns the height and values of the column of v measured closest to target.
// On a tie the lower height wins.
func (s *Series) Closest(v Variable, target float64) (float64, []float64, error) {
	heights := s.Heights(v)
	if len(heights) == 0 {
		return 0, nil, &MissingInputError{Variable: v}
	}

	best := heights[0]
	for _, h := range heights[1:] {
		if math.Abs(h-target) < math.Abs(best-target) {
			best = h
		}
	}
	return best, s.columns[Key{v, best}], nil
}

// ClosestPair returns the two heights of v measured closest to target, lower height first.
// It needs at least two heights.
func (s *Series) ClosestPair(v Variable, target float64) (float64, float64, error) {
	heights := s.Heights(v)
	if len(heights) < 2 {
		return 0, 0, &MissingInputError{Variable: v, Reason: fmt.Sprintf("need two heights, have %d", len(heights))}
	}

	sort.SliceStable(heights, func(i, j int) bool {
		return math.Abs(heights[i]-target) < math.Abs(heights[j]-target)
	})
	h1, h2 := heights[0], heights[1]
	if h1 > h2 {
		h1, h2 = h2, h1
	}
	return h1, h2, nil
}

// SameIndex reports whether two time indexes are identical
func SameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// LinearAt returns the value at target on the line through (h1, v1) and (h2, v2)
func LinearAt(v1, v2, h1, h2, target float64) float64 {
	return (v2-v1)/(h2-h1)*(target-h1) + v1
}

// Interpolate returns v at target height for every row, interpolated or extrapolated
// linearly between the two measurement heights closest to target. A column measured
// exactly at target is returned as is. NaN inputs give NaN rows.
func (s *Series) Interpolate(v Variable, target float64) ([]float64, error) {
	if values, ok := s.Column(v, target); ok {
		return values, nil
	}

	h1, h2, err := s.ClosestPair(v, target)
	if err != nil {
		return nil, err
	}
	lower := s.columns[Key{v, h1}]
	upper := s.columns[Key{v, h2}]

	out := make([]float64, len(s.index))
	for i := range out {
		out[i] = LinearAt(lower[i], upper[i], h1, h2, target)
	}
	return out, nil
}
