package weather

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MissingInputError is returned before any computation when a model needs a variable
// the weather series does not carry.
type MissingInputError struct {
	Variable Variable
	Reason   string
}

func (e *MissingInputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("missing weather input %q: %s", e.Variable, e.Reason)
	}
	return fmt.Sprintf("missing weather input %q", e.Variable)
}

// InvalidInputError describes a single row that cannot produce a physical result
type InvalidInputError struct {
	Row    int
	Time   time.Time
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input at row %d (%s): %s", e.Row, e.Time.Format(time.RFC3339), e.Reason)
}

// RowError builds an InvalidInputError for row i of s
func (s *Series) RowError(i int, format string, args ...interface{}) *InvalidInputError {
	var t time.Time
	if i >= 0 && i < len(s.index) {
		t = s.index[i]
	}
	return &InvalidInputError{Row: i, Time: t, Reason: fmt.Sprintf(format, args...)}
}

// EvaluateRows calls fn for every row and collects the results.
// A row whose fn returns an error or a non-finite value is invalid. In strict mode the first
// invalid row is returned as an *InvalidInputError; otherwise invalid rows become NaN and
// are counted.
func (s *Series) EvaluateRows(strict bool, fn func(i int) (float64, error)) ([]float64, int, error) {
	out := make([]float64, len(s.index))
	invalid := 0
	for i := range out {
		v, err := fn(i)
		if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
			err = errors.New("result is not finite")
		}
		if err != nil {
			if strict {
				return nil, 0, s.RowError(i, "%v", err)
			}
			out[i] = math.NaN()
			invalid++
			continue
		}
		out[i] = v
	}
	return out, invalid, nil
}
