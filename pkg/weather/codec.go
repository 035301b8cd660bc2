package weather

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// ReadCSV parses a weather table.
//
// The first row names the variable of each column, the second row its height in m.
// The first column of every following row is an RFC 3339 timestamp. Empty cells are NaN.
//
//	variable,wind_speed,wind_speed,temperature,pressure,roughness_length
//	height,10,80,2,0,0
//	2010-01-01T00:00:00Z,5.32,7.71,267.6,98405.7,0.15
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading weather CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("weather CSV needs a variable row and a height row")
	}

	names, heightRow := records[0], records[1]
	if len(names) < 2 {
		return nil, fmt.Errorf("weather CSV has no data columns")
	}

	keys := make([]Key, len(names)-1)
	for i := 1; i < len(names); i++ {
		h, err := strconv.ParseFloat(strings.TrimSpace(heightRow[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid height %q in column %d: %w", heightRow[i], i, err)
		}
		keys[i-1] = Key{Variable: Variable(strings.TrimSpace(names[i])), Height: h}
	}

	rows := records[2:]
	index := make([]time.Time, len(rows))
	values := make([][]float64, len(keys))
	for k := range values {
		values[k] = make([]float64, len(rows))
	}

	for r, rec := range rows {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp on data row %d: %w", r, err)
		}
		index[r] = t

		for k := range keys {
			cell := strings.TrimSpace(rec[k+1])
			if cell == "" {
				values[k][r] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s value on data row %d: %w", keys[k], r, err)
			}
			values[k][r] = v
		}
	}

	s := New(index)
	for k, key := range keys {
		if _, dup := s.columns[key]; dup {
			return nil, fmt.Errorf("duplicate column %s", key)
		}
		if err := s.Add(key.Variable, key.Height, values[k]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type jsonColumn struct {
	Variable Variable   `json:"variable"`
	Height   float64    `json:"height"`
	Values   []*float64 `json:"values"`
}

type jsonSeries struct {
	Index   []time.Time  `json:"index"`
	Columns []jsonColumn `json:"columns"`
}

// MarshalJSON encodes the series with NaN written as null
func (s *Series) MarshalJSON() ([]byte, error) {
	out := jsonSeries{Index: s.index}
	for _, k := range s.Keys() {
		out.Columns = append(out.Columns, jsonColumn{
			Variable: k.Variable,
			Height:   k.Height,
			Values:   toNullable(s.columns[k]),
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a series, reading null as NaN
func (s *Series) UnmarshalJSON(data []byte) error {
	var in jsonSeries
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	decoded := New(in.Index)
	for _, c := range in.Columns {
		if err := decoded.Add(c.Variable, c.Height, fromNullable(c.Values)); err != nil {
			return err
		}
	}
	*s = *decoded
	return nil
}

func toNullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			continue
		}
		v := values[i]
		out[i] = &v
	}
	return out
}

func fromNullable(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}
