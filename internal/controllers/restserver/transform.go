package restserver

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/farm"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/turbine"
	"github.com/chrissnell/windfeed/pkg/weather"
)

// errorStatus maps an error to an HTTP status and a short kind for the response body
func errorStatus(err error) (int, string) {
	var (
		keyErr       *catalog.UnknownKeyError
		missingErr   *weather.MissingInputError
		invalidErr   *weather.InvalidInputError
		configErr    *turbine.ConfigurationError
		curveErr     *curve.InvalidCurveError
		alignmentErr *farm.AlignmentError
	)

	switch {
	case errors.As(err, &keyErr):
		return http.StatusNotFound, "unknown_key"
	case errors.As(err, &alignmentErr):
		return http.StatusConflict, "alignment"
	case errors.As(err, &missingErr):
		return http.StatusUnprocessableEntity, "missing_input"
	case errors.As(err, &invalidErr):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.As(err, &configErr):
		return http.StatusUnprocessableEntity, "configuration"
	case errors.As(err, &curveErr):
		return http.StatusUnprocessableEntity, "invalid_curve"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// nullable converts NaN to nil so that JSON can carry invalid rows
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		if !math.IsNaN(values[i]) {
			out[i] = &values[i]
		}
	}
	return out
}

func powerResponse(kind, name string, s *power.Series) PowerResponse {
	return PowerResponse{
		Kind:        kind,
		Name:        name,
		Index:       s.Index,
		Power:       nullable(s.Values),
		InvalidRows: s.Invalid,
		ClampedRows: s.Clamped,
	}
}

func turbineSummary(s *turbine.Spec) TurbineSummary {
	return TurbineSummary{
		Name:          s.Name(),
		Model:         string(s.Characteristic().Type()),
		HubHeight:     s.HubHeight(),
		RotorDiameter: s.RotorDiameter(),
		NominalPower:  s.NominalPower(),
	}
}

func farmSummary(f *farm.Farm) FarmSummary {
	fs := FarmSummary{
		Name:           f.Name(),
		InstalledPower: f.InstalledPower(),
		MeanHubHeight:  f.MeanHubHeight(),
	}
	for _, m := range f.Members() {
		fs.Fleet = append(fs.Fleet, FleetMember{Turbine: m.Turbine.Name(), Count: m.Count})
	}
	if e := f.Efficiency(); e != nil {
		if e.Curve != nil {
			fs.Efficiency = "curve"
		} else {
			fs.Efficiency = fmt.Sprintf("%g", e.Constant)
		}
	}
	return fs
}

func clusterSummary(c *farm.Cluster) ClusterSummary {
	cs := ClusterSummary{
		Name:           c.Name(),
		InstalledPower: c.InstalledPower(),
		MeanHubHeight:  c.MeanHubHeight(),
	}
	for _, f := range c.Farms() {
		cs.Farms = append(cs.Farms, f.Name())
	}
	return cs
}
