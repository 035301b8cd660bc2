package farm

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/turbine"
	"github.com/chrissnell/windfeed/pkg/weather"
)

// AlignmentError is returned when farm outputs of a cluster do not share one time index
type AlignmentError struct {
	Cluster string
	Farm    string
	Reason  string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("cluster %q: output of farm %q is not aligned: %s", e.Cluster, e.Farm, e.Reason)
}

// AggregationMode selects how a farm output is formed
type AggregationMode string

const (
	// TurbineSum runs every turbine type and sums the outputs
	TurbineSum AggregationMode = "turbine_sum"

	// FarmPowerCurve sums the turbine power curves into one farm curve and evaluates it at
	// the farm's mean hub height
	FarmPowerCurve AggregationMode = "farm_power_curve"
)

// EfficiencyOrder selects when an efficiency curve is applied in TurbineSum mode
type EfficiencyOrder string

const (
	// AfterSummation applies the curve to the summed output at the farm mean hub wind speed
	AfterSummation EfficiencyOrder = "after_summation"

	// BeforeSummation applies the curve to each member at its own hub wind speed
	BeforeSummation EfficiencyOrder = "before_summation"
)

// SmoothingOrder selects which curves are smoothed in FarmPowerCurve mode
type SmoothingOrder string

const (
	// SmoothTurbineCurves smooths each turbine power curve before summation
	SmoothTurbineCurves SmoothingOrder = "turbine_power_curves"

	// SmoothFarmCurve smooths the summed farm power curve
	SmoothFarmCurve SmoothingOrder = "farm_power_curve"
)

// Config controls farm and cluster aggregation
type Config struct {
	Turbine turbine.Config

	Mode            AggregationMode
	EfficiencyOrder EfficiencyOrder

	Smoothing       bool
	SmoothingOrder  SmoothingOrder
	SmoothingParams curve.SmoothingParams

	Logger *zap.SugaredLogger
}

// DefaultConfig sums turbine outputs and applies efficiency curves after summation
func DefaultConfig() Config {
	return Config{
		Turbine:         turbine.DefaultConfig(),
		Mode:            TurbineSum,
		EfficiencyOrder: AfterSummation,
		SmoothingOrder:  SmoothFarmCurve,
		SmoothingParams: curve.DefaultSmoothingParams(),
	}
}

// Aggregator computes farm and cluster outputs with a fixed configuration
type Aggregator struct {
	cfg    Config
	logger *zap.SugaredLogger
}

// NewAggregator validates cfg
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.Mode == "" {
		cfg.Mode = TurbineSum
	}
	if cfg.EfficiencyOrder == "" {
		cfg.EfficiencyOrder = AfterSummation
	}
	if cfg.SmoothingOrder == "" {
		cfg.SmoothingOrder = SmoothFarmCurve
	}
	if cfg.SmoothingParams == (curve.SmoothingParams{}) {
		cfg.SmoothingParams = curve.DefaultSmoothingParams()
	}

	switch cfg.Mode {
	case TurbineSum, FarmPowerCurve:
	default:
		return nil, &turbine.ConfigurationError{Field: "aggregation", Reason: fmt.Sprintf("unknown mode %q", cfg.Mode)}
	}
	switch cfg.EfficiencyOrder {
	case AfterSummation, BeforeSummation:
	default:
		return nil, &turbine.ConfigurationError{Field: "efficiency_order", Reason: fmt.Sprintf("unknown order %q", cfg.EfficiencyOrder)}
	}
	switch cfg.SmoothingOrder {
	case SmoothTurbineCurves, SmoothFarmCurve:
	default:
		return nil, &turbine.ConfigurationError{Field: "smoothing_order", Reason: fmt.Sprintf("unknown order %q", cfg.SmoothingOrder)}
	}
	if cfg.Smoothing && cfg.Mode != FarmPowerCurve {
		return nil, &turbine.ConfigurationError{Field: "smoothing", Reason: "power curve smoothing needs the farm_power_curve mode"}
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Turbine.Logger == nil {
		cfg.Turbine.Logger = cfg.Logger
	}
	if err := cfg.Turbine.Validate(); err != nil {
		return nil, err
	}

	return &Aggregator{cfg: cfg, logger: cfg.Logger}, nil
}

// ComputeFarmOutput computes the farm output with DefaultConfig
func ComputeFarmOutput(f *Farm, w *weather.Series) (*power.Series, error) {
	a, err := NewAggregator(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return a.ComputeFarmOutput(f, w)
}

// ComputeClusterOutput computes the cluster output with DefaultConfig
func ComputeClusterOutput(c *Cluster, src weather.Source) (*power.Series, error) {
	a, err := NewAggregator(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return a.ComputeClusterOutput(c, src)
}

// ComputeFarmOutput returns the power output of farm f for every row of w
func (a *Aggregator) ComputeFarmOutput(f *Farm, w *weather.Series) (*power.Series, error) {
	a.logger.Debugw("computing farm output", "farm", f.Name(), "mode", a.cfg.Mode, "members", len(f.members))

	var (
		out *power.Series
		err error
	)
	if a.cfg.Mode == FarmPowerCurve {
		out, err = a.farmCurveOutput(f, w)
	} else {
		out, err = a.turbineSumOutput(f, w)
	}
	if err != nil {
		return nil, fmt.Errorf("farm %q: %w", f.Name(), err)
	}
	return out, nil
}

func (a *Aggregator) turbineSumOutput(f *Farm, w *weather.Series) (*power.Series, error) {
	eff := f.efficiency
	perMember := eff != nil && eff.Curve != nil && a.cfg.EfficiencyOrder == BeforeSummation

	total := make([]float64, w.Len())
	speeds := make([][]float64, len(f.members))
	clamped := 0

	for k, m := range f.members {
		mc, err := turbine.NewModelChain(m.Turbine, a.cfg.Turbine)
		if err != nil {
			return nil, err
		}
		r, err := mc.Run(w)
		if err != nil {
			return nil, err
		}

		scaled := append([]float64(nil), r.Power.Values...)
		floats.Scale(float64(m.Count), scaled)
		if perMember {
			for i := range scaled {
				scaled[i] *= eff.Curve.At(r.WindSpeed[i])
			}
		}
		floats.Add(total, scaled)

		speeds[k] = r.WindSpeed
		clamped += r.Power.Clamped
	}

	switch {
	case eff == nil || perMember:
	case eff.Curve != nil:
		mean := farmWindSpeed(speeds, f.weights())
		for i := range total {
			total[i] *= eff.Curve.At(mean[i])
		}
	default:
		floats.Scale(eff.Constant, total)
	}

	return newSeries(w, total, clamped), nil
}

// farmWindSpeed returns the weighted mean of the members' hub wind speeds per row
func farmWindSpeed(speeds [][]float64, weights []float64) []float64 {
	n := len(speeds[0])
	mean := make([]float64, n)
	row := make([]float64, len(speeds))
	for i := 0; i < n; i++ {
		for k := range speeds {
			row[k] = speeds[k][i]
		}
		mean[i] = stat.Mean(row, weights)
	}
	return mean
}

func (a *Aggregator) farmCurveOutput(f *Farm, w *weather.Series) (*power.Series, error) {
	pc, err := a.FarmPowerCurve(f, w)
	if err != nil {
		return nil, err
	}

	// the installed power only caps the farm curve when every member's rating is known;
	// otherwise the nominal power defaults to the curve maximum
	nominal := 0.0
	if f.nominalKnown() {
		nominal = f.InstalledPower()
	}

	spec, err := turbine.New(turbine.Params{
		Name:         f.Name(),
		HubHeight:    f.MeanHubHeight(),
		NominalPower: nominal,
		PowerCurve:   pc,
	})
	if err != nil {
		return nil, err
	}

	mc, err := turbine.NewModelChain(spec, a.cfg.Turbine)
	if err != nil {
		return nil, err
	}
	return mc.ComputePowerOutput(w)
}

// FarmPowerCurve returns the summed power curve of f at standard density with smoothing and
// efficiency applied as configured. w is only read to estimate turbulence intensity.
func (a *Aggregator) FarmPowerCurve(f *Farm, w *weather.Series) (*curve.Curve, error) {
	curves := make([]*curve.Curve, len(f.members))
	counts := make([]float64, len(f.members))

	for k, m := range f.members {
		pc, err := m.Turbine.PowerCurve()
		if err != nil {
			return nil, err
		}
		if a.cfg.Smoothing && a.cfg.SmoothingOrder == SmoothTurbineCurves {
			if pc, err = a.smooth(pc, m.Turbine.HubHeight(), w); err != nil {
				return nil, err
			}
		}
		curves[k] = pc
		counts[k] = float64(m.Count)
	}

	sum, err := curve.Sum(counts, curves)
	if err != nil {
		return nil, err
	}
	if a.cfg.Smoothing && a.cfg.SmoothingOrder == SmoothFarmCurve {
		if sum, err = a.smooth(sum, f.MeanHubHeight(), w); err != nil {
			return nil, err
		}
	}

	switch eff := f.efficiency; {
	case eff == nil:
		return sum, nil
	case eff.Curve != nil:
		return sum.Multiply(eff.Curve)
	default:
		return sum.Scale(eff.Constant)
	}
}

func (a *Aggregator) smooth(c *curve.Curve, hubHeight float64, w *weather.Series) (*curve.Curve, error) {
	p := a.cfg.SmoothingParams
	if p.Method == curve.StdDevTurbulenceIntensity && p.TurbulenceIntensity == 0 {
		z0, err := a.siteRoughness(w)
		if err != nil {
			return nil, fmt.Errorf("turbulence intensity for smoothing: %w", err)
		}
		p.TurbulenceIntensity = curve.TurbulenceIntensity(hubHeight, z0)
	}
	return curve.Smooth(c, p)
}

// siteRoughness returns one roughness length for the site: the configured estimate, or the
// mean of the finite measured values
func (a *Aggregator) siteRoughness(w *weather.Series) (float64, error) {
	tc := a.cfg.Turbine
	if tc.RoughnessSource == turbine.RoughnessEstimated {
		if tc.RoughnessLength > 0 {
			return tc.RoughnessLength, nil
		}
		if z0, ok := turbine.TerrainRoughness[tc.TerrainClass]; ok {
			return z0, nil
		}
	}

	_, measured, err := w.Closest(weather.RoughnessLength, 0)
	if err != nil {
		return 0, err
	}
	finite := make([]float64, 0, len(measured))
	for _, v := range measured {
		if v > 0 && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, &weather.MissingInputError{Variable: weather.RoughnessLength, Reason: "no positive roughness length"}
	}
	return stat.Mean(finite, nil), nil
}

// ComputeClusterOutput sums the outputs of all farms of c. Each farm reads its weather
// from src; every farm output must share the first farm's time index.
func (a *Aggregator) ComputeClusterOutput(c *Cluster, src weather.Source) (*power.Series, error) {
	var (
		total *power.Series
		first string
	)

	for _, f := range c.farms {
		w, err := src.WeatherFor(f.Name())
		if err != nil {
			return nil, fmt.Errorf("cluster %q: %w", c.Name(), err)
		}
		out, err := a.ComputeFarmOutput(f, w)
		if err != nil {
			return nil, fmt.Errorf("cluster %q: %w", c.Name(), err)
		}

		if total == nil {
			total = &power.Series{
				Index:   out.Index,
				Values:  append([]float64(nil), out.Values...),
				Clamped: out.Clamped,
			}
			first = f.Name()
			continue
		}

		if !weather.SameIndex(total.Index, out.Index) {
			return nil, &AlignmentError{
				Cluster: c.Name(),
				Farm:    f.Name(),
				Reason:  fmt.Sprintf("%d rows differ from the %d rows of farm %q", len(out.Index), len(total.Index), first),
			}
		}
		floats.Add(total.Values, out.Values)
		total.Clamped += out.Clamped
	}

	total.Invalid = countNaN(total.Values)
	if total.Invalid > 0 {
		a.logger.Warnw("invalid rows in cluster output", "cluster", c.Name(), "rows", total.Invalid)
	}
	return total, nil
}

func newSeries(w *weather.Series, values []float64, clamped int) *power.Series {
	return &power.Series{
		Index:   append(w.Index()[:0:0], w.Index()...),
		Values:  values,
		Invalid: countNaN(values),
		Clamped: clamped,
	}
}

func countNaN(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
