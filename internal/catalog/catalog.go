// Package catalog builds validated turbine, farm and cluster models from configuration
// and looks them up by name.
package catalog

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/pkg/config"
	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/density"
	"github.com/chrissnell/windfeed/pkg/farm"
	"github.com/chrissnell/windfeed/pkg/turbine"
	"github.com/chrissnell/windfeed/pkg/windspeed"
)

// Kinds of catalog entries
const (
	KindTurbine = "turbine"
	KindFarm    = "farm"
	KindCluster = "cluster"
)

// UnknownKeyError is returned when a name does not resolve to a catalog entry
type UnknownKeyError struct {
	Kind string
	Name string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// Catalog is the read-only set of models built from a configuration.
// It is safe for concurrent use.
type Catalog struct {
	turbines map[string]*turbine.Spec
	farms    map[string]*farm.Farm
	clusters map[string]*farm.Cluster

	// per-farm weather files, empty when the farm uses the global weather
	farmWeather map[string]string

	aggregator *farm.Aggregator
	model      farm.Config
}

// New builds the catalog. Every curve, reference and model setting is validated here.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	model, err := ModelConfig(cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	aggregator, err := farm.NewAggregator(model)
	if err != nil {
		return nil, fmt.Errorf("invalid model settings: %w", err)
	}

	c := &Catalog{
		turbines:    make(map[string]*turbine.Spec, len(cfg.Turbines)),
		farms:       make(map[string]*farm.Farm, len(cfg.Farms)),
		clusters:    make(map[string]*farm.Cluster, len(cfg.Clusters)),
		farmWeather: make(map[string]string, len(cfg.Farms)),
		aggregator:  aggregator,
		model:       model,
	}

	for _, td := range cfg.Turbines {
		if _, dup := c.turbines[td.Name]; dup {
			return nil, duplicate(KindTurbine, td.Name)
		}
		spec, err := buildTurbine(td)
		if err != nil {
			return nil, fmt.Errorf("turbine %q: %w", td.Name, err)
		}
		c.turbines[td.Name] = spec
	}

	for _, fd := range cfg.Farms {
		if _, dup := c.farms[fd.Name]; dup {
			return nil, duplicate(KindFarm, fd.Name)
		}
		f, err := c.buildFarm(fd)
		if err != nil {
			return nil, fmt.Errorf("farm %q: %w", fd.Name, err)
		}
		c.farms[fd.Name] = f
		c.farmWeather[fd.Name] = fd.WeatherFile
	}

	for _, cd := range cfg.Clusters {
		if _, dup := c.clusters[cd.Name]; dup {
			return nil, duplicate(KindCluster, cd.Name)
		}
		farms := make([]*farm.Farm, 0, len(cd.Farms))
		for _, name := range cd.Farms {
			f, err := c.Farm(name)
			if err != nil {
				return nil, fmt.Errorf("cluster %q: %w", cd.Name, err)
			}
			farms = append(farms, f)
		}
		cl, err := farm.NewCluster(cd.Name, farms)
		if err != nil {
			return nil, err
		}
		c.clusters[cd.Name] = cl
	}

	logger.Infow("catalog loaded",
		"turbines", len(c.turbines), "farms", len(c.farms), "clusters", len(c.clusters),
		"wind_speed_model", model.Turbine.WindModel, "aggregation", model.Mode)

	return c, nil
}

func duplicate(kind, name string) error {
	return &turbine.ConfigurationError{Field: kind + "s", Reason: fmt.Sprintf("duplicate %s %q", kind, name)}
}

func buildTurbine(td config.TurbineData) (*turbine.Spec, error) {
	p := turbine.Params{
		Name:          td.Name,
		HubHeight:     td.HubHeight,
		RotorDiameter: td.RotorDiameter,
		NominalPower:  td.NominalPower,
	}

	var err error
	if len(td.PowerCurve) > 0 {
		if p.PowerCurve, err = buildCurve(td.PowerCurve); err != nil {
			return nil, fmt.Errorf("power curve: %w", err)
		}
	}
	if len(td.PowerCoefficientCurve) > 0 {
		if p.CoefficientCurve, err = buildCurve(td.PowerCoefficientCurve); err != nil {
			return nil, fmt.Errorf("power coefficient curve: %w", err)
		}
	}

	return turbine.New(p)
}

func (c *Catalog) buildFarm(fd config.FarmData) (*farm.Farm, error) {
	members := make([]farm.Member, 0, len(fd.Fleet))
	for _, m := range fd.Fleet {
		spec, err := c.Turbine(m.Turbine)
		if err != nil {
			return nil, err
		}
		members = append(members, farm.Member{Turbine: spec, Count: m.Count})
	}

	var efficiency *farm.Efficiency
	if len(fd.EfficiencyCurve) > 0 {
		ec, err := buildCurve(fd.EfficiencyCurve)
		if err != nil {
			return nil, fmt.Errorf("efficiency curve: %w", err)
		}
		efficiency = &farm.Efficiency{Curve: ec, Constant: fd.Efficiency}
	} else if fd.Efficiency != 0 {
		efficiency = &farm.Efficiency{Constant: fd.Efficiency}
	}

	return farm.NewFarm(fd.Name, members, efficiency)
}

func buildCurve(points []config.CurvePointData) (*curve.Curve, error) {
	cp := make([]curve.Point, len(points))
	for i, p := range points {
		cp[i] = curve.Point{X: p.WindSpeed, Y: p.Value}
	}
	return curve.FromPoints(cp)
}

// ModelConfig converts model settings into an aggregation configuration.
// Empty settings select the defaults of farm.DefaultConfig.
func ModelConfig(m config.ModelData, logger *zap.SugaredLogger) (farm.Config, error) {
	cfg := farm.DefaultConfig()
	cfg.Logger = logger
	cfg.Turbine.Logger = logger

	t := &cfg.Turbine
	if m.WindSpeedModel != "" {
		t.WindModel = windspeed.ModelType(m.WindSpeedModel)
		switch t.WindModel {
		case windspeed.LogarithmicModel, windspeed.HellmanModel, windspeed.InterpolationModel:
		default:
			return cfg, &turbine.ConfigurationError{Field: "wind_speed_model", Reason: fmt.Sprintf("unknown model %q", m.WindSpeedModel)}
		}
	}
	t.HellmanExponent = m.HellmanExponent
	t.ObstacleHeight = m.ObstacleHeight

	if m.RoughnessSource != "" {
		t.RoughnessSource = turbine.RoughnessSource(m.RoughnessSource)
	}
	t.RoughnessLength = m.RoughnessLength
	t.TerrainClass = m.TerrainClass

	if m.TemperatureModel != "" {
		t.TemperatureModel = density.TemperatureModel(m.TemperatureModel)
	}
	if m.DensityModel != "" {
		t.DensityModel = density.ModelType(m.DensityModel)
		switch t.DensityModel {
		case density.BarometricModel, density.IdealGasModel, density.ExponentialModel:
		default:
			return cfg, &turbine.ConfigurationError{Field: "density_model", Reason: fmt.Sprintf("unknown model %q", m.DensityModel)}
		}
	}
	t.CorrectObservation = m.CorrectObservation
	t.CorrectCurve = m.CorrectCurve
	if m.DensityExponent != "" {
		t.DensityExponent = density.Exponent(m.DensityExponent)
	}
	t.Strict = m.Strict

	if m.Aggregation != "" {
		cfg.Mode = farm.AggregationMode(m.Aggregation)
	}
	if m.EfficiencyOrder != "" {
		cfg.EfficiencyOrder = farm.EfficiencyOrder(m.EfficiencyOrder)
	}
	cfg.Smoothing = m.Smoothing
	if m.SmoothingOrder != "" {
		cfg.SmoothingOrder = farm.SmoothingOrder(m.SmoothingOrder)
	}
	if m.StandardDeviationMethod != "" {
		cfg.SmoothingParams.Method = curve.StandardDeviationMethod(m.StandardDeviationMethod)
	}
	if m.BlockWidth != 0 {
		cfg.SmoothingParams.BlockWidth = m.BlockWidth
	}
	if m.BlockRange != 0 {
		cfg.SmoothingParams.BlockRange = m.BlockRange
	}
	cfg.SmoothingParams.TurbulenceIntensity = m.TurbulenceIntensity

	return cfg, nil
}

// Turbine returns the turbine type with the given name
func (c *Catalog) Turbine(name string) (*turbine.Spec, error) {
	spec, ok := c.turbines[name]
	if !ok {
		return nil, &UnknownKeyError{Kind: KindTurbine, Name: name}
	}
	return spec, nil
}

// Farm returns the farm with the given name
func (c *Catalog) Farm(name string) (*farm.Farm, error) {
	f, ok := c.farms[name]
	if !ok {
		return nil, &UnknownKeyError{Kind: KindFarm, Name: name}
	}
	return f, nil
}

// Cluster returns the cluster with the given name
func (c *Catalog) Cluster(name string) (*farm.Cluster, error) {
	cl, ok := c.clusters[name]
	if !ok {
		return nil, &UnknownKeyError{Kind: KindCluster, Name: name}
	}
	return cl, nil
}

// FarmWeatherFile returns the weather file configured for a farm, empty for the global one
func (c *Catalog) FarmWeatherFile(name string) string {
	return c.farmWeather[name]
}

// TurbineNames returns all turbine names in sorted order
func (c *Catalog) TurbineNames() []string { return sortedKeys(c.turbines) }

// FarmNames returns all farm names in sorted order
func (c *Catalog) FarmNames() []string { return sortedKeys(c.farms) }

// ClusterNames returns all cluster names in sorted order
func (c *Catalog) ClusterNames() []string { return sortedKeys(c.clusters) }

// UnclusteredFarms returns the sorted names of farms that belong to no cluster
func (c *Catalog) UnclusteredFarms() []string {
	clustered := make(map[string]bool)
	for _, cl := range c.clusters {
		for _, f := range cl.Farms() {
			clustered[f.Name()] = true
		}
	}

	var names []string
	for _, name := range c.FarmNames() {
		if !clustered[name] {
			names = append(names, name)
		}
	}
	return names
}

// Aggregator returns the aggregator configured by the model settings
func (c *Catalog) Aggregator() *farm.Aggregator { return c.aggregator }

// Model returns the model configuration
func (c *Catalog) Model() farm.Config { return c.model }

// ModelChain builds a single-turbine model chain with the catalog's model settings
func (c *Catalog) ModelChain(name string) (*turbine.ModelChain, error) {
	spec, err := c.Turbine(name)
	if err != nil {
		return nil, err
	}
	return turbine.NewModelChain(spec, c.model.Turbine)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
