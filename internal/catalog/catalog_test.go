package catalog

import (
	"errors"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/chrissnell/windfeed/pkg/config"
	"github.com/chrissnell/windfeed/pkg/curve"
	"github.com/chrissnell/windfeed/pkg/farm"
	"github.com/chrissnell/windfeed/pkg/turbine"
	"github.com/chrissnell/windfeed/pkg/windspeed"
)

const catalogYAML = `
model:
  wind-speed-model: hellman
  aggregation: farm_power_curve
  smoothing: true
turbines:
  - name: small
    hub-height: 80
    power-curve:
      - { wind-speed: 0, value: 0 }
      - { wind-speed: 5, value: 0 }
      - { wind-speed: 10, value: 1000 }
      - { wind-speed: 15, value: 1500 }
      - { wind-speed: 20, value: 1500 }
  - name: large
    hub-height: 120
    rotor-diameter: 100
    power-coefficient-curve:
      - { wind-speed: 3, value: 0.3 }
      - { wind-speed: 12, value: 0.45 }
      - { wind-speed: 25, value: 0.1 }
farms:
  - name: alpha
    fleet:
      - { turbine: small, count: 3 }
    efficiency: 0.9
  - name: beta
    fleet:
      - { turbine: small, count: 1 }
      - { turbine: large, count: 2 }
  - name: gamma
    fleet:
      - { turbine: large, count: 4 }
    weather-file: gamma.csv
clusters:
  - name: west
    farms: [alpha, beta]
`

func parse(t *testing.T, doc string) *config.ConfigData {
	t.Helper()
	cfg, err := config.ParseYAML([]byte(doc))
	assert.NilError(t, err)
	return cfg
}

func TestNewBuildsModels(t *testing.T) {
	c, err := New(parse(t, catalogYAML), nil)
	assert.NilError(t, err)

	assert.DeepEqual(t, c.TurbineNames(), []string{"large", "small"})
	assert.DeepEqual(t, c.FarmNames(), []string{"alpha", "beta", "gamma"})
	assert.DeepEqual(t, c.ClusterNames(), []string{"west"})
	assert.DeepEqual(t, c.UnclusteredFarms(), []string{"gamma"})
	assert.Equal(t, c.FarmWeatherFile("gamma"), "gamma.csv")
	assert.Equal(t, c.FarmWeatherFile("alpha"), "")

	small, err := c.Turbine("small")
	assert.NilError(t, err)
	assert.Equal(t, small.HubHeight(), 80.0)
	// nominal power defaults to the power curve maximum
	assert.Equal(t, small.NominalPower(), 1500.0)

	alpha, err := c.Farm("alpha")
	assert.NilError(t, err)
	assert.Equal(t, alpha.InstalledPower(), 4500.0)
	assert.Equal(t, alpha.Efficiency().Constant, 0.9)

	west, err := c.Cluster("west")
	assert.NilError(t, err)
	assert.Assert(t, is.Len(west.Farms(), 2))

	assert.Equal(t, c.Model().Turbine.WindModel, windspeed.HellmanModel)
	assert.Equal(t, c.Model().Mode, farm.FarmPowerCurve)
	assert.Assert(t, c.Aggregator() != nil)

	chain, err := c.ModelChain("large")
	assert.NilError(t, err)
	assert.Equal(t, chain.Spec().Name(), "large")
}

func TestLookupUnknownKey(t *testing.T) {
	c, err := New(parse(t, catalogYAML), nil)
	assert.NilError(t, err)

	_, err = c.Farm("delta")
	var keyErr *UnknownKeyError
	assert.Assert(t, errors.As(err, &keyErr))
	assert.Equal(t, keyErr.Kind, KindFarm)
	assert.Equal(t, keyErr.Name, "delta")

	_, err = c.Turbine("missing")
	assert.Assert(t, errors.As(err, &keyErr))
	_, err = c.Cluster("east")
	assert.Assert(t, errors.As(err, &keyErr))
	_, err = c.ModelChain("missing")
	assert.Assert(t, errors.As(err, &keyErr))
}

func TestNewRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		check func(t *testing.T, err error)
	}{
		{
			name: "farm references unknown turbine",
			doc: `
turbines:
  - name: small
    hub-height: 80
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 100 }]
farms:
  - name: alpha
    fleet: [{ turbine: big, count: 1 }]
`,
			check: func(t *testing.T, err error) {
				var keyErr *UnknownKeyError
				assert.Assert(t, errors.As(err, &keyErr))
				assert.Equal(t, keyErr.Name, "big")
			},
		},
		{
			name: "cluster references unknown farm",
			doc: `
turbines:
  - name: small
    hub-height: 80
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 100 }]
clusters:
  - name: west
    farms: [alpha]
`,
			check: func(t *testing.T, err error) {
				var keyErr *UnknownKeyError
				assert.Assert(t, errors.As(err, &keyErr))
				assert.Equal(t, keyErr.Kind, KindFarm)
			},
		},
		{
			name: "non-increasing power curve",
			doc: `
turbines:
  - name: broken
    hub-height: 80
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 500 }, { wind-speed: 5, value: 400 }]
`,
			check: func(t *testing.T, err error) {
				var curveErr *curve.InvalidCurveError
				assert.Assert(t, errors.As(err, &curveErr))
				assert.Equal(t, curveErr.Index, 2)
			},
		},
		{
			name: "duplicate turbine",
			doc: `
turbines:
  - name: small
    hub-height: 80
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 100 }]
  - name: small
    hub-height: 90
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 100 }]
`,
			check: func(t *testing.T, err error) {
				var cfgErr *turbine.ConfigurationError
				assert.Assert(t, errors.As(err, &cfgErr))
			},
		},
		{
			name: "unknown wind speed model",
			doc: `
model:
  wind-speed-model: power_law
turbines: []
`,
			check: func(t *testing.T, err error) {
				var cfgErr *turbine.ConfigurationError
				assert.Assert(t, errors.As(err, &cfgErr))
				assert.Equal(t, cfgErr.Field, "wind_speed_model")
			},
		},
		{
			name: "smoothing without farm power curve",
			doc: `
model:
  smoothing: true
turbines: []
`,
			check: func(t *testing.T, err error) {
				var cfgErr *turbine.ConfigurationError
				assert.Assert(t, errors.As(err, &cfgErr))
				assert.Equal(t, cfgErr.Field, "smoothing")
			},
		},
		{
			name: "efficiency out of range",
			doc: `
turbines:
  - name: small
    hub-height: 80
    power-curve: [{ wind-speed: 0, value: 0 }, { wind-speed: 10, value: 100 }]
farms:
  - name: alpha
    fleet: [{ turbine: small, count: 1 }]
    efficiency: 1.2
`,
			check: func(t *testing.T, err error) {
				var cfgErr *turbine.ConfigurationError
				assert.Assert(t, errors.As(err, &cfgErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(parse(t, tt.doc), nil)
			assert.Assert(t, err != nil)
			tt.check(t, err)
		})
	}
}

func TestModelConfigDefaults(t *testing.T) {
	cfg, err := ModelConfig(config.ModelData{}, nil)
	assert.NilError(t, err)

	def := farm.DefaultConfig()
	assert.Equal(t, cfg.Mode, def.Mode)
	assert.Equal(t, cfg.EfficiencyOrder, def.EfficiencyOrder)
	assert.Equal(t, cfg.Turbine.WindModel, def.Turbine.WindModel)
	assert.Equal(t, cfg.Turbine.DensityModel, def.Turbine.DensityModel)
	assert.Equal(t, cfg.SmoothingParams, def.SmoothingParams)
}
