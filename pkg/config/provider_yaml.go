package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// ParseYAML converts a YAML document into ConfigData
func ParseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Model       ModelYAML        `yaml:"model,omitempty"`
		Turbines    []TurbineYAML    `yaml:"turbines"`
		Farms       []FarmYAML       `yaml:"farms,omitempty"`
		Clusters    []ClusterYAML    `yaml:"clusters,omitempty"`
		Weather     WeatherYAML      `yaml:"weather,omitempty"`
		Storage     StorageYAML      `yaml:"storage,omitempty"`
		Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	}

	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Model:       ModelData(yamlConfig.Model),
		Turbines:    make([]TurbineData, len(yamlConfig.Turbines)),
		Farms:       make([]FarmData, len(yamlConfig.Farms)),
		Clusters:    make([]ClusterData, len(yamlConfig.Clusters)),
		Weather:     WeatherData{File: yamlConfig.Weather.File},
		Controllers: make([]ControllerData, len(yamlConfig.Controllers)),
	}

	for i, t := range yamlConfig.Turbines {
		config.Turbines[i] = TurbineData{
			Name:                  t.Name,
			HubHeight:             t.HubHeight,
			RotorDiameter:         t.RotorDiameter,
			NominalPower:          t.NominalPower,
			PowerCurve:            convertCurveYAML(t.PowerCurve),
			PowerCoefficientCurve: convertCurveYAML(t.PowerCoefficientCurve),
		}
	}

	for i, f := range yamlConfig.Farms {
		farm := FarmData{
			Name:            f.Name,
			Efficiency:      f.Efficiency,
			EfficiencyCurve: convertCurveYAML(f.EfficiencyCurve),
			WeatherFile:     f.WeatherFile,
		}
		for _, m := range f.Fleet {
			farm.Fleet = append(farm.Fleet, FleetMemberData{Turbine: m.Turbine, Count: m.Count})
		}
		config.Farms[i] = farm
	}

	for i, c := range yamlConfig.Clusters {
		config.Clusters[i] = ClusterData{Name: c.Name, Farms: c.Farms}
	}

	// Convert storage
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}
	if yamlConfig.Storage.MsgpackFile != nil {
		config.Storage.MsgpackFile = &MsgpackFileData{
			Directory: yamlConfig.Storage.MsgpackFile.Directory,
		}
	}

	// Convert controllers
	for i, c := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{Type: c.Type}
		if c.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				ListenAddr: c.RESTServer.ListenAddr,
				Port:       c.RESTServer.Port,
			}
		}
	}

	return config, nil
}

func convertCurveYAML(points []CurvePointYAML) []CurvePointData {
	if len(points) == 0 {
		return nil
	}
	out := make([]CurvePointData, len(points))
	for i, p := range points {
		out[i] = CurvePointData{WindSpeed: p.WindSpeed, Value: p.Value}
	}
	return out
}

// ensureLoaded lazily loads the file for the section getters
func (y *YAMLProvider) ensureLoaded() error {
	if y.config != nil {
		return nil
	}
	_, err := y.LoadConfig()
	return err
}

// GetModel returns the model settings
func (y *YAMLProvider) GetModel() (*ModelData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Model, nil
}

// GetTurbines returns the turbine catalog
func (y *YAMLProvider) GetTurbines() ([]TurbineData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Turbines, nil
}

// GetFarms returns the farm layouts
func (y *YAMLProvider) GetFarms() ([]FarmData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Farms, nil
}

// GetClusters returns the cluster layouts
func (y *YAMLProvider) GetClusters() ([]ClusterData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Clusters, nil
}

// GetStorageConfig returns storage configuration from YAML
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return &y.config.Storage, nil
}

// GetControllers returns controller configurations from YAML
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if err := y.ensureLoaded(); err != nil {
		return nil, err
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags

// ModelYAML mirrors ModelData field for field so the two convert directly
type ModelYAML struct {
	WindSpeedModel  string  `yaml:"wind-speed-model,omitempty"`
	HellmanExponent float64 `yaml:"hellman-exponent,omitempty"`
	ObstacleHeight  float64 `yaml:"obstacle-height,omitempty"`

	RoughnessSource string  `yaml:"roughness-source,omitempty"`
	RoughnessLength float64 `yaml:"roughness-length,omitempty"`
	TerrainClass    string  `yaml:"terrain-class,omitempty"`

	TemperatureModel string `yaml:"temperature-model,omitempty"`
	DensityModel     string `yaml:"density-model,omitempty"`

	CorrectObservation bool   `yaml:"correct-observation,omitempty"`
	CorrectCurve       bool   `yaml:"correct-curve,omitempty"`
	DensityExponent    string `yaml:"density-exponent,omitempty"`

	Strict bool `yaml:"strict,omitempty"`

	Aggregation     string `yaml:"aggregation,omitempty"`
	EfficiencyOrder string `yaml:"efficiency-order,omitempty"`

	Smoothing               bool    `yaml:"smoothing,omitempty"`
	SmoothingOrder          string  `yaml:"smoothing-order,omitempty"`
	StandardDeviationMethod string  `yaml:"standard-deviation-method,omitempty"`
	BlockWidth              float64 `yaml:"block-width,omitempty"`
	BlockRange              float64 `yaml:"block-range,omitempty"`
	TurbulenceIntensity     float64 `yaml:"turbulence-intensity,omitempty"`
}

type CurvePointYAML struct {
	WindSpeed float64 `yaml:"wind-speed"`
	Value     float64 `yaml:"value"`
}

type TurbineYAML struct {
	Name                  string           `yaml:"name"`
	HubHeight             float64          `yaml:"hub-height"`
	RotorDiameter         float64          `yaml:"rotor-diameter,omitempty"`
	NominalPower          float64          `yaml:"nominal-power,omitempty"`
	PowerCurve            []CurvePointYAML `yaml:"power-curve,omitempty"`
	PowerCoefficientCurve []CurvePointYAML `yaml:"power-coefficient-curve,omitempty"`
}

type FleetMemberYAML struct {
	Turbine string `yaml:"turbine"`
	Count   int    `yaml:"count"`
}

type FarmYAML struct {
	Name            string            `yaml:"name"`
	Fleet           []FleetMemberYAML `yaml:"fleet"`
	Efficiency      float64           `yaml:"efficiency,omitempty"`
	EfficiencyCurve []CurvePointYAML  `yaml:"efficiency-curve,omitempty"`
	WeatherFile     string            `yaml:"weather-file,omitempty"`
}

type ClusterYAML struct {
	Name  string   `yaml:"name"`
	Farms []string `yaml:"farms"`
}

type WeatherYAML struct {
	File string `yaml:"file,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
	MsgpackFile *MsgpackFileYAML `yaml:"msgpack-file,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type MsgpackFileYAML struct {
	Directory string `yaml:"directory"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	ListenAddr string `yaml:"listen-addr,omitempty"`
	Port       int    `yaml:"port"`
}
