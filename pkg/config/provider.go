// Package config loads the turbine catalog, farm and cluster layouts, model settings,
// storage backends and controllers from YAML files or a SQLite database.
package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetModel() (*ModelData, error)
	GetTurbines() ([]TurbineData, error)
	GetFarms() ([]FarmData, error)
	GetClusters() ([]ClusterData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Model       ModelData        `json:"model"`
	Turbines    []TurbineData    `json:"turbines"`
	Farms       []FarmData       `json:"farms,omitempty"`
	Clusters    []ClusterData    `json:"clusters,omitempty"`
	Weather     WeatherData      `json:"weather,omitempty"`
	Storage     StorageData      `json:"storage,omitempty"`
	Controllers []ControllerData `json:"controllers,omitempty"`
}

// ModelData selects the calculation models. Empty strings select the defaults.
type ModelData struct {
	WindSpeedModel  string  `json:"wind_speed_model,omitempty"`
	HellmanExponent float64 `json:"hellman_exponent,omitempty"`
	ObstacleHeight  float64 `json:"obstacle_height,omitempty"`

	RoughnessSource string  `json:"roughness_source,omitempty"`
	RoughnessLength float64 `json:"roughness_length,omitempty"`
	TerrainClass    string  `json:"terrain_class,omitempty"`

	TemperatureModel string `json:"temperature_model,omitempty"`
	DensityModel     string `json:"density_model,omitempty"`

	CorrectObservation bool   `json:"correct_observation,omitempty"`
	CorrectCurve       bool   `json:"correct_curve,omitempty"`
	DensityExponent    string `json:"density_exponent,omitempty"`

	Strict bool `json:"strict,omitempty"`

	Aggregation     string `json:"aggregation,omitempty"`
	EfficiencyOrder string `json:"efficiency_order,omitempty"`

	Smoothing               bool    `json:"smoothing,omitempty"`
	SmoothingOrder          string  `json:"smoothing_order,omitempty"`
	StandardDeviationMethod string  `json:"standard_deviation_method,omitempty"`
	BlockWidth              float64 `json:"block_width,omitempty"`
	BlockRange              float64 `json:"block_range,omitempty"`
	TurbulenceIntensity     float64 `json:"turbulence_intensity,omitempty"`
}

// CurvePointData is one point of a power, power coefficient or efficiency curve
type CurvePointData struct {
	WindSpeed float64 `json:"wind_speed"`
	Value     float64 `json:"value"`
}

// TurbineData describes a turbine type. Exactly one of PowerCurve and
// PowerCoefficientCurve must be given.
type TurbineData struct {
	Name          string  `json:"name"`
	HubHeight     float64 `json:"hub_height"`
	RotorDiameter float64 `json:"rotor_diameter,omitempty"`
	NominalPower  float64 `json:"nominal_power,omitempty"`

	PowerCurve            []CurvePointData `json:"power_curve,omitempty"`
	PowerCoefficientCurve []CurvePointData `json:"power_coefficient_curve,omitempty"`
}

// FleetMemberData references a turbine type by name with a count
type FleetMemberData struct {
	Turbine string `json:"turbine"`
	Count   int    `json:"count"`
}

// FarmData describes a wind farm. Efficiency and EfficiencyCurve are alternatives.
type FarmData struct {
	Name            string            `json:"name"`
	Fleet           []FleetMemberData `json:"fleet"`
	Efficiency      float64           `json:"efficiency,omitempty"`
	EfficiencyCurve []CurvePointData  `json:"efficiency_curve,omitempty"`

	// WeatherFile overrides the global weather file for this farm
	WeatherFile string `json:"weather_file,omitempty"`
}

// ClusterData groups farms by name
type ClusterData struct {
	Name  string   `json:"name"`
	Farms []string `json:"farms"`
}

// WeatherData points at the weather table used in batch mode
type WeatherData struct {
	File string `json:"file,omitempty"`
}

// StorageData holds the configuration for the output storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
	MsgpackFile *MsgpackFileData `json:"msgpack_file,omitempty"`
}

// ControllerData holds the configuration for the controllers
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

// Storage backend configuration structs
type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type MsgpackFileData struct {
	Directory string `json:"directory"`
}

// Controller configuration structs
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port"`
}
