package config

import (
	"database/sql"
	"embed"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/windfeed/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	curveKindPower            = "power"
	curveKindPowerCoefficient = "power_coefficient"

	defaultConfigFilter = "config_id = (SELECT id FROM configs WHERE name = 'default')"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// CatalogSchema describes the embedded catalog migrations
func CatalogSchema() *migrate.Schema {
	return &migrate.Schema{
		Name:   "catalog",
		FS:     migrationFS,
		Dir:    "migrations",
		Table:  "schema_migrations",
		Driver: migrate.DriverSQLite,
	}
}

// Migrate brings the catalog schema up to date
func (s *SQLiteProvider) Migrate(logger *zap.SugaredLogger) error {
	if err := migrate.NewMigrator(s.db, CatalogSchema(), logger).Up(); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	model, err := s.GetModel()
	if err != nil {
		return nil, fmt.Errorf("failed to load model settings: %w", err)
	}
	config.Model = *model

	if config.Turbines, err = s.GetTurbines(); err != nil {
		return nil, fmt.Errorf("failed to load turbines: %w", err)
	}
	if config.Farms, err = s.GetFarms(); err != nil {
		return nil, fmt.Errorf("failed to load farms: %w", err)
	}
	if config.Clusters, err = s.GetClusters(); err != nil {
		return nil, fmt.Errorf("failed to load clusters: %w", err)
	}

	weather, err := s.GetWeather()
	if err != nil {
		return nil, fmt.Errorf("failed to load weather config: %w", err)
	}
	config.Weather = *weather

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	if config.Controllers, err = s.GetControllers(); err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}

	return config, nil
}

// GetModel returns the model settings, or zero settings (all defaults) when none are stored
func (s *SQLiteProvider) GetModel() (*ModelData, error) {
	query := `
		SELECT wind_speed_model, hellman_exponent, obstacle_height,
		       roughness_source, roughness_length, terrain_class,
		       temperature_model, density_model,
		       correct_observation, correct_curve, density_exponent, strict,
		       aggregation, efficiency_order,
		       smoothing, smoothing_order, standard_deviation_method,
		       block_width, block_range, turbulence_intensity
		FROM model_settings
		WHERE ` + defaultConfigFilter

	var m ModelData
	var windModel, roughnessSource, terrainClass, temperatureModel, densityModel sql.NullString
	var exponent, aggregation, efficiencyOrder, smoothingOrder, stdMethod sql.NullString
	var hellman, obstacle, roughness, blockWidth, blockRange, ti sql.NullFloat64

	err := s.db.QueryRow(query).Scan(
		&windModel, &hellman, &obstacle,
		&roughnessSource, &roughness, &terrainClass,
		&temperatureModel, &densityModel,
		&m.CorrectObservation, &m.CorrectCurve, &exponent, &m.Strict,
		&aggregation, &efficiencyOrder,
		&m.Smoothing, &smoothingOrder, &stdMethod,
		&blockWidth, &blockRange, &ti,
	)
	if err == sql.ErrNoRows {
		return &ModelData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model settings: %w", err)
	}

	m.WindSpeedModel = windModel.String
	m.HellmanExponent = hellman.Float64
	m.ObstacleHeight = obstacle.Float64
	m.RoughnessSource = roughnessSource.String
	m.RoughnessLength = roughness.Float64
	m.TerrainClass = terrainClass.String
	m.TemperatureModel = temperatureModel.String
	m.DensityModel = densityModel.String
	m.DensityExponent = exponent.String
	m.Aggregation = aggregation.String
	m.EfficiencyOrder = efficiencyOrder.String
	m.SmoothingOrder = smoothingOrder.String
	m.StandardDeviationMethod = stdMethod.String
	m.BlockWidth = blockWidth.Float64
	m.BlockRange = blockRange.Float64
	m.TurbulenceIntensity = ti.Float64

	return &m, nil
}

// GetTurbines returns the turbine catalog with its curves
func (s *SQLiteProvider) GetTurbines() ([]TurbineData, error) {
	query := `
		SELECT id, name, hub_height, rotor_diameter, nominal_power
		FROM turbines
		WHERE ` + defaultConfigFilter + `
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query turbines: %w", err)
	}
	defer rows.Close()

	var turbines []TurbineData
	var ids []int64
	for rows.Next() {
		var id int64
		var t TurbineData
		var rotorDiameter, nominalPower sql.NullFloat64

		if err := rows.Scan(&id, &t.Name, &t.HubHeight, &rotorDiameter, &nominalPower); err != nil {
			return nil, fmt.Errorf("failed to scan turbine row: %w", err)
		}
		t.RotorDiameter = rotorDiameter.Float64
		t.NominalPower = nominalPower.Float64

		turbines = append(turbines, t)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if turbines[i].PowerCurve, err = s.curvePoints(
			"SELECT wind_speed, value FROM turbine_curve_points WHERE turbine_id = ? AND kind = ? ORDER BY position",
			id, curveKindPower); err != nil {
			return nil, fmt.Errorf("failed to load power curve of %s: %w", turbines[i].Name, err)
		}
		if turbines[i].PowerCoefficientCurve, err = s.curvePoints(
			"SELECT wind_speed, value FROM turbine_curve_points WHERE turbine_id = ? AND kind = ? ORDER BY position",
			id, curveKindPowerCoefficient); err != nil {
			return nil, fmt.Errorf("failed to load power coefficient curve of %s: %w", turbines[i].Name, err)
		}
	}

	return turbines, nil
}

func (s *SQLiteProvider) curvePoints(query string, args ...interface{}) ([]CurvePointData, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []CurvePointData
	for rows.Next() {
		var p CurvePointData
		if err := rows.Scan(&p.WindSpeed, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GetFarms returns the farm layouts
func (s *SQLiteProvider) GetFarms() ([]FarmData, error) {
	query := `
		SELECT id, name, efficiency, weather_file
		FROM farms
		WHERE ` + defaultConfigFilter + `
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query farms: %w", err)
	}
	defer rows.Close()

	var farms []FarmData
	var ids []int64
	for rows.Next() {
		var id int64
		var f FarmData
		var efficiency sql.NullFloat64
		var weatherFile sql.NullString

		if err := rows.Scan(&id, &f.Name, &efficiency, &weatherFile); err != nil {
			return nil, fmt.Errorf("failed to scan farm row: %w", err)
		}
		f.Efficiency = efficiency.Float64
		f.WeatherFile = weatherFile.String

		farms = append(farms, f)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if farms[i].Fleet, err = s.farmMembers(id); err != nil {
			return nil, fmt.Errorf("failed to load fleet of %s: %w", farms[i].Name, err)
		}
		if farms[i].EfficiencyCurve, err = s.curvePoints(
			"SELECT wind_speed, value FROM farm_efficiency_points WHERE farm_id = ? ORDER BY position", id); err != nil {
			return nil, fmt.Errorf("failed to load efficiency curve of %s: %w", farms[i].Name, err)
		}
	}

	return farms, nil
}

func (s *SQLiteProvider) farmMembers(farmID int64) ([]FleetMemberData, error) {
	rows, err := s.db.Query("SELECT turbine_name, count FROM farm_members WHERE farm_id = ? ORDER BY position", farmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fleet []FleetMemberData
	for rows.Next() {
		var m FleetMemberData
		if err := rows.Scan(&m.Turbine, &m.Count); err != nil {
			return nil, err
		}
		fleet = append(fleet, m)
	}
	return fleet, rows.Err()
}

// GetClusters returns the cluster layouts
func (s *SQLiteProvider) GetClusters() ([]ClusterData, error) {
	query := `
		SELECT c.name, cf.farm_name
		FROM clusters c
		LEFT JOIN cluster_farms cf ON cf.cluster_id = c.id
		WHERE c.` + defaultConfigFilter + `
		ORDER BY c.name, cf.position
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var clusters []ClusterData
	for rows.Next() {
		var name string
		var farm sql.NullString
		if err := rows.Scan(&name, &farm); err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		if n := len(clusters); n == 0 || clusters[n-1].Name != name {
			clusters = append(clusters, ClusterData{Name: name})
		}
		if farm.Valid {
			last := &clusters[len(clusters)-1]
			last.Farms = append(last.Farms, farm.String)
		}
	}

	return clusters, rows.Err()
}

// GetWeather returns the weather input configuration
func (s *SQLiteProvider) GetWeather() (*WeatherData, error) {
	var file sql.NullString
	err := s.db.QueryRow("SELECT file FROM weather_configs WHERE " + defaultConfigFilter).Scan(&file)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query weather config: %w", err)
	}
	return &WeatherData{File: file.String}, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend_type, connection_string, directory
		FROM storage_configs
		WHERE ` + defaultConfigFilter

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}
	for rows.Next() {
		var backendType string
		var connectionString, directory sql.NullString

		if err := rows.Scan(&backendType, &connectionString, &directory); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			storage.TimescaleDB = &TimescaleDBData{ConnectionString: connectionString.String}
		case "msgpack_file":
			storage.MsgpackFile = &MsgpackFileData{Directory: directory.String}
		default:
			return nil, fmt.Errorf("unknown storage backend %q", backendType)
		}
	}

	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	query := `
		SELECT controller_type, listen_addr, port
		FROM controller_configs
		WHERE ` + defaultConfigFilter + `
		ORDER BY controller_type
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData
	for rows.Next() {
		var controllerType string
		var listenAddr sql.NullString
		var port sql.NullInt64

		if err := rows.Scan(&controllerType, &listenAddr, &port); err != nil {
			return nil, fmt.Errorf("failed to scan controller row: %w", err)
		}

		controller := ControllerData{Type: controllerType}
		if controllerType == "rest" {
			controller.RESTServer = &RESTServerData{
				ListenAddr: listenAddr.String,
				Port:       int(port.Int64),
			}
		}
		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write methods for configuration management

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	// Start transaction
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.upsertConfig(tx, "default")
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	if err := s.clearExistingConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	if err := s.insertModel(tx, configID, &configData.Model); err != nil {
		return fmt.Errorf("failed to insert model settings: %w", err)
	}

	for i := range configData.Turbines {
		if err := s.insertTurbine(tx, configID, &configData.Turbines[i]); err != nil {
			return fmt.Errorf("failed to insert turbine %s: %w", configData.Turbines[i].Name, err)
		}
	}

	for i := range configData.Farms {
		if err := s.insertFarm(tx, configID, &configData.Farms[i]); err != nil {
			return fmt.Errorf("failed to insert farm %s: %w", configData.Farms[i].Name, err)
		}
	}

	for i := range configData.Clusters {
		if err := s.insertCluster(tx, configID, &configData.Clusters[i]); err != nil {
			return fmt.Errorf("failed to insert cluster %s: %w", configData.Clusters[i].Name, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO weather_configs (config_id, file) VALUES (?, ?)",
		configID, nullString(configData.Weather.File)); err != nil {
		return fmt.Errorf("failed to insert weather config: %w", err)
	}

	if err := s.insertStorageConfigs(tx, configID, &configData.Storage); err != nil {
		return fmt.Errorf("failed to insert storage configs: %w", err)
	}

	for _, controller := range configData.Controllers {
		if err := s.insertController(tx, configID, &controller); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", controller.Type, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteProvider) upsertConfig(tx *sql.Tx, name string) (int64, error) {
	query := `
		INSERT INTO configs (name, created_at, updated_at) VALUES (?, datetime('now'), datetime('now'))
		ON CONFLICT (name) DO UPDATE SET updated_at = datetime('now')
	`
	if _, err := tx.Exec(query, name); err != nil {
		return 0, err
	}

	var id int64
	err := tx.QueryRow("SELECT id FROM configs WHERE name = ?", name).Scan(&id)
	return id, err
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	queries := []string{
		"DELETE FROM turbine_curve_points WHERE turbine_id IN (SELECT id FROM turbines WHERE config_id = ?)",
		"DELETE FROM turbines WHERE config_id = ?",
		"DELETE FROM farm_members WHERE farm_id IN (SELECT id FROM farms WHERE config_id = ?)",
		"DELETE FROM farm_efficiency_points WHERE farm_id IN (SELECT id FROM farms WHERE config_id = ?)",
		"DELETE FROM farms WHERE config_id = ?",
		"DELETE FROM cluster_farms WHERE cluster_id IN (SELECT id FROM clusters WHERE config_id = ?)",
		"DELETE FROM clusters WHERE config_id = ?",
		"DELETE FROM model_settings WHERE config_id = ?",
		"DELETE FROM weather_configs WHERE config_id = ?",
		"DELETE FROM storage_configs WHERE config_id = ?",
		"DELETE FROM controller_configs WHERE config_id = ?",
	}

	for _, query := range queries {
		if _, err := tx.Exec(query, configID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertModel(tx *sql.Tx, configID int64, m *ModelData) error {
	query := `
		INSERT INTO model_settings (
			config_id, wind_speed_model, hellman_exponent, obstacle_height,
			roughness_source, roughness_length, terrain_class,
			temperature_model, density_model,
			correct_observation, correct_curve, density_exponent, strict,
			aggregation, efficiency_order,
			smoothing, smoothing_order, standard_deviation_method,
			block_width, block_range, turbulence_intensity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		configID, nullString(m.WindSpeedModel), nullFloat64(m.HellmanExponent), nullFloat64(m.ObstacleHeight),
		nullString(m.RoughnessSource), nullFloat64(m.RoughnessLength), nullString(m.TerrainClass),
		nullString(m.TemperatureModel), nullString(m.DensityModel),
		m.CorrectObservation, m.CorrectCurve, nullString(m.DensityExponent), m.Strict,
		nullString(m.Aggregation), nullString(m.EfficiencyOrder),
		m.Smoothing, nullString(m.SmoothingOrder), nullString(m.StandardDeviationMethod),
		nullFloat64(m.BlockWidth), nullFloat64(m.BlockRange), nullFloat64(m.TurbulenceIntensity),
	)
	return err
}

func (s *SQLiteProvider) insertTurbine(tx *sql.Tx, configID int64, t *TurbineData) error {
	result, err := tx.Exec(
		"INSERT INTO turbines (config_id, name, hub_height, rotor_diameter, nominal_power) VALUES (?, ?, ?, ?, ?)",
		configID, t.Name, t.HubHeight, nullFloat64(t.RotorDiameter), nullFloat64(t.NominalPower),
	)
	if err != nil {
		return err
	}
	turbineID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	curves := map[string][]CurvePointData{
		curveKindPower:            t.PowerCurve,
		curveKindPowerCoefficient: t.PowerCoefficientCurve,
	}
	for kind, points := range curves {
		for i, p := range points {
			if _, err := tx.Exec(
				"INSERT INTO turbine_curve_points (turbine_id, kind, position, wind_speed, value) VALUES (?, ?, ?, ?, ?)",
				turbineID, kind, i, p.WindSpeed, p.Value,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLiteProvider) insertFarm(tx *sql.Tx, configID int64, f *FarmData) error {
	result, err := tx.Exec(
		"INSERT INTO farms (config_id, name, efficiency, weather_file) VALUES (?, ?, ?, ?)",
		configID, f.Name, nullFloat64(f.Efficiency), nullString(f.WeatherFile),
	)
	if err != nil {
		return err
	}
	farmID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i, m := range f.Fleet {
		if _, err := tx.Exec(
			"INSERT INTO farm_members (farm_id, position, turbine_name, count) VALUES (?, ?, ?, ?)",
			farmID, i, m.Turbine, m.Count,
		); err != nil {
			return err
		}
	}

	for i, p := range f.EfficiencyCurve {
		if _, err := tx.Exec(
			"INSERT INTO farm_efficiency_points (farm_id, position, wind_speed, value) VALUES (?, ?, ?, ?)",
			farmID, i, p.WindSpeed, p.Value,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertCluster(tx *sql.Tx, configID int64, c *ClusterData) error {
	result, err := tx.Exec("INSERT INTO clusters (config_id, name) VALUES (?, ?)", configID, c.Name)
	if err != nil {
		return err
	}
	clusterID, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for i, farm := range c.Farms {
		if _, err := tx.Exec(
			"INSERT INTO cluster_farms (cluster_id, position, farm_name) VALUES (?, ?, ?)",
			clusterID, i, farm,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertStorageConfigs(tx *sql.Tx, configID int64, storage *StorageData) error {
	query := "INSERT INTO storage_configs (config_id, backend_type, connection_string, directory) VALUES (?, ?, ?, ?)"

	if storage.TimescaleDB != nil {
		if _, err := tx.Exec(query, configID, "timescaledb", storage.TimescaleDB.ConnectionString, nil); err != nil {
			return err
		}
	}

	if storage.MsgpackFile != nil {
		if _, err := tx.Exec(query, configID, "msgpack_file", nil, storage.MsgpackFile.Directory); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertController(tx *sql.Tx, configID int64, controller *ControllerData) error {
	var listenAddr sql.NullString
	var port sql.NullInt64
	if controller.RESTServer != nil {
		listenAddr = nullString(controller.RESTServer.ListenAddr)
		port = sql.NullInt64{Int64: int64(controller.RESTServer.Port), Valid: true}
	}

	_, err := tx.Exec(
		"INSERT INTO controller_configs (config_id, controller_type, listen_addr, port) VALUES (?, ?, ?, ?)",
		configID, controller.Type, listenAddr, port,
	)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
