package restserver

import (
	"time"

	"github.com/chrissnell/windfeed/pkg/curve"
)

// TurbineSummary describes a catalog turbine for JSON output
type TurbineSummary struct {
	Name          string  `json:"name"`
	Model         string  `json:"model"`
	HubHeight     float64 `json:"hub_height_m"`
	RotorDiameter float64 `json:"rotor_diameter_m,omitempty"`
	NominalPower  float64 `json:"nominal_power_w"`
}

// TurbineDetail adds the power curve at standard density
type TurbineDetail struct {
	TurbineSummary
	PowerCurve []curve.Point `json:"power_curve"`
}

// FleetMember is one turbine type of a farm
type FleetMember struct {
	Turbine string `json:"turbine"`
	Count   int    `json:"count"`
}

// FarmSummary describes a catalog farm for JSON output
type FarmSummary struct {
	Name           string        `json:"name"`
	Fleet          []FleetMember `json:"fleet"`
	InstalledPower float64       `json:"installed_power_w"`
	MeanHubHeight  float64       `json:"mean_hub_height_m"`
	Efficiency     string        `json:"efficiency,omitempty"`
}

// ClusterSummary describes a catalog cluster for JSON output
type ClusterSummary struct {
	Name           string   `json:"name"`
	Farms          []string `json:"farms"`
	InstalledPower float64  `json:"installed_power_w"`
	MeanHubHeight  float64  `json:"mean_hub_height_m"`
}

// PowerResponse is a computed power series. Invalid rows are null.
type PowerResponse struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name"`
	RunID       string      `json:"run_id,omitempty"`
	Index       []time.Time `json:"index"`
	Power       []*float64  `json:"power_w"`
	InvalidRows int         `json:"invalid_rows"`
	ClampedRows int         `json:"clamped_rows"`
}

// HealthResponse reports the state of the storage engines
type HealthResponse struct {
	Status  string            `json:"status"`
	Storage map[string]string `json:"storage,omitempty"`
}
