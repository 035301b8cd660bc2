package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/responseformat"
	"github.com/chrissnell/windfeed/pkg/weather"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data, nil); err != nil {
		h.controller.logger.Errorw("could not write response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status, kind := errorStatus(err)
	h.writeErrorStatus(w, req, status, kind, err)
}

func (h *Handlers) writeErrorStatus(w http.ResponseWriter, req *http.Request, status int, kind string, err error) {
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorw("request failed", "path", req.URL.Path, "error", err)
	} else {
		h.controller.logger.Debugw("request rejected", "path", req.URL.Path, "status", status, "error", err)
	}
	if werr := h.formatter.WriteError(w, req, status, kind, err); werr != nil {
		h.controller.logger.Errorw("could not write error response", "path", req.URL.Path, "error", werr)
	}
}

// ListTurbines returns every turbine type of the catalog
func (h *Handlers) ListTurbines(w http.ResponseWriter, req *http.Request) {
	cat := h.controller.catalog
	out := make([]TurbineSummary, 0)
	for _, name := range cat.TurbineNames() {
		spec, _ := cat.Turbine(name)
		out = append(out, turbineSummary(spec))
	}
	h.write(w, req, http.StatusOK, out)
}

// GetTurbine returns one turbine type with its power curve at standard density
func (h *Handlers) GetTurbine(w http.ResponseWriter, req *http.Request) {
	spec, err := h.controller.catalog.Turbine(mux.Vars(req)["name"])
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	pc, err := spec.PowerCurve()
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	h.write(w, req, http.StatusOK, TurbineDetail{
		TurbineSummary: turbineSummary(spec),
		PowerCurve:     pc.Points(),
	})
}

// ListFarms returns every farm of the catalog
func (h *Handlers) ListFarms(w http.ResponseWriter, req *http.Request) {
	cat := h.controller.catalog
	out := make([]FarmSummary, 0)
	for _, name := range cat.FarmNames() {
		f, _ := cat.Farm(name)
		out = append(out, farmSummary(f))
	}
	h.write(w, req, http.StatusOK, out)
}

// ListClusters returns every cluster of the catalog
func (h *Handlers) ListClusters(w http.ResponseWriter, req *http.Request) {
	cat := h.controller.catalog
	out := make([]ClusterSummary, 0)
	for _, name := range cat.ClusterNames() {
		c, _ := cat.Cluster(name)
		out = append(out, clusterSummary(c))
	}
	h.write(w, req, http.StatusOK, out)
}

// ComputeTurbinePower computes the output of a single turbine for the posted weather
func (h *Handlers) ComputeTurbinePower(w http.ResponseWriter, req *http.Request) {
	h.compute(w, req, catalog.KindTurbine, func(name string, ws *weather.Series) (*power.Series, error) {
		chain, err := h.controller.catalog.ModelChain(name)
		if err != nil {
			return nil, err
		}
		return chain.ComputePowerOutput(ws)
	})
}

// ComputeFarmPower computes the output of a farm for the posted weather
func (h *Handlers) ComputeFarmPower(w http.ResponseWriter, req *http.Request) {
	h.compute(w, req, catalog.KindFarm, func(name string, ws *weather.Series) (*power.Series, error) {
		f, err := h.controller.catalog.Farm(name)
		if err != nil {
			return nil, err
		}
		return h.controller.catalog.Aggregator().ComputeFarmOutput(f, ws)
	})
}

// ComputeClusterPower computes the output of a cluster. The posted weather applies to
// every farm of the cluster.
func (h *Handlers) ComputeClusterPower(w http.ResponseWriter, req *http.Request) {
	h.compute(w, req, catalog.KindCluster, func(name string, ws *weather.Series) (*power.Series, error) {
		c, err := h.controller.catalog.Cluster(name)
		if err != nil {
			return nil, err
		}
		return h.controller.catalog.Aggregator().ComputeClusterOutput(c, ws)
	})
}

type computeFunc func(name string, ws *weather.Series) (*power.Series, error)

func (h *Handlers) compute(w http.ResponseWriter, req *http.Request, kind string, fn computeFunc) {
	name := mux.Vars(req)["name"]

	store := false
	if v := req.URL.Query().Get("store"); v != "" {
		var err error
		if store, err = strconv.ParseBool(v); err != nil {
			h.writeErrorStatus(w, req, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid store parameter %q", v))
			return
		}
	}
	if store && h.controller.store == nil {
		h.writeErrorStatus(w, req, http.StatusBadRequest, "bad_request", errors.New("no storage backend is configured"))
		return
	}

	var ws weather.Series
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&ws); err != nil {
		h.writeErrorStatus(w, req, http.StatusBadRequest, "bad_request", fmt.Errorf("could not decode weather: %w", err))
		return
	}

	series, err := fn(name, &ws)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	resp := powerResponse(kind, name, series)

	if store {
		out := storage.Output{
			RunID:      uuid.New(),
			Kind:       kind,
			Name:       name,
			ComputedAt: time.Now().UTC(),
			Series:     series,
		}
		if err := h.controller.store.StoreOutput(req.Context(), out); err != nil {
			h.writeErrorStatus(w, req, http.StatusBadGateway, "storage", err)
			return
		}
		resp.RunID = out.RunID.String()
	}

	h.write(w, req, http.StatusOK, resp)
}

// GetHealth reports the storage engine health
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: "healthy"}
	status := http.StatusOK

	if h.controller.store != nil {
		resp.Storage = make(map[string]string)
		for name, err := range h.controller.store.Health(req.Context()) {
			if err != nil {
				resp.Storage[name] = err.Error()
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			} else {
				resp.Storage[name] = "healthy"
			}
		}
	}

	h.write(w, req, status, resp)
}

// GetHTTPLog returns the most recent requests
func (h *Handlers) GetHTTPLog(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, log.GetHTTPLogBuffer().Entries())
}
