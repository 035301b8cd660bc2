// Package restserver serves the catalog and on-demand power calculations over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/pkg/config"
)

// maximum accepted weather payload
const maxBodyBytes = 32 << 20

// OutputStore persists outputs computed on request
type OutputStore interface {
	StoreOutput(ctx context.Context, out storage.Output) error
	Health(ctx context.Context) map[string]error
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	catalog    *catalog.Catalog
	store      OutputStore
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller. store may be nil, in which case
// requests asking to store their output are rejected.
func NewController(ctx context.Context, wg *sync.WaitGroup, cat *catalog.Catalog, store OutputStore, rc config.RESTServerData, logger *zap.SugaredLogger) (*Controller, error) {
	if cat == nil {
		return nil, fmt.Errorf("REST server needs a catalog")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		catalog:    cat,
		store:      store,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		rc.Port = 8080
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infow("starting REST server controller", "addr", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the complete HTTP handler chain
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{c.logger}), handlers.PrintRecoveryStack(true))(h)
	return requestLogMiddleware(h)
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/turbines", c.handlers.ListTurbines).Methods(http.MethodGet)
	router.HandleFunc("/turbines/{name}", c.handlers.GetTurbine).Methods(http.MethodGet)
	router.HandleFunc("/farms", c.handlers.ListFarms).Methods(http.MethodGet)
	router.HandleFunc("/clusters", c.handlers.ListClusters).Methods(http.MethodGet)

	router.HandleFunc("/turbines/{name}/power", c.handlers.ComputeTurbinePower).Methods(http.MethodPost)
	router.HandleFunc("/farms/{name}/power", c.handlers.ComputeFarmPower).Methods(http.MethodPost)
	router.HandleFunc("/clusters/{name}/power", c.handlers.ComputeClusterPower).Methods(http.MethodPost)

	router.HandleFunc("/health", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/logs/http", c.handlers.GetHTTPLog).Methods(http.MethodGet)

	return router
}

// requestLogMiddleware records every request in the HTTP log
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		var err error
		if m.Code >= http.StatusInternalServerError {
			err = fmt.Errorf("%s", http.StatusText(m.Code))
		}
		log.LogHTTPRequest(r.Method, r.URL.Path, m.Code, m.Duration, int(m.Written), r.RemoteAddr, r.UserAgent(), err)
	})
}

// recoveryLogger adapts the zap logger to gorilla's RecoveryHandlerLogger
type recoveryLogger struct {
	logger *zap.SugaredLogger
}

func (l recoveryLogger) Println(args ...interface{}) {
	l.logger.Error(args...)
}
