// Package managers wires the configured storage engines and controllers together.
package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/controllers/restserver"
	"github.com/chrissnell/windfeed/pkg/config"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, controllers []config.ControllerData, cat *catalog.Catalog, store *StorageManager, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		catalog:     cat,
		store:       store,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	// Create controllers based on configuration
	for _, con := range controllers {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %w", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	catalog     *catalog.Catalog
	store       *StorageManager
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %w", err)
		}
	}

	c.logger.Infof("started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case "restserver", "rest":
		rc := config.RESTServerData{}
		if cc.RESTServer != nil {
			rc = *cc.RESTServer
		}
		// with no engines enabled, requests asking to store their output are rejected
		var store restserver.OutputStore
		if cm.store != nil && len(cm.store.Engines) > 0 {
			store = cm.store
		}
		return restserver.NewController(cm.ctx, cm.wg, cm.catalog, store, rc, cm.logger)
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
