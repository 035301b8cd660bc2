// Package app runs windfeed in batch or serve mode.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/managers"
	"github.com/chrissnell/windfeed/pkg/config"
)

// Mode selects what Run does
type Mode string

const (
	// ModeBatch computes every cluster and unclustered farm once and exits
	ModeBatch Mode = "batch"

	// ModeServe starts the controllers and waits for a shutdown signal
	ModeServe Mode = "serve"
)

// Options are the command line settings that override the configuration
type Options struct {
	Mode Mode

	// WeatherFile replaces the configured global weather file when set
	WeatherFile string
}

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	opts           Options
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger, opts Options) *App {
	if opts.Mode == "" {
		opts.Mode = ModeBatch
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
		opts:           opts,
	}
}

// Run loads the catalog, enables the storage engines and runs the selected mode
func (a *App) Run(ctx context.Context) error {
	cfgData, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	cat, err := catalog.New(cfgData, a.logger)
	if err != nil {
		return fmt.Errorf("error building catalog: %w", err)
	}

	storageManager, err := managers.NewStorageManager(ctx, cfgData.Storage, a.logger)
	if err != nil {
		return err
	}
	defer storageManager.Close()

	switch a.opts.Mode {
	case ModeBatch:
		weatherFile := cfgData.Weather.File
		if a.opts.WeatherFile != "" {
			weatherFile = a.opts.WeatherFile
		}
		src, err := LoadWeather(cat, weatherFile)
		if err != nil {
			return err
		}
		report, err := RunBatch(ctx, cat, src, storageManager, a.logger)
		if err != nil {
			return err
		}
		log.Infow("batch run complete", "run_id", report.RunID, "outputs", len(report.Outputs))
		return nil
	case ModeServe:
		return a.serve(ctx, cfgData.Controllers, cat, storageManager)
	default:
		return fmt.Errorf("unknown mode %q", a.opts.Mode)
	}
}

// serve starts the controllers and blocks until shutdown
func (a *App) serve(ctx context.Context, controllers []config.ControllerData, cat *catalog.Catalog, sm *managers.StorageManager) error {
	var wg sync.WaitGroup

	if len(controllers) == 0 {
		return fmt.Errorf("serve mode needs at least one controller")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, controllers, cat, sm, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
