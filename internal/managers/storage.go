package managers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/internal/storage/msgpackfile"
	"github.com/chrissnell/windfeed/internal/storage/timescaledb"
	"github.com/chrissnell/windfeed/pkg/config"
)

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines []StorageEngine
	logger  *zap.SugaredLogger
}

// StorageEngine holds a backend storage engine's interface with the name it was configured under
type StorageEngine struct {
	Name   string
	Engine storage.Engine
}

// NewStorageManager creates a StorageManager object, populated with all configured storage engines
func NewStorageManager(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &StorageManager{logger: logger}

	// Check the configuration for the supported storage backends and enable them if found

	if c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		engine, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.AddEngine("timescaledb", engine)
	}

	if c.MsgpackFile != nil && c.MsgpackFile.Directory != "" {
		engine, err := msgpackfile.New(c.MsgpackFile.Directory)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not add msgpack file storage backend: %w", err)
		}
		s.AddEngine("msgpack_file", engine)
	}

	return s, nil
}

// AddEngine adds a storage engine under name
func (s *StorageManager) AddEngine(name string, e storage.Engine) {
	s.logger.Infow("storage engine enabled", "engine", name)
	s.Engines = append(s.Engines, StorageEngine{Name: name, Engine: e})
}

// StoreOutput hands out to every engine in turn. Every engine is tried; the errors of
// those that failed are joined.
func (s *StorageManager) StoreOutput(ctx context.Context, out storage.Output) error {
	if len(s.Engines) == 0 {
		// No storage engines configured - output discarded silently
		return nil
	}

	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.StoreOutput(ctx, out); err != nil {
			s.logger.Errorw("could not store output", "engine", e.Name, "kind", out.Kind, "name", out.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Health returns the health of every engine by name, nil for healthy engines
func (s *StorageManager) Health(ctx context.Context) map[string]error {
	health := make(map[string]error, len(s.Engines))
	for _, e := range s.Engines {
		health[e.Name] = e.Engine.Health(ctx)
	}
	return health
}

// Close closes every engine
func (s *StorageManager) Close() error {
	var errs []error
	for _, e := range s.Engines {
		if err := e.Engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
