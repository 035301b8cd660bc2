// Package timescaledb stores power output series in a TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math"

	"gorm.io/gorm"

	"github.com/chrissnell/windfeed/internal/database"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// rows per INSERT statement
const batchSize = 500

// Storage holds the configuration for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// New sets up a new TimescaleDB storage backend and brings its schema up to date
func New(ctx context.Context, connectionString string) (*Storage, error) {
	db, err := database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}

	t := &Storage{TimescaleDBConn: db.WithContext(ctx)}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get database handle: %w", err)
	}

	log.Info("migrating power output schema...")
	if err := migrateOrClose(sqlDB, Schema()); err != nil {
		return nil, fmt.Errorf("could not migrate power output schema: %w", err)
	}

	return t, nil
}

// migrateOrClose brings db up to date with schema and closes the pool when that fails
func migrateOrClose(db *sql.DB, schema *migrate.Schema) error {
	if err := migrate.NewMigrator(db, schema, log.GetSugaredLogger()).Up(); err != nil {
		if cerr := db.Close(); cerr != nil {
			log.Warnf("could not close database after failed migration: %v", cerr)
		}
		return err
	}
	return nil
}

// Schema describes the embedded power output migrations
func Schema() *migrate.Schema {
	return &migrate.Schema{
		Name:   "output",
		FS:     migrationFS,
		Dir:    "migrations",
		Table:  "windfeed_migrations",
		Driver: migrate.DriverPostgres,
	}
}

// NewWithDB wraps an existing connection without running migrations
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{TimescaleDBConn: db}
}

// Rows converts an output into one database row per time step. NaN power becomes NULL.
func Rows(out storage.Output) []database.PowerOutput {
	rows := make([]database.PowerOutput, out.Series.Len())
	for i, ts := range out.Series.Index {
		rows[i] = database.PowerOutput{
			Time:  ts,
			RunID: out.RunID,
			Kind:  out.Kind,
			Name:  out.Name,
		}
		if v := out.Series.Values[i]; !math.IsNaN(v) {
			rows[i].Power = &v
		}
	}
	return rows
}

// StoreOutput stores the run record and every row of out in a single transaction
func (t *Storage) StoreOutput(ctx context.Context, out storage.Output) error {
	run := database.PowerRun{
		RunID:       out.RunID,
		Kind:        out.Kind,
		Name:        out.Name,
		ComputedAt:  out.ComputedAt,
		Rows:        out.Series.Len(),
		InvalidRows: out.Series.Invalid,
		ClampedRows: out.Series.Clamped,
	}
	rows := Rows(out)

	err := t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, batchSize).Error
	})
	if err != nil {
		log.Errorw("could not store power output", "kind", out.Kind, "name", out.Name, "error", err)
		return fmt.Errorf("timescaledb: %w", err)
	}

	log.Debugw("stored power output", "kind", out.Kind, "name", out.Name, "rows", len(rows))
	return nil
}

// Health pings the database and runs a trivial query
func (t *Storage) Health(ctx context.Context) error {
	if t.TimescaleDBConn == nil {
		return fmt.Errorf("TimescaleDB connection is nil")
	}

	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database connection: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	return t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error
}

// Close closes the underlying connection pool
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
