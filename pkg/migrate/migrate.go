// Package migrate applies versioned SQL schema migrations to the SQLite catalog and
// the TimescaleDB output store.
package migrate

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Latest targets the newest migration a schema ships
const Latest = -1

// Migrator moves one database between versions of its Schema
type Migrator struct {
	db     *sql.DB
	schema *Schema
	logger *zap.SugaredLogger
}

// NewMigrator returns a migrator for schema on db. A nil logger discards migration progress.
func NewMigrator(db *sql.DB, schema *Schema, logger *zap.SugaredLogger) *Migrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{db: db, schema: schema, logger: logger.With("schema", schema.Name)}
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.To(Latest)
}

// Down rolls back to target, which must be below the current version
func (m *Migrator) Down(target int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	if target < 0 || target >= current {
		return fmt.Errorf("%s: cannot roll back from version %d to %d", m.schema.Name, current, target)
	}
	return m.To(target)
}

// To applies or rolls back migrations until the database is at target
func (m *Migrator) To(target int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	migrations, err := m.schema.Migrations()
	if err != nil {
		return err
	}

	steps, err := plan(migrations, current, target)
	if err != nil {
		return fmt.Errorf("%s: %w", m.schema.Name, err)
	}
	if len(steps) == 0 {
		m.logger.Debugw("schema is up to date", "version", current)
		return nil
	}

	for _, st := range steps {
		if err := m.apply(st); err != nil {
			return fmt.Errorf("%s: migration %d %s: %w", m.schema.Name, st.Version, st.direction(), err)
		}
	}
	m.logger.Infow("migrated schema", "from", current, "to", steps[len(steps)-1].after)
	return nil
}

// Version returns the highest applied version, creating the tracking table on first use
func (m *Migrator) Version() (int, error) {
	if err := m.schema.createTable(m.db); err != nil {
		return 0, err
	}
	return m.schema.currentVersion(m.db)
}

// Pending lists the migrations Up would apply, oldest first
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.Version()
	if err != nil {
		return nil, err
	}
	migrations, err := m.schema.Migrations()
	if err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mg := range migrations {
		if mg.Version > current {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

// step is one migration run in one direction, leaving the database at version after
type step struct {
	Migration
	up    bool
	after int
}

func (st step) direction() string {
	if st.up {
		return "up"
	}
	return "down"
}

func (st step) sql() string {
	if st.up {
		return st.Up
	}
	return st.Down
}

// plan orders the steps leading from current to target over migrations sorted by version.
// Every step is checked for SQL before anything runs.
func plan(migrations []Migration, current, target int) ([]step, error) {
	latest := 0
	if n := len(migrations); n > 0 {
		latest = migrations[n-1].Version
	}
	if target == Latest {
		target = latest
	}
	if target < 0 || target > latest {
		return nil, fmt.Errorf("no migration version %d (latest is %d)", target, latest)
	}

	var steps []step
	if target >= current {
		for _, mg := range migrations {
			if mg.Version > current && mg.Version <= target {
				steps = append(steps, step{Migration: mg, up: true, after: mg.Version})
			}
		}
	} else {
		for i := len(migrations) - 1; i >= 0; i-- {
			mg := migrations[i]
			if mg.Version > current || mg.Version <= target {
				continue
			}
			prev := 0
			if i > 0 {
				prev = migrations[i-1].Version
			}
			steps = append(steps, step{Migration: mg, after: prev})
		}
	}

	for _, st := range steps {
		if st.sql() == "" {
			return nil, fmt.Errorf("migration %d has no %s SQL", st.Version, st.direction())
		}
	}
	return steps, nil
}

func (m *Migrator) apply(st step) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(st.sql()); err != nil {
		return err
	}
	if err := m.schema.record(tx, st.after); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	m.logger.Infow("applied migration", "version", st.Version, "name", st.Name, "direction", st.direction())
	return nil
}
