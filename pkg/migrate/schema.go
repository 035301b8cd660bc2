package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Database drivers a Schema can target
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// 001_create_turbines.up.sql, 001_create_turbines.down.sql
var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Migration is one versioned schema change with its rollback
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Schema describes one of windfeed's databases: where its migrations are embedded,
// which table tracks the applied versions and which driver it runs on.
type Schema struct {
	Name   string
	FS     fs.FS
	Dir    string
	Table  string
	Driver string
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Migrations reads the schema's migrations from its filesystem in ascending version order.
// Files not following the NNN_name.(up|down).sql pattern are ignored.
func (s *Schema) Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(s.FS, s.Dir)
	if err != nil {
		return nil, fmt.Errorf("%s: reading migrations from %s: %w", s.Name, s.Dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		match := migrationFile.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}

		version, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("%s: bad version in %s: %w", s.Name, entry.Name(), err)
		}
		body, err := fs.ReadFile(s.FS, path.Join(s.Dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: reading %s: %w", s.Name, entry.Name(), err)
		}

		mg, ok := byVersion[version]
		if !ok {
			mg = &Migration{Version: version, Name: strings.ReplaceAll(match[2], "_", " ")}
			byVersion[version] = mg
		}
		switch match[3] {
		case "up":
			mg.Up = string(body)
		case "down":
			mg.Down = string(body)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mg := range byVersion {
		migrations = append(migrations, *mg)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func (s *Schema) table() string {
	if s.Table == "" {
		return "schema_migrations"
	}
	return s.Table
}

func (s *Schema) createTable(db *sql.DB) error {
	ts := "DATETIME"
	if s.Driver == DriverPostgres {
		ts = "TIMESTAMP"
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		applied_at %s DEFAULT CURRENT_TIMESTAMP
	)`, s.table(), ts)
	if _, err := db.Exec(q); err != nil {
		return fmt.Errorf("%s: creating %s: %w", s.Name, s.table(), err)
	}
	return nil
}

func (s *Schema) currentVersion(db *sql.DB) (int, error) {
	var version int
	q := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", s.table())
	if err := db.QueryRow(q).Scan(&version); err != nil {
		return 0, fmt.Errorf("%s: reading version: %w", s.Name, err)
	}
	return version, nil
}

// record makes version the highest applied one. Version 0 leaves the table empty.
func (s *Schema) record(db execer, version int) error {
	arg := "?"
	if s.Driver == DriverPostgres {
		arg = "$1"
	}
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE version >= %s", s.table(), arg), version); err != nil {
		return fmt.Errorf("%s: recording version %d: %w", s.Name, version, err)
	}
	if version == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (version, applied_at) VALUES (%s, CURRENT_TIMESTAMP)", s.table(), arg)
	if _, err := db.Exec(q, version); err != nil {
		return fmt.Errorf("%s: recording version %d: %w", s.Name, version, err)
	}
	return nil
}
