package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/chrissnell/windfeed/internal/database"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/storage/timescaledb"
	"github.com/chrissnell/windfeed/pkg/config"
	"github.com/chrissnell/windfeed/pkg/migrate"
)

func main() {
	var (
		schema        = flag.String("schema", "catalog", "Schema to migrate: 'catalog' (SQLite configuration) or 'output' (TimescaleDB power output)")
		dbDSN         = flag.String("dsn", "", "Database connection string")
		command       = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion = flag.String("target", "", "Target version for down/to commands")
		helpFlag      = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: -dsn flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(false, ""); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	s, ok := schemas()[*schema]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown schema: %s\n", *schema)
		showHelp()
		os.Exit(1)
	}

	db, err := open(s, *dbDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, s, log.Named("migrate"))

	switch *command {
	case "up":
		err = migrator.Up()
	case "down", "to":
		target, perr := parseTarget(*targetVersion, *command)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", perr)
			os.Exit(1)
		}
		if *command == "down" {
			err = migrator.Down(target)
		} else {
			err = migrator.To(target)
		}
	case "version":
		version, verr := migrator.Version()
		if verr != nil {
			log.Fatalf("Failed to get current version: %v", verr)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}

	fmt.Println("Migration completed successfully")
}

// schemas maps the -schema flag to the migrations embedded in the binary
func schemas() map[string]*migrate.Schema {
	catalog, output := config.CatalogSchema(), timescaledb.Schema()
	return map[string]*migrate.Schema{
		catalog.Name: catalog,
		output.Name:  output,
	}
}

// open connects to dsn with the driver the schema runs on
func open(s *migrate.Schema, dsn string) (*sql.DB, error) {
	switch s.Driver {
	case migrate.DriverSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case migrate.DriverPostgres:
		gdb, err := database.CreateConnection(dsn)
		if err != nil {
			return nil, err
		}
		return gdb.DB()
	default:
		return nil, fmt.Errorf("schema %s: unsupported driver %q", s.Name, s.Driver)
	}
}

func parseTarget(target, command string) (int, error) {
	if target == "" {
		return 0, fmt.Errorf("-target flag is required for %s command", command)
	}
	v, err := strconv.Atoi(target)
	if err != nil {
		return 0, fmt.Errorf("invalid target version: %w", err)
	}
	return v, nil
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending, err := migrator.Pending()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))

	if len(pending) > 0 {
		fmt.Println("\nPending migrations:")
		for _, migration := range pending {
			fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
		}
	}

	return nil
}

func showHelp() {
	fmt.Println("windfeed Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  windfeed-migrate [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -schema string     catalog or output (default: catalog)")
	fmt.Println("  -dsn string        Database connection string (required)")
	fmt.Println("  -command string    Migration command (default: up)")
	fmt.Println("  -target string     Target version for down/to commands")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  windfeed-migrate -dsn windfeed.db -command status")
	fmt.Println("  windfeed-migrate -schema output -dsn postgres://windfeed@localhost/windfeed -command down -target 0")
}
