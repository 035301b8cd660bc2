package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/windfeed/internal/app"
	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "windfeed.yaml", "Path to configuration source:\n\t\t\t  YAML: windfeed.yaml\n\t\t\t  SQLite: windfeed.db\n\t\t\t  Use 'windfeed-config-convert' to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	mode := flag.String("mode", string(app.ModeBatch), "Run mode: 'batch' computes every cluster and farm once, 'serve' starts the REST controller")
	weatherFile := flag.String("weather", "", "Weather CSV used by farms without their own weather file (overrides the configured file)")
	logFile := flag.String("log-file", "", "Also write logs to this file, rotated by size")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("windfeed %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug, *logFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := newProvider(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to open configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	application := app.New(provider, log.Named("windfeed"), app.Options{
		Mode:        app.Mode(*mode),
		WeatherFile: *weatherFile,
	})
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func newProvider(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		if err := provider.Migrate(log.Named("migrate")); err != nil {
			provider.Close()
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}
