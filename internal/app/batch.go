package app

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/pkg/power"
	"github.com/chrissnell/windfeed/pkg/weather"
)

// OutputStore receives every output of a batch run
type OutputStore interface {
	StoreOutput(ctx context.Context, out storage.Output) error
}

// OutputSummary describes one output of a batch run
type OutputSummary struct {
	Kind    string
	Name    string
	Rows    int
	Invalid int
	Clamped int
}

// BatchReport lists what a batch run produced
type BatchReport struct {
	RunID   uuid.UUID
	Outputs []OutputSummary
}

// LoadWeather reads the global weather file and every per-farm weather file of the catalog.
// Files shared by several farms are read once.
func LoadWeather(cat *catalog.Catalog, globalFile string) (weather.Source, error) {
	cache := make(map[string]*weather.Series)
	read := func(path string) (*weather.Series, error) {
		if s, ok := cache[path]; ok {
			return s, nil
		}
		s, err := readWeatherFile(path)
		if err != nil {
			return nil, err
		}
		cache[path] = s
		return s, nil
	}

	src := weather.MapSource{Series: make(map[string]*weather.Series)}
	if globalFile != "" {
		s, err := read(globalFile)
		if err != nil {
			return nil, err
		}
		src.Fallback = s
	}

	for _, name := range cat.FarmNames() {
		path := cat.FarmWeatherFile(name)
		if path == "" {
			if src.Fallback == nil {
				return nil, fmt.Errorf("farm %q has no weather file and no global weather file is set", name)
			}
			continue
		}
		s, err := read(path)
		if err != nil {
			return nil, err
		}
		src.Series[name] = s
	}

	return src, nil
}

func readWeatherFile(path string) (*weather.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open weather file: %w", err)
	}
	defer f.Close()

	s, err := weather.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("could not read weather file %s: %w", path, err)
	}
	return s, nil
}

// RunBatch computes every cluster and every farm outside a cluster concurrently and hands
// each output to store. The first failure cancels the remaining work.
func RunBatch(ctx context.Context, cat *catalog.Catalog, src weather.Source, store OutputStore, logger *zap.SugaredLogger) (*BatchReport, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	report := &BatchReport{RunID: uuid.New()}
	computedAt := time.Now().UTC()
	aggregator := cat.Aggregator()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	run := func(kind, name string, compute func() (*power.Series, error)) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			series, err := compute()
			if err != nil {
				return fmt.Errorf("%s %q: %w", kind, name, err)
			}

			out := storage.Output{
				RunID:      report.RunID,
				Kind:       kind,
				Name:       name,
				ComputedAt: computedAt,
				Series:     series,
			}
			if err := store.StoreOutput(gctx, out); err != nil {
				return fmt.Errorf("storing %s %q: %w", kind, name, err)
			}

			logger.Infow("computed power output",
				"run_id", report.RunID, "kind", kind, "name", name,
				"rows", series.Len(), "invalid_rows", series.Invalid, "clamped_rows", series.Clamped)

			mu.Lock()
			report.Outputs = append(report.Outputs, OutputSummary{
				Kind:    kind,
				Name:    name,
				Rows:    series.Len(),
				Invalid: series.Invalid,
				Clamped: series.Clamped,
			})
			mu.Unlock()
			return nil
		})
	}

	for _, name := range cat.ClusterNames() {
		c, err := cat.Cluster(name)
		if err != nil {
			return nil, err
		}
		run(catalog.KindCluster, name, func() (*power.Series, error) {
			return aggregator.ComputeClusterOutput(c, src)
		})
	}

	for _, name := range cat.UnclusteredFarms() {
		name := name
		f, err := cat.Farm(name)
		if err != nil {
			return nil, err
		}
		run(catalog.KindFarm, name, func() (*power.Series, error) {
			w, err := src.WeatherFor(name)
			if err != nil {
				return nil, err
			}
			return aggregator.ComputeFarmOutput(f, w)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Infow("batch run finished", "run_id", report.RunID, "outputs", len(report.Outputs))
	return report, nil
}
