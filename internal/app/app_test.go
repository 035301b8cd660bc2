package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/internal/storage"
	"github.com/chrissnell/windfeed/pkg/config"
)

const batchCatalog = `
model:
  roughness-source: estimated
  terrain-class: farmland
turbines:
  - name: small
    hub-height: 80
    power-curve:
      - { wind-speed: 0, value: 0 }
      - { wind-speed: 5, value: 0 }
      - { wind-speed: 10, value: 1000 }
      - { wind-speed: 15, value: 1500 }
      - { wind-speed: 20, value: 1500 }
farms:
  - name: alpha
    fleet:
      - { turbine: small, count: 2 }
  - name: solo
    fleet:
      - { turbine: small, count: 1 }
    weather-file: solo.csv
clusters:
  - name: west
    farms: [alpha]
`

const globalCSV = `variable,wind_speed
height,80
2024-01-01T00:00:00Z,2
2024-01-01T01:00:00Z,7.5
2024-01-01T02:00:00Z,12
2024-01-01T03:00:00Z,25
`

const soloCSV = `variable,wind_speed
height,80
2024-01-01T00:00:00Z,10
2024-01-01T01:00:00Z,
`

type memoryStore struct {
	mu      sync.Mutex
	outputs []storage.Output
	err     error
}

func (m *memoryStore) StoreOutput(ctx context.Context, out storage.Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.outputs = append(m.outputs, out)
	return nil
}

func (m *memoryStore) byName(name string) (storage.Output, bool) {
	for _, o := range m.outputs {
		if o.Name == name {
			return o, true
		}
	}
	return storage.Output{}, false
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newBatchCatalog builds the test catalog with solo's weather file placed in dir
func newBatchCatalog(t *testing.T, dir string) *catalog.Catalog {
	t.Helper()
	cfg, err := config.ParseYAML([]byte(batchCatalog))
	assert.NilError(t, err)
	for i := range cfg.Farms {
		if cfg.Farms[i].WeatherFile != "" {
			cfg.Farms[i].WeatherFile = filepath.Join(dir, cfg.Farms[i].WeatherFile)
		}
	}
	cat, err := catalog.New(cfg, nil)
	assert.NilError(t, err)
	return cat
}

func TestRunBatchComputesClustersAndUnclusteredFarms(t *testing.T) {
	dir := t.TempDir()
	global := writeFile(t, dir, "global.csv", globalCSV)
	writeFile(t, dir, "solo.csv", soloCSV)
	cat := newBatchCatalog(t, dir)

	src, err := LoadWeather(cat, global)
	assert.NilError(t, err)

	store := &memoryStore{}
	report, err := RunBatch(context.Background(), cat, src, store, nil)
	assert.NilError(t, err)
	assert.Assert(t, is.Len(report.Outputs, 2))
	assert.Assert(t, is.Len(store.outputs, 2))

	sort.Slice(report.Outputs, func(i, j int) bool { return report.Outputs[i].Name < report.Outputs[j].Name })
	assert.DeepEqual(t, report.Outputs, []OutputSummary{
		{Kind: catalog.KindFarm, Name: "solo", Rows: 2, Invalid: 1},
		{Kind: catalog.KindCluster, Name: "west", Rows: 4},
	})

	west, ok := store.byName("west")
	assert.Assert(t, ok)
	assert.Equal(t, west.RunID, report.RunID)
	assert.DeepEqual(t, west.Series.Values, []float64{0, 1000, 2400, 3000})

	solo, ok := store.byName("solo")
	assert.Assert(t, ok)
	assert.Equal(t, solo.RunID, report.RunID)
	assert.Equal(t, solo.Series.Values[0], 1000.0)
	assert.Assert(t, math.IsNaN(solo.Series.Values[1]))
}

func TestRunBatchStoreFailure(t *testing.T) {
	dir := t.TempDir()
	global := writeFile(t, dir, "global.csv", globalCSV)
	writeFile(t, dir, "solo.csv", soloCSV)
	cat := newBatchCatalog(t, dir)

	src, err := LoadWeather(cat, global)
	assert.NilError(t, err)

	storeErr := errors.New("disk full")
	_, err = RunBatch(context.Background(), cat, src, &memoryStore{err: storeErr}, nil)
	assert.Assert(t, errors.Is(err, storeErr))
}

func TestLoadWeatherNeedsAFileForEveryFarm(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "solo.csv", soloCSV)
	cat := newBatchCatalog(t, dir)

	// alpha has no weather file of its own
	_, err := LoadWeather(cat, "")
	assert.ErrorContains(t, err, `farm "alpha"`)
}

func TestLoadWeatherMissingFile(t *testing.T) {
	dir := t.TempDir()
	cat := newBatchCatalog(t, dir)

	_, err := LoadWeather(cat, filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "could not open weather file")
}
