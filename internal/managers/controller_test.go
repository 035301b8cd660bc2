package managers

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"gotest.tools/v3/assert"

	"github.com/chrissnell/windfeed/internal/catalog"
	"github.com/chrissnell/windfeed/pkg/config"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cfg, err := config.ParseYAML([]byte(`
turbines:
  - name: small
    hub-height: 80
    power-curve:
      - { wind-speed: 0, value: 0 }
      - { wind-speed: 10, value: 1000 }
`))
	assert.NilError(t, err)
	cat, err := catalog.New(cfg, nil)
	assert.NilError(t, err)
	return cat
}

func nopLogger() *zap.SugaredLogger { return zap.NewNop().Sugar() }

func TestNewControllerManager(t *testing.T) {
	var wg sync.WaitGroup
	cat := testCatalog(t)

	_, err := NewControllerManager(context.Background(), &wg, []config.ControllerData{
		{Type: "rest", RESTServer: &config.RESTServerData{Port: 18150}},
	}, cat, &StorageManager{logger: nopLogger()}, nopLogger())
	assert.NilError(t, err)

	_, err = NewControllerManager(context.Background(), &wg, []config.ControllerData{
		{Type: "wunderground"},
	}, cat, nil, nopLogger())
	assert.ErrorContains(t, err, "unknown controller type: wunderground")
}
