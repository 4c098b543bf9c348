package restserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chrissnell/gwstationd/internal/types"
	"github.com/chrissnell/gwstationd/pkg/config"
	"go.uber.org/zap"
)

type fakeSource struct {
	snap types.StationSnapshot
	last time.Time
}

func (f *fakeSource) State() types.StationSnapshot { return f.snap }
func (f *fakeSource) LastIngest() time.Time        { return f.last }

func newTestController(cfg config.RESTServerData, sources map[string]SnapshotSource) *Controller {
	return New(context.Background(), cfg, sources, zap.NewNop().Sugar())
}

func TestSnapshotEndpointSingleDevice(t *testing.T) {
	c := newTestController(
		config.RESTServerData{PullFromDevice: "backyard"},
		map[string]SnapshotSource{
			"backyard": &fakeSource{snap: types.StationSnapshot{StationName: "backyard", Temperature: 21.5}},
			"roof":     &fakeSource{snap: types.StationSnapshot{StationName: "roof"}},
		})

	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var snap types.StationSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if snap.StationName != "backyard" || snap.Temperature != 21.5 {
		t.Errorf("snapshot = %s %.1f, want backyard 21.5", snap.StationName, snap.Temperature)
	}
}

func TestSnapshotEndpointAllStations(t *testing.T) {
	c := newTestController(
		config.RESTServerData{},
		map[string]SnapshotSource{
			"backyard": &fakeSource{snap: types.StationSnapshot{StationName: "backyard"}},
			"roof":     &fakeSource{snap: types.StationSnapshot{StationName: "roof"}},
		})

	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/snapshot", nil))

	var all map[string]types.StationSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("stations = %d, want 2", len(all))
	}
}

func TestStationSnapshotNotFound(t *testing.T) {
	c := newTestController(config.RESTServerData{}, map[string]SnapshotSource{
		"backyard": &fakeSource{},
	})

	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/snapshot/attic", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}

	rr = httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/snapshot/backyard", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestHealthReflectsDataFreshness(t *testing.T) {
	fresh := &fakeSource{last: time.Now()}
	stale := &fakeSource{last: time.Now().Add(-time.Hour)}

	c := newTestController(config.RESTServerData{}, map[string]SnapshotSource{
		"fresh": fresh, "stale": stale,
	})
	rr := httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status with one fresh station = %d, want 200", rr.Code)
	}

	c = newTestController(config.RESTServerData{}, map[string]SnapshotSource{
		"stale": stale,
	})
	rr = httptest.NewRecorder()
	c.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status with only stale stations = %d, want 503", rr.Code)
	}
}
