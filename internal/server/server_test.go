package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pets-series/petsbridge/internal/models"
	"github.com/pets-series/petsbridge/internal/server"
)

type fakeSource struct {
	mu         sync.Mutex
	snapshot   *models.Snapshot
	fresh      bool
	generation uint64
}

func (f *fakeSource) Snapshot() (*models.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.fresh
}

func (f *fakeSource) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

func (f *fakeSource) publish(s *models.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	s.Generation = f.generation
	f.snapshot = s
	f.fresh = true
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Homes:   []models.Home{{ID: "home-1", Name: "Home"}},
		Devices: []models.Device{{ID: "dev-1", HomeID: "home-1"}},
		Meals:   []models.Meal{{ID: "meal-1", HomeID: "home-1"}},
		Events: map[string][]models.Event{
			models.EventKey("home-1", models.EventTypeMealDispensed): {
				{ID: "ev-1", HomeID: "home-1", Type: models.EventTypeMealDispensed},
			},
		},
		EventTypes: models.EventTypes(),
		Settings: map[string]models.DeviceSettings{
			"dev-1": {Values: map[string]any{"portion_size": "small"}, TuyaStatus: models.StatusUnavailable},
		},
		BaseData:  map[string]models.HomeBaseData{"home-1": {TuyaStatus: models.StatusUnavailable}},
		FetchedAt: time.Now(),
	}
}

func newTestRouter(t *testing.T, source server.SnapshotSource, cfg server.Config) http.Handler {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	router, err := server.NewRouter(source, cfg, logger, nil)
	require.NoError(t, err)
	return router
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestSnapshotRouteShape(t *testing.T) {
	source := &fakeSource{}
	source.publish(testSnapshot())
	router := newTestRouter(t, source, server.DefaultConfig())

	rec := get(t, router, "/v1/snapshot")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{
		"homes", "devices", "meals", "events_by_home_and_type",
		"event_types", "settings", "base_data",
	} {
		assert.Contains(t, body, key)
	}
}

func TestHealthz(t *testing.T) {
	source := &fakeSource{}
	router := newTestRouter(t, source, server.DefaultConfig())

	rec := get(t, router, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	source.publish(testSnapshot())
	rec = get(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stale":false`)

	// A failed refresh leaves the snapshot visible but marks it stale.
	source.mu.Lock()
	source.fresh = false
	source.mu.Unlock()
	rec = get(t, router, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stale":true`)
}

func TestRoutesBeforeFirstPublish(t *testing.T) {
	router := newTestRouter(t, &fakeSource{}, server.DefaultConfig())

	for _, path := range []string{"/v1/snapshot", "/v1/homes", "/v1/devices", "/v1/meals"} {
		rec := get(t, router, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestEventsRoute(t *testing.T) {
	source := &fakeSource{}
	source.publish(testSnapshot())
	router := newTestRouter(t, source, server.DefaultConfig())

	rec := get(t, router, "/v1/homes/home-1/events/meal_dispensed")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 1)

	rec = get(t, router, "/v1/homes/home-1/events/not_a_type")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, router, "/v1/homes/home-9/events/meal_dispensed")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoute(t *testing.T) {
	source := &fakeSource{}
	source.publish(testSnapshot())
	router := newTestRouter(t, source, server.DefaultConfig())

	rec := get(t, router, "/v1/devices/dev-1/settings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tuya_status"`)

	rec = get(t, router, "/v1/devices/dev-9/settings")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCacheInvalidatesPerGeneration(t *testing.T) {
	source := &fakeSource{}
	source.publish(testSnapshot())
	router := newTestRouter(t, source, server.DefaultConfig())

	first := get(t, router, "/v1/homes")
	require.Equal(t, http.StatusOK, first.Code)

	// Swapping the snapshot without a publish leaves the cache serving the
	// old body; it only turns over with the generation.
	source.mu.Lock()
	source.snapshot = &models.Snapshot{Homes: []models.Home{{ID: "home-2"}}}
	source.mu.Unlock()

	cached := get(t, router, "/v1/homes")
	assert.Equal(t, first.Body.String(), cached.Body.String())

	source.mu.Lock()
	source.generation++
	source.mu.Unlock()

	refreshed := get(t, router, "/v1/homes")
	assert.Contains(t, refreshed.Body.String(), "home-2")
}

func TestRateLimit(t *testing.T) {
	source := &fakeSource{}
	source.publish(testSnapshot())
	router := newTestRouter(t, source, server.Config{
		CacheSize:      16,
		RateLimit:      1,
		RateLimitBurst: 1,
	})

	rec := get(t, router, "/v1/homes")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/v1/homes")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
