package coordinator_test

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeAPI is an in-memory stand-in for the cloud client with call counters,
// in the style of the hand-rolled handler fakes used across the test suite.
type fakeAPI struct {
	mu sync.Mutex

	homes    []models.Home
	devices  map[string][]models.Device
	meals    map[string][]models.Meal
	events   map[string][]models.Event
	settings map[string]map[string]any

	homesErr    error
	devicesErr  error
	eventsErr   error
	settingsErr error
	mealsErr    error

	homesDelay time.Duration

	homesCalls    int
	devicesCalls  int
	eventsCalls   int
	settingsCalls int
	mealsCalls    int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		devices:  make(map[string][]models.Device),
		meals:    make(map[string][]models.Meal),
		events:   make(map[string][]models.Event),
		settings: make(map[string]map[string]any),
	}
}

func (f *fakeAPI) Homes(ctx context.Context) ([]models.Home, error) {
	f.mu.Lock()
	f.homesCalls++
	delay, err := f.homesDelay, f.homesErr
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return f.homes, nil
}

func (f *fakeAPI) Devices(ctx context.Context, home models.Home) ([]models.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devicesCalls++
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices[home.ID], nil
}

func (f *fakeAPI) Events(ctx context.Context, home models.Home, eventType models.EventType, from, to time.Time) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventsCalls++
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events[models.EventKey(home.ID, eventType)], nil
}

func (f *fakeAPI) Settings(ctx context.Context, home models.Home, deviceID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingsCalls++
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings[deviceID], nil
}

func (f *fakeAPI) Meals(ctx context.Context, home models.Home) ([]models.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mealsCalls++
	if f.mealsErr != nil {
		return nil, f.mealsErr
	}
	return f.meals[home.ID], nil
}

func (f *fakeAPI) Close() error { return nil }

func (f *fakeAPI) setHomesErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.homesErr = err
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.homesCalls
}

// fakeStatusProvider implements tuya.StatusProvider.
type fakeStatusProvider struct {
	status models.TuyaStatus
	err    error
}

func (f *fakeStatusProvider) Status(ctx context.Context) (models.TuyaStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}
