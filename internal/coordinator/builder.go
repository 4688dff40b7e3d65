package coordinator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pets-series/petsbridge/internal/models"
	"github.com/pets-series/petsbridge/internal/petsseries"
	"github.com/pets-series/petsbridge/internal/tuya"
)

// The vendor paginates nothing and caps request rates instead, so events are
// fetched per type over one deliberately unbounded window rather than
// incrementally.
var (
	eventsFrom = time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
	eventsTo   = time.Date(2100, 1, 1, 0, 0, 0, 0, time.FixedZone("UTC+2", 2*60*60))
)

// Builder produces one complete snapshot or fails atomically. Calls against
// the cloud backend are strictly sequential with a fixed spacing between
// them; the local status query runs on the poller's workers but is awaited
// before the traversal continues.
type Builder struct {
	client  petsseries.API
	local   tuya.StatusProvider
	limiter *rate.Limiter
	logger  *logrus.Logger
}

// NewBuilder wires a builder. local may be nil when no local backend is
// configured; every tuya_status field then carries models.StatusUnavailable.
func NewBuilder(client petsseries.API, local tuya.StatusProvider, callDelay time.Duration, logger *logrus.Logger) *Builder {
	limit := rate.Inf
	if callDelay > 0 {
		limit = rate.Every(callDelay)
	}
	return &Builder{
		client:  client,
		local:   local,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Build runs one full traversal. Any failure discards the partial result and
// surfaces as exactly one of *AuthRequiredError or *RefreshError.
func (b *Builder) Build(ctx context.Context) (*models.Snapshot, error) {
	snapshot, err := b.build(ctx)
	if err != nil {
		b.logger.WithError(err).Error("snapshot build failed")
		if petsseries.IsAuthError(err) {
			return nil, &AuthRequiredError{Cause: err}
		}
		return nil, &RefreshError{Cause: err}
	}
	return snapshot, nil
}

func (b *Builder) build(ctx context.Context) (*models.Snapshot, error) {
	eventTypes := models.EventTypes()
	snapshot := &models.Snapshot{
		Events:     make(map[string][]models.Event),
		EventTypes: eventTypes,
		Settings:   make(map[string]models.DeviceSettings),
		BaseData:   make(map[string]models.HomeBaseData),
	}

	homes, err := b.client.Homes(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Homes = homes

	for _, home := range homes {
		devices, err := b.client.Devices(ctx, home)
		if err != nil {
			return nil, err
		}
		snapshot.Devices = append(snapshot.Devices, devices...)
		b.logger.WithField("home_id", home.ID).Debug("fetched devices")
		if err := b.pause(ctx); err != nil {
			return nil, err
		}

		for _, eventType := range eventTypes {
			events, err := b.client.Events(ctx, home, eventType, eventsFrom, eventsTo)
			if err != nil {
				return nil, err
			}
			if events == nil {
				events = []models.Event{}
			}
			snapshot.Events[models.EventKey(home.ID, eventType)] = events
			b.logger.WithFields(logrus.Fields{
				"home_id":    home.ID,
				"event_type": eventType,
				"count":      len(events),
			}).Debug("fetched events")
			if err := b.pause(ctx); err != nil {
				return nil, err
			}
		}

		for _, device := range devices {
			values, err := b.client.Settings(ctx, home, device.ID)
			if err != nil {
				return nil, err
			}
			status, err := b.localStatus(ctx)
			if err != nil {
				return nil, err
			}
			snapshot.Settings[device.ID] = models.DeviceSettings{
				Values:     values,
				TuyaStatus: status,
			}
			b.logger.WithField("device_id", device.ID).Debug("fetched settings")
			if err := b.pause(ctx); err != nil {
				return nil, err
			}
		}

		meals, err := b.client.Meals(ctx, home)
		if err != nil {
			return nil, err
		}
		snapshot.Meals = append(snapshot.Meals, meals...)

		status, err := b.localStatus(ctx)
		if err != nil {
			return nil, err
		}
		snapshot.BaseData[home.ID] = models.HomeBaseData{TuyaStatus: status}

		if err := b.pause(ctx); err != nil {
			return nil, err
		}
	}

	snapshot.FetchedAt = time.Now()
	return snapshot, nil
}

// pause enforces the inter-call spacing the vendor's request quota demands.
func (b *Builder) pause(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// localStatus queries the local backend through the worker pool, or returns
// the unavailable marker when none is configured. A failing query fails the
// build; it is a blocking dependency of the snapshot.
func (b *Builder) localStatus(ctx context.Context) (models.TuyaStatus, error) {
	if b.local == nil {
		return models.StatusUnavailable, nil
	}
	return b.local.Status(ctx)
}
