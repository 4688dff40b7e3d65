// Package coordinator implements the scheduled-refresh core: one builder
// that turns many rate-limited vendor calls into a single snapshot, and a
// scheduler that republishes that snapshot on a fixed cadence with a
// single-flight guarantee.
package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/pets-series/petsbridge/internal/models"
)

// Coordinator drives the builder on a fixed period and owns the published
// snapshot. At most one build runs at a time; a refresh requested while one
// is in flight joins it and receives the same result.
type Coordinator struct {
	builder  *Builder
	interval time.Duration
	logger   *logrus.Logger
	metrics  *Metrics
	cron     *cron.Cron

	group      singleflight.Group
	published  atomic.Pointer[models.Snapshot]
	generation atomic.Uint64
	available  atomic.Bool
	failures   atomic.Uint32
}

func New(builder *Builder, interval time.Duration, logger *logrus.Logger, metrics *Metrics) *Coordinator {
	return &Coordinator{
		builder:  builder,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		cron:     cron.New(),
	}
}

// Refresh runs one build and publishes the result. Concurrent callers share
// a single in-flight build. On failure the previously published snapshot is
// left untouched and the coordinator is marked stale.
func (c *Coordinator) Refresh(ctx context.Context) (*models.Snapshot, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Snapshot), nil
}

func (c *Coordinator) doRefresh(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()
	snapshot, err := c.builder.Build(ctx)
	c.metrics.observeAttempt(time.Since(start).Seconds())

	if err != nil {
		c.available.Store(false)
		c.failures.Add(1)
		c.metrics.observeFailure()
		return nil, err
	}

	snapshot.Generation = c.generation.Add(1)
	c.published.Store(snapshot)
	c.available.Store(true)
	c.failures.Store(0)
	c.metrics.observeSuccess(float64(snapshot.FetchedAt.Unix()))

	c.logger.WithFields(logrus.Fields{
		"generation": snapshot.Generation,
		"homes":      len(snapshot.Homes),
		"devices":    len(snapshot.Devices),
		"duration":   time.Since(start).String(),
	}).Info("snapshot published")
	return snapshot, nil
}

// Start registers the periodic refresh. The first refresh is expected to
// have been run by the caller before Start.
func (c *Coordinator) Start() error {
	_, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.interval), c.scheduledRefresh)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

func (c *Coordinator) scheduledRefresh() {
	if _, err := c.Refresh(context.Background()); err != nil {
		c.logger.WithError(err).WithField("failures", c.failures.Load()).
			Error("scheduled refresh failed, keeping previous snapshot")
	}
}

// Stop halts the periodic schedule. An in-flight build runs to completion;
// there is no cancellation path.
func (c *Coordinator) Stop() {
	c.cron.Stop()
}

// Snapshot returns the last published snapshot and whether it is current.
// ok is false before the first publish and after a failed refresh (stale
// data); the snapshot pointer itself stays valid either way.
func (c *Coordinator) Snapshot() (*models.Snapshot, bool) {
	return c.published.Load(), c.available.Load()
}

// Generation returns the publish counter, zero before the first publish.
func (c *Coordinator) Generation() uint64 {
	return c.generation.Load()
}
