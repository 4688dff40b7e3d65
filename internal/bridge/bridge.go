// Package bridge owns the lifecycle of one configured account: client
// construction, the first refresh, scheduler start, surface registration and
// ordered teardown. Each Bridge is an explicit per-instance context object;
// there is no process-global registry.
package bridge

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/config"
	"github.com/pets-series/petsbridge/internal/coordinator"
	"github.com/pets-series/petsbridge/internal/petsseries"
	"github.com/pets-series/petsbridge/internal/tuya"
)

// localWorkers bounds the pool servicing local status queries.
const localWorkers = 2

// SetupError is any initialization failure that is not a credential
// rejection. Setup aborts and nothing stays registered.
type SetupError struct {
	Cause error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("bridge setup failed: %v", e.Cause)
}

func (e *SetupError) Unwrap() error { return e.Cause }

// Surface is a read-only view driven off the published snapshot, for
// example an HTTP listener. Unregister reports whether the surface released
// cleanly.
type Surface interface {
	Register(b *Bridge) error
	Unregister() bool
}

// Bridge holds the client/coordinator pair for one configuration instance.
type Bridge struct {
	client   petsseries.API
	coord    *coordinator.Coordinator
	poller   *tuya.Poller
	logger   *logrus.Logger
	surfaces []Surface
}

// Setup builds and validates the full pipeline. On a credential rejection
// the returned error matches coordinator.ErrReauthRequired; any other
// failure is a *SetupError. Either way nothing remains registered. The first
// refresh runs here synchronously, so a returned Bridge always has a
// published snapshot.
func Setup(ctx context.Context, cfg *config.Config, logger *logrus.Logger, reg prometheus.Registerer) (*Bridge, error) {
	client := petsseries.NewClient(petsseries.Config{
		BaseURL:      cfg.PetsSeries.BaseURL,
		AccessToken:  cfg.PetsSeries.AccessToken,
		RefreshToken: cfg.PetsSeries.RefreshToken,
	}, logger)

	if err := client.Initialize(ctx); err != nil {
		client.Close()
		logger.WithError(err).Error("petsseries client initialization failed")
		if petsseries.IsAuthError(err) {
			return nil, &coordinator.AuthRequiredError{Cause: err}
		}
		return nil, &SetupError{Cause: err}
	}

	var poller *tuya.Poller
	var local tuya.StatusProvider
	if cfg.Tuya.Configured() {
		localClient := tuya.NewClient(tuya.Config{
			ClientID: cfg.Tuya.ClientID,
			Host:     cfg.Tuya.Host,
			LocalKey: cfg.Tuya.LocalKey,
			Version:  cfg.Tuya.Version,
		}, logger)
		poller = tuya.NewPoller(localClient, localWorkers, logger)
		local = poller
	}

	var metrics *coordinator.Metrics
	if reg != nil {
		metrics = coordinator.NewMetrics(reg)
	}

	builder := coordinator.NewBuilder(client, local, cfg.Refresh.CallDelay, logger)
	coord := coordinator.New(builder, cfg.Refresh.Interval, logger, metrics)

	b := &Bridge{
		client: client,
		coord:  coord,
		poller: poller,
		logger: logger,
	}

	// The very first refresh gates setup: a half-configured bridge with no
	// snapshot must never be handed out.
	if _, err := coord.Refresh(ctx); err != nil {
		b.release()
		if petsseries.IsAuthError(err) {
			return nil, err
		}
		return nil, &SetupError{Cause: err}
	}

	if err := coord.Start(); err != nil {
		b.release()
		return nil, &SetupError{Cause: err}
	}

	logger.Info("bridge setup complete")
	return b, nil
}

// Coordinator exposes the snapshot source for surfaces.
func (b *Bridge) Coordinator() *coordinator.Coordinator { return b.coord }

// Register attaches a surface. A registration error leaves previously
// registered surfaces untouched.
func (b *Bridge) Register(s Surface) error {
	if err := s.Register(b); err != nil {
		return err
	}
	b.surfaces = append(b.surfaces, s)
	return nil
}

// Teardown unregisters every surface; only when all of them release cleanly
// does it stop the scheduler, close the client and drop retained state.
func (b *Bridge) Teardown() bool {
	ok := true
	for _, s := range b.surfaces {
		if !s.Unregister() {
			ok = false
		}
	}
	if !ok {
		b.logger.Warn("teardown aborted, not all surfaces unregistered")
		return false
	}
	b.surfaces = nil
	b.release()
	b.logger.Info("bridge torn down")
	return true
}

func (b *Bridge) release() {
	b.coord.Stop()
	if b.poller != nil {
		b.poller.Close()
	}
	if err := b.client.Close(); err != nil {
		b.logger.WithError(err).Warn("error closing petsseries client")
	}
}
