package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/bridge"
	"github.com/pets-series/petsbridge/internal/config"
	"github.com/pets-series/petsbridge/internal/coordinator"
	"github.com/pets-series/petsbridge/internal/server"
)

// Command petsbridge bridges the Pets Series cloud backend (and optional
// local device backend) into a periodically refreshed snapshot served over
// HTTP.
//
// Usage:
//
//	petsbridge [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	if appConfig.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(appConfig.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid log level %q: %v", appConfig.Logging.Level, err)
	}
	logger.SetLevel(level)

	logger.WithFields(logrus.Fields{
		"interval":   appConfig.Refresh.Interval.String(),
		"call_delay": appConfig.Refresh.CallDelay.String(),
		"local":      appConfig.Tuya.Configured(),
	}).Info("Starting petsbridge")

	registry := prometheus.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := bridge.Setup(ctx, appConfig, logger, registry)
	if err != nil {
		if errors.Is(err, coordinator.ErrReauthRequired) {
			logger.Fatalf("Credentials rejected, re-authentication required: %v", err)
		}
		logger.Fatalf("Setup failed: %v", err)
	}

	surface := server.NewHTTPSurface(
		fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port),
		server.Config{
			CacheSize:      appConfig.Server.CacheSize,
			RateLimit:      appConfig.Server.RateLimit,
			RateLimitBurst: appConfig.Server.RateLimitBurst,
		},
		logger,
		registry,
	)
	if err := b.Register(surface); err != nil {
		b.Teardown()
		logger.Fatalf("Failed to register read API: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down")

	if !b.Teardown() {
		logger.Error("Teardown incomplete, exiting anyway")
		os.Exit(1)
	}
	logger.Info("Stopped")
}
