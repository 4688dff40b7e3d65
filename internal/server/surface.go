package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/pets-series/petsbridge/internal/bridge"
)

const shutdownTimeout = 5 * time.Second

// HTTPSurface is the bridge.Surface serving the read API. Register starts
// the listener; Unregister drains it and reports whether shutdown was clean.
type HTTPSurface struct {
	addr   string
	cfg    Config
	logger *logrus.Logger
	reg    *prometheus.Registry

	srv *http.Server
}

func NewHTTPSurface(addr string, cfg Config, logger *logrus.Logger, reg *prometheus.Registry) *HTTPSurface {
	return &HTTPSurface{addr: addr, cfg: cfg, logger: logger, reg: reg}
}

func (s *HTTPSurface) Register(b *bridge.Bridge) error {
	router, err := NewRouter(b.Coordinator(), s.cfg, s.logger, s.reg)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: router}

	s.logger.WithField("addr", listener.Addr().String()).Info("read API listening")
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("read API server error")
		}
	}()
	return nil
}

func (s *HTTPSurface) Unregister() bool {
	if s.srv == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("read API shutdown failed")
		return false
	}
	s.srv = nil
	return true
}

var _ bridge.Surface = (*HTTPSurface)(nil)
