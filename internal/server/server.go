// Package server exposes the published snapshot as a read-only JSON API.
// Handlers only ever touch the last published snapshot; they perform no
// network I/O of their own.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pets-series/petsbridge/internal/models"
)

// SnapshotSource is the read side of the coordinator.
type SnapshotSource interface {
	Snapshot() (*models.Snapshot, bool)
	Generation() uint64
}

// Config holds the serving knobs.
type Config struct {
	CacheSize      int     // Size of the LRU response cache
	RateLimit      float64 // Requests per second
	RateLimitBurst int     // Maximum burst size for rate limiting
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize:      256,
		RateLimit:      5.0,
		RateLimitBurst: 10,
	}
}

// NewRouter builds the full middleware chain and routes. reg may be nil to
// disable metrics (handy in tests).
func NewRouter(source SnapshotSource, cfg Config, logger *logrus.Logger, reg *prometheus.Registry) (*gin.Engine, error) {
	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)))
	router.Use(Logging(logger))

	if reg != nil {
		requests := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petsbridge_http_requests_total",
			Help: "Number of HTTP requests per route.",
		}, []string{"route"})
		latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "petsbridge_http_request_duration_seconds",
			Help:    "HTTP request latency per route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"})
		reg.MustRegister(requests, latency)

		router.Use(Metrics(requests, latency))
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	h := &handlers{source: source, validTypes: make(map[models.EventType]bool)}
	for _, t := range models.EventTypes() {
		h.validTypes[t] = true
	}

	router.GET("/healthz", h.health)

	v1 := router.Group("/v1", Cache(cache, source.Generation))
	v1.GET("/snapshot", h.snapshot)
	v1.GET("/homes", h.homes)
	v1.GET("/devices", h.devices)
	v1.GET("/meals", h.meals)
	v1.GET("/event-types", h.eventTypes)
	v1.GET("/homes/:homeID/events/:type", h.events)
	v1.GET("/devices/:deviceID/settings", h.settings)

	return router, nil
}

type handlers struct {
	source     SnapshotSource
	validTypes map[models.EventType]bool
}

// current returns the published snapshot or answers 503 when nothing has
// been published yet.
func (h *handlers) current(c *gin.Context) (*models.Snapshot, bool) {
	snapshot, _ := h.source.Snapshot()
	if snapshot == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot published"})
		return nil, false
	}
	return snapshot, true
}

func (h *handlers) health(c *gin.Context) {
	snapshot, fresh := h.source.Snapshot()
	if snapshot == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"stale":      !fresh,
		"generation": snapshot.Generation,
		"fetched_at": snapshot.FetchedAt,
	})
}

func (h *handlers) snapshot(c *gin.Context) {
	if snapshot, ok := h.current(c); ok {
		c.JSON(http.StatusOK, snapshot)
	}
}

func (h *handlers) homes(c *gin.Context) {
	if snapshot, ok := h.current(c); ok {
		c.JSON(http.StatusOK, snapshot.Homes)
	}
}

func (h *handlers) devices(c *gin.Context) {
	if snapshot, ok := h.current(c); ok {
		c.JSON(http.StatusOK, snapshot.Devices)
	}
}

func (h *handlers) meals(c *gin.Context) {
	if snapshot, ok := h.current(c); ok {
		c.JSON(http.StatusOK, snapshot.Meals)
	}
}

func (h *handlers) eventTypes(c *gin.Context) {
	if snapshot, ok := h.current(c); ok {
		c.JSON(http.StatusOK, snapshot.EventTypes)
	}
}

func (h *handlers) events(c *gin.Context) {
	snapshot, ok := h.current(c)
	if !ok {
		return
	}
	eventType := models.EventType(c.Param("type"))
	if !h.validTypes[eventType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event type: " + c.Param("type")})
		return
	}
	events, ok := snapshot.EventsFor(c.Param("homeID"), eventType)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown home: " + c.Param("homeID")})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *handlers) settings(c *gin.Context) {
	snapshot, ok := h.current(c)
	if !ok {
		return
	}
	settings, found := snapshot.Settings[c.Param("deviceID")]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device: " + c.Param("deviceID")})
		return
	}
	c.JSON(http.StatusOK, settings)
}
