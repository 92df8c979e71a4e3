package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atikulmunna/geotail/internal/aggregator"
	"github.com/atikulmunna/geotail/internal/geo"
	"github.com/atikulmunna/geotail/internal/hub"
)

// Server holds the Gin engine and dependencies for the live dashboard API.
type Server struct {
	engine     *gin.Engine
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	cache      *geo.Cache
	registry   *prometheus.Registry
	addr       string
	logger     *slog.Logger
}

// New creates the dashboard server listening on addr (for example ":8080").
func New(h *hub.Hub, agg *aggregator.Aggregator, cache *geo.Cache, addr string, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine:     engine,
		hub:        h,
		aggregator: agg,
		cache:      cache,
		registry:   prometheus.NewRegistry(),
		addr:       addr,
		logger:     logger,
	}

	s.registerMetrics()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerMetrics() {
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "geotail_events_total",
			Help: "Access log events parsed and enriched.",
		}, func() float64 { return float64(s.aggregator.Snapshot().TotalEvents) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "geotail_events_dropped_total",
			Help: "Events not delivered to slow websocket clients.",
		}, func() float64 { return float64(s.hub.Dropped()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "geotail_geo_cache_entries",
			Help: "Addresses held in the geolocation cache.",
		}, func() float64 { return float64(s.cache.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "geotail_geo_cache_hits_total",
			Help: "Geolocation lookups answered from the cache.",
		}, func() float64 { return float64(s.cache.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "geotail_geo_cache_misses_total",
			Help: "Geolocation lookups that went to the resolver.",
		}, func() float64 { return float64(s.cache.Stats().Misses) }),
	)
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.aggregator.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"uptime":       stats.Uptime,
			"eps":          stats.EPS,
			"dropped_logs": stats.DroppedLogs,
			"clients":      s.hub.Subscribers(),
		})
	})

	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"events": s.aggregator.Snapshot(),
			"geo":    s.cache.Stats(),
		})
	})

	s.engine.GET("/ws", s.handleWebSocket)

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
