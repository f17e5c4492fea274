// Package api exposes the running session for inspection: a read-only JSON
// view of the latest snapshot, the event journal, a rendered radar image,
// Prometheus metrics and pprof.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"asteroid-arena/internal/game"
)

// SnapshotSource is the only engine surface the API touches. It must be
// safe to call from HTTP goroutines, which *game.Engine's GetSnapshot is.
type SnapshotSource interface {
	GetSnapshot() *game.Snapshot
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
//	router := api.NewRouter(api.RouterConfig{
//	    Snapshots:       engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Snapshots is the engine (required)
	Snapshots SnapshotSource

	// Journal backs /api/events. Optional.
	Journal *game.EventLog

	// Stats adds session counters to /api/stats. Optional.
	Stats func() map[string]interface{}

	// World bounds for the radar. Zero means the default arena size.
	WorldWidth, WorldHeight float64

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is used only when RateLimiter is nil. Defaults to
	// DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins lists allowed origins. Nil means localhost only.
	CORSOrigins []string

	// DisableLogging drops the request logger (benchmarks, tests).
	DisableLogging bool
}

type routerHandlers struct {
	snapshots SnapshotSource
	journal   *game.EventLog
	stats     func() map[string]interface{}
	limiter   *IPRateLimiter
	radar     radarBounds
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It opens no listeners and starts nothing but the rate limiter cleanup
// loop, so it is safe to wrap in httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{
		snapshots: cfg.Snapshots,
		journal:   cfg.Journal,
		stats:     cfg.Stats,
		limiter:   rateLimiter,
		radar:     newRadarBounds(cfg.WorldWidth, cfg.WorldHeight),
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/player", h.handleGetPlayer)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/stats", h.handleGetStats)
		r.Get("/events", h.handleGetEvents)
		r.Get("/radar.png", h.handleGetRadar)
	})

	return r
}
