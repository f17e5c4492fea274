package api

import (
	"errors"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"asteroid-arena/internal/client"
	"asteroid-arena/internal/config"
	"asteroid-arena/internal/game"
	"asteroid-arena/internal/protocol"
)

// Metrics with bounded cardinality. Channel labels only ever carry known
// channel names; anything else is folded into "other".
var (
	frameDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_frame_duration_seconds",
		Help:    "Time spent simulating one frame",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016},
	})

	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_frames_total",
		Help: "Frames simulated",
	})

	collisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_collisions_total",
		Help: "Collisions resolved by the simulation",
	}, []string{"kind"}) // Bounded: "contact", "asteroid", "player"

	bulletsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_bullets_expired_total",
		Help: "Network bullets that decayed locally",
	})

	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_messages_total",
		Help: "Messages by direction, channel and outcome",
	}, []string{"direction", "channel", "outcome"})

	decodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_decode_errors_total",
		Help: "Inbound frames dropped because they could not be decoded",
	}, []string{"channel"})

	inboxDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_inbox_dropped_total",
		Help: "Inbound items dropped because the session inbox was full",
	})

	entityCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_entities",
		Help: "Entities in the latest snapshot",
	}, []string{"kind"}) // Bounded: "bullets", "asteroids", "others", "food"

	playerShield = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_player_shield",
		Help: "Local player shield",
	})

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_event_log_events",
		Help: "Events accepted by the journal since start",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_event_log_dropped",
		Help: "Events dropped by the journal rate limiters since start",
	})

	requestsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_debug_requests_rejected_total",
		Help: "Debug API requests rejected by the rate limiter",
	})
)

// channelLabel keeps label values bounded.
func channelLabel(ch protocol.Channel) string {
	if ch.IsInbound() || ch.IsOutbound() {
		return string(ch)
	}
	return "other"
}

// Recorder exports session observations to Prometheus.
type Recorder struct{}

var _ client.Recorder = Recorder{}

func (Recorder) Inbound(ch protocol.Channel) {
	messagesTotal.WithLabelValues("in", channelLabel(ch), "applied").Inc()
}

func (Recorder) Stale(ch protocol.Channel) {
	messagesTotal.WithLabelValues("in", channelLabel(ch), "stale").Inc()
}

func (Recorder) UnknownID(ch protocol.Channel) {
	messagesTotal.WithLabelValues("in", channelLabel(ch), "unknown_id").Inc()
}

func (Recorder) Outbound(ch protocol.Channel) {
	messagesTotal.WithLabelValues("out", channelLabel(ch), "sent").Inc()
}

func (Recorder) Dropped(ch protocol.Channel) {
	messagesTotal.WithLabelValues("out", channelLabel(ch), "dropped").Inc()
}

// Frame records timing and collision counts for one frame.
func (Recorder) Frame(rep game.FrameReport) {
	frameDuration.Observe(rep.Duration.Seconds())
	framesTotal.Inc()
	if rep.Contacts > 0 {
		collisionsTotal.WithLabelValues("contact").Add(float64(rep.Contacts))
	}
	if n := len(rep.AsteroidHits); n > 0 {
		collisionsTotal.WithLabelValues("asteroid").Add(float64(n))
	}
	if n := len(rep.PlayerHits); n > 0 {
		collisionsTotal.WithLabelValues("player").Add(float64(n))
	}
	if rep.Expired > 0 {
		bulletsExpiredTotal.Add(float64(rep.Expired))
	}
}

func (Recorder) DecodeError(err error) {
	label := "envelope"
	var de *protocol.DecodeError
	if errors.As(err, &de) && de.Channel != "" {
		label = channelLabel(de.Channel)
	}
	decodeErrorsTotal.WithLabelValues(label).Inc()
}

func (Recorder) InboxDropped() { inboxDroppedTotal.Inc() }

// World refreshes the entity and journal gauges.
func (Recorder) World(snap *game.Snapshot, journal *game.EventLog) {
	if snap != nil {
		entityCount.WithLabelValues("bullets").Set(float64(len(snap.Bullets)))
		entityCount.WithLabelValues("asteroids").Set(float64(len(snap.Asteroids)))
		entityCount.WithLabelValues("others").Set(float64(len(snap.Others)))
		entityCount.WithLabelValues("food").Set(float64(len(snap.Food)))
		playerShield.Set(float64(snap.Player.Shield))
	}
	if journal != nil {
		eventLogTotal.Set(float64(journal.GetTotalCount()))
		eventLogDropped.Set(float64(journal.GetDroppedCount()))
	}
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugServer is the local observability endpoint: pprof, /metrics and the
// read-only snapshot API.
type DebugServer struct {
	srv      *http.Server
	limiter  *IPRateLimiter
	stopOnce sync.Once
}

// StartDebugServer serves router plus pprof on cfg.ListenAddr. It returns
// nil when the debug server is disabled.
// The listener is forced to localhost unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg config.DebugConfig, routerCfg RouterConfig) *DebugServer {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	addr := cfg.ListenAddr
	if !isLoopback(addr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		addr = config.DefaultDebug().ListenAddr
	}

	if routerCfg.RateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if routerCfg.RateLimitConfig != nil {
			rlCfg = *routerCfg.RateLimitConfig
		}
		routerCfg.RateLimiter = NewIPRateLimiter(rlCfg)
	}
	if routerCfg.CORSOrigins == nil {
		routerCfg.CORSOrigins = cfg.CORSOrigins
	}
	r := NewRouter(routerCfg)

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.Handle("/debug/pprof/{profile}", http.HandlerFunc(pprof.Index))

	var handler http.Handler = r
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, r)
	}

	ds := &DebugServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		limiter: routerCfg.RateLimiter,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", addr)
		log.Printf("   - pprof:    http://%s/debug/pprof/", addr)
		log.Printf("   - metrics:  http://%s/metrics", addr)
		log.Printf("   - snapshot: http://%s/api/state", addr)

		if err := ds.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return ds
}

// Stop closes the listener and the rate limiter cleanup loop.
func (ds *DebugServer) Stop() {
	if ds == nil {
		return
	}
	ds.stopOnce.Do(func() {
		ds.srv.Close()
		ds.limiter.Stop()
	})
}

func isLoopback(addr string) bool {
	for _, prefix := range []string{"127.0.0.1:", "localhost:", "[::1]:"} {
		if len(addr) > len(prefix) && addr[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsHandler is the Prometheus scrape endpoint.
func metricsHandler() http.Handler { return promhttp.Handler() }
