package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hellscape/internal/game"
)

// Metrics holds every Prometheus collector of the server. Labels are
// bounded; nothing is labelled per player or per actor.
//
// Metrics implements game.Metrics so the engine reports into it directly.
type Metrics struct {
	registry *prometheus.Registry

	tickDuration prometheus.Histogram
	players      prometheus.Gauge
	enemies      prometheus.Gauge
	shots        *prometheus.CounterVec // result: "hit", "miss"
	deaths       *prometheus.CounterVec // team: "player", "enemy"
	respawns     prometheus.Counter

	eventLogTotal   prometheus.Counter
	eventLogDropped prometheus.Counter
	eventLogMu      sync.Mutex
	lastLogTotal    uint64
	lastLogDropped  uint64

	// DoS detection
	connectionRejected *prometheus.CounterVec // reason: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	requestLatency *prometheus.HistogramVec
	requestTotal   *prometheus.CounterVec

	wsConnectionsActive prometheus.Gauge
	wsMessagesTotal     *prometheus.CounterVec // kind: "snapshot", "frame", "input"
}

var _ game.Metrics = (*Metrics)(nil)

// NewMetrics registers all collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "hellscape_tick_duration_seconds",
			Help:    "Time spent in one simulation tick",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.02},
		}),
		players: f.NewGauge(prometheus.GaugeOpts{
			Name: "hellscape_players",
			Help: "Current number of player actors",
		}),
		enemies: f.NewGauge(prometheus.GaugeOpts{
			Name: "hellscape_enemies",
			Help: "Current number of enemy actors",
		}),
		shots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hellscape_shots_total",
			Help: "Pistol shots fired",
		}, []string{"result"}),
		deaths: f.NewCounterVec(prometheus.CounterOpts{
			Name: "hellscape_deaths_total",
			Help: "Actor deaths",
		}, []string{"team"}),
		respawns: f.NewCounter(prometheus.CounterOpts{
			Name: "hellscape_respawns_total",
			Help: "Players revived by the respawn countdown",
		}),
		eventLogTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "event_log_total",
			Help: "Total events logged",
		}),
		eventLogDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "event_log_dropped_total",
			Help: "Events dropped due to rate limiting or buffer full",
		}),
		connectionRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "connection_rejected_total",
			Help: "Connections rejected by rate limiter or origin check",
		}, []string{"reason"}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		wsConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Currently active WebSocket connections",
		}),
		wsMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "websocket_messages_total",
			Help: "WebSocket messages by kind",
		}, []string{"kind"}),
	}
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TickCompleted records tick timing and actor gauges.
func (m *Metrics) TickCompleted(d time.Duration, players, enemies int) {
	m.tickDuration.Observe(d.Seconds())
	m.players.Set(float64(players))
	m.enemies.Set(float64(enemies))
}

// ShotFired counts a shot by outcome.
func (m *Metrics) ShotFired(hit bool) {
	if hit {
		m.shots.WithLabelValues("hit").Inc()
		return
	}
	m.shots.WithLabelValues("miss").Inc()
}

// ActorDied counts a death by team.
func (m *Metrics) ActorDied(team game.Team) {
	m.deaths.WithLabelValues(team.String()).Inc()
}

// Respawned counts revived players.
func (m *Metrics) Respawned(n int) {
	m.respawns.Add(float64(n))
}

// ObserveEventLog converts the event log's running totals into counter
// increments. Totals that go backwards are ignored.
func (m *Metrics) ObserveEventLog(total, dropped uint64) {
	m.eventLogMu.Lock()
	defer m.eventLogMu.Unlock()

	if total > m.lastLogTotal {
		m.eventLogTotal.Add(float64(total - m.lastLogTotal))
		m.lastLogTotal = total
	}
	if dropped > m.lastLogDropped {
		m.eventLogDropped.Add(float64(dropped - m.lastLogDropped))
		m.lastLogDropped = dropped
	}
}

// RecordConnectionRejected increments the rejection counter.
func (m *Metrics) RecordConnectionRejected(reason string) {
	m.connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics. endpoint must be a route
// pattern, never a raw path.
func (m *Metrics) RecordRequest(method, endpoint string, status int, duration time.Duration) {
	m.requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections sets the live WebSocket connection gauge.
func (m *Metrics) UpdateWSConnections(count int) {
	m.wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one WebSocket message of a kind.
func (m *Metrics) IncrementWSMessages(kind string) {
	m.wsMessagesTotal.WithLabelValues(kind).Inc()
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on loopback in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugHandler builds the pprof, metrics and health mux.
func DebugHandler(cfg ObservabilityConfig, metrics *Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// RunDebugServer serves DebugHandler until ctx is done.
func RunDebugServer(ctx context.Context, cfg ObservabilityConfig, metrics *Metrics, logger zerolog.Logger) error {
	if !cfg.Enabled {
		logger.Info().Msg("debug server disabled")
		return nil
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           DebugHandler(cfg, metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().
		Str("addr", cfg.ListenAddr).
		Str("pprof", "http://"+cfg.ListenAddr+"/debug/pprof/").
		Str("metrics", "http://"+cfg.ListenAddr+"/metrics").
		Msg("debug server starting")

	return serveUntilDone(ctx, srv)
}

// serveUntilDone runs srv and shuts it down gracefully when ctx ends.
func serveUntilDone(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
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
