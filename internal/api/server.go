package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ServerConfig wires a Server.
type ServerConfig struct {
	Addr        string
	Engine      EngineInterface
	Sessions    SessionInterface
	CORSOrigins []string
	RateLimit   RateLimitConfig
	BroadcastHz int
	AdminToken  string
	Metrics     *Metrics
	Logger      zerolog.Logger
}

// Server is the HTTP API server with WebSocket support.
//
// Background workers do not start until Run is called, so a Server can be
// built in tests and exercised through Router.
type Server struct {
	addr        string
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	logger      zerolog.Logger
}

// NewServer builds the router, hub and limiter.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger.With().Str("component", "api").Logger()

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultCORSOrigins
	}
	rl := cfg.RateLimit
	if rl.RequestsPerSecond <= 0 {
		rl = DefaultRateLimitConfig
	}

	s := &Server{
		addr:        cfg.Addr,
		rateLimiter: NewIPRateLimiter(rl, cfg.Metrics),
		logger:      logger,
	}
	s.wsHub = NewWebSocketHub(HubConfig{
		Engine:      cfg.Engine,
		Sessions:    cfg.Sessions,
		Origins:     NewOriginMatcher(origins),
		Metrics:     cfg.Metrics,
		Logger:      logger,
		BroadcastHz: cfg.BroadcastHz,
	})
	s.router = NewRouter(RouterConfig{
		Engine:      cfg.Engine,
		Sessions:    cfg.Sessions,
		RateLimiter: s.rateLimiter,
		CORSOrigins: origins,
		Admin:       NewAdminAuth(cfg.AdminToken, logger),
		Metrics:     cfg.Metrics,
		WebSocket:   s.wsHub,
		Logger:      logger,
	})
	return s
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Run serves HTTP and broadcasts frames until ctx is done. It is the only
// method that starts goroutines or opens listeners.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.wsHub.Run(ctx)
	})
	g.Go(func() error {
		s.logger.Info().Str("addr", s.addr).Msg("api server starting")
		return serveUntilDone(ctx, srv)
	})
	return g.Wait()
}
