package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"hellscape/internal/game"
	"hellscape/internal/session"
)

// EngineInterface is the part of the simulation the HTTP layer reads and
// drives. *game.Engine satisfies it.
type EngineInterface interface {
	Status() game.Status
	PlayerStates() []game.ActorState
	EnemyStates() []game.ActorState
	LatestFrame() (game.FrameSnapshot, bool)
	Kills(id int32) (int, bool)
	Config() game.EngineConfig

	GetInventory(id int32) (game.InventoryState, bool)
	SetActiveSlot(id int32, index int) (game.InventoryState, bool)
	ApplyPickup(id int32, loot game.Pickup) (game.PickupResult, bool)
	TryConsumeAmmo(id int32) (game.ConsumeResult, bool)

	SpawnEnemiesAtEdges(count int, inset float32) []int32
	SetActorHp(id int32, hp int16) bool
	RemoveEnemyActor(id int32) bool
	EventLogStats() map[string]interface{}
}

// SessionInterface is the connection registry. *session.Manager
// satisfies it.
type SessionInterface interface {
	Join(remoteAddr string) (session.Session, error)
	Leave(id string) error
	SubmitInput(id string, cmd game.InputCommand) error
	SubmitEncodedInput(id string, frame []byte) error
	State(id string) (game.ActorState, error)
	Get(id string) (session.Session, bool)
	Sessions() []session.Session
}

var (
	_ EngineInterface  = (*game.Engine)(nil)
	_ SessionInterface = (*session.Manager)(nil)
)

// RouterConfig holds the router's dependencies.
//
//	router := api.NewRouter(api.RouterConfig{Engine: eng, Sessions: mgr})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is required
	Engine EngineInterface

	// Sessions is required
	Sessions SessionInterface

	// RateLimiter is optional; nil disables HTTP rate limiting.
	RateLimiter *IPRateLimiter

	// CORSOrigins defaults to localhost on any port.
	CORSOrigins []string

	// Admin guards the admin routes; nil leaves them unmounted.
	Admin *AdminAuth

	// Metrics is optional.
	Metrics *Metrics

	// WebSocket is mounted at /ws when set.
	WebSocket http.Handler

	Logger zerolog.Logger

	// DisableLogging drops the request logger (benchmarks).
	DisableLogging bool
}

// DefaultCORSOrigins allows local development clients.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

type routerHandlers struct {
	engine   EngineInterface
	sessions SessionInterface
	logger   zerolog.Logger
}

// NewRouter builds the HTTP router. It has no side effects: no goroutines,
// no listeners.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if !cfg.DisableLogging || cfg.Metrics != nil {
		r.Use(requestLogger(cfg.Logger, cfg.Metrics, !cfg.DisableLogging))
	}
	r.Use(middleware.Recoverer)

	// Rate limiting goes before CORS to reject early
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &routerHandlers{
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.handleGetStatus)
		r.Get("/actors", h.handleGetActors)
		r.Get("/snapshot", h.handleGetSnapshot)
		r.Get("/leaderboard", h.handleGetLeaderboard)
		r.Get("/weapons", h.handleGetWeapons)
		r.Get("/debug/frame.png", h.handleFramePNG)

		r.Route("/session", func(r chi.Router) {
			r.Post("/join", h.handleJoin)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Delete("/", h.handleLeave)
				r.Post("/input", h.handleInput)
				r.Get("/inventory", h.handleGetInventory)
				r.Put("/inventory/active", h.handleSetActiveSlot)
				r.Post("/inventory/pickup", h.handlePickup)
				r.Post("/inventory/fire", h.handleConsumeAmmo)
			})
		})

		if cfg.Admin != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/login", cfg.Admin.HandleLogin)
				r.Post("/logout", cfg.Admin.HandleLogout)
				r.Get("/status", cfg.Admin.HandleStatus)

				r.Group(func(r chi.Router) {
					r.Use(cfg.Admin.Middleware)
					r.Get("/sessions", h.handleListSessions)
					r.Get("/eventlog", h.handleEventLogStats)
					r.Post("/enemies", h.handleSpawnEnemies)
					r.Delete("/enemies/{actorID}", h.handleRemoveEnemy)
					r.Put("/actors/{actorID}/hp", h.handleSetHP)
				})
			})
		}
	})

	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket)
	}

	return r
}

// requestLogger logs each request through zerolog and records request
// metrics under the matched route pattern.
func requestLogger(logger zerolog.Logger, metrics *Metrics, logRequests bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					pattern = p
				}
			}

			if metrics != nil {
				metrics.RecordRequest(r.Method, pattern, status, elapsed)
			}
			if logRequests {
				logger.Debug().
					Str("method", r.Method).
					Str("route", pattern).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", elapsed).
					Msg("request")
			}
		})
	}
}
