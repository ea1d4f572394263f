package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/assistant"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/executor"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/interpreter"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

// rateWindow is the window LLM-backed routes are limited over.
const rateWindow = time.Minute

// Config carries the collaborators the server cannot build itself.
type Config struct {
	DB       *sql.DB
	Model    llm.Model // nil disables the language-model routes
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	// RateLimitPerMinute caps LLM-backed requests per user. Zero disables it.
	RateLimitPerMinute int
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	verifier       *auth.Verifier
	metrics        *metrics.Metrics
	pantryH        *handler.PantryHandler
	householdH     *handler.HouseholdHandler
	commandH       *handler.CommandHandler
	assistantH     *handler.AssistantHandler
	healthH        *handler.HealthHandler
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	rateLimit      int
	logger         *slog.Logger
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mt := cfg.Metrics
	if mt == nil {
		mt = metrics.New()
	}

	hub := ws.NewHub(logger)

	pantryStore := store.NewPantryStore(cfg.DB)
	userStore := store.NewUserStore(cfg.DB)
	householdStore := store.NewHouseholdStore(cfg.DB)
	inviteStore := store.NewInviteStore(cfg.DB)

	exec := executor.New(pantryStore,
		executor.WithLogger(logger),
		executor.WithMetrics(mt),
		executor.WithNotifier(handler.NotifyChange(hub)),
	)
	interp := interpreter.New(cfg.Model, logger, mt)
	asst := assistant.New(cfg.Model, logger, mt)

	return &Server{
		db:             cfg.DB,
		hub:            hub,
		verifier:       cfg.Verifier,
		metrics:        mt,
		pantryH:        handler.NewPantryHandler(pantryStore, hub, logger.With("component", "pantry")),
		householdH:     handler.NewHouseholdHandler(userStore, householdStore, inviteStore, logger.With("component", "household")),
		commandH:       handler.NewCommandHandler(interp, exec, pantryStore, logger.With("component", "command")),
		assistantH:     handler.NewAssistantHandler(asst, pantryStore, logger.With("component", "chat")),
		healthH:        handler.NewHealthHandler(cfg.DB, logger.With("component", "health")),
		userStore:      userStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		rateLimit:      cfg.RateLimitPerMinute,
		logger:         logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthH.Health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	authLogger := s.logger.With("component", "auth")
	requireUser := middleware.RequireUser(s.verifier, s.userStore, authLogger)
	requireHousehold := middleware.RequireHousehold(s.householdStore, authLogger)
	rateLimited := middleware.RateLimit(s.rateLimiter, middleware.UserKey, s.rateLimit, rateWindow)

	user := func(h http.HandlerFunc) http.Handler {
		return requireUser(h)
	}
	household := func(h http.Handler) http.Handler {
		return requireUser(requireHousehold(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return household(middleware.RequireAdmin(h))
	}
	llmRoute := func(h http.HandlerFunc) http.Handler {
		return household(rateLimited(h))
	}

	// Account routes, no household needed
	mux.Handle("GET /api/me", user(s.householdH.Me))
	mux.Handle("GET /api/households", user(s.householdH.List))
	mux.Handle("POST /api/households", user(s.householdH.Create))
	mux.Handle("POST /api/invites/accept", user(s.householdH.AcceptInvite))

	// Household routes
	mux.Handle("GET /api/households/current", household(http.HandlerFunc(s.householdH.Current)))
	mux.Handle("GET /api/households/current/members", household(http.HandlerFunc(s.householdH.Members)))
	mux.Handle("POST /api/invites", admin(s.householdH.CreateInvite))

	// Pantry API routes
	mux.Handle("GET /api/pantry", household(http.HandlerFunc(s.pantryH.List)))
	mux.Handle("POST /api/pantry", household(http.HandlerFunc(s.pantryH.Create)))
	mux.Handle("POST /api/pantry/import", household(http.HandlerFunc(s.pantryH.Import)))
	mux.Handle("GET /api/pantry/{id}", household(http.HandlerFunc(s.pantryH.Get)))
	mux.Handle("PUT /api/pantry/{id}", household(http.HandlerFunc(s.pantryH.Update)))
	mux.Handle("PATCH /api/pantry/{id}/status", household(http.HandlerFunc(s.pantryH.UpdateStatus)))
	mux.Handle("DELETE /api/pantry/{id}", household(http.HandlerFunc(s.pantryH.Delete)))
	mux.Handle("GET /api/shopping-list", household(http.HandlerFunc(s.pantryH.ShoppingList)))

	// Command and assistant routes
	mux.Handle("POST /api/commands/parse", llmRoute(s.commandH.Parse))
	mux.Handle("POST /api/commands", llmRoute(s.commandH.Run))
	mux.Handle("POST /api/commands/execute", household(http.HandlerFunc(s.commandH.Execute)))
	mux.Handle("POST /api/assistant/chat", llmRoute(s.assistantH.Chat))

	// Change notifications
	mux.Handle("GET /ws", household(ws.HandleWebSocket(s.hub, s.logger)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}
