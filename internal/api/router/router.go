package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Rithvickkr/DOBBE-assignment/internal/auth"
	"github.com/Rithvickkr/DOBBE-assignment/internal/conversation"
	httpmiddleware "github.com/Rithvickkr/DOBBE-assignment/internal/http/middleware"
	"github.com/Rithvickkr/DOBBE-assignment/internal/scheduling"
	"github.com/Rithvickkr/DOBBE-assignment/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AuthHandler         *auth.Handler
	SchedulingHandler   *scheduling.Handler
	ConversationHandler *conversation.Handler
	Tokens              httpmiddleware.TokenParser
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Rate limiting applies when RateLimitRPS is positive.
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.AuthHandler != nil {
			limited := public
			if cfg.RateLimitRPS > 0 {
				limited = public.With(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
			}
			limited.Post("/login", cfg.AuthHandler.Login)
		}
	})

	// Authenticated API
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RequireUser(cfg.Tokens))
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		if cfg.AuthHandler != nil {
			api.Get("/users/me", cfg.AuthHandler.Me)
		}
		if cfg.SchedulingHandler != nil {
			api.With(httpmiddleware.RequireRole(auth.RoleDoctor)).Post("/appointments", cfg.SchedulingHandler.AddSlots)
		}
		if cfg.ConversationHandler != nil {
			api.Post("/process_prompt", cfg.ConversationHandler.ProcessPrompt)
			api.Get("/prompt_history", cfg.ConversationHandler.History)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
