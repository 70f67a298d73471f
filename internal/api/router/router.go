package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/medbook-ai-platform/internal/conversation"
	"github.com/wolfman30/medbook-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/medbook-ai-platform/internal/http/middleware"
	"github.com/wolfman30/medbook-ai-platform/internal/webchat"
	"github.com/wolfman30/medbook-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WebChatHandler      *webchat.Handler
	AdminBookings       *handlers.AdminBookingsHandler
	AdminSessions       *handlers.AdminSessionsHandler
	AdminDashboard      *handlers.AdminDashboardHandler
	StaffAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Rate limiting for the public conversation API (optional; zero
	// disables it).
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Get("/health", handleHealth)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Conversation API
	if cfg.ConversationHandler != nil {
		r.Route("/api", func(api chi.Router) {
			if cfg.RateLimitPerSecond > 0 {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
			}
			api.Post("/session", cfg.ConversationHandler.CreateSession)
			api.Get("/session/{sessionID}", cfg.ConversationHandler.GetSession)
			api.Post("/chat", cfg.ConversationHandler.Chat)
			api.Post("/jobs/session", cfg.ConversationHandler.EnqueueSession)
			api.Post("/jobs/chat", cfg.ConversationHandler.EnqueueChat)
			api.Get("/jobs/{jobID}", cfg.ConversationHandler.JobStatus)
		})
	}

	// Embeddable web chat (WebSocket + HTTP fallback)
	if cfg.WebChatHandler != nil {
		r.Mount("/webchat", cfg.WebChatHandler.Routes())
	}

	// Staff routes. Always registered when the handlers exist so a missing
	// secret surfaces as 401, not 404.
	if cfg.AdminBookings != nil || cfg.AdminSessions != nil || cfg.AdminDashboard != nil {
		r.Route("/admin/api", func(admin chi.Router) {
			admin.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
			if cfg.AdminBookings != nil {
				admin.Get("/bookings", cfg.AdminBookings.ListBookings)
				admin.Get("/bookings/{bookingID}", cfg.AdminBookings.GetBooking)
			}
			if cfg.AdminSessions != nil {
				admin.Get("/sessions", cfg.AdminSessions.ListSessions)
				admin.Get("/sessions/{sessionID}", cfg.AdminSessions.GetTranscript)
			}
			if cfg.AdminDashboard != nil {
				admin.Get("/dashboard", cfg.AdminDashboard.GetDashboard)
			}
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "medbook-api",
	})
}
