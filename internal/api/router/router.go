package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/telehealth-scheduling/internal/appointments"
	"github.com/wolfman30/telehealth-scheduling/internal/directory"
	httpmiddleware "github.com/wolfman30/telehealth-scheduling/internal/http/middleware"
	"github.com/wolfman30/telehealth-scheduling/internal/identity"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
	"github.com/wolfman30/telehealth-scheduling/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	SlotsHandler        *scheduling.Handler
	AvailabilityHandler *directory.Handler
	AppointmentsHandler *appointments.Handler
	Health              *HealthHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	AuthSecret     string
	RateLimitRPS   float64
	RateLimitBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler()
	}
	r.Get("/health", health.ServeHTTP)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Authenticate(cfg.AuthSecret))
		if cfg.RateLimitRPS > 0 {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		if h := cfg.AvailabilityHandler; h != nil {
			api.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Route("/doctors/me/availability", func(r chi.Router) {
				r.Get("/", h.ListOwnAvailability)
				r.Put("/", h.SetAvailability)
				r.Delete("/{availabilityID}", h.DeleteAvailability)
			})
			api.Get("/doctors/{doctorID}/availability", h.ListAvailability)
		}
		if h := cfg.SlotsHandler; h != nil {
			api.Get("/doctors/{doctorID}/slots", h.GetAvailableSlots)
		}
		if h := cfg.AppointmentsHandler; h != nil {
			api.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Get("/doctors/me/appointments", h.ListMine)
			api.Route("/appointments", func(r chi.Router) {
				r.With(httpmiddleware.RequireRole(identity.RolePatient)).Post("/", h.Book)
				r.Post("/{appointmentID}/token", h.JoinToken)
				r.Post("/{appointmentID}/cancel", h.Cancel)
				r.With(httpmiddleware.RequireRole(identity.RoleDoctor)).Post("/{appointmentID}/complete", h.Complete)
			})
		}
	})

	return r
}
