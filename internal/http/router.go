package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/config"
	"github.com/redmonkez12/account-service/internal/httputil"
	"github.com/redmonkez12/account-service/internal/logging"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, authHandler *auth.Handler, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if cfg.Server.BehindProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/", handleIndex(cfg.Server))
	r.Get("/health", handleHealth)

	r.Route("/api/v1/user", func(r chi.Router) {
		r.Post("/token", authHandler.Login)
		r.Post("/new-email", authHandler.BeginRegistration)
		r.Post("/new-user/{id}", authHandler.CompleteRegistration)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password/{id}", authHandler.ResetPassword)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer)
			r.Get("/details", authHandler.GetDetails)
			r.Put("/edit", authHandler.EditProfile)
			r.Put("/disable", authHandler.Disable)
			r.Put("/update-password", authHandler.UpdatePassword)
		})
	})

	return r
}

func handleIndex(server config.ServerConfig) http.HandlerFunc {
	body := fmt.Sprintf("Application Version %s running in the %s environment", server.Version, server.Env)
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, body, http.StatusOK)
	}
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
