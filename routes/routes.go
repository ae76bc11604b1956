package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/gancio-sync/app"
	"github.com/upb/gancio-sync/handlers"
	"github.com/upb/gancio-sync/middleware"
	"github.com/upb/gancio-sync/utils"
	"go.uber.org/zap"
)

// defaultRequestTimeout applies when the config does not set one
const defaultRequestTimeout = 45 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := defaultRequestTimeout
	origins := []string{"http://localhost:*", "https://*"}
	environment := ""
	if deps.Config != nil {
		if deps.Config.Server.RequestTimeout > 0 {
			timeout = deps.Config.Server.RequestTimeout
		}
		if len(deps.Config.Server.AllowedOrigins) > 0 {
			origins = deps.Config.Server.AllowedOrigins
		}
		environment = deps.Config.Environment
	}

	auth := deps.AuthMiddleware
	if auth == nil {
		auth = middleware.NewAuthMiddleware(middleware.NewJWTValidator("", ""), logger)
	}

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.SQLDB(), environment, deps.SourceNames, logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	hooks := handlers.NewHooksHandler(deps.Lifecycle, logger)
	noticesHandler := handlers.NewNoticesHandler(deps.Notices, logger)
	syncLog := handlers.NewSyncLogHandler(deps.SyncLogs, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", health.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Post("/hooks/{source}/save", hooks.HandleSave)
			r.Post("/hooks/trash", hooks.HandleTrash)
			r.Get("/notices/{post_id}", noticesHandler.HandleGet)
			r.Get("/posts/{post_id}/sync-log", syncLog.HandleList)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
