package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/learnwell/microlearn-api/internal/api"
	apiMiddleware "github.com/learnwell/microlearn-api/internal/api/middleware"
)

const healthCheckTimeout = 2 * time.Second

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.logger)
	learningHandler := api.NewLearningHandler(app.learningService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Route("/learning", learningHandler.Routes)
		})
	})

	r.Method(http.MethodGet, "/health", api.NewHealthHandler(app.healthChecks, healthCheckTimeout, app.logger))

	return r
}
