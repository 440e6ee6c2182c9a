package config

import (
	"net/http"

	"github.com/RoGogDBD/items/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupMiddlewares регистрирует общие HTTP-мидлвары.
// recoverer стоит внутри журнала запросов, чтобы паника попала в лог со статусом 500.
func SetupMiddlewares(r *chi.Mux, cfg ServerConfig, recoverer func(http.Handler) http.Handler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           300,
	}))
}
