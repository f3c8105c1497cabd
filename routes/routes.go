package routes

import (
	"net/http"

	"github.com/Dosada05/rating-board/handlers"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	userHandler *handlers.UserHandler,
	metricsHandler http.Handler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/users", userHandler.ListUsers)
	router.Route("/rate", func(r chi.Router) {
		r.Get("/algorithm/{trapAccountName}", userHandler.GetAlgorithmRate)
		r.Get("/heuristic/{trapAccountName}", userHandler.GetHeuristicRate)
	})

	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metricsHandler)
}
