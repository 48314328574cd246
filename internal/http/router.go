package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kiwipeso/kiwipeso/internal/http/advisories"
	"github.com/kiwipeso/kiwipeso/internal/http/capture"
	"github.com/kiwipeso/kiwipeso/internal/http/history"
	"github.com/kiwipeso/kiwipeso/internal/http/rate"
)

func New(
	historyV1 *history.Handler,
	rateV1 *rate.Handler,
	captureV1 *capture.Handler,
	advisoriesV1 *advisories.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// The primary consumer is a browser UI served from another origin.
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/history", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			historyV1.Routes(r)
		})

		r.Route("/rate", func(r chi.Router) {
			rateV1.Routes(r)
		})

		r.Route("/camera", func(r chi.Router) {
			captureV1.Routes(r)
		})

		r.Route("/recognize", captureV1.RecognizeRoutes)

		r.Get("/advisories", advisoriesV1.List)
	})

	return router
}
