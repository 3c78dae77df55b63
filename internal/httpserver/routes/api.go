package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/mw"
)

func init() { Register(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			RPS:        d.RateLimitRPS,
			Burst:      d.RateLimitBurst,
			MaxEntries: 10_000,
			TrustProxy: d.TrustProxy,
		}))
		r.Get("/scores", handlers.Scores(d))
		r.Get("/availability", handlers.Availability(d))
		r.Get("/availability/{number}", handlers.Round(d))
		r.Get("/services", handlers.Services(d))
		r.Get("/jobs", handlers.Jobs(d))
	})
}
