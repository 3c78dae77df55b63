package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/deps"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/ctfboard/internal/httpserver/mw"
)

func init() { Register(registerProbes) }

func registerProbes(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Get("/healthz", handlers.Healthz(d))
		r.Get("/readyz", handlers.Readyz(d))
		r.Get("/infra", handlers.Infra(d))
	})
}
