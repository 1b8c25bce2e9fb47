package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/httpserver/handlers"
)

func init() { Register(registerPorter) }

func registerPorter(r chi.Router, d deps.Deps) {
	r.Post("/import", handlers.Import(d))
	r.Get("/export", handlers.Export(d))
}
