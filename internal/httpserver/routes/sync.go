package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/tidemark/tidemark/internal/httpserver/deps"
	"github.com/tidemark/tidemark/internal/httpserver/handlers"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	r.Route("/sync", func(r chi.Router) {
		r.Post("/", handlers.TriggerSync(d))
		r.Get("/status", handlers.SyncStatus(d))
	})
}
