package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Editing sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/type", h.Type)
			r.Post("/cursor", h.MoveCursor)
			r.Post("/accept", h.Accept)
			r.Post("/save", h.Save)
		})
	})

	// Display settings.
	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.PatchSettings)

	// Stateless display-text operations.
	r.Post("/compose", h.Compose)
	r.Post("/suggest", h.Suggest)
	r.Post("/fill", h.Fill)

	// Vault lookups.
	r.Get("/notes/headings", h.Headings)
	r.Get("/notes/title", h.Title)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
