package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/funkpopo/notevault/internal/engine"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *engine.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD. Action routes are static segments, so chi resolves
	// them ahead of the path wildcards.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/move", h.MoveNote)
	r.Post("/notes/rename", h.RenameNote)
	r.Post("/notes/queue", h.QueueSave)
	r.Post("/notes/close", h.CloseNote)
	r.Get("/notes/*", h.GetNote)
	r.Put("/notes/*", h.SaveNote)
	r.Delete("/notes/*", h.DeleteNote)

	// Groups.
	r.Post("/groups", h.CreateGroup)
	r.Post("/groups/move", h.MoveGroup)
	r.Delete("/groups/*", h.DeleteGroup)

	// Version history and diffs.
	r.Get("/history/*", h.History)
	r.Get("/versions/{id}", h.GetVersion)
	r.Get("/versions/{id}/diff", h.DiffVersion)
	r.Post("/versions/{id}/restore", h.RestoreVersion)
	r.Post("/diff", h.Diff)

	// Counters.
	r.Get("/stats", h.Stats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
