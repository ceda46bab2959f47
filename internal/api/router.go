package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/recordservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *recordservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	bh := NewBlobHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Storage state.
	r.Get("/status", h.Status)
	r.Get("/config", h.GetConfig)
	r.Patch("/config", h.PatchConfig)

	// Directory capability.
	r.Post("/capability", h.SelectDirectory)
	r.Post("/capability/restore", h.Restore)
	r.Post("/capability/verify", h.Verify)

	// Records CRUD.
	r.Get("/records", h.ListRecords)
	r.Get("/records/{name}", h.GetRecord)
	r.Put("/records/{name}", h.PutRecord)
	r.Delete("/records/{name}", h.DeleteRecord)

	// Blobs.
	r.Post("/blobs", bh.Upload)
	r.Put("/blobs/{name}", bh.Put)
	r.Get("/blobs/{name}", bh.Get)
	r.Delete("/blobs/{name}", bh.Delete)
	r.Get("/blobs/{name}/address", bh.Address)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
