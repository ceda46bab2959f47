package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/recordservice"
	"github.com/starford/folio/internal/settings"
)

const maxRecordBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *recordservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *recordservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Storage configuration, binding and restoration state
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// GetConfig handles GET /api/config.
//
//	@Summary		Get the storage settings
//	@Tags			storage
//	@Produce		json
//	@Success		200	{object}	ConfigResponse
//	@Security		BearerAuth
//	@Router			/config [get]
func (h *Handler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Config())
}

// PatchConfig handles PATCH /api/config.
//
//	@Summary		Update the storage settings
//	@Tags			storage
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConfigPatchRequest	true	"Fields to change"
//	@Success		200		{object}	ConfigResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/config [patch]
func (h *Handler) PatchConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	cfg, err := h.svc.UpdateConfig(r.Context(), req)
	if err != nil {
		writeError(w, "update config", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SelectDirectory handles POST /api/capability.
//
//	@Summary		Grant access to a directory and bind it
//	@Tags			capability
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectDirectoryRequest	true	"Directory to bind"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/capability [post]
func (h *Handler) SelectDirectory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SelectDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	st, err := h.svc.SelectDirectory(r.Context(), req.Path)
	if err != nil {
		slog.Warn("select directory failed", slog.String("path", req.Path), slog.String("error", err.Error()))
		writeError(w, "select directory", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Restore handles POST /api/capability/restore.
//
//	@Summary		Retry restoring the stored directory
//	@Tags			capability
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/capability/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Restore(r.Context()))
}

// Verify handles POST /api/capability/verify.
//
//	@Summary		Check that the bound directory is still usable
//	@Tags			capability
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/capability/verify [post]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Verify(r.Context()))
}

// ListRecords handles GET /api/records.
//
//	@Summary		List record names in a subdirectory
//	@Tags			records
//	@Produce		json
//	@Param			subdir	query		string	false	"Subdirectory (default records)"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.ListRecords(r.Context(), r.URL.Query().Get("subdir"))
	if err != nil {
		writeError(w, "list records", err)
		return
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Names: names, Total: len(names)})
}

// GetRecord handles GET /api/records/{name}.
//
//	@Summary		Get a single record
//	@Tags			records
//	@Produce		json
//	@Param			name	path		string	true	"Record name"
//	@Param			subdir	query		string	false	"Subdirectory (default records)"
//	@Success		200		{object}	RecordDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name} [get]
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.GetRecord(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get record", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(rec.Checksum))
	writeJSON(w, http.StatusOK, rec)
}

// PutRecord handles PUT /api/records/{name}. The body is the record itself.
//
//	@Summary		Create or replace a record
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			name		path		string	true	"Record name"
//	@Param			subdir		query		string	false	"Subdirectory (default records)"
//	@Param			If-Match	header		string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		200			{object}	RecordDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		428			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name} [put]
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRecordBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	rec, err := h.svc.PutRecord(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name"), body, ifMatch)
	if err != nil {
		writeError(w, "put record", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(rec.Checksum))
	writeJSON(w, http.StatusOK, rec)
}

// DeleteRecord handles DELETE /api/records/{name}.
//
//	@Summary		Delete a record
//	@Tags			records
//	@Param			name	path	string	true	"Record name"
//	@Param			subdir	query	string	false	"Subdirectory (default records)"
//	@Success		204		"Record deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		428		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/{name} [delete]
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecord(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name")); err != nil {
		writeError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
