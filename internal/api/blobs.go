package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/recordservice"
)

const maxUploadBytes = 50 << 20 // 50 MB

// BlobHandler serves and accepts blobs.
type BlobHandler struct {
	svc *recordservice.Service
}

// NewBlobHandler creates a blob handler.
func NewBlobHandler(svc *recordservice.Service) *BlobHandler {
	return &BlobHandler{svc: svc}
}

// Upload handles POST /api/blobs (multipart/form-data, field "file"). The
// optional form field "subdir" selects the subdirectory.
func (h *BlobHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	blob, err := h.svc.PutBlob(r.Context(), r.FormValue("subdir"), header.Filename, data)
	if err != nil {
		writeError(w, "upload blob", err)
		return
	}
	writeJSON(w, http.StatusCreated, blob)
}

// Put handles PUT /api/blobs/{name}. The body is the blob content.
func (h *BlobHandler) Put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or unreadable body"))
		return
	}
	blob, err := h.svc.PutBlob(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name"), data)
	if err != nil {
		writeError(w, "put blob", err)
		return
	}
	writeJSON(w, http.StatusOK, blob)
}

// Get handles GET /api/blobs/{name}.
func (h *BlobHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.GetBlob(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get blob", err)
		return
	}
	sum := checksum.Sum(data)
	if checksum.FromETag(r.Header.Get("If-None-Match")) == sum {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", checksum.ETag(sum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Address handles GET /api/blobs/{name}/address.
func (h *BlobHandler) Address(w http.ResponseWriter, r *http.Request) {
	addr, err := h.svc.BlobAddress(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "blob address", err)
		return
	}
	writeJSON(w, http.StatusOK, AddressResponse{Address: string(addr)})
}

// Delete handles DELETE /api/blobs/{name}.
func (h *BlobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlob(r.Context(), r.URL.Query().Get("subdir"), chi.URLParam(r, "name")); err != nil {
		writeError(w, "delete blob", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
