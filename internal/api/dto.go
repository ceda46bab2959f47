package api

import (
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/recordservice"
	"github.com/starford/folio/internal/settings"
)

// SelectDirectoryRequest is the request body for binding a directory.
type SelectDirectoryRequest struct {
	Path string `json:"path" example:"/home/me/Documents/folio" validate:"required"`
}

// RecordListResponse wraps record listings.
type RecordListResponse struct {
	Names []string `json:"names" validate:"required"`
	Total int      `json:"total" example:"42" validate:"required"`
}

// AddressResponse is returned by the blob address endpoint.
type AddressResponse struct {
	Address string `json:"address" example:"./blobs/photo.png" validate:"required"`
}

// RecordDetail is the full record response type (aliased from the service layer).
type RecordDetail = recordservice.RecordDetail

// BlobDetail is returned after a blob upload (aliased from the service layer).
type BlobDetail = recordservice.BlobDetail

// StatusResponse is the storage status (aliased from the domain layer).
type StatusResponse = models.Status

// ConfigResponse is the storage settings (aliased from the settings layer).
type ConfigResponse = settings.StorageConfig

// ConfigPatchRequest is the request body for PATCH /config.
type ConfigPatchRequest = settings.Patch
