package api

import (
	"errors"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/assets"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// AssetHandlers serves the asset gallery endpoints. MIME and size validation
// happens here; the storage backend never inspects file contents.
type AssetHandlers struct {
	service        assets.Service
	maxUploadBytes int64
}

// NewAssetHandlers creates a new AssetHandlers instance.
func NewAssetHandlers(service assets.Service, maxUploadBytes int64) *AssetHandlers {
	return &AssetHandlers{service: service, maxUploadBytes: maxUploadBytes}
}

// AssetsResponse is the response for asset listings.
type AssetsResponse struct {
	Assets []assets.Asset `json:"assets"`
}

// ListImages handles GET /assets/images.
func (h *AssetHandlers) ListImages(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, assets.KindImages)
}

// ListAudio handles GET /assets/audio.
func (h *AssetHandlers) ListAudio(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, assets.KindAudio)
}

func (h *AssetHandlers) list(w http.ResponseWriter, r *http.Request, kind string) {
	list, err := h.service.List(r.Context(), kind)
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to list assets")
		return
	}
	writeJSON(w, http.StatusOK, AssetsResponse{Assets: list})
}

// Upload handles POST /assets/{type} with a multipart form carrying a single
// "file" field.
func (h *AssetHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")
	if !assets.ValidKind(kind) {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Asset type must be images or audio")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	switch kind {
	case assets.KindImages:
		contentType, err = validate.ImageFile(contentType, header.Size, h.maxUploadBytes)
	case assets.KindAudio:
		contentType, err = validate.AudioFile(contentType, header.Size, h.maxUploadBytes)
	}
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Rejected upload: "+err.Error())
		return
	}

	asset, err := h.service.Upload(r.Context(), kind, header.Filename, contentType, header.Size, file)
	if err != nil {
		if errors.Is(err, assets.ErrInvalidName) {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid file name")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to store asset")
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

// Delete handles DELETE /assets/{type}/{name}.
func (h *AssetHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")
	if !assets.ValidKind(kind) {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Asset type must be images or audio")
		return
	}
	name := r.PathValue("name")

	if err := h.service.Delete(r.Context(), kind, name); err != nil {
		switch {
		case errors.Is(err, assets.ErrNotFound):
			writeCodedError(w, r, http.StatusNotFound, ErrCodeNotFound, "Asset not found")
		case errors.Is(err, assets.ErrInvalidName):
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid file name")
		default:
			writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete asset")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
