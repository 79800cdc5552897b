package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
	"fleetdesk/backend/storage"
)

// multipartMemory is how much of a form is buffered in memory before spilling to disk.
const multipartMemory = 8 << 20

// UploadHandler stores vehicle photos, damage photos and certificates.
type UploadHandler struct {
	store   storage.ObjectStore
	maxSize int64
}

func NewUploadHandler(store storage.ObjectStore, maxSize int64) *UploadHandler {
	return &UploadHandler{store: store, maxSize: maxSize}
}

// Upload accepts a multipart form with a "file" part and an "ownerId" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if h.maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, r, models.NewValidationError("file", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, models.NewValidationError("file", "file is required"))
		return
	}
	defer file.Close()

	upload, err := services.SaveUpload(r.Context(), h.store, identity, services.UploadInput{
		Kind:        models.UploadKind(mux.Vars(r)["kind"]),
		OwnerID:     r.FormValue("ownerId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, upload)
}

// List returns the uploads of one kind attached to the ownerId parameter.
func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	kind := models.UploadKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		writeError(w, r, models.NewValidationError("kind", "unknown upload kind"))
		return
	}
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeError(w, r, models.NewValidationError("ownerId", "owner is required"))
		return
	}
	uploads, err := services.ListUploads(r.Context(), h.store, identity.OrganizationID, kind, ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploads)
}
