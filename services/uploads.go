package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/metrics"
	"fleetdesk/backend/models"
	"fleetdesk/backend/storage"
)

// UploadInput describes one file received from a client.
type UploadInput struct {
	Kind        models.UploadKind
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SaveUpload writes the file to object storage and records its stable path.
// If the record cannot be written the stored object is removed again.
func SaveUpload(ctx context.Context, store storage.ObjectStore, identity models.Identity, in UploadInput) (upload *models.Upload, err error) {
	if !in.Kind.Valid() {
		return nil, models.NewValidationError("kind", fmt.Sprintf("unknown upload kind %q", in.Kind))
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, models.NewValidationError("ownerId", "owner is required")
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}
	defer func() { metrics.UploadStored(string(in.Kind), err) }()

	const op = "save upload"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := storage.ObjectKey(identity.OrganizationID, string(in.Kind), in.OwnerID, id, in.FileName)
	log := logging.FromContext(ctx).WithFields(logrus.Fields{"upload": id, "key": key})

	if err := store.Put(ctx, key, in.Body, in.Size, in.ContentType); err != nil {
		log.WithError(err).Error("Failed to store upload")
		return nil, persistenceError("store object", err)
	}

	u := models.Upload{
		ID:             id,
		OrganizationID: identity.OrganizationID,
		Kind:           in.Kind,
		OwnerID:        in.OwnerID,
		Path:           key,
		FileName:       in.FileName,
		ContentType:    in.ContentType,
		Size:           in.Size,
		UploadedBy:     identity.UserID,
		CreatedAt:      time.Now().UTC(),
	}
	_, err = conn.NamedExecContext(ctx, `
		INSERT INTO uploads (id, organization_id, kind, owner_id, path, file_name, content_type, size, uploaded_by, created_at)
		VALUES (:id, :organization_id, :kind, :owner_id, :path, :file_name, :content_type, :size, :uploaded_by, :created_at)
	`, u)
	if err != nil {
		if derr := store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.WithError(derr).Warn("Failed to remove orphaned upload")
		}
		return nil, persistenceError(op, err)
	}

	u.URL = store.PublicURL(key)
	log.Info("Upload stored")
	return &u, nil
}

// ListUploads returns the uploads of one kind attached to ownerID, newest first.
func ListUploads(ctx context.Context, store storage.ObjectStore, orgID string, kind models.UploadKind, ownerID string) ([]models.Upload, error) {
	const op = "list uploads"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	uploads := []models.Upload{}
	err = conn.SelectContext(ctx, &uploads, conn.Rebind(`
		SELECT id, organization_id, kind, owner_id, path, file_name, content_type, size, uploaded_by, created_at
		FROM uploads
		WHERE organization_id = ? AND kind = ? AND owner_id = ?
		ORDER BY created_at DESC
	`), orgID, string(kind), ownerID)
	if err != nil {
		return nil, persistenceError(op, err)
	}
	for i := range uploads {
		uploads[i].URL = store.PublicURL(uploads[i].Path)
	}
	return uploads, nil
}
