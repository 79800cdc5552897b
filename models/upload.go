package models

import "time"

type UploadKind string

const (
	UploadVehiclePhoto UploadKind = "vehicle_photo"
	UploadDamagePhoto  UploadKind = "damage_photo"
	UploadCertificate  UploadKind = "certificate"
)

func (k UploadKind) Valid() bool {
	switch k {
	case UploadVehiclePhoto, UploadDamagePhoto, UploadCertificate:
		return true
	}
	return false
}

// Upload records a binary stored in object storage. Path is stable; URL is derived from it.
type Upload struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"-" db:"organization_id"`
	Kind           UploadKind `json:"kind" db:"kind"`
	OwnerID        string     `json:"ownerId" db:"owner_id"`
	Path           string     `json:"path" db:"path"`
	FileName       string     `json:"fileName" db:"file_name"`
	ContentType    string     `json:"contentType" db:"content_type"`
	Size           int64      `json:"size" db:"size"`
	UploadedBy     string     `json:"uploadedBy" db:"uploaded_by"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	URL            string     `json:"url" db:"-"`
}
