package models

import "time"

// IntegrationSettings are an organization's third-party integration options.
// MapToken holds the decrypted token and is never serialized.
type IntegrationSettings struct {
	OrganizationID string     `json:"-" db:"organization_id"`
	MapToken       string     `json:"-" db:"map_token"`
	MapTokenHint   string     `json:"mapToken,omitempty" db:"-"`
	HasMapToken    bool       `json:"hasMapToken" db:"-"`
	MapStyle       string     `json:"mapStyle" db:"map_style"`
	ReportTitle    string     `json:"reportTitle" db:"report_title"`
	UpdatedBy      string     `json:"updatedBy,omitempty" db:"updated_by"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// IntegrationUpdate changes only the fields that are set. An empty MapToken clears it.
type IntegrationUpdate struct {
	MapToken    *string `json:"mapToken"`
	MapStyle    *string `json:"mapStyle" validate:"omitempty,max=200"`
	ReportTitle *string `json:"reportTitle" validate:"omitempty,max=120"`
}
