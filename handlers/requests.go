package handlers

import (
	"strings"

	"fleetdesk/backend/models"
)

// Request bodies. Normalize runs before validation.

type presetRequest struct {
	Scope       string               `json:"scope" validate:"omitempty,oneof=jobs"`
	Name        string               `json:"name" validate:"max=100"`
	Description string               `json:"description" validate:"max=500"`
	IsPublic    bool                 `json:"isPublic"`
	IsDefault   bool                 `json:"isDefault"`
	Filters     models.FilterPayload `json:"filters"`
}

func (p *presetRequest) Normalize() {
	p.Scope = strings.TrimSpace(p.Scope)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
}

const (
	applyMerge   = "merge"
	applyReplace = "replace"
)

type applyPresetRequest struct {
	Current models.FilterPayload `json:"current"`
	Mode    string               `json:"mode" validate:"omitempty,oneof=merge replace"`
}

func (a *applyPresetRequest) Normalize() {
	a.Mode = strings.ToLower(strings.TrimSpace(a.Mode))
	if a.Mode == "" {
		a.Mode = applyReplace
	}
}

// locationRequest is either an address to geocode or an explicit dropped pin.
type locationRequest struct {
	Address   string   `json:"address" validate:"max=500"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (l *locationRequest) Normalize() {
	l.Address = strings.TrimSpace(l.Address)
}

func (l locationRequest) pin() (models.Coordinates, bool, error) {
	if l.Latitude == nil && l.Longitude == nil {
		return models.Coordinates{}, false, nil
	}
	if l.Latitude == nil || l.Longitude == nil {
		return models.Coordinates{}, false, models.NewValidationError("coordinates", "latitude and longitude must be given together")
	}
	return models.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}, true, nil
}

type openBoardRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (o *openBoardRequest) Normalize() {
	o.Date = strings.TrimSpace(o.Date)
}

type dragRequest struct {
	JobID string `json:"jobId" validate:"required"`
}

func (d *dragRequest) Normalize() {
	d.JobID = strings.TrimSpace(d.JobID)
}

type dropRequest struct {
	Token       string `json:"token" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	// Index is the position in the destination list; absent appends.
	Index *int `json:"index" validate:"omitempty,min=0"`
}

func (d *dropRequest) Normalize() {
	d.Token = strings.TrimSpace(d.Token)
	d.Destination = strings.TrimSpace(d.Destination)
}

type reportRequest struct {
	Filters models.FilterPayload `json:"filters"`
	Format  string               `json:"format" validate:"omitempty,oneof=pdf html"`
}

func (r *reportRequest) Normalize() {
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
}

type integrationRequest struct {
	models.IntegrationUpdate
}

func (i *integrationRequest) Normalize() {
	for _, field := range []*string{i.MapStyle, i.ReportTitle, i.MapToken} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
}
