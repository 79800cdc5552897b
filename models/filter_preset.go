package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScopeJobs is the owning-scope key of presets saved from the jobs list.
const ScopeJobs = "jobs"

// FilterPayload is the stored form of a FilterState. Keys match the share URL
// parameters; a nil field was absent when the preset was saved.
type FilterPayload struct {
	From    *string `json:"from,omitempty"`
	To      *string `json:"to,omitempty"`
	Search  *string `json:"search,omitempty"`
	Driver  *string `json:"driver,omitempty"`
	JobType *string `json:"jobType,omitempty"`
	Status  *string `json:"status,omitempty"`
}

// PayloadOf captures the fields of f that are not at their unset sentinel.
func PayloadOf(f FilterState) FilterPayload {
	var p FilterPayload
	if f.DateRange != nil {
		p.From = ptr(f.DateRange.Start.Format(dateLayout))
		p.To = ptr(f.DateRange.End.Format(dateLayout))
	}
	if f.hasSearch() {
		p.Search = ptr(f.SearchTerm)
	}
	if f.hasDriver() {
		p.Driver = ptr(f.DriverID)
	}
	if f.hasJobType() {
		p.JobType = ptr(string(f.JobType))
	}
	if f.hasStatus() {
		p.Status = ptr(string(f.Status))
	}
	return p
}

func ptr(s string) *string {
	return &s
}

func (p FilterPayload) Empty() bool {
	return p.From == nil && p.To == nil && p.Search == nil && p.Driver == nil && p.JobType == nil && p.Status == nil
}

// Value stores the payload as a JSON document.
func (p FilterPayload) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *FilterPayload) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = FilterPayload{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FilterPayload", src)
	}
	var decoded FilterPayload
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("invalid filter payload: %w", err)
	}
	*p = decoded
	return nil
}

// applyTo validates every present field and writes it onto f. f is untouched on error.
func (p FilterPayload) applyTo(f *FilterState) error {
	next := *f
	switch {
	case p.From != nil && p.To != nil:
		r, err := parseDateRange(*p.From, *p.To)
		if err != nil {
			return err
		}
		next.DateRange = &r
	case p.From != nil || p.To != nil:
		return NewValidationError(string(FieldDateRange), "from and to must be given together")
	}
	if p.Search != nil {
		next.SearchTerm = *p.Search
	}
	if p.Driver != nil {
		next.DriverID = *p.Driver
		if next.DriverID == "" {
			next.DriverID = FilterAll
		}
	}
	if p.JobType != nil {
		t := JobType(*p.JobType)
		if t != JobTypeAll && !t.Valid() {
			return NewValidationError(string(FieldJobType), fmt.Sprintf("unknown job type %q", *p.JobType))
		}
		next.JobType = t
	}
	if p.Status != nil {
		s := StatusFilter(*p.Status)
		if s != StatusAll && !s.Valid() {
			return NewValidationError(string(FieldStatus), fmt.Sprintf("unknown status %q", *p.Status))
		}
		next.Status = s
	}
	*f = next
	return nil
}

// State validates the payload and returns it as a FilterState with every
// absent field unset.
func (p FilterPayload) State() (FilterState, error) {
	state := NewFilterState()
	if err := p.applyTo(&state); err != nil {
		return NewFilterState(), err
	}
	return state, nil
}

// FilterPreset is a named, persisted snapshot of a FilterState.
type FilterPreset struct {
	ID             string        `json:"id" db:"id"`
	OrganizationID string        `json:"-" db:"organization_id"`
	UserID         string        `json:"userId" db:"user_id"`
	Scope          string        `json:"scope" db:"scope"`
	Name           string        `json:"name" db:"name"`
	Description    string        `json:"description,omitempty" db:"description"`
	Filters        FilterPayload `json:"filters" db:"filter_config"`
	UsageCount     int           `json:"usageCount" db:"usage_count"`
	LastUsedAt     *time.Time    `json:"lastUsedAt,omitempty" db:"last_used_at"`
	IsPublic       bool          `json:"isPublic" db:"is_public"`
	IsDefault      bool          `json:"isDefault" db:"is_default"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
}

// ToPreset builds an unsaved preset from the current state.
func (f FilterState) ToPreset(name, description string) (FilterPreset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return FilterPreset{}, NewValidationError("name", "preset name is required")
	}
	if err := f.Validate(); err != nil {
		return FilterPreset{}, err
	}
	return FilterPreset{
		Name:        name,
		Description: strings.TrimSpace(description),
		Filters:     PayloadOf(f),
	}, nil
}

// ApplyPreset merges the preset's stored fields over f. Fields absent from the
// payload keep their current value. f itself is not modified.
func (f FilterState) ApplyPreset(p FilterPreset) (FilterState, error) {
	next := f.Normalize()
	if err := p.Filters.applyTo(&next); err != nil {
		return f, err
	}
	return next, nil
}

// ReplaceWithPreset is ApplyPreset starting from a fully unset state.
func (f FilterState) ReplaceWithPreset(p FilterPreset) (FilterState, error) {
	next, err := NewFilterState().ApplyPreset(p)
	if err != nil {
		return f, err
	}
	return next, nil
}
