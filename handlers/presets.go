package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
)

func scopeParam(r *http.Request) string {
	scope := strings.TrimSpace(r.URL.Query().Get("scope"))
	if scope == "" {
		return models.ScopeJobs
	}
	return scope
}

// ListPresets returns the caller's presets and the public presets of the organization.
func ListPresets(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	presets, err := services.ListFilterPresets(r.Context(), identity, scopeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

// GetDefaultPreset returns the caller's default preset, or 204 when none is set.
func GetDefaultPreset(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	preset, err := services.GetDefaultFilterPreset(r.Context(), identity, scopeParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if preset == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

// CreatePreset saves the posted filters under a name.
func CreatePreset(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req presetRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filters, err := req.Filters.State()
	if err != nil {
		writeError(w, r, err)
		return
	}

	preset, err := services.SaveFilterPreset(r.Context(), identity, services.PresetInput{
		Scope:       req.Scope,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		IsDefault:   req.IsDefault,
		Filters:     filters,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, preset)
}

func GetPreset(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	preset, err := services.GetFilterPreset(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

type applyPresetResponse struct {
	Filters models.FilterPayload `json:"filters"`
	Query   string               `json:"query"`
	Summary string               `json:"summary"`
	Preset  *models.FilterPreset `json:"preset"`
}

// ApplyPreset applies a stored preset to the client's current filters. The
// default mode replaces them; "merge" keeps fields the preset does not set.
func ApplyPreset(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req applyPresetRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	current, err := req.Current.State()
	if err != nil {
		writeError(w, r, err)
		return
	}

	next, preset, err := services.ApplyFilterPreset(r.Context(), identity, mux.Vars(r)["id"], current, req.Mode == applyReplace)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyPresetResponse{
		Filters: models.PayloadOf(next),
		Query:   next.Query().Encode(),
		Summary: next.Summarize(),
		Preset:  preset,
	})
}

func DeletePreset(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if err := services.DeleteFilterPreset(r.Context(), identity, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
