package handlers

import (
	"net/http"

	"fleetdesk/backend/services"
)

// GetIntegrations returns the organization's integration settings with the map token masked.
func GetIntegrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	settings, err := services.GetIntegrationSettings(r.Context(), identity.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateIntegrations changes the fields present in the body. An empty mapToken clears the token.
func UpdateIntegrations(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req integrationRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := services.UpdateIntegrationSettings(r.Context(), identity, req.IntegrationUpdate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
