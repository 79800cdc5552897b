package handlers

import (
	"context"
	"net/http"
	"time"

	"fleetdesk/backend/database"
	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
)

// HealthCheck reports whether the datastore answers.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	if database.DB == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := database.DB.PingContext(ctx); err != nil {
		writeError(w, r, models.NewPersistenceError("ping database", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMe returns the authenticated caller.
func GetMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// ListDrivers returns the active drivers of the caller's organization.
func ListDrivers(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	drivers, err := services.ListDrivers(r.Context(), identity.OrganizationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}
