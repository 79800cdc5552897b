package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
)

type jobsResponse struct {
	Jobs    []services.JobView   `json:"jobs"`
	Filters models.FilterPayload `json:"filters"`
	Summary string               `json:"summary"`
}

// ListJobs applies the share URL parameters of the request as filters.
func ListJobs(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	filter, err := models.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jobs, err := services.ListJobs(r.Context(), identity.OrganizationID, filter, time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobsResponse{
		Jobs:    jobs,
		Filters: models.PayloadOf(filter),
		Summary: filter.Summarize(),
	})
}

type shareURLResponse struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// GetShareURL renders the request's filters as a shareable link on top of the base parameter.
func GetShareURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentIdentity(w, r); !ok {
		return
	}
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	if base == "" {
		writeError(w, r, models.NewValidationError("base", "base URL is required"))
		return
	}
	filter, err := models.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	link, err := filter.ToShareURL(base)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shareURLResponse{URL: link, Summary: filter.Summarize()})
}

// LocationHandler captures job site pins.
type LocationHandler struct {
	geocoder services.Geocoder
}

func NewLocationHandler(geocoder services.Geocoder) *LocationHandler {
	return &LocationHandler{geocoder: geocoder}
}

// SetJobLocation stores a dropped pin, or geocodes the given address (or the
// job's own address when none is given).
func (h *LocationHandler) SetJobLocation(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	jobID := mux.Vars(r)["id"]

	var req locationRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	coords, isPin, err := req.pin()
	if err != nil {
		writeError(w, r, err)
		return
	}

	var location *models.JobLocation
	if isPin {
		location, err = services.SetJobLocation(r.Context(), identity.OrganizationID, jobID, coords, models.LocationDropPin)
	} else {
		location, err = services.GeocodeJobLocation(r.Context(), h.geocoder, identity.OrganizationID, jobID, req.Address)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}
