package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
)

// WorkOrderAnalytics summarizes work orders opened between the from and to parameters.
func WorkOrderAnalytics(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	filter, err := models.FromQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := services.WorkOrderAnalytics(r.Context(), identity.OrganizationID, filter.DateRange)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ReportHandler renders job reports through the report function.
type ReportHandler struct {
	renderer services.ReportRenderer
	now      func() time.Time
}

func NewReportHandler(renderer services.ReportRenderer) *ReportHandler {
	return &ReportHandler{renderer: renderer, now: time.Now}
}

// JobsReport streams the rendered document as an attachment.
func (h *ReportHandler) JobsReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req reportRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := req.Filters.State()
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := services.GenerateJobsReport(r.Context(), h.renderer, identity, filter, models.ReportFormat(req.Format), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(report.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report.Body); err != nil {
		logging.FromContext(r.Context()).WithError(err).WithField("file", report.FileName).Warn("Failed to write report")
	}
}
