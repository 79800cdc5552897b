package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

const defaultReportTitle = "Jobs Report"

// ReportRenderer turns a report request into a document.
type ReportRenderer interface {
	Render(ctx context.Context, req models.ReportRequest) (*models.RenderedReport, error)
}

// GenerateJobsReport renders the jobs matching filter, stamped with the filter
// summary and the caller's name.
func GenerateJobsReport(ctx context.Context, renderer ReportRenderer, identity models.Identity, filter models.FilterState, format models.ReportFormat, now time.Time) (*models.RenderedReport, error) {
	if format == "" {
		format = models.ReportPDF
	}
	if format != models.ReportPDF && format != models.ReportHTML {
		return nil, models.NewValidationError("format", "format must be pdf or html")
	}

	views, err := ListJobs(ctx, identity.OrganizationID, filter, now)
	if err != nil {
		return nil, err
	}
	settings, err := GetIntegrationSettings(ctx, identity.OrganizationID)
	if err != nil {
		return nil, err
	}

	title := settings.ReportTitle
	if title == "" {
		title = defaultReportTitle
	}
	jobs := make([]models.Job, 0, len(views))
	for _, v := range views {
		jobs = append(jobs, v.Job)
	}
	filters := map[string]string{}
	for key, values := range filter.Query() {
		filters[key] = values[0]
	}

	req := models.ReportRequest{
		Title:         title,
		Format:        format,
		FilterSummary: filter.Summarize(),
		Filters:       filters,
		GeneratedBy:   identity.AuditName(),
		GeneratedAt:   now.UTC(),
		Jobs:          jobs,
	}

	log := logging.FromContext(ctx).WithFields(logrus.Fields{"format": format, "jobs": len(jobs)})
	report, err := renderer.Render(ctx, req)
	if err != nil {
		log.WithError(err).Error("Report rendering failed")
		if models.IsValidation(err) {
			return nil, err
		}
		return nil, models.NewPersistenceError("render report", err)
	}
	log.Info("Jobs report rendered")
	return report, nil
}
