package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/models"
)

const jobColumns = `id, organization_id, job_number, customer_name, address, job_type, status, driver_id,
	scheduled_date, priority, notes, latitude, longitude, location_source, created_at, updated_at`

// JobView is a job with its derived badge statuses for the list view.
type JobView struct {
	models.Job
	Badges []models.StatusFilter `json:"badges"`
}

// ListJobs returns the organization's jobs that satisfy filter. The date range,
// driver and job type narrow the query; search and the derived statuses are
// evaluated against today.
func ListJobs(ctx context.Context, orgID string, filter models.FilterState, today time.Time) ([]JobView, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	const op = "list jobs"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE organization_id = ?`
	args := []any{orgID}
	if filter.DateRange != nil {
		query += ` AND scheduled_date >= ? AND scheduled_date < ?`
		args = append(args, filter.DateRange.Start, filter.DateRange.End.AddDate(0, 0, 1))
	}
	if filter.DriverID != models.FilterAll {
		query += ` AND driver_id = ?`
		args = append(args, filter.DriverID)
	}
	if filter.JobType != models.JobTypeAll {
		query += ` AND job_type = ?`
		args = append(args, string(filter.JobType))
	}
	if filter.Status != models.StatusAll && !filter.Status.Derived() {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY scheduled_date, job_number`

	var jobs []models.Job
	if err := conn.SelectContext(ctx, &jobs, conn.Rebind(query), args...); err != nil {
		return nil, persistenceError(op, err)
	}

	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		if !filter.Matches(j, today) {
			continue
		}
		views = append(views, JobView{Job: j, Badges: j.Badges(today)})
	}
	return views, nil
}

// ListJobsForDate returns every job scheduled on date in a stable order.
func ListJobsForDate(ctx context.Context, orgID string, date time.Time) ([]models.Job, error) {
	const op = "list jobs for date"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	day := models.DateOf(date)
	jobs := []models.Job{}
	err = conn.SelectContext(ctx, &jobs, conn.Rebind(`
		SELECT `+jobColumns+`
		FROM jobs
		WHERE organization_id = ? AND scheduled_date >= ? AND scheduled_date < ?
		ORDER BY job_number
	`), orgID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, persistenceError(op, err)
	}
	return jobs, nil
}

// GetJob retrieves one job of the organization.
func GetJob(ctx context.Context, orgID, jobID string) (*models.Job, error) {
	const op = "get job"
	conn, err := db(op)
	if err != nil {
		return nil, err
	}

	var job models.Job
	err = conn.GetContext(ctx, &job, conn.Rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND organization_id = ?`), jobID, orgID)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
		}
		return nil, persistenceError(op, err)
	}
	return &job, nil
}

// AssignDriver sets the job's driver, nil meaning unassigned, and flips the
// status between unassigned and assigned. Repeating the call with the same
// driver leaves the job as it is. A driver that no longer exists is a
// StaleReferenceError; a missing job is ErrNotFound.
func AssignDriver(ctx context.Context, orgID, jobID string, driverID *string) (models.Job, error) {
	const op = "assign driver"
	conn, err := db(op)
	if err != nil {
		return models.Job{}, err
	}

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return models.Job{}, persistenceError(op, err)
	}

	if driverID != nil {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(`
			SELECT COUNT(*) FROM drivers WHERE id = ? AND organization_id = ? AND active = TRUE
		`), *driverID, orgID); err != nil {
			rollback(tx)
			return models.Job{}, persistenceError(op, err)
		}
		if count == 0 {
			rollback(tx)
			return models.Job{}, &models.StaleReferenceError{Entity: "driver", ID: *driverID}
		}
	}

	var current models.JobStatus
	if err := tx.GetContext(ctx, &current, tx.Rebind(`
		SELECT status FROM jobs WHERE id = ? AND organization_id = ?
	`), jobID, orgID); err != nil {
		rollback(tx)
		if isNoRows(err) {
			return models.Job{}, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
		}
		return models.Job{}, persistenceError(op, err)
	}

	status := models.AssignmentStatus(current, driverID)
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		UPDATE jobs SET driver_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND organization_id = ?
	`), driverID, string(status), time.Now().UTC(), jobID, orgID)
	if err != nil {
		rollback(tx)
		return models.Job{}, persistenceError(op, err)
	}

	var job models.Job
	if err := tx.GetContext(ctx, &job, tx.Rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND organization_id = ?`), jobID, orgID); err != nil {
		rollback(tx)
		return models.Job{}, persistenceError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Job{}, persistenceError(op, err)
	}

	target := "unassigned"
	if driverID != nil {
		target = *driverID
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"job":    jobID,
		"driver": target,
		"status": status,
	}).Info("Driver assignment saved")
	return job, nil
}

// JobRepository serves dispatch boards from the shared database.
type JobRepository struct{}

var _ dispatch.JobStore = JobRepository{}

func (JobRepository) ListJobsForDate(ctx context.Context, orgID string, date time.Time) ([]models.Job, error) {
	return ListJobsForDate(ctx, orgID, date)
}

func (JobRepository) ListDrivers(ctx context.Context, orgID string) ([]models.Driver, error) {
	return ListDrivers(ctx, orgID)
}

func (JobRepository) AssignDriver(ctx context.Context, orgID, jobID string, driverID *string) (models.Job, error) {
	return AssignDriver(ctx, orgID, jobID, driverID)
}
