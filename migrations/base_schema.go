package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CreateBaseSchema creates the tenant, user, driver and job tables.
func CreateBaseSchema(tx *sqlx.Tx, _ Options) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS organizations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'viewer',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS drivers (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			name TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL REFERENCES organizations(id),
			job_number TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			job_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'unassigned',
			driver_id TEXT REFERENCES drivers(id),
			scheduled_date TIMESTAMP NOT NULL,
			priority BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP,
			UNIQUE(organization_id, job_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_org_date ON jobs (organization_id, scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_driver ON jobs (driver_id)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}
	return nil
}
