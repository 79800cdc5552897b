package migrations

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"fleetdesk/backend/logging"
)

// Options controls migrations whose effect depends on the deployment.
type Options struct {
	Driver         string
	SeedDemoData   bool
	OrganizationID string
}

type migration struct {
	name string
	fn   func(*sqlx.Tx, Options) error
}

// ordered is the full migration history. Append only.
var ordered = []migration{
	{"base_schema", CreateBaseSchema},
	{"add_filter_presets", AddFilterPresets},
	{"add_job_locations", AddJobLocations},
	{"add_uploads", AddUploads},
	{"add_work_orders", AddWorkOrders},
	{"add_integration_config", AddIntegrationConfig},
	// Development and PR environments only; see SeedDemoData.
	{"seed_demo_data", SeedDemoData},
}

// RunMigrations executes all pending migrations in order, each in its own transaction.
func RunMigrations(db *sqlx.DB, opts Options) error {
	log := logging.Default()
	log.Info("Running migrations...")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range ordered {
		var count int
		if err := db.Get(&count, db.Rebind("SELECT COUNT(*) FROM migrations WHERE name = ?"), m.name); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			log.Debugf("Skipping already applied migration: %s", m.name)
			continue
		}

		log.Infof("Applying migration: %s", m.name)
		err := apply(db, m, opts)
		if errors.Is(err, errSkipped) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
	}

	log.Info("All migrations completed successfully")
	return nil
}

func apply(db *sqlx.DB, m migration, opts Options) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	if err := m.fn(tx, opts); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.Exec(tx.Rebind("INSERT INTO migrations (name) VALUES (?)"), m.name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// Applied lists the names of recorded migrations in the order they ran.
func Applied(db *sqlx.DB) ([]string, error) {
	var names []string
	err := db.Select(&names, "SELECT name FROM migrations ORDER BY applied_at, name")
	return names, err
}

// Pending lists migrations that have not been recorded yet.
func Pending(db *sqlx.DB) ([]string, error) {
	applied, err := Applied(db)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}
	var pending []string
	for _, m := range ordered {
		if !done[m.name] {
			pending = append(pending, m.name)
		}
	}
	return pending, nil
}

func execAll(tx *sqlx.Tx, statements ...string) error {
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
