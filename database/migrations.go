package database

import (
	"fleetdesk/backend/logging"
	"fleetdesk/backend/migrations"
)

// RunMigrations applies every pending migration to DB.
func RunMigrations(opts migrations.Options) error {
	log := logging.Default()
	log.Info("Running database migrations...")

	if err := migrations.RunMigrations(DB, opts); err != nil {
		log.WithError(err).Error("Error running migrations")
		return err
	}

	log.Info("Database migrations completed successfully")
	return nil
}
