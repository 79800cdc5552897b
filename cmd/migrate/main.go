package main

import (
	"fmt"
	"os"

	"fleetdesk/backend/configuration"
	"fleetdesk/backend/database"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/migrations"
)

func main() {
	conf := configuration.Use()
	log := conf.Logger()
	logging.SetDefault(log)

	// Initialize database connection
	if err := database.InitDB(conf.Database); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	// Run migrations
	err := database.RunMigrations(migrations.Options{
		Driver:         conf.Database.Driver,
		SeedDemoData:   conf.SeedDemoData,
		OrganizationID: conf.DevUser.OrganizationID,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	fmt.Printf("Migrations completed successfully against %s\n", conf.Database.Redacted())
	os.Exit(0)
}
