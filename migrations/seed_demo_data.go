package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"fleetdesk/backend/logging"
)

// errSkipped leaves a migration unrecorded so it runs again on the next start.
var errSkipped = errors.New("migration skipped")

const demoOrganization = "demo-org"

// SeedDemoData loads a small dispatch day for development and PR environments.
// It is skipped, and stays pending, unless Options.SeedDemoData is set.
func SeedDemoData(tx *sqlx.Tx, opts Options) error {
	log := logging.Default()
	if !opts.SeedDemoData {
		log.Info("Skipping demo data seeding - not requested")
		return errSkipped
	}

	org := opts.OrganizationID
	if org == "" {
		org = demoOrganization
	}
	log.Infof("Seeding demo data for organization %s...", org)

	exec := func(query string, args ...any) error {
		_, err := tx.Exec(tx.Rebind(query), args...)
		return err
	}

	if err := exec("INSERT INTO organizations (id, name) VALUES (?, ?)", org, "Demo Logistics"); err != nil {
		return fmt.Errorf("failed to seed organization: %w", err)
	}

	users := []struct{ id, email, name, role string }{
		{"admin-user-1", "admin@demo.example", "Avery Admin", "admin"},
		{"dispatcher-1", "dispatch@demo.example", "Devon Dispatch", "dispatcher"},
		{"viewer-1", "viewer@demo.example", "Val Viewer", "viewer"},
	}
	for _, u := range users {
		if err := exec("INSERT INTO users (id, organization_id, email, display_name, role) VALUES (?, ?, ?, ?, ?)",
			u.id, org, u.email, u.name, u.role); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.id, err)
		}
	}

	drivers := []struct{ id, name, phone string }{
		{"drv-1", "Jordan Reyes", "555-0101"},
		{"drv-2", "Sam Okafor", "555-0102"},
		{"drv-3", "Riley Chen", "555-0103"},
	}
	for _, d := range drivers {
		if err := exec("INSERT INTO drivers (id, organization_id, name, phone, active) VALUES (?, ?, ?, ?, ?)",
			d.id, org, d.name, d.phone, true); err != nil {
			return fmt.Errorf("failed to seed driver %s: %w", d.id, err)
		}
	}

	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	jobs := []struct {
		id, number, customer, address, jobType, status, driver string
		offset                                                 int
		priority                                               bool
	}{
		{"job-1001", "J-1001", "Northwind Traders", "12 Harbor Rd", "delivery", "unassigned", "", 0, false},
		{"job-1002", "J-1002", "Contoso Foods", "400 Market St", "pickup", "assigned", "drv-1", 0, false},
		{"job-1003", "J-1003", "Fabrikam Clinic", "9 Elm Ave", "emergency", "unassigned", "", 0, true},
		{"job-1004", "J-1004", "Tailspin Toys", "77 Pier 3", "service", "assigned", "drv-2", 0, false},
		{"job-1005", "J-1005", "Adventure Works", "5 Summit Way", "delivery", "in_progress", "drv-1", 0, false},
		{"job-1006", "J-1006", "Litware Labs", "210 Circuit Blvd", "service", "unassigned", "", -2, false},
		{"job-1007", "J-1007", "Wide World Importers", "1 Dockside", "pickup", "completed", "drv-3", -1, false},
		{"job-1008", "J-1008", "Proseware", "88 Quarry Ln", "delivery", "unassigned", "", 1, true},
	}
	for _, j := range jobs {
		var driver any
		if j.driver != "" {
			driver = j.driver
		}
		if err := exec(`INSERT INTO jobs (id, organization_id, job_number, customer_name, address, job_type, status, driver_id, scheduled_date, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.id, org, j.number, j.customer, j.address, j.jobType, j.status, driver, today.AddDate(0, 0, j.offset), j.priority); err != nil {
			return fmt.Errorf("failed to seed job %s: %w", j.id, err)
		}
	}

	orders := []struct {
		id, vehicle, title, status, labor, parts string
		defects, openedDaysAgo, closedDaysAgo    int
	}{
		{"wo-1", "VAN-01", "Brake pads", "completed", "180.00", "95.50", 1, 20, 18},
		{"wo-2", "VAN-01", "Tire rotation", "completed", "60.00", "0", 0, 12, 12},
		{"wo-3", "TRK-07", "Coolant leak", "in_progress", "240.00", "310.25", 2, 4, -1},
		{"wo-4", "TRK-09", "Mirror replacement", "open", "0", "0", 1, 1, -1},
	}
	for _, o := range orders {
		var completed any
		if o.closedDaysAgo >= 0 {
			completed = today.AddDate(0, 0, -o.closedDaysAgo)
		}
		if err := exec(`INSERT INTO work_orders (id, organization_id, vehicle_id, title, status, labor_cost, parts_cost, dvir_defects, opened_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.id, org, o.vehicle, o.title, o.status, o.labor, o.parts, o.defects, today.AddDate(0, 0, -o.openedDaysAgo), completed); err != nil {
			return fmt.Errorf("failed to seed work order %s: %w", o.id, err)
		}
	}

	log.Info("Demo data seeded")
	return nil
}
