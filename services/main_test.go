package services

import (
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"fleetdesk/backend/database"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/migrations"
	"fleetdesk/backend/models"
	"fleetdesk/backend/security"
)

var (
	testDay   = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	testToday = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	adminUser = models.Identity{UserID: "u-admin", OrganizationID: "org-1", Role: models.RoleAdmin, DisplayName: "Avery Admin", Email: "avery@example.com"}
	dispUser  = models.Identity{UserID: "u-disp", OrganizationID: "org-1", Role: models.RoleDispatcher, DisplayName: "Devon Dispatch"}
	viewUser  = models.Identity{UserID: "u-view", OrganizationID: "org-1", Role: models.RoleViewer}
	otherOrg  = models.Identity{UserID: "u-other", OrganizationID: "org-2", Role: models.RoleAdmin}
)

func TestMain(m *testing.M) {
	logging.SetDefault(logging.New("silent", "text"))
	if err := security.InitializeEncryption("services-test-secret"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// setupTestDB installs a migrated in-memory database with a small fixture as database.DB.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := database.OpenMemory()
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(conn, migrations.Options{Driver: "sqlite3"}))

	prev := database.DB
	database.DB = conn
	t.Cleanup(func() {
		database.DB = prev
		conn.Close()
	})

	exec := func(query string, args ...any) {
		_, err := conn.Exec(query, args...)
		require.NoError(t, err, query)
	}
	exec(`INSERT INTO organizations (id, name) VALUES ('org-1', 'Acme Sanitation'), ('org-2', 'Other Co')`)
	exec(`INSERT INTO users (id, organization_id, email, display_name, role) VALUES
		('u-admin', 'org-1', 'avery@example.com', 'Avery Admin', 'admin'),
		('u-disp', 'org-1', 'devon@example.com', 'Devon Dispatch', 'dispatcher'),
		('u-view', 'org-1', 'val@example.com', 'Val Viewer', ''),
		('u-other', 'org-2', 'o@example.com', 'Other', 'admin')`)
	exec(`INSERT INTO drivers (id, organization_id, name, active) VALUES
		('drv-1', 'org-1', 'Jordan Reyes', TRUE),
		('drv-2', 'org-1', 'Sam Okafor', TRUE),
		('drv-off', 'org-1', 'Former Driver', FALSE),
		('drv-x', 'org-2', 'Elsewhere', TRUE)`)

	jobs := []struct {
		id, org, number, customer, address, jobType, status string
		driver                                              any
		date                                                time.Time
		priority                                            bool
	}{
		{"job-1", "org-1", "J-1001", "Acme Events", "12 Main St", "delivery", "unassigned", nil, testDay, false},
		{"job-2", "org-1", "J-1002", "Harbor Build", "5 Dock Rd", "service", "assigned", "drv-1", testDay, false},
		{"job-3", "org-1", "J-1003", "City Parks", "Main St & 5th", "emergency", "unassigned", nil, testDay.AddDate(0, 0, -2), false},
		{"job-4", "org-1", "J-1004", "Lakeside Fair", "1 Lake Dr", "pickup", "completed", "drv-2", testDay.AddDate(0, 0, -3), false},
		{"job-5", "org-1", "J-1005", "Ridge Homes", "88 Ridge Way", "delivery", "in_progress", "drv-2", testDay, true},
		{"job-9", "org-2", "J-1001", "Elsewhere", "1 Far Rd", "delivery", "unassigned", nil, testDay, false},
	}
	for _, j := range jobs {
		exec(`INSERT INTO jobs (id, organization_id, job_number, customer_name, address, job_type, status, driver_id, scheduled_date, priority)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.id, j.org, j.number, j.customer, j.address, j.jobType, j.status, j.driver, j.date, j.priority)
	}
	return conn
}

// useMockDB installs a sqlmock-backed database as database.DB.
func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.DB
	database.DB = sqlx.NewDb(mockDB, "sqlite3")
	t.Cleanup(func() {
		database.DB = prev
		mockDB.Close()
	})
	return mock
}

// withoutDB clears database.DB for tests that must not reach the datastore.
func withoutDB(t *testing.T) {
	t.Helper()
	prev := database.DB
	database.DB = nil
	t.Cleanup(func() { database.DB = prev })
}

func jobIDs(views []JobView) []string {
	ids := make([]string, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

func filterWith(t *testing.T, mutate func(f *models.FilterState)) models.FilterState {
	t.Helper()
	f := models.NewFilterState()
	mutate(&f)
	return f
}
