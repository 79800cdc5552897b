package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"fleetdesk/backend/database"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/middleware"
	"fleetdesk/backend/migrations"
	"fleetdesk/backend/models"
	"fleetdesk/backend/security"
)

var (
	testDay = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	admin      = models.Identity{UserID: "u-admin", OrganizationID: "org-1", Role: models.RoleAdmin, DisplayName: "Avery Admin", Email: "avery@example.com"}
	dispatcher = models.Identity{UserID: "u-disp", OrganizationID: "org-1", Role: models.RoleDispatcher, DisplayName: "Devon Dispatch"}
	outsider   = models.Identity{UserID: "u-other", OrganizationID: "org-2", Role: models.RoleAdmin}
)

func TestMain(m *testing.M) {
	logging.SetDefault(logging.New("silent", "text"))
	if err := security.InitializeEncryption("handlers-test-secret"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// setupTestDB installs a migrated in-memory database with two organizations,
// two active drivers and a handful of jobs on testDay.
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
		('u-other', 'org-2', 'o@example.com', 'Other', 'admin')`)
	exec(`INSERT INTO drivers (id, organization_id, name, active) VALUES
		('drv-1', 'org-1', 'Jordan Reyes', TRUE),
		('drv-2', 'org-1', 'Sam Okafor', TRUE)`)

	jobs := []struct {
		id, org, number, address, jobType, status string
		driver                                    any
		date                                      time.Time
	}{
		{"job-1", "org-1", "J-1001", "12 Main St", "delivery", "unassigned", nil, testDay},
		{"job-2", "org-1", "J-1002", "5 Dock Rd", "service", "assigned", "drv-1", testDay},
		{"job-3", "org-1", "J-1003", "Main St & 5th", "emergency", "unassigned", nil, testDay.AddDate(0, 0, -2)},
		{"job-5", "org-1", "J-1005", "88 Ridge Way", "delivery", "in_progress", "drv-2", testDay},
		{"job-9", "org-2", "J-1001", "1 Far Rd", "delivery", "unassigned", nil, testDay},
	}
	for _, j := range jobs {
		exec(`INSERT INTO jobs (id, organization_id, job_number, customer_name, address, job_type, status, driver_id, scheduled_date, priority)
			VALUES (?, ?, ?, 'Customer', ?, ?, ?, ?, ?, FALSE)`,
			j.id, j.org, j.number, j.address, j.jobType, j.status, j.driver, j.date)
	}
	return conn
}

// newRequest builds a request carrying identity and the given route variables.
// body is JSON-encoded unless it is already an io.Reader.
func newRequest(t *testing.T, method, target string, body any, identity *models.Identity, vars map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if identity != nil {
		req = req.WithContext(middleware.WithIdentity(req.Context(), *identity))
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
