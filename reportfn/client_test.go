package reportfn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/backend/configuration"
	"fleetdesk/backend/models"
)

func TestRender(t *testing.T) {
	var got models.ReportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="custom.pdf"`)
		w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := New(configuration.ReportOptions{FunctionURL: srv.URL, APIKey: "secret", Timeout: time.Second})
	doc, err := c.Render(context.Background(), models.ReportRequest{
		Title:         "Jobs",
		FilterSummary: "Job type",
		GeneratedBy:   "Avery Admin <admin@demo.example>",
		Jobs:          []models.Job{{ID: "job-1", JobNumber: "J-1"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, "custom.pdf", doc.FileName)
	assert.Equal(t, []byte("%PDF-1.7"), doc.Body)
	assert.Equal(t, models.ReportPDF, got.Format)
	assert.Equal(t, "Avery Admin <admin@demo.example>", got.GeneratedBy)
	require.Len(t, got.Jobs, 1)
}

func TestRenderDefaultFileName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := New(configuration.ReportOptions{FunctionURL: srv.URL})
	doc, err := c.Render(context.Background(), models.ReportRequest{
		Format:      models.ReportHTML,
		GeneratedAt: time.Date(2024, 1, 7, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "jobs-report-2024-01-07.html", doc.FileName)
}

func TestRenderFunctionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "template crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(configuration.ReportOptions{FunctionURL: srv.URL}).Render(context.Background(), models.ReportRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestRenderNotConfigured(t *testing.T) {
	_, err := New(configuration.ReportOptions{}).Render(context.Background(), models.ReportRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
