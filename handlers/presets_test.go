package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/backend/models"
)

func strPtr(s string) *string {
	return &s
}

func createPreset(t *testing.T, identity models.Identity, body presetRequest) models.FilterPreset {
	t.Helper()
	rr := serve(CreatePreset, newRequest(t, http.MethodPost, "/presets", body, &identity, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[models.FilterPreset](t, rr)
}

func TestCreatePreset(t *testing.T) {
	conn := setupTestDB(t)

	preset := createPreset(t, dispatcher, presetRequest{
		Name:      "  Overdue emergencies ",
		IsDefault: true,
		Filters:   models.FilterPayload{JobType: strPtr("emergency"), Status: strPtr("overdue")},
	})
	assert.Equal(t, "Overdue emergencies", preset.Name)
	assert.Equal(t, models.ScopeJobs, preset.Scope)
	assert.Equal(t, "u-disp", preset.UserID)
	assert.Equal(t, "emergency", *preset.Filters.JobType)
	assert.Nil(t, preset.Filters.From)

	t.Run("blank name never reaches the datastore", func(t *testing.T) {
		body := presetRequest{Name: "   ", Filters: models.FilterPayload{Search: strPtr("x")}}
		rr := serve(CreatePreset, newRequest(t, http.MethodPost, "/presets", body, &dispatcher, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "name", decode[errorResponse](t, rr).Field)

		var n int
		require.NoError(t, conn.Get(&n, `SELECT COUNT(*) FROM filter_presets`))
		assert.Equal(t, 1, n)
	})

	t.Run("invalid stored filters", func(t *testing.T) {
		body := presetRequest{Name: "Bad", Filters: models.FilterPayload{From: strPtr("2024-03-10")}}
		rr := serve(CreatePreset, newRequest(t, http.MethodPost, "/presets", body, &dispatcher, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown scope", func(t *testing.T) {
		body := presetRequest{Scope: "invoices", Name: "Any"}
		rr := serve(CreatePreset, newRequest(t, http.MethodPost, "/presets", body, &dispatcher, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "scope", decode[errorResponse](t, rr).Field)
	})

	t.Run("default preset", func(t *testing.T) {
		rr := serve(GetDefaultPreset, newRequest(t, http.MethodGet, "/presets/default", nil, &dispatcher, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, preset.ID, decode[models.FilterPreset](t, rr).ID)

		rr = serve(GetDefaultPreset, newRequest(t, http.MethodGet, "/presets/default", nil, &admin, nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestListAndGetPresets(t *testing.T) {
	setupTestDB(t)
	private := createPreset(t, dispatcher, presetRequest{Name: "Mine", Filters: models.FilterPayload{Search: strPtr("dock")}})
	public := createPreset(t, admin, presetRequest{Name: "Team", IsPublic: true, Filters: models.FilterPayload{Driver: strPtr("drv-1")}})

	rr := serve(ListPresets, newRequest(t, http.MethodGet, "/presets?scope=jobs", nil, &dispatcher, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	names := []string{}
	for _, p := range decode[[]models.FilterPreset](t, rr) {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"Mine", "Team"}, names)

	rr = serve(GetPreset, newRequest(t, http.MethodGet, "/presets/"+public.ID, nil, &dispatcher, map[string]string{"id": public.ID}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(GetPreset, newRequest(t, http.MethodGet, "/presets/"+private.ID, nil, &admin, map[string]string{"id": private.ID}))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(GetPreset, newRequest(t, http.MethodGet, "/presets/"+public.ID, nil, &outsider, map[string]string{"id": public.ID}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestApplyPreset(t *testing.T) {
	conn := setupTestDB(t)
	preset := createPreset(t, dispatcher, presetRequest{
		Name:    "Main street deliveries",
		Filters: models.FilterPayload{Search: strPtr("main"), JobType: strPtr("delivery")},
	})
	vars := map[string]string{"id": preset.ID}
	current := models.FilterPayload{Driver: strPtr("drv-1"), Search: strPtr("old")}

	t.Run("replace is the default", func(t *testing.T) {
		body := applyPresetRequest{Current: current}
		rr := serve(ApplyPreset, newRequest(t, http.MethodPost, "/presets/"+preset.ID+"/apply", body, &dispatcher, vars))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[applyPresetResponse](t, rr)
		assert.Nil(t, resp.Filters.Driver)
		assert.Equal(t, "main", *resp.Filters.Search)
		assert.Equal(t, "Search, Job type", resp.Summary)
		assert.Equal(t, "jobType=delivery&search=main", resp.Query)
		assert.Equal(t, 1, resp.Preset.UsageCount)
	})

	t.Run("merge keeps fields the preset does not set", func(t *testing.T) {
		body := applyPresetRequest{Current: current, Mode: applyMerge}
		rr := serve(ApplyPreset, newRequest(t, http.MethodPost, "/presets/"+preset.ID+"/apply", body, &dispatcher, vars))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[applyPresetResponse](t, rr)
		require.NotNil(t, resp.Filters.Driver)
		assert.Equal(t, "drv-1", *resp.Filters.Driver)
		assert.Equal(t, "main", *resp.Filters.Search)
		assert.Equal(t, "Search, Driver, Job type", resp.Summary)
	})

	t.Run("invalid current filters leave the counter alone", func(t *testing.T) {
		body := applyPresetRequest{Current: models.FilterPayload{Status: strPtr("whenever")}}
		rr := serve(ApplyPreset, newRequest(t, http.MethodPost, "/presets/"+preset.ID+"/apply", body, &dispatcher, vars))
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		var count int
		require.NoError(t, conn.Get(&count, `SELECT usage_count FROM filter_presets WHERE id = ?`, preset.ID))
		assert.Equal(t, 2, count)
	})

	t.Run("unknown preset", func(t *testing.T) {
		rr := serve(ApplyPreset, newRequest(t, http.MethodPost, "/presets/nope/apply", nil, &dispatcher, map[string]string{"id": "nope"}))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeletePreset(t *testing.T) {
	setupTestDB(t)
	preset := createPreset(t, dispatcher, presetRequest{Name: "Temp"})
	vars := map[string]string{"id": preset.ID}

	viewer := models.Identity{UserID: "u-view", OrganizationID: "org-1", Role: models.RoleViewer}
	rr := serve(DeletePreset, newRequest(t, http.MethodDelete, "/presets/"+preset.ID, nil, &viewer, vars))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(DeletePreset, newRequest(t, http.MethodDelete, "/presets/"+preset.ID, nil, &admin, vars))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(DeletePreset, newRequest(t, http.MethodDelete, "/presets/"+preset.ID, nil, &admin, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
