package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/querycache"
	"fleetdesk/backend/services"
)

func newDispatchHandler(t *testing.T) *DispatchHandler {
	t.Helper()
	registry := dispatch.NewRegistry(services.JobRepository{}, querycache.New(nil), dispatch.Options{})
	t.Cleanup(registry.CloseAll)
	return NewDispatchHandler(registry)
}

func openBoard(t *testing.T, h *DispatchHandler) dispatch.View {
	t.Helper()
	rr := serve(h.OpenBoard, newRequest(t, http.MethodPost, "/dispatch/boards", map[string]string{"date": "2024-03-10"}, &dispatcher, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[dispatch.View](t, rr)
}

func listJobIDs(v dispatch.View, list dispatch.ListID) []string {
	ids := []string{}
	for _, l := range v.Lists {
		if l.ID == list {
			for _, j := range l.Jobs {
				ids = append(ids, j.ID)
			}
		}
	}
	return ids
}

func startDrag(t *testing.T, h *DispatchHandler, boardID, jobID string) dispatch.DragToken {
	t.Helper()
	rr := serve(h.StartDrag, newRequest(t, http.MethodPost, "/drags", map[string]string{"jobId": jobID}, &dispatcher, map[string]string{"id": boardID}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[dispatch.DragToken](t, rr)
}

func drop(t *testing.T, h *DispatchHandler, boardID string, body map[string]any) (int, dropResponse) {
	t.Helper()
	rr := serve(h.Drop, newRequest(t, http.MethodPost, "/drops", body, &dispatcher, map[string]string{"id": boardID}))
	if rr.Code == http.StatusBadRequest || rr.Code == http.StatusNotFound {
		return rr.Code, dropResponse{}
	}
	return rr.Code, decode[dropResponse](t, rr)
}

func TestOpenBoard(t *testing.T) {
	setupTestDB(t)
	h := newDispatchHandler(t)

	view := openBoard(t, h)
	assert.Equal(t, "2024-03-10", view.Date)
	assert.Equal(t, []string{"job-1"}, listJobIDs(view, dispatch.Unassigned))
	assert.Equal(t, []string{"job-2"}, listJobIDs(view, dispatch.DriverList("drv-1")))
	assert.Equal(t, []string{"job-5"}, listJobIDs(view, dispatch.DriverList("drv-2")))

	rr := serve(h.OpenBoard, newRequest(t, http.MethodPost, "/dispatch/boards", map[string]string{}, &dispatcher, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.GetBoard, newRequest(t, http.MethodGet, "/", nil, &outsider, map[string]string{"id": view.ID}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDropCommitsAssignment(t *testing.T) {
	conn := setupTestDB(t)
	h := newDispatchHandler(t)
	view := openBoard(t, h)

	token := startDrag(t, h, view.ID, "job-1")
	status, resp := drop(t, h, view.ID, map[string]any{"token": token.ID, "destination": "driver:drv-2", "index": 0})
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, dispatch.OutcomeCommitted, resp.Result.Outcome)
	assert.Equal(t, "J-1001 assigned to Sam Okafor", resp.Result.Notification.Message)
	assert.Equal(t, []string{"job-1", "job-5"}, listJobIDs(resp.Board, dispatch.DriverList("drv-2")))
	assert.Empty(t, listJobIDs(resp.Board, dispatch.Unassigned))

	var row struct {
		Driver string `db:"driver_id"`
		Status string `db:"status"`
	}
	require.NoError(t, conn.Get(&row, `SELECT driver_id, status FROM jobs WHERE id = 'job-1'`))
	assert.Equal(t, "drv-2", row.Driver)
	assert.Equal(t, "assigned", row.Status)

	rr := serve(h.Notifications, newRequest(t, http.MethodGet, "/?after=0", nil, &dispatcher, map[string]string{"id": view.ID}))
	require.Equal(t, http.StatusOK, rr.Code)
	feed := decode[[]dispatch.Notification](t, rr)
	require.Len(t, feed, 1)
	assert.Equal(t, dispatch.LevelSuccess, feed[0].Level)

	rr = serve(h.Notifications, newRequest(t, http.MethodGet, "/?after=x", nil, &dispatcher, map[string]string{"id": view.ID}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDropOfDeletedJobIsRejected(t *testing.T) {
	conn := setupTestDB(t)
	h := newDispatchHandler(t)
	view := openBoard(t, h)

	token := startDrag(t, h, view.ID, "job-1")
	_, err := conn.Exec(`DELETE FROM jobs WHERE id = 'job-1'`)
	require.NoError(t, err)

	status, resp := drop(t, h, view.ID, map[string]any{"token": token.ID, "destination": "driver:drv-1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, dispatch.OutcomeRejected, resp.Result.Outcome)
	assert.Equal(t, dispatch.LevelError, resp.Result.Notification.Level)
	assert.NotEmpty(t, resp.Error)
	// The refetch after the rejection dropped the job from the board.
	assert.Empty(t, listJobIDs(resp.Board, dispatch.Unassigned))
	assert.Equal(t, []string{"job-2"}, listJobIDs(resp.Board, dispatch.DriverList("drv-1")))
}

func TestDropValidation(t *testing.T) {
	setupTestDB(t)
	h := newDispatchHandler(t)
	view := openBoard(t, h)

	t.Run("unknown list", func(t *testing.T) {
		token := startDrag(t, h, view.ID, "job-1")
		status, _ := drop(t, h, view.ID, map[string]any{"token": token.ID, "destination": "truck:7"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown token", func(t *testing.T) {
		status, _ := drop(t, h, view.ID, map[string]any{"token": "nope", "destination": "unassigned"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("negative index", func(t *testing.T) {
		status, _ := drop(t, h, view.ID, map[string]any{"token": "nope", "destination": "unassigned", "index": -1})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("driver missing from the board", func(t *testing.T) {
		token := startDrag(t, h, view.ID, "job-1")
		status, resp := drop(t, h, view.ID, map[string]any{"token": token.ID, "destination": "driver:drv-gone"})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, dispatch.OutcomeRejected, resp.Result.Outcome)
	})

	t.Run("same place is a no-op", func(t *testing.T) {
		token := startDrag(t, h, view.ID, "job-2")
		status, resp := drop(t, h, view.ID, map[string]any{"token": token.ID, "destination": "driver:drv-1"})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, dispatch.OutcomeNoOp, resp.Result.Outcome)
		assert.Equal(t, "No changes made", resp.Result.Notification.Message)
	})
}

func TestRefreshAndCloseBoard(t *testing.T) {
	conn := setupTestDB(t)
	h := newDispatchHandler(t)
	view := openBoard(t, h)
	vars := map[string]string{"id": view.ID}

	_, err := conn.Exec(`UPDATE jobs SET driver_id = 'drv-1', status = 'assigned' WHERE id = 'job-1'`)
	require.NoError(t, err)

	rr := serve(h.Refresh, newRequest(t, http.MethodPost, "/refresh", nil, &dispatcher, vars))
	require.Equal(t, http.StatusOK, rr.Code)
	refreshed := decode[dispatch.View](t, rr)
	assert.Equal(t, []string{"job-2", "job-1"}, listJobIDs(refreshed, dispatch.DriverList("drv-1")))

	rr = serve(h.CloseBoard, newRequest(t, http.MethodDelete, "/", nil, &outsider, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h.CloseBoard, newRequest(t, http.MethodDelete, "/", nil, &dispatcher, vars))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = serve(h.GetBoard, newRequest(t, http.MethodGet, "/", nil, &dispatcher, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
