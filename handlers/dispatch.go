package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/models"
)

// DispatchHandler exposes the open dispatch boards of this process.
type DispatchHandler struct {
	registry *dispatch.Registry
}

func NewDispatchHandler(registry *dispatch.Registry) *DispatchHandler {
	return &DispatchHandler{registry: registry}
}

// board resolves the {id} route variable to a board of the caller's
// organization, writing the error response when it cannot.
func (h *DispatchHandler) board(w http.ResponseWriter, r *http.Request) (*dispatch.Board, bool) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return nil, false
	}
	b, err := h.registry.Get(identity.OrganizationID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return b, true
}

// OpenBoard loads the jobs of one day into a new board.
func (h *DispatchHandler) OpenBoard(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req openBoardRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, models.NewValidationError("date", err.Error()))
		return
	}
	b, err := h.registry.Open(r.Context(), identity.OrganizationID, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b.View())
}

func (h *DispatchHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}

// StartDrag hands out the token a later drop must present.
func (h *DispatchHandler) StartDrag(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := b.StartDrag(req.JobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, token)
}

type dropResponse struct {
	Result dispatch.MoveResult `json:"result"`
	Board  dispatch.View       `json:"board"`
	Error  string              `json:"error,omitempty"`
}

// Drop finishes a gesture. Outcomes that reached the board, including
// rejected and failed ones, are answered with the move result and the
// refreshed board so the client can render the notification and the rollback.
func (h *DispatchHandler) Drop(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	var req dropRequest
	if err := decodeRequest(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := dispatch.ParseListID(req.Destination)
	if err != nil {
		writeError(w, r, err)
		return
	}
	index := math.MaxInt32
	if req.Index != nil {
		index = *req.Index
	}

	result, err := b.Drop(r.Context(), req.Token, dispatch.Position{List: list, Index: index})
	if err != nil && result.Outcome == "" {
		writeError(w, r, err)
		return
	}
	resp := dropResponse{Result: result, Board: b.View()}
	status := http.StatusOK
	if err != nil {
		var body errorResponse
		status, body = classify(r, err)
		resp.Error = body.Error
	}
	writeJSON(w, status, resp)
}

// Refresh refetches the board's snapshot.
func (h *DispatchHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	if err := b.Refresh(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.View())
}

// Notifications returns feed entries newer than the after parameter.
func (h *DispatchHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	var after int64
	if raw := r.URL.Query().Get("after"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			writeError(w, r, models.NewValidationError("after", "must be a non-negative sequence number"))
			return
		}
		after = n
	}
	writeJSON(w, http.StatusOK, b.Notifications(after))
}

func (h *DispatchHandler) CloseBoard(w http.ResponseWriter, r *http.Request) {
	identity, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	if err := h.registry.Close(identity.OrganizationID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
