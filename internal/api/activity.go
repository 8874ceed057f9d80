package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clienthub/clienthub/internal/store"
)

// ActivityHandler serves the user's activity feed.
type ActivityHandler struct {
	Activity *store.ActivityStore
}

type ActivityResponse struct {
	Activity []store.Activity `json:"activity"`
}

// List handles GET /api/activity
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.ActivityFilter{
		Action: strings.TrimSpace(r.URL.Query().Get("action")),
	}

	if taskID := strings.TrimSpace(r.URL.Query().Get("task_id")); taskID != "" {
		if !uuidRegex.MatchString(taskID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task_id"})
			return
		}
		filter.TaskID = &taskID
	}

	if clientID := strings.TrimSpace(r.URL.Query().Get("client_id")); clientID != "" {
		if !uuidRegex.MatchString(clientID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client_id"})
			return
		}
		filter.ClientID = &clientID
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := parsePositiveInt(raw)
		if err != nil {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid offset"})
			return
		}
		filter.Offset = offset
	}

	activity, err := h.Activity.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ActivityResponse{Activity: activity})
}
