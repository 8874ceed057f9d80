package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/clienthub/clienthub/internal/impact"
	"github.com/clienthub/clienthub/internal/store"
)

// ImpactHandler runs the 80/20 analysis over the user's tasks and applies
// the recommendations back onto task rows.
type ImpactHandler struct {
	Tasks  *store.TaskStore
	Logger *zap.Logger
}

type ImpactUpdate struct {
	TaskID       string  `json:"task_id"`
	IsHighImpact bool    `json:"is_high_impact"`
	ImpactScore  float64 `json:"impact_score"`
}

type ApplyImpactRequest struct {
	Updates []ImpactUpdate `json:"updates"`
}

type ImpactUpdateResult struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error,omitempty"`
}

type ApplyImpactResponse struct {
	Updated int                  `json:"updated"`
	Failed  []ImpactUpdateResult `json:"failed,omitempty"`
}

// Analyze handles GET /api/impact/analysis
func (h *ImpactHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.List(r.Context(), store.TaskFilter{})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, impact.Analyze(impactView(tasks)))
}

// Apply handles POST /api/impact/apply. The caller sends the subset of
// recommendations it accepted; each task writes independently, and one
// failed row never unwinds the rows already written. Failures come back
// in the response so the caller can retry them.
func (h *ImpactHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyImpactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Updates) == 0 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing updates"})
		return
	}

	for _, update := range req.Updates {
		if !uuidRegex.MatchString(update.TaskID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid task_id %q", update.TaskID)})
			return
		}
		if update.ImpactScore < 0 || update.ImpactScore > 100 {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "impact_score must be between 0 and 100"})
			return
		}
	}

	result := ApplyImpactResponse{}
	for _, update := range req.Updates {
		_, err := h.Tasks.UpdateImpact(r.Context(), update.TaskID, update.ImpactScore, update.IsHighImpact)
		if err != nil {
			if h.Logger != nil {
				h.Logger.Warn("failed to apply impact update",
					zap.String("task_id", update.TaskID),
					zap.Error(err))
			}
			result.Failed = append(result.Failed, ImpactUpdateResult{
				TaskID: update.TaskID,
				Error:  applyErrorDetail(err),
			})
			continue
		}
		result.Updated++
	}

	sendJSON(w, http.StatusOK, result)
}

// applyErrorDetail keeps per-item errors generic; internals stay in logs.
// Ownership misses read as absence, same as writeStoreError.
func applyErrorDetail(err error) string {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
		return "task not found"
	}
	return "update failed"
}

func impactView(tasks []store.Task) []impact.Task {
	view := make([]impact.Task, 0, len(tasks))
	for _, task := range tasks {
		view = append(view, impact.Task{
			ID:           task.ID,
			ImpactScore:  task.ImpactScore,
			IsHighImpact: task.IsHighImpact,
			Priority:     task.Priority,
			Status:       task.Status,
		})
	}
	return view
}
