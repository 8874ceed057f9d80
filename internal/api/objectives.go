package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clienthub/clienthub/internal/store"
)

var allowedObjectiveStatuses = map[string]struct{}{
	"open":      {},
	"completed": {},
	"abandoned": {},
}

// ObjectiveHandler manages client objective endpoints.
type ObjectiveHandler struct {
	Objectives *store.ObjectiveStore
}

type ObjectiveRequest struct {
	ClientID     string          `json:"client_id"`
	Title        string          `json:"title"`
	CurrentValue float64         `json:"current_value"`
	TargetValue  float64         `json:"target_value"`
	IsHighImpact bool            `json:"is_high_impact"`
	TaskIDs      json.RawMessage `json:"task_ids,omitempty"`
	Status       string          `json:"status,omitempty"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
}

type ObjectivesResponse struct {
	Objectives []store.Objective `json:"objectives"`
}

// List handles GET /api/objectives
func (h *ObjectiveHandler) List(w http.ResponseWriter, r *http.Request) {
	var clientPtr *string
	if clientID := strings.TrimSpace(r.URL.Query().Get("client_id")); clientID != "" {
		if !uuidRegex.MatchString(clientID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client_id"})
			return
		}
		clientPtr = &clientID
	}

	objectives, err := h.Objectives.List(r.Context(), clientPtr)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ObjectivesResponse{Objectives: objectives})
}

// Create handles POST /api/objectives
func (h *ObjectiveHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeObjectiveRequest(w, r)
	if !ok {
		return
	}
	if req.ClientID == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing client_id"})
		return
	}

	objective, err := h.Objectives.Create(r.Context(), store.CreateObjectiveInput{
		ClientID:     req.ClientID,
		Title:        req.Title,
		CurrentValue: req.CurrentValue,
		TargetValue:  req.TargetValue,
		IsHighImpact: req.IsHighImpact,
		TaskIDs:      req.TaskIDs,
		DueDate:      req.DueDate,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, objective)
}

// Update handles PUT /api/objectives/:id
func (h *ObjectiveHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := objectiveIDParam(w, r)
	if !ok {
		return
	}

	req, ok := decodeObjectiveRequest(w, r)
	if !ok {
		return
	}

	status := normalizeEnum(req.Status)
	if status == "" {
		status = "open"
	}
	if _, valid := allowedObjectiveStatuses[status]; !valid {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}

	objective, err := h.Objectives.Update(r.Context(), id, store.UpdateObjectiveInput{
		Title:        req.Title,
		CurrentValue: req.CurrentValue,
		TargetValue:  req.TargetValue,
		IsHighImpact: req.IsHighImpact,
		TaskIDs:      req.TaskIDs,
		Status:       status,
		DueDate:      req.DueDate,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, objective)
}

// Delete handles DELETE /api/objectives/:id
func (h *ObjectiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := objectiveIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Objectives.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func decodeObjectiveRequest(w http.ResponseWriter, r *http.Request) (ObjectiveRequest, bool) {
	var req ObjectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, false
	}

	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID != "" && !uuidRegex.MatchString(req.ClientID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client_id"})
		return req, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing title"})
		return req, false
	}

	if req.TargetValue < 0 || req.CurrentValue < 0 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "values cannot be negative"})
		return req, false
	}

	if len(req.TaskIDs) > 0 && !json.Valid(req.TaskIDs) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task_ids"})
		return req, false
	}

	return req, true
}

func objectiveIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !uuidRegex.MatchString(id) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid objective id"})
		return "", false
	}
	return id, true
}
