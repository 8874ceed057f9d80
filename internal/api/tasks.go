package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clienthub/clienthub/internal/gamify"
	"github.com/clienthub/clienthub/internal/middleware"
	"github.com/clienthub/clienthub/internal/store"
	"github.com/clienthub/clienthub/internal/ws"
)

var allowedTaskStatuses = map[string]struct{}{
	"todo":        {},
	"in_progress": {},
	"done":        {},
}

var allowedTaskPriorities = map[string]struct{}{
	"low":    {},
	"medium": {},
	"high":   {},
	"urgent": {},
}

// TaskHandler manages task endpoints.
type TaskHandler struct {
	Tasks *store.TaskStore
	Hub   *ws.Hub
}

type TasksResponse struct {
	Tasks []store.Task `json:"tasks"`
}

type CreateTaskRequest struct {
	ClientID         string     `json:"client_id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description,omitempty"`
	Priority         string     `json:"priority,omitempty"`
	Status           string     `json:"status,omitempty"`
	Category         *string    `json:"category,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	ImpactScore      *float64   `json:"impact_score,omitempty"`
	IsHighImpact     bool       `json:"is_high_impact,omitempty"`
}

type CompleteTaskRequest struct {
	ActualMinutes *int `json:"actual_minutes,omitempty"`
}

type CompleteTaskResponse struct {
	Task   *store.Task    `json:"task"`
	Reward *gamify.Reward `json:"reward"`
}

// List handles GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status")))
	if status != "" && !isValidTaskStatus(status) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}

	priority := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("priority")))
	if priority != "" && !isValidTaskPriority(priority) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		return
	}

	clientID := firstNonEmpty(
		strings.TrimSpace(r.URL.Query().Get("client")),
		strings.TrimSpace(r.URL.Query().Get("client_id")),
	)
	var clientPtr *string
	if clientID != "" {
		if !uuidRegex.MatchString(clientID) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client"})
			return
		}
		clientPtr = &clientID
	}

	tasks, err := h.Tasks.List(r.Context(), store.TaskFilter{
		Status:   status,
		ClientID: clientPtr,
		Priority: priority,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, TasksResponse{Tasks: tasks})
}

// Get handles GET /api/tasks/:id
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.Tasks.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, task)
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	clientID := strings.TrimSpace(req.ClientID)
	if !uuidRegex.MatchString(clientID) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client_id"})
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing title"})
		return
	}

	status := normalizeEnum(req.Status)
	if status == "" {
		status = "todo"
	}
	if !isValidTaskStatus(status) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}

	priority := normalizeEnum(req.Priority)
	if priority == "" {
		priority = "medium"
	}
	if !isValidTaskPriority(priority) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		return
	}

	impactScore := 0.0
	if req.ImpactScore != nil {
		impactScore = *req.ImpactScore
	}
	if impactScore < 0 || impactScore > 100 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "impact_score must be between 0 and 100"})
		return
	}

	task, err := h.Tasks.Create(r.Context(), store.CreateTaskInput{
		ClientID:         clientID,
		Title:            title,
		Description:      req.Description,
		Priority:         priority,
		Status:           status,
		Category:         req.Category,
		DueDate:          req.DueDate,
		EstimatedMinutes: req.EstimatedMinutes,
		ImpactScore:      impactScore,
		IsHighImpact:     req.IsHighImpact,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r, ws.MessageTaskCreated, task)
	sendJSON(w, http.StatusCreated, task)
}

// Update handles PATCH /api/tasks/:id
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	existing, err := h.Tasks.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	input := store.UpdateTaskInput{
		ClientID:         existing.ClientID,
		Title:            existing.Title,
		Description:      existing.Description,
		Priority:         existing.Priority,
		Status:           existing.Status,
		Category:         existing.Category,
		DueDate:          existing.DueDate,
		EstimatedMinutes: existing.EstimatedMinutes,
		ActualMinutes:    existing.ActualMinutes,
		ImpactScore:      existing.ImpactScore,
		IsHighImpact:     existing.IsHighImpact,
	}

	if !applyTaskPatch(w, raw, &input) {
		return
	}

	task, err := h.Tasks.Update(r.Context(), id, input)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r, ws.MessageTaskUpdated, task)
	sendJSON(w, http.StatusOK, task)
}

// Complete handles POST /api/tasks/:id/complete
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var req CompleteTaskRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}
	if req.ActualMinutes != nil && *req.ActualMinutes < 0 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "actual_minutes cannot be negative"})
		return
	}

	task, reward, err := h.Tasks.Complete(r.Context(), id, req.ActualMinutes)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.publish(r, ws.MessageTaskCompleted, task)
	if reward.LevelUp {
		h.publish(r, ws.MessageLevelUp, reward)
	}

	sendJSON(w, http.StatusOK, CompleteTaskResponse{Task: task, Reward: reward})
}

// Delete handles DELETE /api/tasks/:id
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *TaskHandler) publish(r *http.Request, messageType ws.MessageType, data any) {
	if h.Hub == nil {
		return
	}
	if userID := middleware.UserFromContext(r.Context()); userID != "" {
		h.Hub.Publish(userID, messageType, data)
	}
}

func applyTaskPatch(w http.ResponseWriter, raw map[string]json.RawMessage, input *store.UpdateTaskInput) bool {
	clientID, clientSet, err := parseOptionalStringField(raw, "client_id")
	if err != nil || (clientSet && clientID == nil) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client_id"})
		return false
	}
	if clientSet {
		if err := validateOptionalUUID(clientID, "client_id"); err != nil {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return false
		}
		input.ClientID = *clientID
	}

	title, titleSet, err := parseOptionalStringField(raw, "title")
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid title"})
		return false
	}
	if titleSet {
		if title == nil || strings.TrimSpace(*title) == "" {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "title cannot be empty"})
			return false
		}
		input.Title = strings.TrimSpace(*title)
	}

	description, descriptionSet, err := parseOptionalStringField(raw, "description")
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid description"})
		return false
	}
	if descriptionSet {
		input.Description = description
	}

	status, statusSet, err := parseOptionalStringField(raw, "status")
	if err != nil || (statusSet && status == nil) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return false
	}
	if statusSet {
		normalized := normalizeEnum(*status)
		if !isValidTaskStatus(normalized) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
			return false
		}
		input.Status = normalized
	}

	priority, prioritySet, err := parseOptionalStringField(raw, "priority")
	if err != nil || (prioritySet && priority == nil) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		return false
	}
	if prioritySet {
		normalized := normalizeEnum(*priority)
		if !isValidTaskPriority(normalized) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid priority"})
			return false
		}
		input.Priority = normalized
	}

	category, categorySet, err := parseOptionalStringField(raw, "category")
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category"})
		return false
	}
	if categorySet {
		input.Category = category
	}

	if value, ok := raw["due_date"]; ok {
		if string(value) == "null" {
			input.DueDate = nil
		} else {
			var dueDate time.Time
			if err := json.Unmarshal(value, &dueDate); err != nil {
				sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid due_date"})
				return false
			}
			input.DueDate = &dueDate
		}
	}

	if !applyOptionalIntPatch(w, raw, "estimated_minutes", &input.EstimatedMinutes) {
		return false
	}
	if !applyOptionalIntPatch(w, raw, "actual_minutes", &input.ActualMinutes) {
		return false
	}

	if value, ok := raw["impact_score"]; ok {
		var score float64
		if err := json.Unmarshal(value, &score); err != nil || score < 0 || score > 100 {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "impact_score must be between 0 and 100"})
			return false
		}
		input.ImpactScore = score
	}

	if value, ok := raw["is_high_impact"]; ok {
		var flag bool
		if err := json.Unmarshal(value, &flag); err != nil {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid is_high_impact"})
			return false
		}
		input.IsHighImpact = flag
	}

	return true
}

func applyOptionalIntPatch(w http.ResponseWriter, raw map[string]json.RawMessage, key string, target **int) bool {
	value, ok := raw[key]
	if !ok {
		return true
	}
	if string(value) == "null" {
		*target = nil
		return true
	}
	var parsed int
	if err := json.Unmarshal(value, &parsed); err != nil || parsed < 0 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + key})
		return false
	}
	*target = &parsed
	return true
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !uuidRegex.MatchString(id) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid task id"})
		return "", false
	}
	return id, true
}

func normalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isValidTaskStatus(status string) bool {
	_, ok := allowedTaskStatuses[status]
	return ok
}

func isValidTaskPriority(priority string) bool {
	_, ok := allowedTaskPriorities[priority]
	return ok
}
