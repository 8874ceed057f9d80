package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clienthub/clienthub/internal/middleware"
	"github.com/clienthub/clienthub/internal/store"
	"github.com/clienthub/clienthub/internal/ws"
)

// TimerHandler manages time-tracking endpoints.
type TimerHandler struct {
	Timers        *store.TimerStore
	Profitability *store.ProfitabilityStore
	Hub           *ws.Hub
	Logger        *zap.Logger
}

type StartTimerRequest struct {
	TaskID   *string `json:"task_id,omitempty"`
	ClientID *string `json:"client_id,omitempty"`
}

// TimerResponse wraps a timer with its elapsed time as of the request.
type TimerResponse struct {
	Timer          *store.Timer `json:"timer"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
}

type TimersResponse struct {
	Timers []store.Timer `json:"timers"`
}

// Start handles POST /api/timers/start
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if (req.TaskID == nil) == (req.ClientID == nil) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "exactly one of task_id or client_id is required"})
		return
	}
	if err := validateOptionalUUID(req.TaskID, "task_id"); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := validateOptionalUUID(req.ClientID, "client_id"); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	timer, err := h.Timers.Start(r.Context(), req.TaskID, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			sendJSON(w, http.StatusConflict, errorResponse{Error: "a timer is already running"})
			return
		}
		writeStoreError(w, err)
		return
	}

	h.publish(r, ws.MessageTimerStarted, timer)
	sendJSON(w, http.StatusCreated, timerResponse(timer))
}

// Pause handles POST /api/timers/:id/pause
func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id, ok := timerIDParam(w, r)
	if !ok {
		return
	}

	timer, err := h.Timers.Pause(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, timerResponse(timer))
}

// Resume handles POST /api/timers/:id/resume
func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id, ok := timerIDParam(w, r)
	if !ok {
		return
	}

	timer, err := h.Timers.Resume(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, timerResponse(timer))
}

// Stop handles POST /api/timers/:id/stop. When the timer ran against a
// client with a profitability record, the billed hours accumulate onto it.
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id, ok := timerIDParam(w, r)
	if !ok {
		return
	}

	timer, err := h.Timers.Stop(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.accumulateSpentHours(r, timer)
	h.publish(r, ws.MessageTimerStopped, timer)
	sendJSON(w, http.StatusOK, timerResponse(timer))
}

// Active handles GET /api/timers/active
func (h *TimerHandler) Active(w http.ResponseWriter, r *http.Request) {
	timer, err := h.Timers.Active(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendJSON(w, http.StatusOK, map[string]any{"timer": nil})
			return
		}
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, timerResponse(timer))
}

// List handles GET /api/timers
func (h *TimerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	timers, err := h.Timers.List(r.Context(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, TimersResponse{Timers: timers})
}

// accumulateSpentHours folds a stopped timer's duration into the client's
// profitability record. Missing records are fine; other failures are logged
// and do not fail the stop, the timer row is already committed.
func (h *TimerHandler) accumulateSpentHours(r *http.Request, timer *store.Timer) {
	if timer.ClientID == nil || timer.DurationSeconds == 0 {
		return
	}

	hours := float64(timer.DurationSeconds) / 3600
	_, err := h.Profitability.AddSpentHours(r.Context(), *timer.ClientID, hours)
	if err != nil && !errors.Is(err, store.ErrNotFound) && h.Logger != nil {
		h.Logger.Warn("failed to accumulate timer hours",
			zap.String("timer_id", timer.ID),
			zap.String("client_id", *timer.ClientID),
			zap.Error(err))
	}
}

func (h *TimerHandler) publish(r *http.Request, messageType ws.MessageType, data any) {
	if h.Hub == nil {
		return
	}
	if userID := middleware.UserFromContext(r.Context()); userID != "" {
		h.Hub.Publish(userID, messageType, data)
	}
}

func timerResponse(timer *store.Timer) TimerResponse {
	return TimerResponse{
		Timer:          timer,
		ElapsedSeconds: timer.ElapsedSeconds(time.Now().UTC()),
	}
}

func timerIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !uuidRegex.MatchString(id) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid timer id"})
		return "", false
	}
	return id, true
}
