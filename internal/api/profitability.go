package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clienthub/clienthub/internal/profit"
	"github.com/clienthub/clienthub/internal/store"
)

// ProfitabilityHandler manages per-client profitability endpoints.
type ProfitabilityHandler struct {
	Profitability *store.ProfitabilityStore
}

type ProfitabilityRequest struct {
	HourlyRate  float64 `json:"hourly_rate"`
	TargetHours float64 `json:"target_hours"`
	SpentHours  float64 `json:"spent_hours"`
}

// Upsert handles PUT /api/clients/:id/profitability
func (h *ProfitabilityHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	clientID, ok := profitabilityClientParam(w, r)
	if !ok {
		return
	}

	var req ProfitabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	record, err := h.Profitability.Upsert(r.Context(), clientID, req.HourlyRate, req.TargetHours, req.SpentHours)
	if err != nil {
		if errors.Is(err, profit.ErrInvalidHourlyRate) || errors.Is(err, profit.ErrNegativeHours) {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, record)
}

// Get handles GET /api/clients/:id/profitability
func (h *ProfitabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	clientID, ok := profitabilityClientParam(w, r)
	if !ok {
		return
	}

	record, err := h.Profitability.GetByClient(r.Context(), clientID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, record)
}

func profitabilityClientParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !uuidRegex.MatchString(id) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client id"})
		return "", false
	}
	return id, true
}
