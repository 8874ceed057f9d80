package api

import (
	"net/http"

	"github.com/clienthub/clienthub/internal/store"
)

// ReferenceHandler serves the seeded badge and level tables.
type ReferenceHandler struct {
	Reference *store.ReferenceStore
}

type BadgesResponse struct {
	Badges []store.Badge `json:"badges"`
}

type LevelsResponse struct {
	Levels []store.Level `json:"levels"`
}

// ListBadges handles GET /api/badges
func (h *ReferenceHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.Reference.ListBadges(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, BadgesResponse{Badges: badges})
}

// ListLevels handles GET /api/levels
func (h *ReferenceHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.Reference.ListLevels(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, LevelsResponse{Levels: levels})
}
