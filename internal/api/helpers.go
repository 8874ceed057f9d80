package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/clienthub/clienthub/internal/store"
)

var uuidRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

type errorResponse struct {
	Error string `json:"error"`
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeStoreError maps store sentinel errors onto HTTP statuses. Ownership
// misses read as absence so resource IDs don't leak across users.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNoUser):
		sendJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid token"})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrForbidden):
		sendJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrConflict):
		sendJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	case errors.Is(err, store.ErrTimerNotRunning),
		errors.Is(err, store.ErrTimerNotPaused),
		errors.Is(err, store.ErrTimerPaused):
		sendJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func validateOptionalUUID(value *string, field string) error {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if !uuidRegex.MatchString(trimmed) {
		return fmt.Errorf("invalid %s", field)
	}
	*value = trimmed
	return nil
}

func parsePositiveInt(raw string) (int, error) {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseOptionalStringField(raw map[string]json.RawMessage, key string) (*string, bool, error) {
	value, ok := raw[key]
	if !ok {
		return nil, false, nil
	}
	if len(value) == 0 || string(value) == "null" {
		return nil, true, nil
	}
	var parsed string
	if err := json.Unmarshal(value, &parsed); err != nil {
		return nil, true, err
	}
	return &parsed, true, nil
}
