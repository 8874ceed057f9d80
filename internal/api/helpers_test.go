package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clienthub/clienthub/internal/store"
)

// newRouteRequest builds a request carrying a chi URL parameter, for
// handlers invoked outside a router.
func newRouteRequest(method, target string, body io.Reader, paramKey, paramValue string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(paramKey, paramValue)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestWriteStoreError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"no user", store.ErrNoUser, http.StatusUnauthorized},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"forbidden reads as absence", store.ErrForbidden, http.StatusNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"timer not running", store.ErrTimerNotRunning, http.StatusConflict},
		{"timer paused", store.ErrTimerPaused, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeStoreError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestParseOptionalStringField(t *testing.T) {
	raw := map[string]json.RawMessage{
		"present": json.RawMessage(`"value"`),
		"null":    json.RawMessage("null"),
		"bad":     json.RawMessage("42"),
	}

	value, set, err := parseOptionalStringField(raw, "present")
	require.NoError(t, err)
	assert.True(t, set)
	require.NotNil(t, value)
	assert.Equal(t, "value", *value)

	value, set, err = parseOptionalStringField(raw, "null")
	require.NoError(t, err)
	assert.True(t, set)
	assert.Nil(t, value)

	_, set, err = parseOptionalStringField(raw, "bad")
	assert.True(t, set)
	assert.Error(t, err)

	_, set, err = parseOptionalStringField(raw, "absent")
	require.NoError(t, err)
	assert.False(t, set)
}

func TestValidateOptionalUUID(t *testing.T) {
	valid := "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
	require.NoError(t, validateOptionalUUID(&valid, "client_id"))

	padded := "  a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11  "
	require.NoError(t, validateOptionalUUID(&padded, "client_id"))
	assert.Equal(t, valid, padded)

	bad := "not-a-uuid"
	assert.Error(t, validateOptionalUUID(&bad, "client_id"))

	empty := " "
	assert.Error(t, validateOptionalUUID(&empty, "client_id"))

	assert.NoError(t, validateOptionalUUID(nil, "client_id"))
}

func TestParsePositiveInt(t *testing.T) {
	value, err := parsePositiveInt("25")
	require.NoError(t, err)
	assert.Equal(t, 25, value)

	_, err = parsePositiveInt("0")
	assert.Error(t, err)

	_, err = parsePositiveInt("abc")
	assert.Error(t, err)
}
