package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartTimer_RequiresExactlyOneContext(t *testing.T) {
	handler := &TimerHandler{}

	cases := []struct {
		name string
		body string
	}{
		{"neither", `{}`},
		{"both", `{"task_id":"` + testClientID + `","client_id":"` + testClientID + `"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/timers/start", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Start(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "exactly one of task_id or client_id")
		})
	}
}

func TestStartTimer_RejectsBadIDs(t *testing.T) {
	handler := &TimerHandler{}

	req := httptest.NewRequest(http.MethodPost, "/api/timers/start", strings.NewReader(`{"task_id":"nope"}`))
	rec := httptest.NewRecorder()
	handler.Start(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid task_id")
}

func TestTimerIDParam_RejectsBadID(t *testing.T) {
	handler := &TimerHandler{}

	req := newRouteRequest(http.MethodPost, "/api/timers/nope/pause", nil, "id", "nope")
	rec := httptest.NewRecorder()
	handler.Pause(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid timer id")
}

func TestListTimers_RejectsBadLimit(t *testing.T) {
	handler := &TimerHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/timers?limit=abc", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid limit")
}
