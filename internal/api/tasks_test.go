package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clienthub/clienthub/internal/store"
)

const testClientID = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"

func TestCreateTask_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid body", "{not json", "invalid request body"},
		{"missing client", `{"title":"X"}`, "invalid client_id"},
		{"bad client id", `{"client_id":"nope","title":"X"}`, "invalid client_id"},
		{"missing title", `{"client_id":"` + testClientID + `","title":"  "}`, "missing title"},
		{"bad status", `{"client_id":"` + testClientID + `","title":"X","status":"archived"}`, "invalid status"},
		{"bad priority", `{"client_id":"` + testClientID + `","title":"X","priority":"P0"}`, "invalid priority"},
		{"score too high", `{"client_id":"` + testClientID + `","title":"X","impact_score":101}`, "impact_score must be between 0 and 100"},
		{"score negative", `{"client_id":"` + testClientID + `","title":"X","impact_score":-1}`, "impact_score must be between 0 and 100"},
	}

	handler := &TaskHandler{}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Create(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestListTasks_RejectsBadFilters(t *testing.T) {
	handler := &TaskHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?status=archived", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks?priority=P1", nil)
	rec = httptest.NewRecorder()
	handler.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks?client=nope", nil)
	rec = httptest.NewRecorder()
	handler.List(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteTask_RejectsNegativeMinutes(t *testing.T) {
	handler := &TaskHandler{}

	req := newRouteRequest(http.MethodPost, "/api/tasks/"+testClientID+"/complete",
		strings.NewReader(`{"actual_minutes":-10}`), "id", testClientID)
	rec := httptest.NewRecorder()
	handler.Complete(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "actual_minutes cannot be negative")
}

func TestApplyTaskPatch(t *testing.T) {
	existing := store.UpdateTaskInput{
		ClientID: testClientID,
		Title:    "Original",
		Priority: "medium",
		Status:   "todo",
	}

	t.Run("partial patch keeps unset fields", func(t *testing.T) {
		input := existing
		raw := map[string]json.RawMessage{
			"title":  json.RawMessage(`"  Renamed  "`),
			"status": json.RawMessage(`"in_progress"`),
		}

		rec := httptest.NewRecorder()
		require.True(t, applyTaskPatch(rec, raw, &input))
		assert.Equal(t, "Renamed", input.Title)
		assert.Equal(t, "in_progress", input.Status)
		assert.Equal(t, "medium", input.Priority)
		assert.Equal(t, testClientID, input.ClientID)
	})

	t.Run("null clears nullable fields", func(t *testing.T) {
		minutes := 90
		input := existing
		input.EstimatedMinutes = &minutes
		raw := map[string]json.RawMessage{
			"estimated_minutes": json.RawMessage("null"),
		}

		rec := httptest.NewRecorder()
		require.True(t, applyTaskPatch(rec, raw, &input))
		assert.Nil(t, input.EstimatedMinutes)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		input := existing
		raw := map[string]json.RawMessage{"title": json.RawMessage(`"  "`)}

		rec := httptest.NewRecorder()
		assert.False(t, applyTaskPatch(rec, raw, &input))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects null status", func(t *testing.T) {
		input := existing
		raw := map[string]json.RawMessage{"status": json.RawMessage("null")}

		rec := httptest.NewRecorder()
		assert.False(t, applyTaskPatch(rec, raw, &input))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects out-of-range score", func(t *testing.T) {
		input := existing
		raw := map[string]json.RawMessage{"impact_score": json.RawMessage("150")}

		rec := httptest.NewRecorder()
		assert.False(t, applyTaskPatch(rec, raw, &input))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects negative minutes", func(t *testing.T) {
		input := existing
		raw := map[string]json.RawMessage{"actual_minutes": json.RawMessage("-5")}

		rec := httptest.NewRecorder()
		assert.False(t, applyTaskPatch(rec, raw, &input))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
