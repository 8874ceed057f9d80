package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clienthub/clienthub/internal/store"
)

func TestImpactHandler_ApplyValidation(t *testing.T) {
	handler := &ImpactHandler{}

	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid body", "{nope", "invalid request body"},
		{"empty updates", `{"updates":[]}`, "missing updates"},
		{"no updates key", `{}`, "missing updates"},
		{"bad task id", `{"updates":[{"task_id":"not-a-uuid","impact_score":50}]}`, "invalid task_id"},
		{"score too high", `{"updates":[{"task_id":"` + testClientID + `","impact_score":150}]}`, "impact_score must be between 0 and 100"},
		{"score negative", `{"updates":[{"task_id":"` + testClientID + `","impact_score":-5}]}`, "impact_score must be between 0 and 100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/impact/apply", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.Apply(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestApplyErrorDetail(t *testing.T) {
	assert.Equal(t, "task not found", applyErrorDetail(store.ErrNotFound))
	assert.Equal(t, "task not found", applyErrorDetail(store.ErrForbidden))
	assert.Equal(t, "update failed", applyErrorDetail(assert.AnError))
}
