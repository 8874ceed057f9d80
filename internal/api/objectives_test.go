package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectiveHandler_CreateValidation(t *testing.T) {
	handler := &ObjectiveHandler{}

	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid body", "{oops", "invalid request body"},
		{"missing title", `{"client_id":"` + testClientID + `"}`, "missing title"},
		{"missing client", `{"title":"Reach 10k"}`, "missing client_id"},
		{"negative target", `{"client_id":"` + testClientID + `","title":"Reach 10k","target_value":-1}`, "values cannot be negative"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/objectives", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestObjectiveHandler_ListRejectsBadClientID(t *testing.T) {
	handler := &ObjectiveHandler{}

	req := httptest.NewRequest(http.MethodGet, "/api/objectives?client_id=nope", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid client_id")
}
