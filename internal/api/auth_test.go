package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clienthub/clienthub/internal/middleware"
)

func newTestAuthHandler() *AuthHandler {
	return &AuthHandler{
		Auth: middleware.NewAuthenticator("test-secret"),
	}
}

func TestSignup_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid body", "{not json", "invalid request body"},
		{"bad email", `{"email":"nope","password":"longenough","name":"A"}`, "invalid email"},
		{"short password", `{"email":"a@b.co","password":"short","name":"A"}`, "password must be at least 8 characters"},
		{"missing name", `{"email":"a@b.co","password":"longenough","name":"  "}`, "missing name"},
	}

	handler := newTestAuthHandler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Signup(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestLogin_Validation(t *testing.T) {
	handler := newTestAuthHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"","password":""}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing email or password")
}
