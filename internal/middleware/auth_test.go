package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"

func TestIssueAndVerifyToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	token, err := auth.IssueToken(testUserID, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, userID)
}

func TestVerifyToken_RejectsWrongSecret(t *testing.T) {
	token, err := NewAuthenticator("secret-a").IssueToken(testUserID, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthenticator("secret-b").VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_RejectsExpired(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	token, err := auth.IssueToken(testUserID, -time.Minute)
	require.NoError(t, err)

	_, err = auth.VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyToken_RejectsGarbage(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	_, err := auth.VerifyToken("not-a-token")
	assert.Error(t, err)
}

func TestRequireUser_SetsContext(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.IssueToken(testUserID, time.Hour)
	require.NoError(t, err)

	var gotUserID string
	handler := auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, gotUserID)
}

func TestRequireUser_MissingToken(t *testing.T) {
	auth := NewAuthenticator("test-secret")

	called := false
	handler := auth.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestUserFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", UserFromContext(req.Context()))
}
