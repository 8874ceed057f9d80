package apiclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clienthub/clienthub/internal/config"
)

func testRetryConfig() config.ClientRetryConfig {
	return config.ClientRetryConfig{
		MaxAttempts: 3,
		BaseWait:    time.Millisecond,
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tasks":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "token", testRetryConfig())
	tasks, err := client.ListTasks("")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetStopsAfterMaxAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(server.URL, "token", testRetryConfig())
	_, err := client.ListTasks("")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	status, ok := HTTPStatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, status)
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	client := New(server.URL, "token", testRetryConfig())
	_, err := client.GetClient("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Contains(t, err.Error(), "not found")
}

func TestWritesNeverRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "token", testRetryConfig())
	_, err := client.CreateTask("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11", "Task", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRequestsCarryBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"clients":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "secret-token", testRetryConfig())
	_, err := client.ListClients("active")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
}

func TestLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"issued-token","user":{"id":"u1","email":"a@b.co"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "", testRetryConfig())
	user, err := client.Login("a@b.co", "password123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", user.Email)
	assert.Equal(t, "issued-token", client.Token)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:4400", normalizeBaseURL(" http://localhost:4400/ "))
	assert.Equal(t, "", normalizeBaseURL("  "))
}
