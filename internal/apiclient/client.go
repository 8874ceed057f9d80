// Package apiclient is a typed Go client for the ClientHub HTTP API.
// Reads retry transient failures; writes never do.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/clienthub/clienthub/internal/config"
	"github.com/clienthub/clienthub/internal/gamify"
	"github.com/clienthub/clienthub/internal/impact"
	"github.com/clienthub/clienthub/internal/store"
)

const maxResponseBodyBytes = 1 << 20

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Retry   config.ClientRetryConfig
}

// New builds a client for the given server. The retry config governs GET
// requests only.
func New(baseURL, token string, retry config.ClientRetryConfig) *Client {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &Client{
		BaseURL: normalizeBaseURL(baseURL),
		Token:   strings.TrimSpace(token),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Retry: retry,
	}
}

type RequestError struct {
	StatusCode int
	Detail     string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "request failed"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
}

func (e *RequestError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// HTTPStatusCode returns the HTTP status carried by typed client errors.
func HTTPStatusCode(err error) (int, bool) {
	var statusErr interface {
		HTTPStatusCode() int
	}
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	status := statusErr.HTTPStatusCode()
	if status <= 0 {
		return 0, false
	}
	return status, true
}

func (c *Client) newRequest(method, path string, body interface{}) (*http.Request, error) {
	if c.BaseURL == "" {
		return nil, errors.New("missing API base URL")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// get issues a GET with retries: network errors and 5xx answers back off
// exponentially with jitter until the attempt budget runs out. 4xx answers
// are the caller's problem and never retry.
func (c *Client) get(path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(c.backoff(attempt))
		}

		req, err := c.newRequest(http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		lastErr = c.do(req, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(path string, body, out interface{}) error {
	req, err := c.newRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) put(path string, body, out interface{}) error {
	req, err := c.newRequest(http.MethodPut, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) patch(path string, body, out interface{}) error {
	req, err := c.newRequest(http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) delete(path string) error {
	req, err := c.newRequest(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode >= 400 {
		return &RequestError{
			StatusCode: resp.StatusCode,
			Detail:     extractErrorDetail(payload),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return io.EOF
	}
	return json.Unmarshal(payload, out)
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.Retry.BaseWait
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	wait := base << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return wait + jitter
}

func isRetryable(err error) bool {
	status, ok := HTTPStatusCode(err)
	if !ok {
		// Network-level failure.
		return true
	}
	return status >= 500
}

func extractErrorDetail(payload []byte) string {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		return strings.TrimSpace(body.Error)
	}
	trimmed := strings.Join(strings.Fields(string(payload)), " ")
	if len(trimmed) > 200 {
		return trimmed[:197] + "..."
	}
	return trimmed
}

type errorBody struct {
	Error string `json:"error"`
}

func normalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

type authResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

type clientsResponse struct {
	Clients []store.Client `json:"clients"`
}

type tasksResponse struct {
	Tasks []store.Task `json:"tasks"`
}

type completeTaskResponse struct {
	Task   store.Task    `json:"task"`
	Reward gamify.Reward `json:"reward"`
}

type timerResponse struct {
	Timer          *store.Timer `json:"timer"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(email, password string) (*store.User, error) {
	var resp authResponse
	err := c.post("/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp.User, nil
}

// Signup registers a new account and stores the issued token.
func (c *Client) Signup(email, password, name string) (*store.User, error) {
	var resp authResponse
	err := c.post("/api/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.Token = resp.Token
	return &resp.User, nil
}

// Me returns the authenticated user with its gamification ledger.
func (c *Client) Me() (*store.User, error) {
	var user store.User
	if err := c.get("/api/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListClients returns the user's clients, optionally filtered by status.
func (c *Client) ListClients(status string) ([]store.Client, error) {
	path := "/api/clients"
	if status != "" {
		path += "?status=" + status
	}
	var resp clientsResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

// GetClient returns one client by id.
func (c *Client) GetClient(id string) (*store.Client, error) {
	var client store.Client
	if err := c.get("/api/clients/"+id, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// ListTasks returns the user's tasks, optionally filtered by status.
func (c *Client) ListTasks(status string) ([]store.Task, error) {
	path := "/api/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var resp tasksResponse
	if err := c.get(path, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask creates a task for a client.
func (c *Client) CreateTask(clientID, title string, fields map[string]interface{}) (*store.Task, error) {
	body := map[string]interface{}{
		"client_id": clientID,
		"title":     title,
	}
	for key, value := range fields {
		body[key] = value
	}

	var task store.Task
	if err := c.post("/api/tasks", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask patches the given fields on a task.
func (c *Client) UpdateTask(id string, fields map[string]interface{}) (*store.Task, error) {
	var task store.Task
	if err := c.patch("/api/tasks/"+id, fields, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task done and returns it with the earned reward.
func (c *Client) CompleteTask(id string, actualMinutes *int) (*store.Task, *gamify.Reward, error) {
	body := map[string]interface{}{}
	if actualMinutes != nil {
		body["actual_minutes"] = *actualMinutes
	}

	var resp completeTaskResponse
	if err := c.post("/api/tasks/"+id+"/complete", body, &resp); err != nil {
		return nil, nil, err
	}
	return &resp.Task, &resp.Reward, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(id string) error {
	return c.delete("/api/tasks/" + id)
}

// StartTimer opens a timer against a task or a client.
func (c *Client) StartTimer(taskID, clientID *string) (*store.Timer, error) {
	body := map[string]interface{}{}
	if taskID != nil {
		body["task_id"] = *taskID
	}
	if clientID != nil {
		body["client_id"] = *clientID
	}

	var resp timerResponse
	if err := c.post("/api/timers/start", body, &resp); err != nil {
		return nil, err
	}
	return resp.Timer, nil
}

// StopTimer finishes a timer and returns its final duration.
func (c *Client) StopTimer(id string) (*store.Timer, error) {
	var resp timerResponse
	if err := c.post("/api/timers/"+id+"/stop", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Timer, nil
}

// ActiveTimer returns the running timer, or nil when none is running.
func (c *Client) ActiveTimer() (*store.Timer, int64, error) {
	var resp timerResponse
	if err := c.get("/api/timers/active", &resp); err != nil {
		return nil, 0, err
	}
	return resp.Timer, resp.ElapsedSeconds, nil
}

// GetProfitability reads a client's profitability record.
func (c *Client) GetProfitability(clientID string) (*store.Profitability, error) {
	var record store.Profitability
	if err := c.get("/api/clients/"+clientID+"/profitability", &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SetProfitability writes a client's profitability inputs.
func (c *Client) SetProfitability(clientID string, hourlyRate, targetHours, spentHours float64) (*store.Profitability, error) {
	var record store.Profitability
	err := c.put("/api/clients/"+clientID+"/profitability", map[string]float64{
		"hourly_rate":  hourlyRate,
		"target_hours": targetHours,
		"spent_hours":  spentHours,
	}, &record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ImpactAnalysis runs the 80/20 analysis server-side.
func (c *Client) ImpactAnalysis() (*impact.Analysis, error) {
	var analysis impact.Analysis
	if err := c.get("/api/impact/analysis", &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}
