package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClientMetrics is the aggregate task-counter block on a client. It is
// written only by task mutations, never recomputed lazily at read time.
type ClientMetrics struct {
	TasksCompleted  int        `json:"tasks_completed"`
	TasksInProgress int        `json:"tasks_in_progress"`
	TasksPending    int        `json:"tasks_pending"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}

// Client represents a client entity.
type Client struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Company   *string         `json:"company,omitempty"`
	Email     *string         `json:"email,omitempty"`
	Phone     *string         `json:"phone,omitempty"`
	Status    string          `json:"status"`
	Tags      json.RawMessage `json:"tags"`
	Notes     *string         `json:"notes,omitempty"`
	Metrics   ClientMetrics   `json:"metrics"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ClientStore provides user-isolated access to clients.
type ClientStore struct {
	db *sql.DB
}

// NewClientStore creates a new ClientStore with the given database connection.
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

const clientSelectColumns = "id, user_id, name, company, email, phone, status, tags, notes, tasks_completed, tasks_in_progress, tasks_pending, last_activity, created_at, updated_at"

// ClientFilter defines filtering options for listing clients.
type ClientFilter struct {
	Status string
}

// GetByID retrieves a client by ID within the current user's scope.
func (s *ClientStore) GetByID(ctx context.Context, id string) (*Client, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + clientSelectColumns + " FROM clients WHERE id = $1"
	client, err := scanClient(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	// Defense in depth: ownership check at app layer
	if client.UserID != userID {
		return nil, ErrForbidden
	}

	return &client, nil
}

// List retrieves all clients owned by the current user matching the filter.
func (s *ClientStore) List(ctx context.Context, filter ClientFilter) ([]Client, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query, args := buildClientListQuery(userID, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading clients: %w", err)
	}

	return clients, nil
}

// CreateClientInput defines the input for creating a new client.
type CreateClientInput struct {
	Name    string
	Company *string
	Email   *string
	Phone   *string
	Status  string
	Tags    json.RawMessage
	Notes   *string
}

// Create creates a new client owned by the current user.
func (s *ClientStore) Create(ctx context.Context, input CreateClientInput) (*Client, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := `INSERT INTO clients (user_id, name, company, email, phone, status, tags, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + clientSelectColumns

	args := []interface{}{
		userID,
		strings.TrimSpace(input.Name),
		nullableString(input.Company),
		nullableString(input.Email),
		nullableString(input.Phone),
		input.Status,
		normalizeTags(input.Tags),
		nullableString(input.Notes),
	}

	client, err := scanClient(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &client, nil
}

// UpdateClientInput defines the input for updating a client.
type UpdateClientInput struct {
	Name    string
	Company *string
	Email   *string
	Phone   *string
	Status  string
	Tags    json.RawMessage
	Notes   *string
}

// Update updates a client owned by the current user. The metrics block is
// not touched here; only task mutations move the counters.
func (s *ClientStore) Update(ctx context.Context, id string, input UpdateClientInput) (*Client, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE clients SET
		name = $1, company = $2, email = $3, phone = $4,
		status = $5, tags = $6, notes = $7, updated_at = NOW()
	WHERE id = $8 AND user_id = $9
	RETURNING ` + clientSelectColumns

	args := []interface{}{
		strings.TrimSpace(input.Name),
		nullableString(input.Company),
		nullableString(input.Email),
		nullableString(input.Phone),
		input.Status,
		normalizeTags(input.Tags),
		nullableString(input.Notes),
		id,
		userID,
	}

	client, err := scanClient(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	return &client, nil
}

// Delete deletes a client owned by the current user. Associated tasks go
// with it via ON DELETE CASCADE.
func (s *ClientStore) Delete(ctx context.Context, id string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM clients WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func buildClientListQuery(userID string, filter ClientFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + clientSelectColumns + " FROM clients WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY created_at DESC"

	return query, args
}

func scanClient(scanner interface{ Scan(...any) error }) (Client, error) {
	var client Client
	var company sql.NullString
	var email sql.NullString
	var phone sql.NullString
	var notes sql.NullString
	var lastActivity sql.NullTime
	var tagsBytes []byte

	err := scanner.Scan(
		&client.ID,
		&client.UserID,
		&client.Name,
		&company,
		&email,
		&phone,
		&client.Status,
		&tagsBytes,
		&notes,
		&client.Metrics.TasksCompleted,
		&client.Metrics.TasksInProgress,
		&client.Metrics.TasksPending,
		&lastActivity,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		return client, err
	}

	if company.Valid {
		client.Company = &company.String
	}
	if email.Valid {
		client.Email = &email.String
	}
	if phone.Valid {
		client.Phone = &phone.String
	}
	if notes.Valid {
		client.Notes = &notes.String
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		client.Metrics.LastActivity = &t
	}

	if len(tagsBytes) == 0 {
		client.Tags = json.RawMessage("[]")
	} else {
		client.Tags = json.RawMessage(tagsBytes)
	}

	return client, nil
}

func normalizeTags(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}
