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

// Objective is a client-scoped target with a derived progress percentage.
type Objective struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	ClientID     string          `json:"client_id"`
	Title        string          `json:"title"`
	CurrentValue float64         `json:"current_value"`
	TargetValue  float64         `json:"target_value"`
	Progress     float64         `json:"progress"`
	IsHighImpact bool            `json:"is_high_impact"`
	TaskIDs      json.RawMessage `json:"task_ids"`
	Status       string          `json:"status"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ObjectiveStore provides user-isolated access to objectives.
type ObjectiveStore struct {
	db *sql.DB
}

// NewObjectiveStore creates a new ObjectiveStore with the given database
// connection.
func NewObjectiveStore(db *sql.DB) *ObjectiveStore {
	return &ObjectiveStore{db: db}
}

const objectiveSelectColumns = "id, user_id, client_id, title, current_value, target_value, progress, is_high_impact, task_ids, status, due_date, created_at, updated_at"

// objectiveProgress clamps 100*current/target to [0,100]. A zero target
// reads as zero progress, mirroring the profitability neutral rule.
func objectiveProgress(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	progress := 100 * current / target
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// CreateObjectiveInput defines the input for creating a new objective.
type CreateObjectiveInput struct {
	ClientID     string
	Title        string
	CurrentValue float64
	TargetValue  float64
	IsHighImpact bool
	TaskIDs      json.RawMessage
	DueDate      *time.Time
}

// Create creates a new objective for the current user.
func (s *ObjectiveStore) Create(ctx context.Context, input CreateObjectiveInput) (*Objective, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	var ownerCheck string
	err = s.db.QueryRowContext(ctx, "SELECT id FROM clients WHERE id = $1 AND user_id = $2", input.ClientID, userID).Scan(&ownerCheck)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to verify client: %w", err)
	}

	query := `INSERT INTO objectives (
		user_id, client_id, title, current_value, target_value, progress,
		is_high_impact, task_ids, due_date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING ` + objectiveSelectColumns

	args := []interface{}{
		userID,
		input.ClientID,
		strings.TrimSpace(input.Title),
		input.CurrentValue,
		input.TargetValue,
		objectiveProgress(input.CurrentValue, input.TargetValue),
		input.IsHighImpact,
		normalizeTags(input.TaskIDs),
		input.DueDate,
	}

	objective, err := scanObjective(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create objective: %w", err)
	}

	return &objective, nil
}

// UpdateObjectiveInput defines the input for updating an objective.
type UpdateObjectiveInput struct {
	Title        string
	CurrentValue float64
	TargetValue  float64
	IsHighImpact bool
	TaskIDs      json.RawMessage
	Status       string
	DueDate      *time.Time
}

// Update rewrites an objective and recomputes its progress.
func (s *ObjectiveStore) Update(ctx context.Context, id string, input UpdateObjectiveInput) (*Objective, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE objectives SET
		title = $1, current_value = $2, target_value = $3, progress = $4,
		is_high_impact = $5, task_ids = $6, status = $7, due_date = $8, updated_at = NOW()
	WHERE id = $9 AND user_id = $10
	RETURNING ` + objectiveSelectColumns

	args := []interface{}{
		strings.TrimSpace(input.Title),
		input.CurrentValue,
		input.TargetValue,
		objectiveProgress(input.CurrentValue, input.TargetValue),
		input.IsHighImpact,
		normalizeTags(input.TaskIDs),
		input.Status,
		input.DueDate,
		id,
		userID,
	}

	objective, err := scanObjective(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update objective: %w", err)
	}

	return &objective, nil
}

// List retrieves the user's objectives, optionally scoped to one client.
func (s *ObjectiveStore) List(ctx context.Context, clientID *string) ([]Objective, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + objectiveSelectColumns + " FROM objectives WHERE user_id = $1"
	args := []interface{}{userID}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list objectives: %w", err)
	}
	defer rows.Close()

	objectives := make([]Objective, 0)
	for rows.Next() {
		objective, err := scanObjective(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan objective: %w", err)
		}
		objectives = append(objectives, objective)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading objectives: %w", err)
	}

	return objectives, nil
}

// Delete removes an objective owned by the current user.
func (s *ObjectiveStore) Delete(ctx context.Context, id string) error {
	userID, err := requireUser(ctx)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM objectives WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete objective: %w", err)
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

func scanObjective(scanner interface{ Scan(...any) error }) (Objective, error) {
	var objective Objective
	var taskIDsBytes []byte
	var dueDate sql.NullTime

	err := scanner.Scan(
		&objective.ID,
		&objective.UserID,
		&objective.ClientID,
		&objective.Title,
		&objective.CurrentValue,
		&objective.TargetValue,
		&objective.Progress,
		&objective.IsHighImpact,
		&taskIDsBytes,
		&objective.Status,
		&dueDate,
		&objective.CreatedAt,
		&objective.UpdatedAt,
	)
	if err != nil {
		return objective, err
	}

	if dueDate.Valid {
		t := dueDate.Time
		objective.DueDate = &t
	}

	if len(taskIDsBytes) == 0 {
		objective.TaskIDs = json.RawMessage("[]")
	} else {
		objective.TaskIDs = json.RawMessage(taskIDsBytes)
	}

	return objective, nil
}
