package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clienthub/clienthub/internal/gamify"
)

// Task represents a task entity.
type Task struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	ClientID         string     `json:"client_id"`
	Title            string     `json:"title"`
	Description      *string    `json:"description,omitempty"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	Category         *string    `json:"category,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	EstimatedMinutes *int       `json:"estimated_minutes,omitempty"`
	ActualMinutes    *int       `json:"actual_minutes,omitempty"`
	ImpactScore      float64    `json:"impact_score"`
	IsHighImpact     bool       `json:"is_high_impact"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TaskStore keeps tasks and the owning client's counters consistent.
// Every mutation that touches more than one row runs in one transaction.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a new TaskStore with the given database connection.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskSelectColumns = "id, user_id, client_id, title, description, priority, status, category, due_date, estimated_minutes, actual_minutes, impact_score, is_high_impact, completed_at, created_at, updated_at"

// TaskFilter defines filtering options for listing tasks.
type TaskFilter struct {
	Status   string
	ClientID *string
	Priority string
}

// statusCounterColumn maps a task status to the client counter it feeds.
func statusCounterColumn(status string) (string, error) {
	switch status {
	case "todo":
		return "tasks_pending", nil
	case "in_progress":
		return "tasks_in_progress", nil
	case "done":
		return "tasks_completed", nil
	default:
		return "", fmt.Errorf("no counter for status %q", status)
	}
}

// GetByID retrieves a task by ID within the current user's scope.
func (s *TaskStore) GetByID(ctx context.Context, id string) (*Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + taskSelectColumns + " FROM tasks WHERE id = $1"
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if task.UserID != userID {
		return nil, ErrForbidden
	}

	return &task, nil
}

// List retrieves all tasks owned by the current user matching the filter.
func (s *TaskStore) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query, args := buildTaskListQuery(userID, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading tasks: %w", err)
	}

	return tasks, nil
}

// CreateTaskInput defines the input for creating a new task.
type CreateTaskInput struct {
	ClientID         string
	Title            string
	Description      *string
	Priority         string
	Status           string
	Category         *string
	DueDate          *time.Time
	EstimatedMinutes *int
	ImpactScore      float64
	IsHighImpact     bool
}

// Create inserts a task and bumps the owning client's counter for the
// initial status, atomically. Fails with ErrNotFound if the client does
// not exist in the user's scope; nothing is written in that case.
func (s *TaskStore) Create(ctx context.Context, input CreateTaskInput) (*Task, error) {
	tx, userID, err := beginUserTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := lockClient(ctx, tx, input.ClientID, userID); err != nil {
		return nil, err
	}

	query := `INSERT INTO tasks (
		user_id, client_id, title, description, priority, status, category,
		due_date, estimated_minutes, impact_score, is_high_impact
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + taskSelectColumns

	args := []interface{}{
		userID,
		input.ClientID,
		strings.TrimSpace(input.Title),
		nullableString(input.Description),
		input.Priority,
		input.Status,
		nullableString(input.Category),
		input.DueDate,
		input.EstimatedMinutes,
		input.ImpactScore,
		input.IsHighImpact,
	}

	task, err := scanTask(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := adjustClientCounter(ctx, tx, input.ClientID, task.Status, +1); err != nil {
		return nil, err
	}

	if err := InsertActivity(ctx, tx, userID, "task_created", &task.ID, &task.ClientID, nil); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task create: %w", err)
	}

	return &task, nil
}

// UpdateTaskInput defines the input for updating a task.
type UpdateTaskInput struct {
	ClientID         string
	Title            string
	Description      *string
	Priority         string
	Status           string
	Category         *string
	DueDate          *time.Time
	EstimatedMinutes *int
	ActualMinutes    *int
	ImpactScore      float64
	IsHighImpact     bool
}

// Update rewrites a task. If the status changed, the old-status counter is
// decremented and the new-status counter incremented. If the task moved to
// another client, the counter for the task's current status moves between
// the two clients. All of it commits or rolls back together.
func (s *TaskStore) Update(ctx context.Context, id string, input UpdateTaskInput) (*Task, error) {
	tx, userID, err := beginUserTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	existing, err := lockTask(ctx, tx, id, userID)
	if err != nil {
		return nil, err
	}

	if input.ClientID != existing.ClientID {
		if err := lockClient(ctx, tx, input.ClientID, userID); err != nil {
			return nil, err
		}
		// Counter for the task's pre-update status moves with it.
		if err := adjustClientCounter(ctx, tx, existing.ClientID, existing.Status, -1); err != nil {
			return nil, err
		}
		if err := adjustClientCounter(ctx, tx, input.ClientID, existing.Status, +1); err != nil {
			return nil, err
		}
	}

	completedAt := existing.CompletedAt
	if input.Status != existing.Status {
		if err := adjustClientCounter(ctx, tx, input.ClientID, existing.Status, -1); err != nil {
			return nil, err
		}
		if err := adjustClientCounter(ctx, tx, input.ClientID, input.Status, +1); err != nil {
			return nil, err
		}
		// A plain status move to done still records when it finished;
		// only the complete path pays a reward. Reopening clears it.
		if input.Status == "done" {
			now := time.Now().UTC()
			completedAt = &now
		} else {
			completedAt = nil
		}
	}

	query := `UPDATE tasks SET
		client_id = $1, title = $2, description = $3, priority = $4, status = $5,
		category = $6, due_date = $7, estimated_minutes = $8, actual_minutes = $9,
		impact_score = $10, is_high_impact = $11, completed_at = $12, updated_at = NOW()
	WHERE id = $13 AND user_id = $14
	RETURNING ` + taskSelectColumns

	args := []interface{}{
		input.ClientID,
		strings.TrimSpace(input.Title),
		nullableString(input.Description),
		input.Priority,
		input.Status,
		nullableString(input.Category),
		input.DueDate,
		input.EstimatedMinutes,
		input.ActualMinutes,
		input.ImpactScore,
		input.IsHighImpact,
		completedAt,
		id,
		userID,
	}

	task, err := scanTask(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}

	return &task, nil
}

// Complete marks a task done: records the completion time and actual
// minutes, moves the client counters, and pays the gamification reward to
// the owning user. One transaction covers the task, client, and user rows.
func (s *TaskStore) Complete(ctx context.Context, id string, actualMinutes *int) (*Task, *gamify.Reward, error) {
	tx, userID, err := beginUserTx(ctx, s.db)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	existing, err := lockTask(ctx, tx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if existing.Status == "done" {
		return nil, nil, ErrConflict
	}

	query := `UPDATE tasks SET
		status = 'done', completed_at = NOW(), actual_minutes = COALESCE($1, actual_minutes), updated_at = NOW()
	WHERE id = $2 AND user_id = $3
	RETURNING ` + taskSelectColumns

	task, err := scanTask(tx.QueryRowContext(ctx, query, actualMinutes, id, userID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to complete task: %w", err)
	}

	if err := adjustClientCounter(ctx, tx, task.ClientID, existing.Status, -1); err != nil {
		return nil, nil, err
	}
	if err := adjustClientCounter(ctx, tx, task.ClientID, "done", +1); err != nil {
		return nil, nil, err
	}

	reward := gamify.TaskReward(task.ImpactScore)
	_, levelUp, err := AddReward(ctx, tx, userID, reward.Points, reward.Experience)
	if err != nil {
		return nil, nil, err
	}
	reward.LevelUp = levelUp

	if err := InsertActivity(ctx, tx, userID, "task_completed", &task.ID, &task.ClientID, nil); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit task completion: %w", err)
	}

	return &task, &reward, nil
}

// Delete removes a task and decrements the counter matching its status at
// the time of deletion, atomically.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	tx, userID, err := beginUserTx(ctx, s.db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, err := lockTask(ctx, tx, id, userID)
	if err != nil {
		return err
	}

	if err := adjustClientCounter(ctx, tx, existing.ClientID, existing.Status, -1); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := InsertActivity(ctx, tx, userID, "task_deleted", nil, &existing.ClientID, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task delete: %w", err)
	}

	return nil
}

// UpdateImpact writes one task's impact classification. Used by the
// impact-analysis apply flow, which is best-effort per task: each call is
// independent and a failure here never unwinds earlier applies.
func (s *TaskStore) UpdateImpact(ctx context.Context, id string, impactScore float64, isHighImpact bool) (*Task, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := `UPDATE tasks SET impact_score = $1, is_high_impact = $2, updated_at = NOW()
	WHERE id = $3 AND user_id = $4
	RETURNING ` + taskSelectColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query, impactScore, isHighImpact, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update task impact: %w", err)
	}

	return &task, nil
}

// lockTask loads a task row FOR UPDATE, enforcing ownership.
func lockTask(ctx context.Context, tx *sql.Tx, id, userID string) (Task, error) {
	query := "SELECT " + taskSelectColumns + " FROM tasks WHERE id = $1 FOR UPDATE"
	task, err := scanTask(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("failed to load task: %w", err)
	}
	if task.UserID != userID {
		return Task{}, ErrForbidden
	}
	return task, nil
}

// lockClient verifies the client exists in the user's scope and locks its
// row so counter updates serialize.
func lockClient(ctx context.Context, tx *sql.Tx, clientID, userID string) error {
	var id string
	err := tx.QueryRowContext(ctx, "SELECT id FROM clients WHERE id = $1 AND user_id = $2 FOR UPDATE", clientID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock client: %w", err)
	}
	return nil
}

// adjustClientCounter moves one client counter by delta and refreshes
// last_activity. Counters never drop below zero even if a historical row
// predates counter tracking.
func adjustClientCounter(ctx context.Context, q Querier, clientID, status string, delta int) error {
	column, err := statusCounterColumn(status)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		"UPDATE clients SET %s = GREATEST(%s + $1, 0), last_activity = NOW(), updated_at = NOW() WHERE id = $2",
		column, column,
	)
	result, err := q.ExecContext(ctx, query, delta, clientID)
	if err != nil {
		return fmt.Errorf("failed to adjust client counter: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check counter update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildTaskListQuery(userID string, filter TaskFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := "SELECT " + taskSelectColumns + " FROM tasks WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY created_at DESC"

	return query, args
}

func scanTask(scanner interface{ Scan(...any) error }) (Task, error) {
	var task Task
	var description sql.NullString
	var category sql.NullString
	var dueDate sql.NullTime
	var estimatedMinutes sql.NullInt64
	var actualMinutes sql.NullInt64
	var completedAt sql.NullTime

	err := scanner.Scan(
		&task.ID,
		&task.UserID,
		&task.ClientID,
		&task.Title,
		&description,
		&task.Priority,
		&task.Status,
		&category,
		&dueDate,
		&estimatedMinutes,
		&actualMinutes,
		&task.ImpactScore,
		&task.IsHighImpact,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return task, err
	}

	if description.Valid {
		task.Description = &description.String
	}
	if category.Valid {
		task.Category = &category.String
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if estimatedMinutes.Valid {
		v := int(estimatedMinutes.Int64)
		task.EstimatedMinutes = &v
	}
	if actualMinutes.Valid {
		v := int(actualMinutes.Int64)
		task.ActualMinutes = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return task, nil
}
