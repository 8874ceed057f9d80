package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Activity represents an activity feed entry.
type Activity struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	TaskID    *string         `json:"task_id,omitempty"`
	ClientID  *string         `json:"client_id,omitempty"`
	Action    string          `json:"action"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// ActivityStore provides user-isolated access to the activity feed.
type ActivityStore struct {
	db *sql.DB
}

// NewActivityStore creates a new ActivityStore with the given database connection.
func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

const activitySelectColumns = "id, user_id, task_id, client_id, action, metadata, created_at"

// ActivityFilter defines filtering options for listing activity entries.
type ActivityFilter struct {
	TaskID   *string
	ClientID *string
	Action   string
	Limit    int
	Offset   int
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// InsertActivity appends a feed entry through the given Querier, so task
// mutations can record activity inside their own transaction.
func InsertActivity(ctx context.Context, q Querier, userID, action string, taskID, clientID *string, metadata json.RawMessage) error {
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	_, err := q.ExecContext(
		ctx,
		`INSERT INTO activity (user_id, task_id, client_id, action, metadata)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID,
		nullableString(taskID),
		nullableString(clientID),
		action,
		[]byte(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// List retrieves feed entries for the current user matching the filter,
// newest first.
func (s *ActivityStore) List(ctx context.Context, filter ActivityFilter) ([]Activity, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query, args := buildActivityListQuery(userID, filter, limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading activity: %w", err)
	}

	return activities, nil
}

func buildActivityListQuery(userID string, filter ActivityFilter, limit, offset int) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	if filter.TaskID != nil {
		args = append(args, *filter.TaskID)
		conditions = append(conditions, fmt.Sprintf("task_id = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}

	args = append(args, limit)
	limitPos := len(args)
	args = append(args, offset)
	offsetPos := len(args)

	query := "SELECT " + activitySelectColumns + " FROM activity WHERE " +
		strings.Join(conditions, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", limitPos, offsetPos)

	return query, args
}

func scanActivity(scanner interface{ Scan(...any) error }) (Activity, error) {
	var activity Activity
	var taskID sql.NullString
	var clientID sql.NullString
	var metadataBytes []byte

	err := scanner.Scan(
		&activity.ID,
		&activity.UserID,
		&taskID,
		&clientID,
		&activity.Action,
		&metadataBytes,
		&activity.CreatedAt,
	)
	if err != nil {
		return activity, err
	}

	if taskID.Valid {
		activity.TaskID = &taskID.String
	}
	if clientID.Valid {
		activity.ClientID = &clientID.String
	}

	if len(metadataBytes) == 0 {
		activity.Metadata = json.RawMessage("{}")
	} else {
		activity.Metadata = json.RawMessage(metadataBytes)
	}

	return activity, nil
}
