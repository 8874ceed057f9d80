package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Break is one pause interval inside a timer.
type Break struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Seconds   int64      `json:"seconds"`
}

// Timer represents a time-tracking session. A timer is tied to exactly one
// of a task or a client. Running elapsed time is derived from the stored
// timestamps at read time; nothing ticks server-side.
type Timer struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	TaskID          *string    `json:"task_id,omitempty"`
	ClientID        *string    `json:"client_id,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	IsRunning       bool       `json:"is_running"`
	PausedAt        *time.Time `json:"paused_at,omitempty"`
	Breaks          []Break    `json:"breaks"`
	DurationSeconds int64      `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ElapsedSeconds reports the billable seconds on the timer as of now:
// wall-clock time since start minus all pause time, including a pause
// still in progress. For stopped timers the stored duration is returned.
func (t Timer) ElapsedSeconds(now time.Time) int64 {
	if !t.IsRunning {
		return t.DurationSeconds
	}

	elapsed := int64(now.Sub(t.StartedAt) / time.Second)
	for _, b := range t.Breaks {
		if b.EndedAt != nil {
			elapsed -= b.Seconds
		} else {
			elapsed -= int64(now.Sub(b.StartedAt) / time.Second)
		}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// TimerStore provides user-isolated access to timers.
type TimerStore struct {
	db *sql.DB
}

// NewTimerStore creates a new TimerStore with the given database connection.
func NewTimerStore(db *sql.DB) *TimerStore {
	return &TimerStore{db: db}
}

const timerSelectColumns = "id, user_id, task_id, client_id, started_at, ended_at, is_running, paused_at, breaks, duration_seconds, created_at, updated_at"

// ErrTimerNotRunning is returned for pause/resume/stop on a finished timer.
var ErrTimerNotRunning = errors.New("timer is not running")

// ErrTimerNotPaused is returned when resuming a timer that is not paused.
var ErrTimerNotPaused = errors.New("timer is not paused")

// ErrTimerPaused is returned when pausing a timer that is already paused.
var ErrTimerPaused = errors.New("timer is already paused")

// Start opens a new running timer for the current user. Exactly one of
// taskID/clientID must be set. A user can only have one running timer;
// starting a second one fails with ErrConflict.
func (s *TimerStore) Start(ctx context.Context, taskID, clientID *string) (*Timer, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if (taskID == nil) == (clientID == nil) {
		return nil, fmt.Errorf("timer needs exactly one of task or client context")
	}

	if taskID != nil {
		if err := s.verifyOwner(ctx, "tasks", *taskID, userID); err != nil {
			return nil, err
		}
	} else {
		if err := s.verifyOwner(ctx, "clients", *clientID, userID); err != nil {
			return nil, err
		}
	}

	query := `INSERT INTO timers (user_id, task_id, client_id)
		VALUES ($1, $2, $3)
		RETURNING ` + timerSelectColumns

	timer, err := scanTimer(s.db.QueryRowContext(ctx, query, userID, nullableString(taskID), nullableString(clientID)))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}

	return &timer, nil
}

// verifyOwner checks that the timer context row exists and belongs to the
// user. Defense in depth: ownership check at app layer, not just the FK.
func (s *TimerStore) verifyOwner(ctx context.Context, table, id, userID string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM "+table+" WHERE id = $1", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check timer context: %w", err)
	}
	if owner != userID {
		return ErrForbidden
	}
	return nil
}

// Pause suspends a running timer and opens a break interval.
func (s *TimerStore) Pause(ctx context.Context, id string) (*Timer, error) {
	return s.mutate(ctx, id, func(timer *Timer, now time.Time) error {
		if !timer.IsRunning {
			return ErrTimerNotRunning
		}
		if timer.PausedAt != nil {
			return ErrTimerPaused
		}
		timer.PausedAt = &now
		timer.Breaks = append(timer.Breaks, Break{
			ID:        uuid.NewString(),
			StartedAt: now,
		})
		return nil
	})
}

// Resume closes the open break on a paused timer.
func (s *TimerStore) Resume(ctx context.Context, id string) (*Timer, error) {
	return s.mutate(ctx, id, func(timer *Timer, now time.Time) error {
		if !timer.IsRunning {
			return ErrTimerNotRunning
		}
		if timer.PausedAt == nil {
			return ErrTimerNotPaused
		}
		closeOpenBreak(timer, now)
		timer.PausedAt = nil
		return nil
	})
}

// Stop finishes a timer. The stored duration becomes wall-clock elapsed
// time minus the sum of all break durations. A paused timer's open break
// is closed at the stop instant first.
func (s *TimerStore) Stop(ctx context.Context, id string) (*Timer, error) {
	return s.mutate(ctx, id, func(timer *Timer, now time.Time) error {
		if !timer.IsRunning {
			return ErrTimerNotRunning
		}
		if timer.PausedAt != nil {
			closeOpenBreak(timer, now)
			timer.PausedAt = nil
		}

		total := int64(now.Sub(timer.StartedAt) / time.Second)
		for _, b := range timer.Breaks {
			total -= b.Seconds
		}
		if total < 0 {
			total = 0
		}

		timer.EndedAt = &now
		timer.IsRunning = false
		timer.DurationSeconds = total
		return nil
	})
}

// Active returns the user's currently running timer, or ErrNotFound.
func (s *TimerStore) Active(ctx context.Context) (*Timer, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + timerSelectColumns + " FROM timers WHERE user_id = $1 AND is_running"
	timer, err := scanTimer(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active timer: %w", err)
	}

	return &timer, nil
}

// List retrieves the user's timers, newest first.
func (s *TimerStore) List(ctx context.Context, limit int) ([]Timer, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := "SELECT " + timerSelectColumns + " FROM timers WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2"
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	defer rows.Close()

	timers := make([]Timer, 0)
	for rows.Next() {
		timer, err := scanTimer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timer: %w", err)
		}
		timers = append(timers, timer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading timers: %w", err)
	}

	return timers, nil
}

// mutate loads a timer FOR UPDATE, applies fn, and writes the row back.
func (s *TimerStore) mutate(ctx context.Context, id string, fn func(*Timer, time.Time) error) (*Timer, error) {
	tx, userID, err := beginUserTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := "SELECT " + timerSelectColumns + " FROM timers WHERE id = $1 FOR UPDATE"
	timer, err := scanTimer(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load timer: %w", err)
	}
	if timer.UserID != userID {
		return nil, ErrForbidden
	}

	if err := fn(&timer, time.Now().UTC()); err != nil {
		return nil, err
	}

	breaksBytes, err := json.Marshal(timer.Breaks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breaks: %w", err)
	}

	updateQuery := `UPDATE timers SET
		ended_at = $1, is_running = $2, paused_at = $3, breaks = $4,
		duration_seconds = $5, updated_at = NOW()
	WHERE id = $6
	RETURNING ` + timerSelectColumns

	updated, err := scanTimer(tx.QueryRowContext(
		ctx,
		updateQuery,
		timer.EndedAt,
		timer.IsRunning,
		timer.PausedAt,
		breaksBytes,
		timer.DurationSeconds,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update timer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit timer update: %w", err)
	}

	return &updated, nil
}

func closeOpenBreak(timer *Timer, now time.Time) {
	for i := len(timer.Breaks) - 1; i >= 0; i-- {
		if timer.Breaks[i].EndedAt == nil {
			end := now
			timer.Breaks[i].EndedAt = &end
			timer.Breaks[i].Seconds = int64(now.Sub(timer.Breaks[i].StartedAt) / time.Second)
			return
		}
	}
}

func scanTimer(scanner interface{ Scan(...any) error }) (Timer, error) {
	var timer Timer
	var taskID sql.NullString
	var clientID sql.NullString
	var endedAt sql.NullTime
	var pausedAt sql.NullTime
	var breaksBytes []byte

	err := scanner.Scan(
		&timer.ID,
		&timer.UserID,
		&taskID,
		&clientID,
		&timer.StartedAt,
		&endedAt,
		&timer.IsRunning,
		&pausedAt,
		&breaksBytes,
		&timer.DurationSeconds,
		&timer.CreatedAt,
		&timer.UpdatedAt,
	)
	if err != nil {
		return timer, err
	}

	if taskID.Valid {
		timer.TaskID = &taskID.String
	}
	if clientID.Valid {
		timer.ClientID = &clientID.String
	}
	if endedAt.Valid {
		t := endedAt.Time
		timer.EndedAt = &t
	}
	if pausedAt.Valid {
		t := pausedAt.Time
		timer.PausedAt = &t
	}

	timer.Breaks = make([]Break, 0)
	if len(breaksBytes) > 0 {
		if err := json.Unmarshal(breaksBytes, &timer.Breaks); err != nil {
			return timer, fmt.Errorf("failed to decode breaks: %w", err)
		}
	}

	return timer, nil
}
