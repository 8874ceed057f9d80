package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/clienthub/clienthub/internal/gamify"
)

// User represents a user entity with its gamification ledger.
type User struct {
	ID           string              `json:"id"`
	Email        string              `json:"email"`
	PasswordHash string              `json:"-"`
	Name         string              `json:"name"`
	Gamification gamify.Gamification `json:"gamification"`
	Badges       []string            `json:"badges"`
	Achievements json.RawMessage     `json:"achievements"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// UserStore provides access to user rows.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userSelectColumns = "id, email, password_hash, name, level, experience, action_points, total_points_earned, current_streak, longest_streak, badges, achievements, created_at, updated_at"

// ErrEmailTaken is returned when signing up with an already-registered email.
var ErrEmailTaken = errors.New("email already registered")

// Create inserts a new user with an empty ledger.
func (s *UserStore) Create(ctx context.Context, email, passwordHash, name string) (*User, error) {
	query := `INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING ` + userSelectColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email)), passwordHash, strings.TrimSpace(name)))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// GetByEmail retrieves a user by email for credential checks.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := "SELECT " + userSelectColumns + " FROM users WHERE email = $1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Get retrieves the authenticated user's row.
func (s *UserStore) Get(ctx context.Context) (*User, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + userSelectColumns + " FROM users WHERE id = $1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// AddReward applies a reward to the user's ledger inside the caller's
// transaction. The row is locked so concurrent completions serialize; the
// level-up check follows the single-step rule in the gamify package.
func AddReward(ctx context.Context, q Querier, userID string, points, experience int) (gamify.Gamification, bool, error) {
	var g gamify.Gamification
	err := q.QueryRowContext(
		ctx,
		`SELECT level, experience, action_points, total_points_earned, current_streak, longest_streak
		 FROM users WHERE id = $1 FOR UPDATE`,
		userID,
	).Scan(&g.Level, &g.Experience, &g.ActionPoints, &g.TotalPointsEarned, &g.CurrentStreak, &g.LongestStreak)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gamify.Gamification{}, false, ErrNotFound
		}
		return gamify.Gamification{}, false, fmt.Errorf("failed to load ledger: %w", err)
	}

	updated, levelUp := gamify.ApplyReward(g, points, experience)

	_, err = q.ExecContext(
		ctx,
		`UPDATE users SET
			level = $1,
			experience = $2,
			action_points = $3,
			total_points_earned = $4,
			updated_at = NOW()
		 WHERE id = $5`,
		updated.Level,
		updated.Experience,
		updated.ActionPoints,
		updated.TotalPointsEarned,
		userID,
	)
	if err != nil {
		return gamify.Gamification{}, false, fmt.Errorf("failed to update ledger: %w", err)
	}

	return updated, levelUp, nil
}

func scanUser(scanner interface{ Scan(...any) error }) (User, error) {
	var user User
	var badgesBytes []byte
	var achievementsBytes []byte

	err := scanner.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Gamification.Level,
		&user.Gamification.Experience,
		&user.Gamification.ActionPoints,
		&user.Gamification.TotalPointsEarned,
		&user.Gamification.CurrentStreak,
		&user.Gamification.LongestStreak,
		&badgesBytes,
		&achievementsBytes,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return user, err
	}

	user.Badges = make([]string, 0)
	if len(badgesBytes) > 0 {
		if err := json.Unmarshal(badgesBytes, &user.Badges); err != nil {
			return user, fmt.Errorf("failed to decode badges: %w", err)
		}
	}

	if len(achievementsBytes) == 0 {
		user.Achievements = json.RawMessage("[]")
	} else {
		user.Achievements = json.RawMessage(achievementsBytes)
	}

	return user, nil
}
