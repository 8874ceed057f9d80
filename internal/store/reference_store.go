package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Badge is static reference data describing an unlockable badge.
type Badge struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Icon             string    `json:"icon"`
	RequirementType  string    `json:"requirement_type"`
	RequirementValue int       `json:"requirement_value"`
	RewardPoints     int       `json:"reward_points"`
	CreatedAt        time.Time `json:"created_at"`
}

// Level is static reference data describing a level title.
type Level struct {
	Level         int       `json:"level"`
	Title         string    `json:"title"`
	MinExperience int       `json:"min_experience"`
	CreatedAt     time.Time `json:"created_at"`
}

// ReferenceStore reads the seeded badge and level tables. These are
// read-only at runtime; cmd/seed writes them.
type ReferenceStore struct {
	db *sql.DB
}

// NewReferenceStore creates a new ReferenceStore with the given database
// connection.
func NewReferenceStore(db *sql.DB) *ReferenceStore {
	return &ReferenceStore{db: db}
}

// ListBadges returns all badge definitions.
func (s *ReferenceStore) ListBadges(ctx context.Context) ([]Badge, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, slug, name, description, icon, requirement_type, requirement_value, reward_points, created_at
		 FROM badges ORDER BY requirement_value ASC, slug ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	badges := make([]Badge, 0)
	for rows.Next() {
		var b Badge
		err := rows.Scan(&b.ID, &b.Slug, &b.Name, &b.Description, &b.Icon, &b.RequirementType, &b.RequirementValue, &b.RewardPoints, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading badges: %w", err)
	}

	return badges, nil
}

// ListLevels returns all level definitions in ascending order.
func (s *ReferenceStore) ListLevels(ctx context.Context) ([]Level, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT level, title, min_experience, created_at FROM levels ORDER BY level ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	levels := make([]Level, 0)
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.Level, &l.Title, &l.MinExperience, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading levels: %w", err)
	}

	return levels, nil
}
