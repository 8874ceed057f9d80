package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clienthub/clienthub/internal/profit"
)

// Profitability is the per-(user, client) profitability record. The
// derived columns always come from profit.Compute over the three input
// columns; they are never written independently.
type Profitability struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ClientID    string        `json:"client_id"`
	HourlyRate  float64       `json:"hourly_rate"`
	TargetHours float64       `json:"target_hours"`
	SpentHours  float64       `json:"spent_hours"`
	Derived     profit.Result `json:"derived"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ProfitabilityStore provides user-isolated access to profitability records.
type ProfitabilityStore struct {
	db *sql.DB
}

// NewProfitabilityStore creates a new ProfitabilityStore with the given
// database connection.
func NewProfitabilityStore(db *sql.DB) *ProfitabilityStore {
	return &ProfitabilityStore{db: db}
}

const profitabilitySelectColumns = "id, user_id, client_id, hourly_rate, target_hours, spent_hours, revenue, profitability_pct, remaining_hours, is_profitable, updated_at"

// Upsert writes the inputs for a client's profitability record and
// recomputes every derived column in the same statement. Validation errors
// from the calculator surface before any write.
func (s *ProfitabilityStore) Upsert(ctx context.Context, clientID string, hourlyRate, targetHours, spentHours float64) (*Profitability, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	derived, err := profit.Compute(hourlyRate, targetHours, spentHours)
	if err != nil {
		return nil, err
	}

	// The client must exist in the user's scope before a record is kept.
	var ownerCheck string
	err = s.db.QueryRowContext(ctx, "SELECT id FROM clients WHERE id = $1 AND user_id = $2", clientID, userID).Scan(&ownerCheck)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to verify client: %w", err)
	}

	query := `INSERT INTO profitability (
		user_id, client_id, hourly_rate, target_hours, spent_hours,
		revenue, profitability_pct, remaining_hours, is_profitable
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (user_id, client_id) DO UPDATE SET
		hourly_rate = EXCLUDED.hourly_rate,
		target_hours = EXCLUDED.target_hours,
		spent_hours = EXCLUDED.spent_hours,
		revenue = EXCLUDED.revenue,
		profitability_pct = EXCLUDED.profitability_pct,
		remaining_hours = EXCLUDED.remaining_hours,
		is_profitable = EXCLUDED.is_profitable,
		updated_at = NOW()
	RETURNING ` + profitabilitySelectColumns

	args := []interface{}{
		userID,
		clientID,
		hourlyRate,
		targetHours,
		spentHours,
		derived.Revenue,
		derived.ProfitabilityPct,
		derived.RemainingHours,
		derived.IsProfitable,
	}

	record, err := scanProfitability(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profitability: %w", err)
	}

	return &record, nil
}

// GetByClient retrieves the profitability record for one client.
func (s *ProfitabilityStore) GetByClient(ctx context.Context, clientID string) (*Profitability, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + profitabilitySelectColumns + " FROM profitability WHERE user_id = $1 AND client_id = $2"
	record, err := scanProfitability(s.db.QueryRowContext(ctx, query, userID, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profitability: %w", err)
	}

	return &record, nil
}

// AddSpentHours accumulates billed time onto a client's record and
// recomputes the derived columns, typically called when a timer stops.
func (s *ProfitabilityStore) AddSpentHours(ctx context.Context, clientID string, hours float64) (*Profitability, error) {
	existing, err := s.GetByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return s.Upsert(ctx, clientID, existing.HourlyRate, existing.TargetHours, existing.SpentHours+hours)
}

func scanProfitability(scanner interface{ Scan(...any) error }) (Profitability, error) {
	var record Profitability

	err := scanner.Scan(
		&record.ID,
		&record.UserID,
		&record.ClientID,
		&record.HourlyRate,
		&record.TargetHours,
		&record.SpentHours,
		&record.Derived.Revenue,
		&record.Derived.ProfitabilityPct,
		&record.Derived.RemainingHours,
		&record.Derived.IsProfitable,
		&record.UpdatedAt,
	)
	if err != nil {
		return record, err
	}

	return record, nil
}
