// Package store provides database access with row-level user isolation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/clienthub/clienthub/internal/middleware"
)

var (
	// ErrNoUser is returned when a user ID is required but not present.
	ErrNoUser = errors.New("user ID not found in context")
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrForbidden is returned when access to an entity is denied.
	ErrForbidden = errors.New("access denied")
	// ErrConflict is returned when a mutation violates a uniqueness rule,
	// such as starting a second running timer.
	ErrConflict = errors.New("conflicting state")
)

// Querier is an interface for database query execution.
// Both *sql.DB, *sql.Conn, and *sql.Tx implement this interface.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// requireUser extracts the authenticated user ID from the context.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.UserFromContext(ctx)
	if userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}

// beginUserTx starts a transaction for a user-scoped multi-row mutation.
// The caller must commit or rollback the transaction.
func beginUserTx(ctx context.Context, db *sql.DB) (*sql.Tx, string, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	return tx, userID, nil
}

// nullableString converts a *string to a sql-compatible value.
func nullableString(value *string) interface{} {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}
