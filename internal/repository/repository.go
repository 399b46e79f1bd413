// Package repository provides database access for domain entities.
package repository

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"gitlab.com/sgtreasury/tally/internal/database"
)

// Sentinel errors returned by every repository.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
	ErrInvalidReference = errors.New("referenced row does not exist")
	ErrExpired          = errors.New("expired")
)

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// wrap annotates err with the failed action and maps driver errors onto the
// package sentinels.
func wrap(action string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("failed to %s: %w", action, ErrNotFound)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w", action, ErrConflict)
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("failed to %s: %w", action, ErrInvalidReference)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func collect[T any](rows pgx.Rows, what string, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return out, nil
}
