package repository

import (
	"context"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

// ClubRepository handles club database operations.
type ClubRepository struct {
	db database.PGXDB
}

// NewClubRepository creates a new ClubRepository.
func NewClubRepository(db database.PGXDB) *ClubRepository {
	return &ClubRepository{db: db}
}

func scanClub(s scanner) (*models.Club, error) {
	var c models.Club
	if err := s.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create adds a new club, generating its ID when empty.
func (r *ClubRepository) Create(ctx context.Context, club *models.Club) error {
	ensureID(&club.ID)
	err := r.db.QueryRow(ctx, `
		INSERT INTO clubs (id, name) VALUES ($1, $2)
		RETURNING created_at, updated_at
	`, club.ID, club.Name).Scan(&club.CreatedAt, &club.UpdatedAt)
	if err != nil {
		return wrap("create club", err)
	}
	return nil
}

// GetByID retrieves a club by ID.
func (r *ClubRepository) GetByID(ctx context.Context, id string) (*models.Club, error) {
	c, err := scanClub(r.db.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at FROM clubs WHERE id = $1
	`, id))
	if err != nil {
		return nil, wrap("get club", err)
	}
	return c, nil
}

// List retrieves all clubs, newest first.
func (r *ClubRepository) List(ctx context.Context) ([]models.Club, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at, updated_at FROM clubs ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, wrap("query clubs", err)
	}
	return collect(rows, "club", scanClub)
}

// SearchByName retrieves clubs whose name contains q (case-insensitive).
func (r *ClubRepository) SearchByName(ctx context.Context, q string) ([]models.Club, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at, updated_at FROM clubs
		WHERE name ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY created_at DESC, id DESC
	`, escapeLike(q))
	if err != nil {
		return nil, wrap("search clubs", err)
	}
	return collect(rows, "club", scanClub)
}

// Update writes the club's name.
func (r *ClubRepository) Update(ctx context.Context, club *models.Club) error {
	err := r.db.QueryRow(ctx, `
		UPDATE clubs SET name = $2, updated_at = NOW() WHERE id = $1
		RETURNING updated_at
	`, club.ID, club.Name).Scan(&club.UpdatedAt)
	if err != nil {
		return wrap("update club", err)
	}
	return nil
}

// Delete removes a club and, by cascade, everything it owns.
func (r *ClubRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clubs WHERE id = $1`, id)
	if err != nil {
		return wrap("delete club", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete club", ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
