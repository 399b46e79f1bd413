package repository

import (
	"context"

	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

const membershipColumns = `id, club_id, user_id, role, created_at, updated_at`

// MembershipRepository handles club membership database operations.
type MembershipRepository struct {
	db database.PGXDB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db database.PGXDB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func scanMembership(s scanner) (*models.ClubMembership, error) {
	var m models.ClubMembership
	if err := s.Scan(&m.ID, &m.ClubID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create adds a membership. A second membership for the same club and user
// fails with ErrConflict.
func (r *MembershipRepository) Create(ctx context.Context, m *models.ClubMembership) error {
	ensureID(&m.ID)
	if m.Role == "" {
		m.Role = models.MembershipRoleMember
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO club_memberships (id, club_id, user_id, role) VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, m.ID, m.ClubID, m.UserID, m.Role).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return wrap("create membership", err)
	}
	return nil
}

// GetByID retrieves a membership by ID.
func (r *MembershipRepository) GetByID(ctx context.Context, id string) (*models.ClubMembership, error) {
	m, err := scanMembership(r.db.QueryRow(ctx, `
		SELECT `+membershipColumns+` FROM club_memberships WHERE id = $1
	`, id))
	if err != nil {
		return nil, wrap("get membership", err)
	}
	return m, nil
}

// List retrieves all memberships, newest first.
func (r *MembershipRepository) List(ctx context.Context) ([]models.ClubMembership, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+membershipColumns+` FROM club_memberships ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, wrap("query memberships", err)
	}
	return collect(rows, "membership", scanMembership)
}

// ListByUser retrieves every membership held by a user.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]models.ClubMembership, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+membershipColumns+` FROM club_memberships
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, wrap("query memberships by user", err)
	}
	return collect(rows, "membership", scanMembership)
}

// ListByClub retrieves every membership of a club.
func (r *MembershipRepository) ListByClub(ctx context.Context, clubID string) ([]models.ClubMembership, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+membershipColumns+` FROM club_memberships
		WHERE club_id = $1
		ORDER BY created_at DESC, id DESC
	`, clubID)
	if err != nil {
		return nil, wrap("query memberships by club", err)
	}
	return collect(rows, "membership", scanMembership)
}

// GetTreasurerMembership retrieves the most recent treasurer membership held
// by a user.
func (r *MembershipRepository) GetTreasurerMembership(ctx context.Context, userID string) (*models.ClubMembership, error) {
	m, err := scanMembership(r.db.QueryRow(ctx, `
		SELECT `+membershipColumns+` FROM club_memberships
		WHERE user_id = $1 AND role = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID, models.MembershipRoleTreasurer))
	if err != nil {
		return nil, wrap("get treasurer membership", err)
	}
	return m, nil
}

// Update writes the membership's role.
func (r *MembershipRepository) Update(ctx context.Context, m *models.ClubMembership) error {
	err := r.db.QueryRow(ctx, `
		UPDATE club_memberships SET role = $2, updated_at = NOW() WHERE id = $1
		RETURNING updated_at
	`, m.ID, m.Role).Scan(&m.UpdatedAt)
	if err != nil {
		return wrap("update membership", err)
	}
	return nil
}

// Delete removes a membership by ID.
func (r *MembershipRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM club_memberships WHERE id = $1`, id)
	if err != nil {
		return wrap("delete membership", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete membership", ErrNotFound)
	}
	return nil
}

// upsertMembership inserts a membership or raises the role of an existing
// one. A role is never lowered.
func upsertMembership(ctx context.Context, db database.PGXDB, clubID, userID string, role models.MembershipRole) (*models.ClubMembership, error) {
	id := ""
	ensureID(&id)
	m, err := scanMembership(db.QueryRow(ctx, `
		INSERT INTO club_memberships (id, club_id, user_id, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (club_id, user_id) DO UPDATE SET
			role = CASE WHEN club_memberships.role = $5 THEN club_memberships.role ELSE EXCLUDED.role END,
			updated_at = NOW()
		RETURNING `+membershipColumns,
		id, clubID, userID, role, models.MembershipRoleTreasurer))
	if err != nil {
		return nil, wrap("upsert membership", err)
	}
	return m, nil
}
