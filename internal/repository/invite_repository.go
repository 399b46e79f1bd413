package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

const inviteColumns = `id, club_id, email, role, expires_at, created_at, updated_at`

// InviteRepository handles club invite database operations.
type InviteRepository struct {
	db database.DB
}

// NewInviteRepository creates a new InviteRepository.
func NewInviteRepository(db database.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func scanInvite(s scanner) (*models.ClubInvite, error) {
	var i models.ClubInvite
	if err := s.Scan(&i.ID, &i.ClubID, &i.Email, &i.Role, &i.ExpiresAt, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// Create adds a new invite. The email is stored lower-cased.
func (r *InviteRepository) Create(ctx context.Context, invite *models.ClubInvite) error {
	ensureID(&invite.ID)
	if invite.Role == "" {
		invite.Role = models.MembershipRoleMember
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO club_invites (id, club_id, email, role, expires_at)
		VALUES ($1, $2, LOWER($3), $4, $5)
		RETURNING email, created_at, updated_at
	`, invite.ID, invite.ClubID, invite.Email, invite.Role, invite.ExpiresAt,
	).Scan(&invite.Email, &invite.CreatedAt, &invite.UpdatedAt)
	if err != nil {
		return wrap("create invite", err)
	}
	return nil
}

// GetByID retrieves an invite by ID.
func (r *InviteRepository) GetByID(ctx context.Context, id string) (*models.ClubInvite, error) {
	i, err := scanInvite(r.db.QueryRow(ctx, `SELECT `+inviteColumns+` FROM club_invites WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get invite", err)
	}
	return i, nil
}

// List retrieves all invites, newest first.
func (r *InviteRepository) List(ctx context.Context) ([]models.ClubInvite, error) {
	rows, err := r.db.Query(ctx, `SELECT `+inviteColumns+` FROM club_invites ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("query invites", err)
	}
	return collect(rows, "invite", scanInvite)
}

// ListByEmail retrieves every invite addressed to email (case-insensitive).
func (r *InviteRepository) ListByEmail(ctx context.Context, email string) ([]models.ClubInvite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inviteColumns+` FROM club_invites
		WHERE LOWER(email) = LOWER($1)
		ORDER BY created_at DESC, id DESC
	`, email)
	if err != nil {
		return nil, wrap("query invites by email", err)
	}
	return collect(rows, "invite", scanInvite)
}

// ListByClub retrieves every invite to a club.
func (r *InviteRepository) ListByClub(ctx context.Context, clubID string) ([]models.ClubInvite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inviteColumns+` FROM club_invites
		WHERE club_id = $1
		ORDER BY created_at DESC, id DESC
	`, clubID)
	if err != nil {
		return nil, wrap("query invites by club", err)
	}
	return collect(rows, "invite", scanInvite)
}

// Update writes the invite's role and expiry.
func (r *InviteRepository) Update(ctx context.Context, invite *models.ClubInvite) error {
	err := r.db.QueryRow(ctx, `
		UPDATE club_invites SET role = $2, expires_at = $3, updated_at = NOW() WHERE id = $1
		RETURNING updated_at
	`, invite.ID, invite.Role, invite.ExpiresAt).Scan(&invite.UpdatedAt)
	if err != nil {
		return wrap("update invite", err)
	}
	return nil
}

// Delete removes an invite by ID.
func (r *InviteRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM club_invites WHERE id = $1`, id)
	if err != nil {
		return wrap("delete invite", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete invite", ErrNotFound)
	}
	return nil
}

// Accept consumes every invite for (email, clubID) and grants userID a
// membership with the highest role offered, all in one transaction. It
// returns ErrNotFound when there is nothing to accept and ErrExpired when
// every matching invite has expired; in both cases nothing changes.
func (r *InviteRepository) Accept(ctx context.Context, email, clubID, userID string, now time.Time) (*models.ClubMembership, error) {
	var membership *models.ClubMembership
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM club_invites
			WHERE LOWER(email) = LOWER($1) AND club_id = $2
			RETURNING role, expires_at
		`, email, clubID)
		if err != nil {
			return wrap("consume invites", err)
		}

		var (
			found bool
			best  models.MembershipRole
		)
		for rows.Next() {
			var (
				role      models.MembershipRole
				expiresAt time.Time
			)
			if err := rows.Scan(&role, &expiresAt); err != nil {
				rows.Close()
				return wrap("scan consumed invite", err)
			}
			found = true
			if !now.Before(expiresAt) {
				continue
			}
			if role.Rank() > best.Rank() {
				best = role
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return wrap("consume invites", err)
		}

		if !found {
			return wrap("accept invite", ErrNotFound)
		}
		if best == "" {
			return wrap("accept invite", ErrExpired)
		}

		membership, err = upsertMembership(ctx, tx, clubID, userID, best)
		return err
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// Decline deletes every invite for (email, clubID). It returns ErrNotFound
// when none existed.
func (r *InviteRepository) Decline(ctx context.Context, email, clubID string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM club_invites WHERE LOWER(email) = LOWER($1) AND club_id = $2
	`, email, clubID)
	if err != nil {
		return wrap("decline invite", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("decline invite", ErrNotFound)
	}
	return nil
}

// PurgeExpired deletes every invite that expired at or before now and returns
// how many were removed.
func (r *InviteRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM club_invites WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, wrap("purge expired invites", err)
	}
	return tag.RowsAffected(), nil
}
