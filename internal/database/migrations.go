package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			student_id TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			perm_line TEXT NOT NULL DEFAULT '',
			perm_city TEXT NOT NULL DEFAULT '',
			perm_state TEXT NOT NULL DEFAULT '',
			perm_zip TEXT NOT NULL DEFAULT '',
			local_line TEXT NOT NULL DEFAULT '',
			local_city TEXT NOT NULL DEFAULT '',
			local_state TEXT NOT NULL DEFAULT '',
			local_zip TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email))`,

		`CREATE TABLE IF NOT EXISTS clubs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clubs_created_at ON clubs(created_at)`,

		`CREATE TABLE IF NOT EXISTS club_memberships (
			id TEXT PRIMARY KEY,
			club_id TEXT NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role TEXT NOT NULL DEFAULT 'member',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (club_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_club_memberships_user_id ON club_memberships(user_id)`,

		`CREATE TABLE IF NOT EXISTS club_invites (
			id TEXT PRIMARY KEY,
			club_id TEXT NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_club_invites_email ON club_invites(LOWER(email))`,
		`CREATE INDEX IF NOT EXISTS idx_club_invites_club_id ON club_invites(club_id)`,

		`CREATE TABLE IF NOT EXISTS budget_sections (
			id TEXT PRIMARY KEY,
			club_id TEXT NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			definition TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_budget_sections_club_id ON budget_sections(club_id)`,

		`CREATE TABLE IF NOT EXISTS budget_items (
			id TEXT PRIMARY KEY,
			section_id TEXT NOT NULL REFERENCES budget_sections(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			category TEXT NOT NULL,
			allocated_cents BIGINT NOT NULL CHECK (allocated_cents >= 0),
			spent_cents BIGINT NOT NULL DEFAULT 0 CHECK (spent_cents >= 0),
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_budget_items_section_id ON budget_items(section_id)`,

		`CREATE TABLE IF NOT EXISTS reimbursements (
			id TEXT PRIMARY KEY,
			club_id TEXT NOT NULL REFERENCES clubs(id) ON DELETE CASCADE,
			club_name TEXT NOT NULL,
			created_by TEXT NOT NULL REFERENCES users(id),
			payee_user_id TEXT NOT NULL REFERENCES users(id),
			budget_item_id TEXT REFERENCES budget_items(id) ON DELETE SET NULL,
			amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
			description TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'submitted',
			rejection_reason TEXT NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed_at TIMESTAMPTZ,
			paid_at TIMESTAMPTZ,
			receipt_ref TEXT NOT NULL DEFAULT '',
			form_pdf_ref TEXT NOT NULL DEFAULT '',
			packet_pdf_ref TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_club_id ON reimbursements(club_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_payee ON reimbursements(payee_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_submitted_at ON reimbursements(submitted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reimbursements_status ON reimbursements(status)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
