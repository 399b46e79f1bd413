package database

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func skipWithoutDatabase(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
}

func TestTestPool_SharedAndMigrated(t *testing.T) {
	skipWithoutDatabase(t)

	p1 := TestPool(t)
	p2 := TestPool(t)
	require.Same(t, p1, p2)

	var tables int
	err := p1.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY($1)
	`, []string{"users", "clubs", "club_memberships", "club_invites", "budget_sections", "budget_items", "reimbursements"}).Scan(&tables)
	require.NoError(t, err)
	require.Equal(t, 7, tables)
}

func TestTestTx_RollsBackClubRows(t *testing.T) {
	skipWithoutDatabase(t)
	ctx := context.Background()
	const id = "club_testtx_rollback"

	t.Run("insert inside the test transaction", func(t *testing.T) {
		db := TestTx(t)
		_, err := db.Exec(ctx, `INSERT INTO clubs (id, name) VALUES ($1, 'Rollback Club')`, id)
		require.NoError(t, err)

		var name string
		require.NoError(t, db.QueryRow(ctx, `SELECT name FROM clubs WHERE id = $1`, id).Scan(&name))
		require.Equal(t, "Rollback Club", name)
	})

	err := TestPool(t).QueryRow(ctx, `SELECT id FROM clubs WHERE id = $1`, id).Scan(new(string))
	require.True(t, errors.Is(err, pgx.ErrNoRows), "row survived rollback: %v", err)
}

func TestTestTx_SavepointFailureKeepsOuterTx(t *testing.T) {
	skipWithoutDatabase(t)
	ctx := context.Background()
	db := TestTx(t)

	_, err := db.Exec(ctx, `INSERT INTO clubs (id, name) VALUES ('club_outer', 'Outer')`)
	require.NoError(t, err)

	err = WithTx(ctx, db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO clubs (id, name) VALUES ('club_outer', 'Duplicate')`)
		return err
	})
	require.True(t, IsUniqueViolation(err))

	var name string
	require.NoError(t, db.QueryRow(ctx, `SELECT name FROM clubs WHERE id = 'club_outer'`).Scan(&name))
	require.Equal(t, "Outer", name)
}
