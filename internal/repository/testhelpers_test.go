package repository

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

func ptr[T any](v T) *T { return &v }

func seedUser(t *testing.T, db database.PGXDB) *models.User {
	t.Helper()
	u, err := NewUserRepository(db).Upsert(context.Background(), &models.User{
		ID:        "user_" + uuid.NewString(),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     uuid.NewString()[:8] + "@" + gofakeit.DomainName(),
	})
	require.NoError(t, err)
	return u
}

func seedClub(t *testing.T, db database.PGXDB) *models.Club {
	t.Helper()
	club := &models.Club{Name: gofakeit.Company() + " Club"}
	require.NoError(t, NewClubRepository(db).Create(context.Background(), club))
	return club
}

func seedItem(t *testing.T, db database.PGXDB, clubID string) (*models.BudgetSection, *models.BudgetItem) {
	t.Helper()
	ctx := context.Background()
	section := &models.BudgetSection{ClubID: clubID, Title: "Events"}
	require.NoError(t, NewBudgetSectionRepository(db).Create(ctx, section))
	item := &models.BudgetItem{
		SectionID: section.ID, Label: "Pizza", Category: models.BudgetCategoryFood, AllocatedCents: 10000,
	}
	require.NoError(t, NewBudgetItemRepository(db).Create(ctx, item))
	return section, item
}

// backdate moves created_at so ordering is deterministic inside one
// transaction, where NOW() never advances.
func backdate(t *testing.T, db database.PGXDB, table, id string, age time.Duration) {
	t.Helper()
	_, err := db.Exec(context.Background(),
		`UPDATE `+table+` SET created_at = NOW() - ($2::BIGINT * INTERVAL '1 second') WHERE id = $1`,
		id, int64(age.Seconds()))
	require.NoError(t, err)
}

// inSavepoint runs fn inside a savepoint so an expected constraint failure
// does not abort the surrounding test transaction.
func inSavepoint(t *testing.T, db database.DB, fn func(sp database.DB) error) error {
	t.Helper()
	return database.WithTx(context.Background(), db, func(sp pgx.Tx) error {
		return fn(sp)
	})
}
