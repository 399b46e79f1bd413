package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

func TestBudgetRepositories(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	sections := NewBudgetSectionRepository(tx)
	items := NewBudgetItemRepository(tx)

	club := seedClub(t, tx)
	section, item := seedItem(t, tx, club.ID)

	t.Run("spent defaults to zero", func(t *testing.T) {
		fetched, err := items.GetByID(ctx, item.ID)
		require.NoError(t, err)
		require.Equal(t, int64(0), fetched.SpentCents)
		require.Equal(t, models.BudgetCategoryFood, fetched.Category)
	})

	t.Run("update writes merged row", func(t *testing.T) {
		item.SpentCents = 4000
		item.Notes = "two orders"
		require.NoError(t, items.Update(ctx, item))

		fetched, err := items.GetByID(ctx, item.ID)
		require.NoError(t, err)
		require.Equal(t, int64(4000), fetched.SpentCents)
		require.Equal(t, "Pizza", fetched.Label)
	})

	t.Run("totals sum items per section", func(t *testing.T) {
		empty := &models.BudgetSection{ClubID: club.ID, Title: "Admin"}
		require.NoError(t, sections.Create(ctx, empty))
		require.NoError(t, items.Create(ctx, &models.BudgetItem{
			SectionID: section.ID, Label: "Cups", Category: models.BudgetCategoryNonFood, AllocatedCents: 500,
		}))

		totals, err := sections.Totals(ctx, club.ID)
		require.NoError(t, err)
		require.Equal(t, []models.SectionTotal{
			{SectionID: empty.ID, Title: "Admin"},
			{SectionID: section.ID, Title: "Events", AllocatedCents: 10500, SpentCents: 4000},
		}, totals)
	})

	t.Run("lists by parent", func(t *testing.T) {
		bySection, err := items.ListBySection(ctx, section.ID)
		require.NoError(t, err)
		require.Len(t, bySection, 2)

		byClub, err := sections.ListByClub(ctx, club.ID)
		require.NoError(t, err)
		require.Len(t, byClub, 2)
	})

	t.Run("deletes item", func(t *testing.T) {
		extra := &models.BudgetItem{
			SectionID: section.ID, Label: "Napkins", Category: models.BudgetCategoryNonFood, AllocatedCents: 300,
		}
		require.NoError(t, items.Create(ctx, extra))
		require.NoError(t, items.Delete(ctx, extra.ID))

		_, err := items.GetByID(ctx, extra.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, items.Delete(ctx, extra.ID), ErrNotFound)
	})

	t.Run("deleting a section removes its items", func(t *testing.T) {
		require.NoError(t, sections.Delete(ctx, section.ID))
		_, err := items.GetByID(ctx, item.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, items.Delete(ctx, item.ID), ErrNotFound)

		_, err = sections.GetByID(ctx, section.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, sections.Delete(ctx, section.ID), ErrNotFound)
	})
}
