package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/report"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func TestBudgetService_Sections(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")

	sec, err := e.budget.CreateSection(ctx, &validation.BudgetSectionInput{ClubID: club.ID, Title: "Events", Definition: "Tournaments"})
	require.NoError(t, err)

	updated, err := e.budget.UpdateSection(ctx, sec.ID, &validation.BudgetSectionPatch{Definition: ptr("Tournaments and socials")})
	require.NoError(t, err)
	assert.Equal(t, "Events", updated.Title)
	assert.Equal(t, "Tournaments and socials", updated.Definition)

	_, err = e.budget.CreateSection(ctx, &validation.BudgetSectionInput{ClubID: "missing", Title: "X"})
	require.ErrorIs(t, err, repository.ErrInvalidReference)

	list, err := e.budget.ListSectionsByClub(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	item, err := e.budget.CreateItem(ctx, &validation.BudgetItemInput{
		SectionID: sec.ID, Label: "Boards", Category: models.BudgetCategoryNonFood, AllocatedCents: 1000,
	})
	require.NoError(t, err)

	require.NoError(t, e.budget.DeleteSection(ctx, sec.ID))
	_, err = e.budget.GetItem(ctx, item.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBudgetService_ItemSpentWithinAllocated(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")
	sec, err := e.budget.CreateSection(ctx, &validation.BudgetSectionInput{ClubID: club.ID, Title: "Events"})
	require.NoError(t, err)

	_, err = e.budget.CreateItem(ctx, &validation.BudgetItemInput{
		SectionID: sec.ID, Label: "Pizza", Category: models.BudgetCategoryFood, AllocatedCents: 100, SpentCents: 101,
	})
	require.ErrorIs(t, err, validation.ErrInvalidInput)

	items, err := e.budget.ListItemsBySection(ctx, sec.ID)
	require.NoError(t, err)
	require.Empty(t, items, "a rejected create persists nothing")

	item, err := e.budget.CreateItem(ctx, &validation.BudgetItemInput{
		SectionID: sec.ID, Label: "Pizza", Category: models.BudgetCategoryFood, AllocatedCents: 100, SpentCents: 40,
	})
	require.NoError(t, err)

	_, err = e.budget.UpdateItem(ctx, item.ID, &validation.BudgetItemPatch{AllocatedCents: ptr(int64(39))})
	require.ErrorIs(t, err, validation.ErrInvalidInput)

	stored, err := e.budget.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.EqualValues(t, 100, stored.AllocatedCents)

	updated, err := e.budget.UpdateItem(ctx, item.ID, &validation.BudgetItemPatch{SpentCents: ptr(int64(100))})
	require.NoError(t, err)
	assert.EqualValues(t, 100, updated.SpentCents)
	assert.Equal(t, "Pizza", updated.Label)
	assert.Equal(t, models.BudgetCategoryFood, updated.Category)

	require.NoError(t, e.budget.DeleteItem(ctx, item.ID))
	require.ErrorIs(t, e.budget.DeleteItem(ctx, item.ID), repository.ErrNotFound)
}

func TestBudgetService_Chart(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")

	_, err := e.budget.Chart(ctx, club.ID)
	require.ErrorIs(t, err, report.ErrEmptyBudget)

	e.item(t, club.ID, 50000)
	e.item(t, club.ID, 12500)

	png, err := e.budget.Chart(ctx, club.ID)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = e.budget.Chart(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
