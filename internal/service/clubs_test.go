package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func TestClubService_CRUD(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	club := e.club(t, "Chess Club")
	require.NotEmpty(t, club.ID)

	got, err := e.clubs.Get(ctx, club.ID)
	require.NoError(t, err)
	require.Equal(t, "Chess Club", got.Name)

	renamed, err := e.clubs.Update(ctx, club.ID, &validation.ClubPatch{Name: ptr("Chess & Go")})
	require.NoError(t, err)
	require.Equal(t, "Chess & Go", renamed.Name)

	_, err = e.clubs.Update(ctx, club.ID, &validation.ClubPatch{Name: ptr("")})
	require.ErrorIs(t, err, validation.ErrInvalidInput)

	require.NoError(t, e.clubs.Delete(ctx, club.ID))
	_, err = e.clubs.Get(ctx, club.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, e.clubs.Delete(ctx, club.ID), repository.ErrNotFound)
}

func TestClubService_SearchByName(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	e.club(t, "Chess Club")
	e.club(t, "Rowing")
	e.club(t, "Speed CHESS")

	clubs, err := e.clubs.SearchByName(ctx, " chess ")
	require.NoError(t, err)
	require.Len(t, clubs, 2)
	assert.Equal(t, "Speed CHESS", clubs[0].Name)
	assert.Equal(t, "Chess Club", clubs[1].Name)
}

func TestMembershipService(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")
	alice, bob := e.user(t), e.user(t)

	m, err := e.memberships.Create(ctx, &validation.MembershipInput{ClubID: club.ID, UserID: alice.ID, Role: models.MembershipRoleMember})
	require.NoError(t, err)

	_, err = e.memberships.Create(ctx, &validation.MembershipInput{ClubID: club.ID, UserID: alice.ID, Role: models.MembershipRoleMember})
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = e.memberships.Create(ctx, &validation.MembershipInput{ClubID: "missing", UserID: alice.ID, Role: models.MembershipRoleMember})
	require.ErrorIs(t, err, repository.ErrInvalidReference)

	updated, err := e.memberships.Update(ctx, m.ID, &validation.MembershipPatch{Role: ptr(models.MembershipRoleTreasurer)})
	require.NoError(t, err)
	require.Equal(t, models.MembershipRoleTreasurer, updated.Role)

	_, err = e.memberships.Create(ctx, &validation.MembershipInput{ClubID: club.ID, UserID: bob.ID, Role: models.MembershipRoleMember})
	require.NoError(t, err)

	byClub, err := e.memberships.ListByClub(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, byClub, 2)

	byUser, err := e.memberships.ListByUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)

	t.Run("treasurer view", func(t *testing.T) {
		view, err := e.memberships.TreasurerView(ctx, alice.ID)
		require.NoError(t, err)
		require.Equal(t, club.ID, view.Club.ID)
		require.Len(t, view.Memberships, 2)

		_, err = e.memberships.TreasurerView(ctx, bob.ID)
		require.ErrorIs(t, err, ErrNotTreasurer)
	})

	require.NoError(t, e.memberships.Delete(ctx, m.ID))
	_, err = e.memberships.Get(ctx, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
