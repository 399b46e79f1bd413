package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

func TestMembershipRepository(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewMembershipRepository(tx)

	user := seedUser(t, tx)
	club := seedClub(t, tx)

	m := &models.ClubMembership{ClubID: club.ID, UserID: user.ID}
	require.NoError(t, repo.Create(ctx, m))
	require.Equal(t, models.MembershipRoleMember, m.Role)

	t.Run("duplicate membership conflicts", func(t *testing.T) {
		err := inSavepoint(t, tx, func(sp database.DB) error {
			return NewMembershipRepository(sp).Create(ctx, &models.ClubMembership{ClubID: club.ID, UserID: user.ID})
		})
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown club is an invalid reference", func(t *testing.T) {
		err := inSavepoint(t, tx, func(sp database.DB) error {
			return NewMembershipRepository(sp).Create(ctx, &models.ClubMembership{ClubID: "missing", UserID: user.ID})
		})
		require.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("lists by user and club", func(t *testing.T) {
		byUser, err := repo.ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, byUser, 1)

		byClub, err := repo.ListByClub(ctx, club.ID)
		require.NoError(t, err)
		require.Len(t, byClub, 1)
		require.Equal(t, m.ID, byClub[0].ID)
	})

	t.Run("treasurer membership is the newest treasurer role", func(t *testing.T) {
		_, err := repo.GetTreasurerMembership(ctx, user.ID)
		require.ErrorIs(t, err, ErrNotFound)

		m.Role = models.MembershipRoleTreasurer
		require.NoError(t, repo.Update(ctx, m))

		second := seedClub(t, tx)
		newer := &models.ClubMembership{ClubID: second.ID, UserID: user.ID, Role: models.MembershipRoleTreasurer}
		require.NoError(t, repo.Create(ctx, newer))
		backdate(t, tx, "club_memberships", m.ID, time.Hour)

		got, err := repo.GetTreasurerMembership(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, newer.ID, got.ID)
	})

	t.Run("deletes membership", func(t *testing.T) {
		other := &models.ClubMembership{ClubID: seedClub(t, tx).ID, UserID: user.ID}
		require.NoError(t, repo.Create(ctx, other))
		require.NoError(t, repo.Delete(ctx, other.ID))

		_, err := repo.GetByID(ctx, other.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, repo.Delete(ctx, other.ID), ErrNotFound)
	})

	t.Run("deleting the club cascades", func(t *testing.T) {
		require.NoError(t, NewClubRepository(tx).Delete(ctx, club.ID))
		_, err := repo.GetByID(ctx, m.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}
