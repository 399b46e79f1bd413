package client

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func TestTreasurerCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	c, me := h.user(t)

	club, err := c.CreateClub(ctx, &validation.ClubInput{Name: "Outing Club"})
	require.NoError(t, err)

	cache := NewTreasurerCache(c)
	_, loaded := cache.Get()
	require.False(t, loaded)

	t.Run("not a treasurer caches nil", func(t *testing.T) {
		view, err := cache.Hydrate(ctx, me.ID)
		require.NoError(t, err)
		assert.Nil(t, view)
		_, loaded := cache.Get()
		assert.True(t, loaded)
	})

	_, err = c.CreateMembership(ctx, &validation.MembershipInput{ClubID: club.ID, UserID: me.ID, Role: models.MembershipRoleTreasurer})
	require.NoError(t, err)

	view, err := cache.Hydrate(ctx, me.ID)
	require.NoError(t, err)
	assert.Nil(t, view, "hydrate keeps the first snapshot")

	view, err = cache.Refresh(ctx, me.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, club.ID, view.Club.ID)
	require.Len(t, view.Memberships, 1)

	// Callers get copies.
	view.Memberships[0].Role = models.MembershipRoleMember
	snap, _ := cache.Get()
	assert.Equal(t, models.MembershipRoleTreasurer, snap.Memberships[0].Role)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			v, ok := cache.Get()
			assert.True(t, ok)
			assert.NotNil(t, v)
		})
	}
	wg.Wait()

	t.Run("another user refetches", func(t *testing.T) {
		_, other := h.user(t)
		v, err := cache.Hydrate(ctx, other.ID)
		require.NoError(t, err)
		assert.Nil(t, v)

		v, err = cache.Hydrate(ctx, me.ID)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, club.ID, v.Club.ID)
	})

	cache.Clear()
	_, loaded = cache.Get()
	assert.False(t, loaded)

	view, err = cache.Hydrate(ctx, me.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
}
