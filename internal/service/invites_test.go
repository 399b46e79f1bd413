package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (e *env) invite(t *testing.T, clubID, email string, role models.MembershipRole, expires time.Time) *models.ClubInvite {
	t.Helper()
	inv, err := e.invites.Create(context.Background(), &validation.InviteInput{
		ClubID: clubID, Email: email, Role: role, ExpiresAt: validation.FlexTime{Time: expires},
	})
	require.NoError(t, err)
	return inv
}

func TestInviteService_Create(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")

	inv := e.invite(t, club.ID, "ada@example.edu", models.MembershipRoleTreasurer, e.now.Add(48*time.Hour))
	require.NotEmpty(t, inv.ID)

	require.Len(t, e.mail.sent, 1)
	sent := e.mail.sent[0]
	assert.Equal(t, "ada@example.edu", sent.To)
	assert.Equal(t, "Chess", sent.ClubName)
	assert.Equal(t, "treasurer", sent.Role)
	assert.Equal(t, "https://tally.example.edu/invites?clubId="+club.ID, sent.AcceptURL)

	t.Run("unknown club", func(t *testing.T) {
		_, err := e.invites.Create(ctx, &validation.InviteInput{
			ClubID: "missing", Email: "x@example.edu", Role: models.MembershipRoleMember,
			ExpiresAt: validation.FlexTime{Time: e.now.Add(time.Hour)},
		})
		require.ErrorIs(t, err, validation.ErrInvalidInput)
	})

	t.Run("email failure keeps the invite", func(t *testing.T) {
		e.mail.err = errBoom
		defer func() { e.mail.err = nil }()

		inv, err := e.invites.Create(ctx, &validation.InviteInput{
			ClubID: club.ID, Email: "bob@example.edu", Role: models.MembershipRoleMember,
			ExpiresAt: validation.FlexTime{Time: e.now.Add(time.Hour)},
		})
		require.ErrorIs(t, err, ErrEmailNotSent)
		require.ErrorIs(t, err, errBoom)
		require.NotNil(t, inv)

		stored, err := e.invites.Get(ctx, inv.ID)
		require.NoError(t, err)
		require.Equal(t, "bob@example.edu", stored.Email)
	})
}

func TestInviteService_Pending(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	user := e.user(t)
	chess, rowing, joined, stale := e.club(t, "Chess"), e.club(t, "Rowing"), e.club(t, "Joined"), e.club(t, "Stale")

	later := e.now.Add(24 * time.Hour)
	e.invite(t, chess.ID, user.Email, models.MembershipRoleMember, later)
	e.invite(t, chess.ID, user.Email, models.MembershipRoleTreasurer, later)
	e.invite(t, chess.ID, user.Email, models.MembershipRoleMember, later)
	e.invite(t, rowing.ID, user.Email, models.MembershipRoleMember, later)
	e.invite(t, joined.ID, user.Email, models.MembershipRoleMember, later)
	e.invite(t, stale.ID, user.Email, models.MembershipRoleTreasurer, e.now.Add(-time.Minute))
	e.invite(t, chess.ID, "someone@else.edu", models.MembershipRoleTreasurer, later)

	_, err := e.memberships.Create(ctx, &validation.MembershipInput{ClubID: joined.ID, UserID: user.ID, Role: models.MembershipRoleMember})
	require.NoError(t, err)

	pending, err := e.invites.Pending(ctx, user.Email, user.ID)
	require.NoError(t, err)

	roles := make(map[string]models.MembershipRole)
	for _, inv := range pending {
		_, dup := roles[inv.ClubID]
		require.False(t, dup, "one entry per club")
		roles[inv.ClubID] = inv.Role
	}
	require.Equal(t, map[string]models.MembershipRole{
		chess.ID:  models.MembershipRoleTreasurer,
		rowing.ID: models.MembershipRoleMember,
	}, roles)

	t.Run("case-insensitive email", func(t *testing.T) {
		upper, err := e.invites.Pending(ctx, "  "+user.Email+" ", user.ID)
		require.NoError(t, err)
		require.Len(t, upper, 2)
	})
}

func TestInviteService_Accept(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	user := e.user(t)
	actor := Actor{UserID: user.ID, Email: user.Email}
	club := e.club(t, "Chess")

	e.invite(t, club.ID, user.Email, models.MembershipRoleMember, e.now.Add(time.Hour))
	e.invite(t, club.ID, user.Email, models.MembershipRoleTreasurer, e.now.Add(time.Hour))

	m, err := e.invites.Accept(ctx, actor, club.ID)
	require.NoError(t, err)
	require.Equal(t, models.MembershipRoleTreasurer, m.Role)

	left, err := e.invites.ListByClub(ctx, club.ID)
	require.NoError(t, err)
	require.Empty(t, left)

	_, err = e.invites.Accept(ctx, actor, club.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	t.Run("expired", func(t *testing.T) {
		other := e.club(t, "Rowing")
		e.invite(t, other.ID, user.Email, models.MembershipRoleMember, e.now.Add(-time.Second))

		_, err := e.invites.Accept(ctx, actor, other.ID)
		require.ErrorIs(t, err, ErrInviteExpired)

		kept, err := e.invites.ListByClub(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, kept, 1)
	})
}

func TestInviteService_AcceptConcurrently(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	user := e.user(t)
	actor := Actor{UserID: user.ID, Email: user.Email}
	club := e.club(t, "Chess")
	e.invite(t, club.ID, user.Email, models.MembershipRoleMember, e.now.Add(time.Hour))

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, miss int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.invites.Accept(ctx, actor, club.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, repository.ErrNotFound) {
				miss++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, attempts-1, miss)
	members, err := e.memberships.ListByClub(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestInviteService_Decline(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	user := e.user(t)
	actor := Actor{UserID: user.ID, Email: user.Email}
	club := e.club(t, "Chess")
	e.invite(t, club.ID, user.Email, models.MembershipRoleMember, e.now.Add(time.Hour))

	require.NoError(t, e.invites.Decline(ctx, actor, club.ID))
	require.ErrorIs(t, e.invites.Decline(ctx, actor, club.ID), repository.ErrNotFound)

	members, err := e.memberships.ListByClub(ctx, club.ID)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestInviteService_UpdateAndPurge(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()
	club := e.club(t, "Chess")
	live := e.invite(t, club.ID, "a@example.edu", models.MembershipRoleMember, e.now.Add(time.Hour))
	e.invite(t, club.ID, "b@example.edu", models.MembershipRoleMember, e.now.Add(-time.Hour))
	e.invite(t, club.ID, "c@example.edu", models.MembershipRoleMember, e.now)

	updated, err := e.invites.Update(ctx, live.ID, &validation.InvitePatch{Role: ptr(models.MembershipRoleTreasurer)})
	require.NoError(t, err)
	require.Equal(t, models.MembershipRoleTreasurer, updated.Role)
	require.True(t, updated.ExpiresAt.Equal(live.ExpiresAt))

	n, err := e.invites.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	all, err := e.invites.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, live.ID, all[0].ID)
}

func TestRunInviteSweeper(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	club := e.club(t, "Chess")
	e.invite(t, club.ID, "gone@example.edu", models.MembershipRoleMember, e.now.Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunInviteSweeper(ctx, e.invites, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		all, err := e.invites.List(context.Background())
		return err == nil && len(all) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunInviteSweeper_Disabled(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	// Returns immediately without a running loop.
	RunInviteSweeper(context.Background(), e.invites, 0)
}
