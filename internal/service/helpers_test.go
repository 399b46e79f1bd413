package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"gitlab.com/sgtreasury/tally/internal/mailer"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository/repotest"
	"gitlab.com/sgtreasury/tally/internal/storage"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

const testBucket = "reimbursements"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Invite
	err  error
}

func (f *fakeMailer) SendInvite(_ context.Context, invite mailer.Invite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, invite)
	return nil
}

type noteCall struct {
	kind string
	id   string
	from models.ReimbursementStatus
	to   models.ReimbursementStatus
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []noteCall
	err   error
}

func (f *fakeNotifier) ReimbursementSubmitted(_ context.Context, r *models.Reimbursement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, noteCall{kind: "submitted", id: r.ID, to: r.Status})
	return f.err
}

func (f *fakeNotifier) ReimbursementStatusChanged(_ context.Context, r *models.Reimbursement, from models.ReimbursementStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, noteCall{kind: "status", id: r.ID, from: from, to: r.Status})
	return f.err
}

type env struct {
	store   *repotest.Store
	objects *storage.MemoryStore
	mail    *fakeMailer
	notes   *fakeNotifier
	now     time.Time

	users          *UserService
	clubs          *ClubService
	memberships    *MembershipService
	invites        *InviteService
	budget         *BudgetService
	reimbursements *ReimbursementService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		store:   repotest.New(),
		objects: storage.NewMemoryStore(),
		mail:    &fakeMailer{},
		notes:   &fakeNotifier{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return e.now }
	files := storage.NewService(e.objects, testBucket)

	e.users = NewUserService(e.store.Users())
	e.clubs = NewClubService(e.store.Clubs())
	e.memberships = NewMembershipService(e.store.Memberships(), e.store.Clubs())
	e.invites = NewInviteService(e.store.Invites(), e.store.Clubs(), e.store.Memberships(), e.mail, "https://tally.example.edu/")
	e.invites.now = clock
	e.budget = NewBudgetService(e.store.Sections(), e.store.Items(), e.store.Clubs())
	e.reimbursements = NewReimbursementService(
		e.store.Reimbursements(), e.store.Clubs(), e.store.Users(), e.store.Items(), files, e.notes,
	)
	e.reimbursements.now = clock
	return e
}

func (e *env) user(t *testing.T) *models.User {
	t.Helper()
	in := &validation.UserInput{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     gofakeit.Email(),
	}
	u, err := e.users.Sync(context.Background(), Actor{UserID: gofakeit.UUID(), Email: in.Email}, in)
	require.NoError(t, err)
	return u
}

func (e *env) club(t *testing.T, name string) *models.Club {
	t.Helper()
	c, err := e.clubs.Create(context.Background(), &validation.ClubInput{Name: name})
	require.NoError(t, err)
	return c
}

func (e *env) item(t *testing.T, clubID string, allocated int64) *models.BudgetItem {
	t.Helper()
	ctx := context.Background()
	sec, err := e.budget.CreateSection(ctx, &validation.BudgetSectionInput{ClubID: clubID, Title: gofakeit.Word()})
	require.NoError(t, err)
	item, err := e.budget.CreateItem(ctx, &validation.BudgetItemInput{
		SectionID: sec.ID, Label: gofakeit.Word(), Category: models.BudgetCategoryNonFood, AllocatedCents: allocated,
	})
	require.NoError(t, err)
	return item
}

func (e *env) reimbursement(t *testing.T, actor *models.User, clubID string) *models.Reimbursement {
	t.Helper()
	rb, err := e.reimbursements.Create(context.Background(), Actor{UserID: actor.ID, Email: actor.Email}, &validation.ReimbursementInput{
		ClubID:      clubID,
		PayeeUserID: actor.ID,
		AmountCents: 2500,
		Description: "Poster printing",
		Status:      models.StatusSubmitted,
	}, nil)
	require.NoError(t, err)
	return rb
}

func ptr[T any](v T) *T { return &v }

var errBoom = errors.New("boom")
