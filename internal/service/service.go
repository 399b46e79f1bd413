// Package service holds the business rules that sit between the HTTP
// handlers and the repositories: defaults, merged-row validation, the
// reimbursement status machine, the invite flows and their side effects.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"gitlab.com/sgtreasury/tally/internal/gemini"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
)

var (
	// ErrInvalidTransition is returned when a status change is not in the
	// reimbursement transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotTreasurer is returned when the user treasures no club.
	ErrNotTreasurer = errors.New("user is not a treasurer of any club")
	// ErrForbidden is returned when the actor may not touch the row.
	ErrForbidden = errors.New("forbidden")
	// ErrInviteExpired is returned when every matching invite has expired.
	ErrInviteExpired = errors.New("invite has expired")
	// ErrEmailNotSent wraps a mailer failure after the invite was stored.
	ErrEmailNotSent = errors.New("invite email was not sent")
	// ErrScanningDisabled is returned when no receipt scanner is configured.
	ErrScanningDisabled = errors.New("receipt scanning is not configured")
)

// Actor is the authenticated caller.
type Actor struct {
	UserID string
	Email  string
}

type actorKey struct{}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor set by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UserStore persists users.
type UserStore interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// ClubStore persists clubs.
type ClubStore interface {
	Create(ctx context.Context, club *models.Club) error
	GetByID(ctx context.Context, id string) (*models.Club, error)
	List(ctx context.Context) ([]models.Club, error)
	SearchByName(ctx context.Context, q string) ([]models.Club, error)
	Update(ctx context.Context, club *models.Club) error
	Delete(ctx context.Context, id string) error
}

// MembershipStore persists club memberships.
type MembershipStore interface {
	Create(ctx context.Context, m *models.ClubMembership) error
	GetByID(ctx context.Context, id string) (*models.ClubMembership, error)
	List(ctx context.Context) ([]models.ClubMembership, error)
	ListByUser(ctx context.Context, userID string) ([]models.ClubMembership, error)
	ListByClub(ctx context.Context, clubID string) ([]models.ClubMembership, error)
	GetTreasurerMembership(ctx context.Context, userID string) (*models.ClubMembership, error)
	Update(ctx context.Context, m *models.ClubMembership) error
	Delete(ctx context.Context, id string) error
}

// InviteStore persists club invites. Accept must be atomic.
type InviteStore interface {
	Create(ctx context.Context, invite *models.ClubInvite) error
	GetByID(ctx context.Context, id string) (*models.ClubInvite, error)
	List(ctx context.Context) ([]models.ClubInvite, error)
	ListByEmail(ctx context.Context, email string) ([]models.ClubInvite, error)
	ListByClub(ctx context.Context, clubID string) ([]models.ClubInvite, error)
	Update(ctx context.Context, invite *models.ClubInvite) error
	Delete(ctx context.Context, id string) error
	Accept(ctx context.Context, email, clubID, userID string, now time.Time) (*models.ClubMembership, error)
	Decline(ctx context.Context, email, clubID string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// BudgetSectionStore persists budget sections.
type BudgetSectionStore interface {
	Create(ctx context.Context, section *models.BudgetSection) error
	GetByID(ctx context.Context, id string) (*models.BudgetSection, error)
	List(ctx context.Context) ([]models.BudgetSection, error)
	ListByClub(ctx context.Context, clubID string) ([]models.BudgetSection, error)
	Totals(ctx context.Context, clubID string) ([]models.SectionTotal, error)
	Update(ctx context.Context, section *models.BudgetSection) error
	Delete(ctx context.Context, id string) error
}

// BudgetItemStore persists budget items.
type BudgetItemStore interface {
	Create(ctx context.Context, item *models.BudgetItem) error
	GetByID(ctx context.Context, id string) (*models.BudgetItem, error)
	List(ctx context.Context) ([]models.BudgetItem, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.BudgetItem, error)
	Update(ctx context.Context, item *models.BudgetItem) error
	Delete(ctx context.Context, id string) error
}

// ReimbursementStore persists reimbursements. Delete must only remove the
// row when remove succeeds.
type ReimbursementStore interface {
	Create(ctx context.Context, rb *models.Reimbursement) error
	GetByID(ctx context.Context, id string) (*models.Reimbursement, error)
	List(ctx context.Context) ([]models.Reimbursement, error)
	ListByPayee(ctx context.Context, payeeUserID string) ([]models.Reimbursement, error)
	ListByClub(ctx context.Context, clubID string) ([]models.Reimbursement, error)
	Update(ctx context.Context, rb *models.Reimbursement) error
	Delete(ctx context.Context, id string, remove repository.RemoveFilesFunc) error
}

// FileStore uploads, removes and signs stored files.
type FileStore interface {
	Upload(ctx context.Context, kind, filename, contentType string, r io.Reader, size int64) (string, error)
	Remove(ctx context.Context, refs []string) error
	SignedURL(ctx context.Context, ref string) (string, error)
	Check(ref string) error
}

// ReceiptScanner extracts reimbursement fields from a receipt image.
type ReceiptScanner interface {
	ParseReceipt(ctx context.Context, image []byte, mimeType string) (*gemini.Receipt, error)
}

var (
	_ UserStore          = (*repository.UserRepository)(nil)
	_ ClubStore          = (*repository.ClubRepository)(nil)
	_ MembershipStore    = (*repository.MembershipRepository)(nil)
	_ InviteStore        = (*repository.InviteRepository)(nil)
	_ BudgetSectionStore = (*repository.BudgetSectionRepository)(nil)
	_ BudgetItemStore    = (*repository.BudgetItemRepository)(nil)
	_ ReimbursementStore = (*repository.ReimbursementRepository)(nil)
	_ ReceiptScanner     = (*gemini.Client)(nil)
)
