// Package repotest provides in-memory stores with the same observable
// behavior as the PostgreSQL repositories: sentinel errors, foreign keys,
// cascades, newest-first ordering and atomic invite accept / reimbursement
// delete. Service and API tests use it in place of a database.
package repotest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
)

// Store holds every table. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	clock time.Time

	// Err, when set, is returned by every operation.
	Err error

	users          map[string]models.User
	clubs          map[string]models.Club
	memberships    map[string]models.ClubMembership
	invites        map[string]models.ClubInvite
	sections       map[string]models.BudgetSection
	items          map[string]models.BudgetItem
	reimbursements map[string]models.Reimbursement
}

// New creates an empty store.
func New() *Store {
	return &Store{
		clock:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:          make(map[string]models.User),
		clubs:          make(map[string]models.Club),
		memberships:    make(map[string]models.ClubMembership),
		invites:        make(map[string]models.ClubInvite),
		sections:       make(map[string]models.BudgetSection),
		items:          make(map[string]models.BudgetItem),
		reimbursements: make(map[string]models.Reimbursement),
	}
}

// tick advances the store clock so rows created in sequence sort in
// creation order.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *Store) lock() error {
	s.mu.Lock()
	if s.Err != nil {
		err := s.Err
		s.mu.Unlock()
		return err
	}
	return nil
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func notFound(what string) error {
	return fmt.Errorf("failed to get %s: %w", what, repository.ErrNotFound)
}

func invalidRef(what string) error {
	return fmt.Errorf("failed to write %s: %w", what, repository.ErrInvalidReference)
}

func newestFirst[T any](rows []T, created func(*T) time.Time, id func(*T) string) []T {
	slices.SortFunc(rows, func(a, b T) int {
		if c := created(&b).Compare(created(&a)); c != 0 {
			return c
		}
		return cmp.Compare(id(&b), id(&a))
	})
	return rows
}

func values[K comparable, V any](m map[K]V, keep func(*V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(&v) {
			out = append(out, v)
		}
	}
	return out
}

// Users returns the users table.
func (s *Store) Users() *Users { return &Users{s} }

// Clubs returns the clubs table.
func (s *Store) Clubs() *Clubs { return &Clubs{s} }

// Memberships returns the club memberships table.
func (s *Store) Memberships() *Memberships { return &Memberships{s} }

// Invites returns the club invites table.
func (s *Store) Invites() *Invites { return &Invites{s} }

// Sections returns the budget sections table.
func (s *Store) Sections() *Sections { return &Sections{s} }

// Items returns the budget items table.
func (s *Store) Items() *Items { return &Items{s} }

// Reimbursements returns the reimbursements table.
func (s *Store) Reimbursements() *Reimbursements { return &Reimbursements{s} }

// Users is the in-memory users table.
type Users struct{ s *Store }

func userCreated(u *models.User) time.Time { return u.CreatedAt }
func userID(u *models.User) string         { return u.ID }

// Upsert inserts the user or refreshes the email of an existing row.
func (t *Users) Upsert(_ context.Context, user *models.User) (*models.User, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, other := range s.users {
		if other.ID != user.ID && other.Email == email {
			return nil, fmt.Errorf("failed to upsert user: %w", repository.ErrConflict)
		}
	}
	now := s.tick()
	if existing, ok := s.users[user.ID]; ok {
		existing.Email = email
		existing.UpdatedAt = now
		s.users[user.ID] = existing
		return &existing, nil
	}
	u := *user
	u.Email = email
	if u.Role == "" {
		u.Role = models.UserRoleMember
	}
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u
	return &u, nil
}

// GetByID returns a user.
func (t *Users) GetByID(_ context.Context, id string) (*models.User, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

// GetByEmail returns a user by email, ignoring case.
func (t *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("user")
}

// List returns every user.
func (t *Users) List(_ context.Context) ([]models.User, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.users, nil), userCreated, userID), nil
}

// Update writes the profile and role.
func (t *Users) Update(_ context.Context, user *models.User) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return notFound("user")
	}
	u := *user
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = s.tick()
	s.users[u.ID] = u
	user.UpdatedAt = u.UpdatedAt
	return nil
}

// Clubs is the in-memory clubs table.
type Clubs struct{ s *Store }

func clubCreated(c *models.Club) time.Time { return c.CreatedAt }
func clubID(c *models.Club) string         { return c.ID }

// Create inserts a club.
func (t *Clubs) Create(_ context.Context, club *models.Club) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	ensureID(&club.ID)
	if _, ok := s.clubs[club.ID]; ok {
		return fmt.Errorf("failed to create club: %w", repository.ErrConflict)
	}
	now := s.tick()
	club.CreatedAt, club.UpdatedAt = now, now
	s.clubs[club.ID] = *club
	return nil
}

// GetByID returns a club.
func (t *Clubs) GetByID(_ context.Context, id string) (*models.Club, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	c, ok := s.clubs[id]
	if !ok {
		return nil, notFound("club")
	}
	return &c, nil
}

// List returns every club.
func (t *Clubs) List(_ context.Context) ([]models.Club, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.clubs, nil), clubCreated, clubID), nil
}

// SearchByName matches a case-insensitive substring of the name.
func (t *Clubs) SearchByName(_ context.Context, q string) ([]models.Club, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	q = strings.ToLower(q)
	rows := values(s.clubs, func(c *models.Club) bool {
		return strings.Contains(strings.ToLower(c.Name), q)
	})
	return newestFirst(rows, clubCreated, clubID), nil
}

// Update writes the club's name.
func (t *Clubs) Update(_ context.Context, club *models.Club) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.clubs[club.ID]
	if !ok {
		return notFound("club")
	}
	existing.Name = club.Name
	existing.UpdatedAt = s.tick()
	s.clubs[club.ID] = existing
	club.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete removes a club and cascades to its memberships, invites, budget
// and reimbursements.
func (t *Clubs) Delete(_ context.Context, id string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.clubs[id]; !ok {
		return notFound("club")
	}
	delete(s.clubs, id)
	for k, m := range s.memberships {
		if m.ClubID == id {
			delete(s.memberships, k)
		}
	}
	for k, inv := range s.invites {
		if inv.ClubID == id {
			delete(s.invites, k)
		}
	}
	for k, sec := range s.sections {
		if sec.ClubID == id {
			s.deleteSectionLocked(k)
		}
	}
	for k, rb := range s.reimbursements {
		if rb.ClubID == id {
			delete(s.reimbursements, k)
		}
	}
	return nil
}

// Memberships is the in-memory club memberships table.
type Memberships struct{ s *Store }

func membershipCreated(m *models.ClubMembership) time.Time { return m.CreatedAt }
func membershipID(m *models.ClubMembership) string         { return m.ID }

// Create inserts a membership. A second row for the same club and user is
// a conflict.
func (t *Memberships) Create(_ context.Context, m *models.ClubMembership) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if m.Role == "" {
		m.Role = models.MembershipRoleMember
	}
	if _, ok := s.clubs[m.ClubID]; !ok {
		return invalidRef("membership")
	}
	if _, ok := s.users[m.UserID]; !ok {
		return invalidRef("membership")
	}
	for _, other := range s.memberships {
		if other.ClubID == m.ClubID && other.UserID == m.UserID {
			return fmt.Errorf("failed to create membership: %w", repository.ErrConflict)
		}
	}
	ensureID(&m.ID)
	now := s.tick()
	m.CreatedAt, m.UpdatedAt = now, now
	s.memberships[m.ID] = *m
	return nil
}

// GetByID returns a membership.
func (t *Memberships) GetByID(_ context.Context, id string) (*models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	m, ok := s.memberships[id]
	if !ok {
		return nil, notFound("membership")
	}
	return &m, nil
}

// List returns every membership.
func (t *Memberships) List(_ context.Context) ([]models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.memberships, nil), membershipCreated, membershipID), nil
}

// ListByUser returns the user's memberships.
func (t *Memberships) ListByUser(_ context.Context, userID string) ([]models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.memberships, func(m *models.ClubMembership) bool { return m.UserID == userID })
	return newestFirst(rows, membershipCreated, membershipID), nil
}

// ListByClub returns the club's memberships.
func (t *Memberships) ListByClub(_ context.Context, clubID string) ([]models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.memberships, func(m *models.ClubMembership) bool { return m.ClubID == clubID })
	return newestFirst(rows, membershipCreated, membershipID), nil
}

// GetTreasurerMembership returns the user's newest treasurer membership.
func (t *Memberships) GetTreasurerMembership(_ context.Context, userID string) (*models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := newestFirst(values(s.memberships, func(m *models.ClubMembership) bool {
		return m.UserID == userID && m.Role == models.MembershipRoleTreasurer
	}), membershipCreated, membershipID)
	if len(rows) == 0 {
		return nil, notFound("treasurer membership")
	}
	return &rows[0], nil
}

// Update writes the role.
func (t *Memberships) Update(_ context.Context, m *models.ClubMembership) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.memberships[m.ID]
	if !ok {
		return notFound("membership")
	}
	existing.Role = m.Role
	existing.UpdatedAt = s.tick()
	s.memberships[m.ID] = existing
	m.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete removes a membership.
func (t *Memberships) Delete(_ context.Context, id string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.memberships[id]; !ok {
		return notFound("membership")
	}
	delete(s.memberships, id)
	return nil
}

// Invites is the in-memory club invites table.
type Invites struct{ s *Store }

func inviteCreated(i *models.ClubInvite) time.Time { return i.CreatedAt }
func inviteID(i *models.ClubInvite) string         { return i.ID }

// Create inserts an invite with a lower-cased email.
func (t *Invites) Create(_ context.Context, invite *models.ClubInvite) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.clubs[invite.ClubID]; !ok {
		return invalidRef("invite")
	}
	if invite.Role == "" {
		invite.Role = models.MembershipRoleMember
	}
	ensureID(&invite.ID)
	invite.Email = strings.ToLower(invite.Email)
	now := s.tick()
	invite.CreatedAt, invite.UpdatedAt = now, now
	s.invites[invite.ID] = *invite
	return nil
}

// GetByID returns an invite.
func (t *Invites) GetByID(_ context.Context, id string) (*models.ClubInvite, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, notFound("invite")
	}
	return &inv, nil
}

// List returns every invite.
func (t *Invites) List(_ context.Context) ([]models.ClubInvite, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.invites, nil), inviteCreated, inviteID), nil
}

// ListByEmail returns the invites addressed to email, ignoring case.
func (t *Invites) ListByEmail(_ context.Context, email string) ([]models.ClubInvite, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.invites, func(i *models.ClubInvite) bool { return strings.EqualFold(i.Email, email) })
	return newestFirst(rows, inviteCreated, inviteID), nil
}

// ListByClub returns the club's invites.
func (t *Invites) ListByClub(_ context.Context, clubID string) ([]models.ClubInvite, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.invites, func(i *models.ClubInvite) bool { return i.ClubID == clubID })
	return newestFirst(rows, inviteCreated, inviteID), nil
}

// Update writes the role and expiry.
func (t *Invites) Update(_ context.Context, invite *models.ClubInvite) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.invites[invite.ID]
	if !ok {
		return notFound("invite")
	}
	existing.Role = invite.Role
	existing.ExpiresAt = invite.ExpiresAt
	existing.UpdatedAt = s.tick()
	s.invites[invite.ID] = existing
	invite.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete removes an invite.
func (t *Invites) Delete(_ context.Context, id string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.invites[id]; !ok {
		return notFound("invite")
	}
	delete(s.invites, id)
	return nil
}

// Accept consumes the invites for (email, clubID) and upserts a membership
// with the best live role. Nothing changes when it fails.
func (t *Invites) Accept(_ context.Context, email, clubID, userID string, now time.Time) (*models.ClubMembership, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	var (
		matched []string
		best    models.MembershipRole
	)
	for id, inv := range s.invites {
		if inv.ClubID != clubID || !strings.EqualFold(inv.Email, email) {
			continue
		}
		matched = append(matched, id)
		if inv.Expired(now) {
			continue
		}
		if inv.Role.Rank() > best.Rank() {
			best = inv.Role
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("failed to accept invite: %w", repository.ErrNotFound)
	}
	if best == "" {
		return nil, fmt.Errorf("failed to accept invite: %w", repository.ErrExpired)
	}
	if _, ok := s.users[userID]; !ok {
		return nil, invalidRef("membership")
	}

	for _, id := range matched {
		delete(s.invites, id)
	}

	ts := s.tick()
	for id, m := range s.memberships {
		if m.ClubID == clubID && m.UserID == userID {
			if m.Role != models.MembershipRoleTreasurer {
				m.Role = best
			}
			m.UpdatedAt = ts
			s.memberships[id] = m
			return &m, nil
		}
	}
	m := models.ClubMembership{ClubID: clubID, UserID: userID, Role: best, CreatedAt: ts, UpdatedAt: ts}
	ensureID(&m.ID)
	s.memberships[m.ID] = m
	return &m, nil
}

// Decline deletes the invites for (email, clubID).
func (t *Invites) Decline(_ context.Context, email, clubID string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	n := 0
	for id, inv := range s.invites {
		if inv.ClubID == clubID && strings.EqualFold(inv.Email, email) {
			delete(s.invites, id)
			n++
		}
	}
	if n == 0 {
		return fmt.Errorf("failed to decline invite: %w", repository.ErrNotFound)
	}
	return nil
}

// PurgeExpired deletes invites that expired at or before now.
func (t *Invites) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	var n int64
	for id, inv := range s.invites {
		if inv.Expired(now) {
			delete(s.invites, id)
			n++
		}
	}
	return n, nil
}

// Sections is the in-memory budget sections table.
type Sections struct{ s *Store }

func sectionCreated(b *models.BudgetSection) time.Time { return b.CreatedAt }
func sectionID(b *models.BudgetSection) string         { return b.ID }

// Create inserts a section.
func (t *Sections) Create(_ context.Context, section *models.BudgetSection) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.clubs[section.ClubID]; !ok {
		return invalidRef("budget section")
	}
	ensureID(&section.ID)
	now := s.tick()
	section.CreatedAt, section.UpdatedAt = now, now
	s.sections[section.ID] = *section
	return nil
}

// GetByID returns a section.
func (t *Sections) GetByID(_ context.Context, id string) (*models.BudgetSection, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok {
		return nil, notFound("budget section")
	}
	return &sec, nil
}

// List returns every section.
func (t *Sections) List(_ context.Context) ([]models.BudgetSection, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.sections, nil), sectionCreated, sectionID), nil
}

// ListByClub returns the club's sections.
func (t *Sections) ListByClub(_ context.Context, clubID string) ([]models.BudgetSection, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.sections, func(b *models.BudgetSection) bool { return b.ClubID == clubID })
	return newestFirst(rows, sectionCreated, sectionID), nil
}

// Totals sums allocated and spent cents per section of the club, ordered by
// title.
func (t *Sections) Totals(_ context.Context, clubID string) ([]models.SectionTotal, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	totals := make([]models.SectionTotal, 0)
	for _, sec := range s.sections {
		if sec.ClubID != clubID {
			continue
		}
		total := models.SectionTotal{SectionID: sec.ID, Title: sec.Title}
		for _, item := range s.items {
			if item.SectionID == sec.ID {
				total.AllocatedCents += item.AllocatedCents
				total.SpentCents += item.SpentCents
			}
		}
		totals = append(totals, total)
	}
	slices.SortFunc(totals, func(a, b models.SectionTotal) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.SectionID, b.SectionID)
	})
	return totals, nil
}

// Update writes the title and definition.
func (t *Sections) Update(_ context.Context, section *models.BudgetSection) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.sections[section.ID]
	if !ok {
		return notFound("budget section")
	}
	existing.Title = section.Title
	existing.Definition = section.Definition
	existing.UpdatedAt = s.tick()
	s.sections[section.ID] = existing
	section.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete removes a section and its items.
func (t *Sections) Delete(_ context.Context, id string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.sections[id]; !ok {
		return notFound("budget section")
	}
	s.deleteSectionLocked(id)
	return nil
}

func (s *Store) deleteSectionLocked(id string) {
	delete(s.sections, id)
	for k, item := range s.items {
		if item.SectionID == id {
			s.deleteItemLocked(k)
		}
	}
}

// Items is the in-memory budget items table.
type Items struct{ s *Store }

func itemCreated(i *models.BudgetItem) time.Time { return i.CreatedAt }
func itemID(i *models.BudgetItem) string         { return i.ID }

// Create inserts a line item.
func (t *Items) Create(_ context.Context, item *models.BudgetItem) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.sections[item.SectionID]; !ok {
		return invalidRef("budget item")
	}
	ensureID(&item.ID)
	now := s.tick()
	item.CreatedAt, item.UpdatedAt = now, now
	s.items[item.ID] = *item
	return nil
}

// GetByID returns a line item.
func (t *Items) GetByID(_ context.Context, id string) (*models.BudgetItem, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, notFound("budget item")
	}
	return &item, nil
}

// List returns every line item.
func (t *Items) List(_ context.Context) ([]models.BudgetItem, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return newestFirst(values(s.items, nil), itemCreated, itemID), nil
}

// ListBySection returns the section's line items.
func (t *Items) ListBySection(_ context.Context, sectionID string) ([]models.BudgetItem, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rows := values(s.items, func(i *models.BudgetItem) bool { return i.SectionID == sectionID })
	return newestFirst(rows, itemCreated, itemID), nil
}

// Update writes every editable column.
func (t *Items) Update(_ context.Context, item *models.BudgetItem) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.items[item.ID]
	if !ok {
		return notFound("budget item")
	}
	updated := *item
	updated.SectionID = existing.SectionID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.tick()
	s.items[item.ID] = updated
	item.UpdatedAt = updated.UpdatedAt
	return nil
}

// Delete removes a line item and unlinks it from reimbursements.
func (t *Items) Delete(_ context.Context, id string) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound("budget item")
	}
	s.deleteItemLocked(id)
	return nil
}

func (s *Store) deleteItemLocked(id string) {
	delete(s.items, id)
	for k, rb := range s.reimbursements {
		if rb.BudgetItemID != nil && *rb.BudgetItemID == id {
			rb.BudgetItemID = nil
			s.reimbursements[k] = rb
		}
	}
}

// Reimbursements is the in-memory reimbursements table.
type Reimbursements struct{ s *Store }

func reimbursementSubmitted(r *models.Reimbursement) time.Time { return r.SubmittedAt }
func reimbursementID(r *models.Reimbursement) string           { return r.ID }

func (s *Store) checkReimbursementRefsLocked(rb *models.Reimbursement) error {
	if _, ok := s.clubs[rb.ClubID]; !ok {
		return invalidRef("reimbursement")
	}
	if _, ok := s.users[rb.CreatedBy]; !ok {
		return invalidRef("reimbursement")
	}
	if _, ok := s.users[rb.PayeeUserID]; !ok {
		return invalidRef("reimbursement")
	}
	if rb.BudgetItemID != nil {
		if _, ok := s.items[*rb.BudgetItemID]; !ok {
			return invalidRef("reimbursement")
		}
	}
	return nil
}

func cloneReimbursement(rb models.Reimbursement) models.Reimbursement {
	if rb.BudgetItemID != nil {
		id := *rb.BudgetItemID
		rb.BudgetItemID = &id
	}
	return rb
}

// Create inserts a reimbursement. SubmittedAt defaults to the store clock.
func (t *Reimbursements) Create(_ context.Context, rb *models.Reimbursement) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if err := s.checkReimbursementRefsLocked(rb); err != nil {
		return err
	}
	if rb.Status == "" {
		rb.Status = models.StatusSubmitted
	}
	ensureID(&rb.ID)
	now := s.tick()
	if rb.SubmittedAt.IsZero() {
		rb.SubmittedAt = now
	}
	rb.CreatedAt, rb.UpdatedAt = now, now
	s.reimbursements[rb.ID] = cloneReimbursement(*rb)
	return nil
}

// GetByID returns a reimbursement.
func (t *Reimbursements) GetByID(_ context.Context, id string) (*models.Reimbursement, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	rb, ok := s.reimbursements[id]
	if !ok {
		return nil, notFound("reimbursement")
	}
	rb = cloneReimbursement(rb)
	return &rb, nil
}

func (s *Store) listReimbursementsLocked(keep func(*models.Reimbursement) bool) []models.Reimbursement {
	rows := values(s.reimbursements, keep)
	for i := range rows {
		rows[i] = cloneReimbursement(rows[i])
	}
	return newestFirst(rows, reimbursementSubmitted, reimbursementID)
}

// List returns every reimbursement, newest submission first.
func (t *Reimbursements) List(_ context.Context) ([]models.Reimbursement, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.listReimbursementsLocked(nil), nil
}

// ListByPayee returns the reimbursements owed to a user.
func (t *Reimbursements) ListByPayee(_ context.Context, payeeUserID string) ([]models.Reimbursement, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.listReimbursementsLocked(func(r *models.Reimbursement) bool { return r.PayeeUserID == payeeUserID }), nil
}

// ListByClub returns the club's reimbursements.
func (t *Reimbursements) ListByClub(_ context.Context, clubID string) ([]models.Reimbursement, error) {
	s := t.s
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.listReimbursementsLocked(func(r *models.Reimbursement) bool { return r.ClubID == clubID }), nil
}

// Update writes every mutable column.
func (t *Reimbursements) Update(_ context.Context, rb *models.Reimbursement) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	existing, ok := s.reimbursements[rb.ID]
	if !ok {
		return notFound("reimbursement")
	}
	if err := s.checkReimbursementRefsLocked(rb); err != nil {
		return err
	}
	updated := cloneReimbursement(*rb)
	updated.ClubID = existing.ClubID
	updated.CreatedBy = existing.CreatedBy
	updated.SubmittedAt = existing.SubmittedAt
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.tick()
	s.reimbursements[rb.ID] = updated
	rb.UpdatedAt = updated.UpdatedAt
	return nil
}

// Delete removes the reimbursement only if remove succeeds for its file
// references. The store lock is held throughout, like the row lock of the
// SQL implementation.
func (t *Reimbursements) Delete(ctx context.Context, id string, remove repository.RemoveFilesFunc) error {
	s := t.s
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	rb, ok := s.reimbursements[id]
	if !ok {
		return fmt.Errorf("failed to delete reimbursement: %w", repository.ErrNotFound)
	}
	if refs := rb.FileRefs(); len(refs) > 0 && remove != nil {
		if err := remove(ctx, refs); err != nil {
			return fmt.Errorf("failed to remove reimbursement files: %w", err)
		}
	}
	delete(s.reimbursements, id)
	return nil
}
