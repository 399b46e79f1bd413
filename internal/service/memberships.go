package service

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// MembershipService manages club memberships.
type MembershipService struct {
	memberships MembershipStore
	clubs       ClubStore
}

// NewMembershipService creates a MembershipService.
func NewMembershipService(memberships MembershipStore, clubs ClubStore) *MembershipService {
	return &MembershipService{memberships: memberships, clubs: clubs}
}

// Create adds a user to a club. A second membership for the same pair is
// a conflict.
func (s *MembershipService) Create(ctx context.Context, in *validation.MembershipInput) (*models.ClubMembership, error) {
	m := &models.ClubMembership{ClubID: in.ClubID, UserID: in.UserID, Role: in.Role}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Get returns a membership by id.
func (s *MembershipService) Get(ctx context.Context, id string) (*models.ClubMembership, error) {
	return s.memberships.GetByID(ctx, id)
}

// List returns every membership.
func (s *MembershipService) List(ctx context.Context) ([]models.ClubMembership, error) {
	return s.memberships.List(ctx)
}

// ListByUser returns the user's memberships.
func (s *MembershipService) ListByUser(ctx context.Context, userID string) ([]models.ClubMembership, error) {
	return s.memberships.ListByUser(ctx, userID)
}

// ListByClub returns the club's memberships.
func (s *MembershipService) ListByClub(ctx context.Context, clubID string) ([]models.ClubMembership, error) {
	return s.memberships.ListByClub(ctx, clubID)
}

// TreasurerView returns the club the user treasures and its memberships.
// A user who treasures several clubs sees the most recent one.
func (s *MembershipService) TreasurerView(ctx context.Context, userID string) (*models.TreasurerView, error) {
	m, err := s.memberships.GetTreasurerMembership(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotTreasurer
	}
	if err != nil {
		return nil, err
	}

	club, err := s.clubs.GetByID(ctx, m.ClubID)
	if err != nil {
		return nil, fmt.Errorf("failed to load treasurer club: %w", err)
	}
	members, err := s.memberships.ListByClub(ctx, club.ID)
	if err != nil {
		return nil, err
	}
	return &models.TreasurerView{Club: *club, Memberships: members}, nil
}

// Update changes a member's role.
func (s *MembershipService) Update(ctx context.Context, id string, patch *validation.MembershipPatch) (*models.ClubMembership, error) {
	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(m)
	if err := s.memberships.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a membership.
func (s *MembershipService) Delete(ctx context.Context, id string) error {
	return s.memberships.Delete(ctx, id)
}
