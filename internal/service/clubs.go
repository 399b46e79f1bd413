package service

import (
	"context"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// ClubService manages clubs.
type ClubService struct {
	clubs ClubStore
}

// NewClubService creates a ClubService.
func NewClubService(clubs ClubStore) *ClubService {
	return &ClubService{clubs: clubs}
}

// Create inserts a club.
func (s *ClubService) Create(ctx context.Context, in *validation.ClubInput) (*models.Club, error) {
	club := &models.Club{Name: in.Name}
	if err := s.clubs.Create(ctx, club); err != nil {
		return nil, err
	}
	return club, nil
}

// Get returns a club by id.
func (s *ClubService) Get(ctx context.Context, id string) (*models.Club, error) {
	return s.clubs.GetByID(ctx, id)
}

// List returns every club.
func (s *ClubService) List(ctx context.Context) ([]models.Club, error) {
	return s.clubs.List(ctx)
}

// SearchByName matches clubs whose name contains q, ignoring case.
func (s *ClubService) SearchByName(ctx context.Context, q string) ([]models.Club, error) {
	return s.clubs.SearchByName(ctx, strings.TrimSpace(q))
}

// Update renames a club.
func (s *ClubService) Update(ctx context.Context, id string, patch *validation.ClubPatch) (*models.Club, error) {
	club, err := s.clubs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(club)
	if club.Name == "" {
		return nil, validation.Invalid("name", "required")
	}
	if err := s.clubs.Update(ctx, club); err != nil {
		return nil, err
	}
	return club, nil
}

// Delete removes a club and, by cascade, everything under it.
func (s *ClubService) Delete(ctx context.Context, id string) error {
	return s.clubs.Delete(ctx, id)
}
