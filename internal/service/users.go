package service

import (
	"context"
	"fmt"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// UserService manages user profiles.
type UserService struct {
	users UserStore
}

// NewUserService creates a UserService.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Sync creates or refreshes the actor's row on sign-in. The id and email
// come from the verified token, never from the payload.
func (s *UserService) Sync(ctx context.Context, actor Actor, in *validation.UserInput) (*models.User, error) {
	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	if actor.Email != "" {
		in.Email = validation.NormalizeEmail(actor.Email)
	}
	user, err := s.users.Upsert(ctx, in.ToModel(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	logger.Log.Debug().
		Str("user", logger.HashID(user.ID)).
		Msg("User synced")
	return user, nil
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByEmail returns a user by email, ignoring case.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
}

// List returns every user.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// Update patches a profile. Only the owner may change it.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, patch *validation.UserPatch) (*models.User, error) {
	if actor.UserID != id {
		return nil, ErrForbidden
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(user)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
