package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/mailer"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// InviteService manages club invites and their accept/decline flows.
type InviteService struct {
	invites     InviteStore
	clubs       ClubStore
	memberships MembershipStore
	mail        mailer.Sender
	baseURL     string
	now         func() time.Time
}

// NewInviteService creates an InviteService. baseURL is the public origin
// used to build the link in invite emails.
func NewInviteService(invites InviteStore, clubs ClubStore, memberships MembershipStore, mail mailer.Sender, baseURL string) *InviteService {
	if mail == nil {
		mail = mailer.LogSender{}
	}
	return &InviteService{
		invites:     invites,
		clubs:       clubs,
		memberships: memberships,
		mail:        mail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
	}
}

// Create stores the invite and emails the invitee. When the email fails the
// stored invite is still returned, together with an error wrapping
// ErrEmailNotSent.
func (s *InviteService) Create(ctx context.Context, in *validation.InviteInput) (*models.ClubInvite, error) {
	club, err := s.clubs.GetByID(ctx, in.ClubID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validation.Invalid("clubId", "exists")
	}
	if err != nil {
		return nil, err
	}

	invite := &models.ClubInvite{
		ClubID:    in.ClubID,
		Email:     in.Email,
		Role:      in.Role,
		ExpiresAt: in.ExpiresAt.Time,
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, err
	}
	metrics.invitesCreated.Add(ctx, 1)

	err = s.mail.SendInvite(ctx, mailer.Invite{
		To:        invite.Email,
		ClubName:  club.Name,
		Role:      string(invite.Role),
		ExpiresAt: invite.ExpiresAt,
		AcceptURL: s.acceptURL(invite.ClubID),
	})
	if err != nil {
		metrics.invitesEmailFailed.Add(ctx, 1)
		logger.Log.Error().Err(err).
			Str("invite_id", invite.ID).
			Str("email", logger.HashEmail(invite.Email)).
			Msg("Failed to send invite email")
		return invite, fmt.Errorf("%w: %w", ErrEmailNotSent, err)
	}
	return invite, nil
}

func (s *InviteService) acceptURL(clubID string) string {
	return s.baseURL + "/invites?clubId=" + url.QueryEscape(clubID)
}

// Get returns an invite by id.
func (s *InviteService) Get(ctx context.Context, id string) (*models.ClubInvite, error) {
	return s.invites.GetByID(ctx, id)
}

// List returns every invite.
func (s *InviteService) List(ctx context.Context) ([]models.ClubInvite, error) {
	return s.invites.List(ctx)
}

// ListByEmail returns the invites addressed to email, ignoring case.
func (s *InviteService) ListByEmail(ctx context.Context, email string) ([]models.ClubInvite, error) {
	return s.invites.ListByEmail(ctx, validation.NormalizeEmail(email))
}

// ListByClub returns the club's invites.
func (s *InviteService) ListByClub(ctx context.Context, clubID string) ([]models.ClubInvite, error) {
	return s.invites.ListByClub(ctx, clubID)
}

// Update changes the offered role or the expiry.
func (s *InviteService) Update(ctx context.Context, id string, patch *validation.InvitePatch) (*models.ClubInvite, error) {
	invite, err := s.invites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(invite)
	if err := s.invites.Update(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// Delete removes an invite.
func (s *InviteService) Delete(ctx context.Context, id string) error {
	return s.invites.Delete(ctx, id)
}

// Pending returns the live invites for email whose club the user has not
// joined, one per club. The most privileged role wins; among equal roles the
// newest invite is kept.
func (s *InviteService) Pending(ctx context.Context, email, userID string) ([]models.ClubInvite, error) {
	invites, err := s.invites.ListByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	joined := make(map[string]bool)
	if userID != "" {
		memberships, err := s.memberships.ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			joined[m.ClubID] = true
		}
	}

	now := s.now()
	pending := make([]models.ClubInvite, 0, len(invites))
	index := make(map[string]int)
	for _, inv := range invites {
		if joined[inv.ClubID] || inv.Expired(now) {
			continue
		}
		if i, ok := index[inv.ClubID]; ok {
			if inv.Role.Rank() > pending[i].Role.Rank() {
				pending[i] = inv
			}
			continue
		}
		index[inv.ClubID] = len(pending)
		pending = append(pending, inv)
	}
	return pending, nil
}

// Accept turns the actor's invites to clubID into one membership with the
// best offered role.
func (s *InviteService) Accept(ctx context.Context, actor Actor, clubID string) (*models.ClubMembership, error) {
	m, err := s.invites.Accept(ctx, validation.NormalizeEmail(actor.Email), clubID, actor.UserID, s.now())
	if errors.Is(err, repository.ErrExpired) {
		return nil, ErrInviteExpired
	}
	if err != nil {
		return nil, err
	}
	metrics.invitesAccepted.Add(ctx, 1)
	logger.Log.Info().
		Str("user", logger.HashID(actor.UserID)).
		Str("club_id", clubID).
		Str("role", string(m.Role)).
		Msg("Invite accepted")
	return m, nil
}

// Decline drops the actor's invites to clubID.
func (s *InviteService) Decline(ctx context.Context, actor Actor, clubID string) error {
	if err := s.invites.Decline(ctx, validation.NormalizeEmail(actor.Email), clubID); err != nil {
		return err
	}
	metrics.invitesDeclined.Add(ctx, 1)
	return nil
}

// PurgeExpired deletes every expired invite and reports how many went.
func (s *InviteService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.invites.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.invitesPurged.Add(ctx, n)
	}
	return n, nil
}
