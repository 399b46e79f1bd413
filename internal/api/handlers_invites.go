package api

import (
	"errors"
	"net/http"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (s *Server) getInvites(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	switch {
	case strings.TrimSpace(q.Get("id")) != "":
		invite, err := s.svc.Invites.Get(ctx, strings.TrimSpace(q.Get("id")))
		if err != nil {
			fail(w, r, "invite", err)
			return
		}
		respond(w, http.StatusOK, invite)
	case strings.TrimSpace(q.Get("userEmail")) != "":
		list, err := s.svc.Invites.ListByEmail(ctx, q.Get("userEmail"))
		if err != nil {
			fail(w, r, "invite", err)
			return
		}
		respond(w, http.StatusOK, list)
	case strings.TrimSpace(q.Get("clubId")) != "":
		list, err := s.svc.Invites.ListByClub(ctx, strings.TrimSpace(q.Get("clubId")))
		if err != nil {
			fail(w, r, "invite", err)
			return
		}
		respond(w, http.StatusOK, list)
	default:
		list, err := s.svc.Invites.List(ctx)
		if err != nil {
			fail(w, r, "invite", err)
			return
		}
		respond(w, http.StatusOK, list)
	}
}

// createInvite stores the invite and emails it. A failed email still
// returns the stored invite, with a message saying the email was not sent.
func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	var in validation.InviteInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "invite", err)
		return
	}
	invite, err := s.svc.Invites.Create(r.Context(), &in)
	if errors.Is(err, service.ErrEmailNotSent) && invite != nil {
		respondMessage(w, http.StatusCreated, service.ErrEmailNotSent.Error(), invite)
		return
	}
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusCreated, invite)
}

func (s *Server) updateInvite(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	var patch validation.InvitePatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "invite", err)
		return
	}
	invite, err := s.svc.Invites.Update(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusOK, invite)
}

func (s *Server) deleteInvite(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	if err := s.svc.Invites.Delete(r.Context(), id); err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) pendingInvites(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Invites.Pending(r.Context(), actor.Email, actor.UserID)
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) acceptInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in validation.InviteDecision
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "invite", err)
		return
	}
	membership, err := s.svc.Invites.Accept(r.Context(), actor, in.ClubID)
	if err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusOK, membership)
}

func (s *Server) declineInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in validation.InviteDecision
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "invite", err)
		return
	}
	if err := s.svc.Invites.Decline(r.Context(), actor, in.ClubID); err != nil {
		fail(w, r, "invite", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"clubId": in.ClubID})
}
