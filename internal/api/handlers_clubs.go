package api

import (
	"net/http"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (s *Server) getClubs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		club, err := s.svc.Clubs.Get(ctx, id)
		if err != nil {
			fail(w, r, "club", err)
			return
		}
		respond(w, http.StatusOK, club)
		return
	}
	if name := strings.TrimSpace(q.Get("name")); name != "" {
		clubs, err := s.svc.Clubs.SearchByName(ctx, name)
		if err != nil {
			fail(w, r, "club", err)
			return
		}
		respond(w, http.StatusOK, clubs)
		return
	}

	clubs, err := s.svc.Clubs.List(ctx)
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	respond(w, http.StatusOK, clubs)
}

func (s *Server) createClub(w http.ResponseWriter, r *http.Request) {
	var in validation.ClubInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "club", err)
		return
	}
	club, err := s.svc.Clubs.Create(r.Context(), &in)
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	respond(w, http.StatusCreated, club)
}

func (s *Server) updateClub(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	var patch validation.ClubPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "club", err)
		return
	}
	club, err := s.svc.Clubs.Update(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	respond(w, http.StatusOK, club)
}

func (s *Server) deleteClub(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	if err := s.svc.Clubs.Delete(r.Context(), id); err != nil {
		fail(w, r, "club", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}

// getMemberships resolves one filter in order: id, treasurerUserId,
// userId, clubId.
func (s *Server) getMemberships(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	switch {
	case strings.TrimSpace(q.Get("id")) != "":
		m, err := s.svc.Memberships.Get(ctx, strings.TrimSpace(q.Get("id")))
		if err != nil {
			fail(w, r, "membership", err)
			return
		}
		respond(w, http.StatusOK, m)
	case strings.TrimSpace(q.Get("treasurerUserId")) != "":
		view, err := s.svc.Memberships.TreasurerView(ctx, strings.TrimSpace(q.Get("treasurerUserId")))
		if err != nil {
			fail(w, r, "membership", err)
			return
		}
		respond(w, http.StatusOK, view)
	case strings.TrimSpace(q.Get("userId")) != "":
		list, err := s.svc.Memberships.ListByUser(ctx, strings.TrimSpace(q.Get("userId")))
		if err != nil {
			fail(w, r, "membership", err)
			return
		}
		respond(w, http.StatusOK, list)
	case strings.TrimSpace(q.Get("clubId")) != "":
		list, err := s.svc.Memberships.ListByClub(ctx, strings.TrimSpace(q.Get("clubId")))
		if err != nil {
			fail(w, r, "membership", err)
			return
		}
		respond(w, http.StatusOK, list)
	default:
		list, err := s.svc.Memberships.List(ctx)
		if err != nil {
			fail(w, r, "membership", err)
			return
		}
		respond(w, http.StatusOK, list)
	}
}

func (s *Server) createMembership(w http.ResponseWriter, r *http.Request) {
	var in validation.MembershipInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "membership", err)
		return
	}
	m, err := s.svc.Memberships.Create(r.Context(), &in)
	if err != nil {
		fail(w, r, "membership", err)
		return
	}
	respond(w, http.StatusCreated, m)
}

func (s *Server) updateMembership(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "membership", err)
		return
	}
	var patch validation.MembershipPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "membership", err)
		return
	}
	m, err := s.svc.Memberships.Update(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "membership", err)
		return
	}
	respond(w, http.StatusOK, m)
}

func (s *Server) deleteMembership(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "membership", err)
		return
	}
	if err := s.svc.Memberships.Delete(r.Context(), id); err != nil {
		fail(w, r, "membership", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}
