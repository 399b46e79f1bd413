package api

import (
	"net/http"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		user, err := s.svc.Users.Get(ctx, id)
		if err != nil {
			fail(w, r, "user", err)
			return
		}
		respond(w, http.StatusOK, user)
		return
	}
	if email := strings.TrimSpace(q.Get("email")); email != "" {
		user, err := s.svc.Users.GetByEmail(ctx, email)
		if err != nil {
			fail(w, r, "user", err)
			return
		}
		respond(w, http.StatusOK, user)
		return
	}

	users, err := s.svc.Users.List(ctx)
	if err != nil {
		fail(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, users)
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	user, err := s.svc.Users.Get(r.Context(), actor.UserID)
	if err != nil {
		fail(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, user)
}

// syncUser upserts the signed-in user's profile.
func (s *Server) syncUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var in validation.UserInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "user", err)
		return
	}
	user, err := s.svc.Users.Sync(r.Context(), actor, &in)
	if err != nil {
		fail(w, r, "user", err)
		return
	}
	respond(w, http.StatusCreated, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "user", err)
		return
	}
	var patch validation.UserPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "user", err)
		return
	}
	user, err := s.svc.Users.Update(r.Context(), actor, id, &patch)
	if err != nil {
		fail(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, user)
}
