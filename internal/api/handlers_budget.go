package api

import (
	"net/http"
	"strconv"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (s *Server) getSections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		section, err := s.svc.Budget.GetSection(ctx, id)
		if err != nil {
			fail(w, r, "budget section", err)
			return
		}
		respond(w, http.StatusOK, section)
		return
	}
	if clubID := strings.TrimSpace(q.Get("clubId")); clubID != "" {
		list, err := s.svc.Budget.ListSectionsByClub(ctx, clubID)
		if err != nil {
			fail(w, r, "budget section", err)
			return
		}
		respond(w, http.StatusOK, list)
		return
	}

	list, err := s.svc.Budget.ListSections(ctx)
	if err != nil {
		fail(w, r, "budget section", err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) createSection(w http.ResponseWriter, r *http.Request) {
	var in validation.BudgetSectionInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "budget section", err)
		return
	}
	section, err := s.svc.Budget.CreateSection(r.Context(), &in)
	if err != nil {
		fail(w, r, "budget section", err)
		return
	}
	respond(w, http.StatusCreated, section)
}

func (s *Server) updateSection(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "budget section", err)
		return
	}
	var patch validation.BudgetSectionPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "budget section", err)
		return
	}
	section, err := s.svc.Budget.UpdateSection(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "budget section", err)
		return
	}
	respond(w, http.StatusOK, section)
}

func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "budget section", err)
		return
	}
	if err := s.svc.Budget.DeleteSection(r.Context(), id); err != nil {
		fail(w, r, "budget section", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}

// budgetChart writes the club's allocation chart as a PNG.
func (s *Server) budgetChart(w http.ResponseWriter, r *http.Request) {
	clubID, err := requiredQuery(r, "clubId")
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	png, err := s.svc.Budget.Chart(r.Context(), clubID)
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(png); err != nil {
		logger.Log.Error().Err(err).Str("club_id", clubID).Msg("Failed to write budget chart")
	}
}

func (s *Server) getItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	if id := strings.TrimSpace(q.Get("id")); id != "" {
		item, err := s.svc.Budget.GetItem(ctx, id)
		if err != nil {
			fail(w, r, "budget item", err)
			return
		}
		respond(w, http.StatusOK, item)
		return
	}
	if sectionID := strings.TrimSpace(q.Get("sectionId")); sectionID != "" {
		list, err := s.svc.Budget.ListItemsBySection(ctx, sectionID)
		if err != nil {
			fail(w, r, "budget item", err)
			return
		}
		respond(w, http.StatusOK, list)
		return
	}

	list, err := s.svc.Budget.ListItems(ctx)
	if err != nil {
		fail(w, r, "budget item", err)
		return
	}
	respond(w, http.StatusOK, list)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in validation.BudgetItemInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, "budget item", err)
		return
	}
	item, err := s.svc.Budget.CreateItem(r.Context(), &in)
	if err != nil {
		fail(w, r, "budget item", err)
		return
	}
	respond(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "budget item", err)
		return
	}
	var patch validation.BudgetItemPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "budget item", err)
		return
	}
	item, err := s.svc.Budget.UpdateItem(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "budget item", err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "budget item", err)
		return
	}
	if err := s.svc.Budget.DeleteItem(r.Context(), id); err != nil {
		fail(w, r, "budget item", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}
