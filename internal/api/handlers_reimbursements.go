package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/service"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func (s *Server) getReimbursements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	switch {
	case strings.TrimSpace(q.Get("id")) != "":
		rb, err := s.svc.Reimbursements.Get(ctx, strings.TrimSpace(q.Get("id")))
		if err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		respond(w, http.StatusOK, rb)
	case strings.TrimSpace(q.Get("payeeUserId")) != "":
		list, err := s.svc.Reimbursements.ListByPayee(ctx, strings.TrimSpace(q.Get("payeeUserId")))
		if err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		respond(w, http.StatusOK, list)
	case strings.TrimSpace(q.Get("clubId")) != "":
		list, err := s.svc.Reimbursements.ListByClub(ctx, strings.TrimSpace(q.Get("clubId")))
		if err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		respond(w, http.StatusOK, list)
	default:
		list, err := s.svc.Reimbursements.List(ctx)
		if err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		respond(w, http.StatusOK, list)
	}
}

// createReimbursement accepts either a JSON body or a multipart form whose
// optional "file" part is the receipt.
func (s *Server) createReimbursement(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var (
		in      validation.ReimbursementInput
		receipt *service.Upload
	)
	if isMultipart(r) {
		if err := s.parseMultipart(w, r); err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		if err := reimbursementFromForm(r, &in); err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		upload, file, err := optionalFormFile(r, "file")
		if err != nil {
			fail(w, r, "reimbursement", err)
			return
		}
		if file != nil {
			defer file.Close()
		}
		receipt = upload
	} else if err := decode(w, r, &in); err != nil {
		fail(w, r, "reimbursement", err)
		return
	}

	rb, err := s.svc.Reimbursements.Create(r.Context(), actor, &in, receipt)
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	respond(w, http.StatusCreated, rb)
}

// reimbursementFromForm reads a JSON "payload" field when present, and the
// individual fields otherwise.
func reimbursementFromForm(r *http.Request, in *validation.ReimbursementInput) error {
	if payload := r.FormValue("payload"); payload != "" {
		return validation.Parse(strings.NewReader(payload), in)
	}

	in.ClubID = strings.TrimSpace(r.FormValue("clubId"))
	in.PayeeUserID = strings.TrimSpace(r.FormValue("payeeUserId"))
	in.Description = r.FormValue("description")
	if item := strings.TrimSpace(r.FormValue("budgetItemId")); item != "" {
		in.BudgetItemID = &item
	}
	if raw := strings.TrimSpace(r.FormValue("amountCents")); raw != "" {
		cents, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return validation.Invalid("amountCents", "number")
		}
		in.AmountCents = cents
	}
	return validation.Check(in)
}

func (s *Server) updateReimbursement(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	var patch validation.ReimbursementPatch
	if err := decode(w, r, &patch); err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	rb, err := s.svc.Reimbursements.Update(r.Context(), id, &patch)
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	respond(w, http.StatusOK, rb)
}

func (s *Server) deleteReimbursement(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	if err := s.svc.Reimbursements.Delete(r.Context(), id); err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) signedURL(w http.ResponseWriter, r *http.Request) {
	ref, err := requiredQuery(r, "url")
	if err != nil {
		fail(w, r, "file", err)
		return
	}
	url, err := s.svc.Reimbursements.SignedURL(r.Context(), ref)
	if err != nil {
		fail(w, r, "file", err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) generateForm(w http.ResponseWriter, r *http.Request) {
	id, err := requiredQuery(r, "id")
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	rb, err := s.svc.Reimbursements.GenerateForm(r.Context(), id)
	if err != nil {
		fail(w, r, "reimbursement", err)
		return
	}
	respond(w, http.StatusOK, rb)
}

func (s *Server) exportReimbursements(w http.ResponseWriter, r *http.Request) {
	clubID, err := requiredQuery(r, "clubId")
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	export, err := s.svc.Reimbursements.ExportCSV(r.Context(), clubID)
	if err != nil {
		fail(w, r, "club", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	if _, err := w.Write(export.Data); err != nil {
		logger.Log.Error().Err(err).Str("club_id", clubID).Msg("Failed to write export")
	}
}

// upload stores a standalone file and returns its storage reference.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		fail(w, r, "file", err)
		return
	}
	kind := strings.TrimSpace(r.FormValue("type"))
	if kind == "" {
		fail(w, r, "file", validation.Invalid("type", "required"))
		return
	}
	upload, file, err := formFile(r, "file")
	if err != nil {
		fail(w, r, "file", err)
		return
	}
	defer file.Close()

	ref, err := s.svc.Reimbursements.UploadFile(r.Context(), kind, upload)
	if err != nil {
		fail(w, r, "file", err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"ref": ref})
}

// scanReceipt returns the suggested fields read from a receipt image.
func (s *Server) scanReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		fail(w, r, "receipt", err)
		return
	}
	upload, file, err := formFile(r, "file")
	if err != nil {
		fail(w, r, "receipt", err)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, upload.Body); err != nil {
		fail(w, r, "receipt", err)
		return
	}
	receipt, err := s.svc.Receipts.Scan(r.Context(), buf.Bytes(), upload.ContentType)
	if err != nil {
		fail(w, r, "receipt", err)
		return
	}
	respond(w, http.StatusOK, receipt)
}
