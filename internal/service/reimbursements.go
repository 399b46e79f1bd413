package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/notify"
	"gitlab.com/sgtreasury/tally/internal/pdf"
	"gitlab.com/sgtreasury/tally/internal/report"
	"gitlab.com/sgtreasury/tally/internal/repository"
	"gitlab.com/sgtreasury/tally/internal/storage"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// NotifyTimeout bounds a single treasury notification.
const NotifyTimeout = 10 * time.Second

// Export is a rendered CSV file.
type Export struct {
	Filename string
	Data     []byte
}

// ReimbursementService manages reimbursements and their stored files.
type ReimbursementService struct {
	reimbursements ReimbursementStore
	clubs          ClubStore
	users          UserStore
	items          BudgetItemStore
	files          FileStore
	notifier       notify.Notifier
	now            func() time.Time
}

// NewReimbursementService creates a ReimbursementService. A nil notifier
// disables treasury notifications.
func NewReimbursementService(
	reimbursements ReimbursementStore,
	clubs ClubStore,
	users UserStore,
	items BudgetItemStore,
	files FileStore,
	notifier notify.Notifier,
) *ReimbursementService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReimbursementService{
		reimbursements: reimbursements,
		clubs:          clubs,
		users:          users,
		items:          items,
		files:          files,
		notifier:       notifier,
		now:            time.Now,
	}
}

// Create submits a reimbursement for the actor. An attached receipt is
// uploaded first and its reference stored on the row.
func (s *ReimbursementService) Create(ctx context.Context, actor Actor, in *validation.ReimbursementInput, receipt *Upload) (*models.Reimbursement, error) {
	club, err := s.clubs.GetByID(ctx, in.ClubID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, validation.Invalid("clubId", "exists")
	}
	if err != nil {
		return nil, err
	}

	rb := &models.Reimbursement{
		ClubID:       club.ID,
		ClubName:     club.Name,
		CreatedBy:    actor.UserID,
		PayeeUserID:  in.PayeeUserID,
		BudgetItemID: in.BudgetItemID,
		AmountCents:  in.AmountCents,
		Description:  in.Description,
		Status:       in.Status,
		ReceiptRef:   in.ReceiptRef,
	}
	if err := validation.Reimbursement(rb); err != nil {
		return nil, err
	}
	if rb.ReceiptRef != "" && receipt == nil {
		if err := s.files.Check(rb.ReceiptRef); err != nil {
			return nil, validation.Invalid("receiptRef", "bucket")
		}
	}

	if receipt != nil {
		ref, err := s.upload(ctx, storage.KindReceipt, receipt)
		if err != nil {
			return nil, err
		}
		rb.ReceiptRef = ref
	}

	if err := s.reimbursements.Create(ctx, rb); err != nil {
		if receipt != nil {
			s.discard(ctx, rb.ReceiptRef)
		}
		return nil, err
	}
	metrics.reimbursementsCreated.Add(ctx, 1)

	logger.Log.Info().
		Str("reimbursement_id", rb.ID).
		Str("club_id", rb.ClubID).
		Str("payee", logger.HashID(rb.PayeeUserID)).
		Int64("amount_cents", rb.AmountCents).
		Str("description", logger.SanitizeDescription(rb.Description)).
		Msg("Reimbursement submitted")

	s.notify(ctx, func(ctx context.Context) error {
		return s.notifier.ReimbursementSubmitted(ctx, rb)
	})
	return rb, nil
}

// Get returns a reimbursement by id.
func (s *ReimbursementService) Get(ctx context.Context, id string) (*models.Reimbursement, error) {
	return s.reimbursements.GetByID(ctx, id)
}

// List returns every reimbursement, newest submission first.
func (s *ReimbursementService) List(ctx context.Context) ([]models.Reimbursement, error) {
	return s.reimbursements.List(ctx)
}

// ListByPayee returns the reimbursements owed to a user.
func (s *ReimbursementService) ListByPayee(ctx context.Context, payeeUserID string) ([]models.Reimbursement, error) {
	return s.reimbursements.ListByPayee(ctx, payeeUserID)
}

// ListByClub returns the club's reimbursements.
func (s *ReimbursementService) ListByClub(ctx context.Context, clubID string) ([]models.Reimbursement, error) {
	return s.reimbursements.ListByClub(ctx, clubID)
}

// Update patches a reimbursement. A status change must follow the
// transition table; reaching approved or rejected stamps reviewed_at and
// reaching paid stamps paid_at. Files whose reference is replaced or cleared
// are removed after the row is written.
func (s *ReimbursementService) Update(ctx context.Context, id string, patch *validation.ReimbursementPatch) (*models.Reimbursement, error) {
	rb, err := s.reimbursements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := rb.Status
	before := fileRefs(rb)
	patch.Apply(rb)

	replaced, err := s.replacedRefs(before, fileRefs(rb))
	if err != nil {
		return nil, err
	}

	changed := patch.Status != nil && *patch.Status != from
	if changed {
		next := *patch.Status
		if !from.CanTransition(next) {
			return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, next)
		}
		rb.Status = next
		now := s.now()
		switch next {
		case models.StatusApproved, models.StatusRejected:
			rb.ReviewedAt = &now
		case models.StatusPaid:
			rb.PaidAt = &now
		}
	}

	if err := validation.Reimbursement(rb); err != nil {
		return nil, err
	}
	if err := s.reimbursements.Update(ctx, rb); err != nil {
		return nil, err
	}
	for _, ref := range replaced {
		s.discard(ctx, ref)
	}

	if changed {
		metrics.reimbursementStatus.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", string(from)),
			attribute.String("to", string(rb.Status)),
		))
		logger.Log.Info().
			Str("reimbursement_id", rb.ID).
			Str("from", string(from)).
			Str("to", string(rb.Status)).
			Str("reason", logger.SanitizeText(rb.RejectionReason)).
			Msg("Reimbursement status changed")
		s.notify(ctx, func(ctx context.Context) error {
			return s.notifier.ReimbursementStatusChanged(ctx, rb, from)
		})
	}
	return rb, nil
}

// Delete removes the reimbursement and every stored file it references. If
// the files cannot be removed the row is kept.
func (s *ReimbursementService) Delete(ctx context.Context, id string) error {
	if err := s.reimbursements.Delete(ctx, id, s.files.Remove); err != nil {
		return err
	}
	metrics.reimbursementsDeleted.Add(ctx, 1)
	logger.Log.Info().Str("reimbursement_id", id).Msg("Reimbursement deleted")
	return nil
}

// GenerateForm renders the request form PDF, stores it and records its
// reference on the reimbursement. A previously generated form is removed.
func (s *ReimbursementService) GenerateForm(ctx context.Context, id string) (*models.Reimbursement, error) {
	rb, err := s.reimbursements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form := pdf.Form{Reimbursement: *rb, GeneratedAt: s.now()}
	payee, err := s.users.GetByID(ctx, rb.PayeeUserID)
	switch {
	case err == nil:
		form.Payee = *payee
	case errors.Is(err, repository.ErrNotFound):
		form.Payee = models.User{ID: rb.PayeeUserID}
	default:
		return nil, err
	}
	if rb.BudgetItemID != nil {
		item, err := s.items.GetByID(ctx, *rb.BudgetItemID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		form.BudgetItem = item
	}

	var buf bytes.Buffer
	if err := pdf.RenderForm(&buf, form); err != nil {
		return nil, err
	}
	ref, err := s.upload(ctx, storage.KindForm, &Upload{
		Filename:    rb.ID + ".pdf",
		ContentType: "application/pdf",
		Size:        int64(buf.Len()),
		Body:        &buf,
	})
	if err != nil {
		return nil, err
	}

	previous := rb.FormPDFRef
	rb.FormPDFRef = ref
	if err := s.reimbursements.Update(ctx, rb); err != nil {
		s.discard(ctx, ref)
		return nil, err
	}
	if previous != "" {
		s.discard(ctx, previous)
	}
	return rb, nil
}

// ExportCSV renders the club's reimbursements as CSV.
func (s *ReimbursementService) ExportCSV(ctx context.Context, clubID string) (*Export, error) {
	club, err := s.clubs.GetByID(ctx, clubID)
	if err != nil {
		return nil, err
	}
	rows, err := s.reimbursements.ListByClub(ctx, clubID)
	if err != nil {
		return nil, err
	}

	payees := make(map[string]string)
	for _, rb := range rows {
		if _, seen := payees[rb.PayeeUserID]; seen {
			continue
		}
		payees[rb.PayeeUserID] = rb.PayeeUserID
		user, err := s.users.GetByID(ctx, rb.PayeeUserID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if name := user.FullName(); name != "" {
			payees[rb.PayeeUserID] = name
		}
	}

	var buf bytes.Buffer
	if err := report.WriteReimbursementsCSV(&buf, rows, payees); err != nil {
		return nil, err
	}
	return &Export{Filename: report.CSVFilename(club.Name, s.now()), Data: buf.Bytes()}, nil
}

// UploadFile stores a file of the given kind and returns its reference.
func (s *ReimbursementService) UploadFile(ctx context.Context, kind string, u *Upload) (string, error) {
	if !storage.ValidKind(kind) {
		return "", validation.Invalid("type", "oneof")
	}
	return s.upload(ctx, kind, u)
}

// SignedURL returns a short-lived download URL for a stored reference.
func (s *ReimbursementService) SignedURL(ctx context.Context, ref string) (string, error) {
	return s.files.SignedURL(ctx, ref)
}

func (s *ReimbursementService) upload(ctx context.Context, kind string, u *Upload) (string, error) {
	return s.files.Upload(ctx, kind, u.Filename, u.ContentType, u.Body, u.Size)
}

// fileRefs lists the reference fields in a fixed order; empty slots stay.
func fileRefs(r *models.Reimbursement) [3]string {
	return [3]string{r.ReceiptRef, r.FormPDFRef, r.PacketPDFRef}
}

// replacedRefs checks newly set references and returns the old ones that
// no longer appear on the row.
func (s *ReimbursementService) replacedRefs(before, after [3]string) ([]string, error) {
	fields := [3]string{"receiptRef", "formPdfRef", "packetPdfRef"}
	var replaced []string
	for i := range before {
		if before[i] == after[i] {
			continue
		}
		if after[i] != "" {
			if err := s.files.Check(after[i]); err != nil {
				return nil, validation.Invalid(fields[i], "bucket")
			}
		}
		if before[i] != "" && !slices.Contains(after[:], before[i]) {
			replaced = append(replaced, before[i])
		}
	}
	return replaced, nil
}

// discard removes an orphaned object; failures are only logged.
func (s *ReimbursementService) discard(ctx context.Context, ref string) {
	if err := s.files.Remove(ctx, []string{ref}); err != nil {
		logger.Log.Warn().Err(err).Str("ref", ref).Msg("Failed to remove orphaned file")
	}
}

func (s *ReimbursementService) notify(ctx context.Context, send func(context.Context) error) {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
	defer cancel()
	if err := send(notifyCtx); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to send treasury notification")
	}
}
