package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gitlab.com/sgtreasury/tally/internal/database"
	"gitlab.com/sgtreasury/tally/internal/models"
)

const reimbursementColumns = `id, club_id, club_name, created_by, payee_user_id, budget_item_id,
	amount_cents, description, status, rejection_reason,
	submitted_at, reviewed_at, paid_at,
	receipt_ref, form_pdf_ref, packet_pdf_ref,
	created_at, updated_at`

// RemoveFilesFunc deletes stored objects by reference.
type RemoveFilesFunc func(ctx context.Context, refs []string) error

// ReimbursementRepository handles reimbursement database operations.
type ReimbursementRepository struct {
	db database.DB
}

// NewReimbursementRepository creates a new ReimbursementRepository.
func NewReimbursementRepository(db database.DB) *ReimbursementRepository {
	return &ReimbursementRepository{db: db}
}

func scanReimbursement(s scanner) (*models.Reimbursement, error) {
	var rb models.Reimbursement
	err := s.Scan(&rb.ID, &rb.ClubID, &rb.ClubName, &rb.CreatedBy, &rb.PayeeUserID, &rb.BudgetItemID,
		&rb.AmountCents, &rb.Description, &rb.Status, &rb.RejectionReason,
		&rb.SubmittedAt, &rb.ReviewedAt, &rb.PaidAt,
		&rb.ReceiptRef, &rb.FormPDFRef, &rb.PacketPDFRef,
		&rb.CreatedAt, &rb.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rb, nil
}

// Create adds a new reimbursement. SubmittedAt defaults to now.
func (r *ReimbursementRepository) Create(ctx context.Context, rb *models.Reimbursement) error {
	ensureID(&rb.ID)
	if rb.Status == "" {
		rb.Status = models.StatusSubmitted
	}
	var submittedAt any
	if !rb.SubmittedAt.IsZero() {
		submittedAt = rb.SubmittedAt
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO reimbursements (id, club_id, club_name, created_by, payee_user_id, budget_item_id,
			amount_cents, description, status, rejection_reason, submitted_at,
			receipt_ref, form_pdf_ref, packet_pdf_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11::TIMESTAMPTZ, NOW()), $12, $13, $14)
		RETURNING submitted_at, created_at, updated_at
	`, rb.ID, rb.ClubID, rb.ClubName, rb.CreatedBy, rb.PayeeUserID, rb.BudgetItemID,
		rb.AmountCents, rb.Description, rb.Status, rb.RejectionReason, submittedAt,
		rb.ReceiptRef, rb.FormPDFRef, rb.PacketPDFRef,
	).Scan(&rb.SubmittedAt, &rb.CreatedAt, &rb.UpdatedAt)
	if err != nil {
		return wrap("create reimbursement", err)
	}
	return nil
}

// GetByID retrieves a reimbursement by ID.
func (r *ReimbursementRepository) GetByID(ctx context.Context, id string) (*models.Reimbursement, error) {
	rb, err := scanReimbursement(r.db.QueryRow(ctx, `
		SELECT `+reimbursementColumns+` FROM reimbursements WHERE id = $1
	`, id))
	if err != nil {
		return nil, wrap("get reimbursement", err)
	}
	return rb, nil
}

// List retrieves all reimbursements, most recently submitted first.
func (r *ReimbursementRepository) List(ctx context.Context) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reimbursementColumns+` FROM reimbursements
		ORDER BY submitted_at DESC, id DESC
	`)
	if err != nil {
		return nil, wrap("query reimbursements", err)
	}
	return collect(rows, "reimbursement", scanReimbursement)
}

// ListByPayee retrieves the reimbursements owed to a user.
func (r *ReimbursementRepository) ListByPayee(ctx context.Context, payeeUserID string) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reimbursementColumns+` FROM reimbursements
		WHERE payee_user_id = $1
		ORDER BY submitted_at DESC, id DESC
	`, payeeUserID)
	if err != nil {
		return nil, wrap("query reimbursements by payee", err)
	}
	return collect(rows, "reimbursement", scanReimbursement)
}

// ListByClub retrieves a club's reimbursements.
func (r *ReimbursementRepository) ListByClub(ctx context.Context, clubID string) ([]models.Reimbursement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+reimbursementColumns+` FROM reimbursements
		WHERE club_id = $1
		ORDER BY submitted_at DESC, id DESC
	`, clubID)
	if err != nil {
		return nil, wrap("query reimbursements by club", err)
	}
	return collect(rows, "reimbursement", scanReimbursement)
}

// Update writes every mutable column of rb.
func (r *ReimbursementRepository) Update(ctx context.Context, rb *models.Reimbursement) error {
	err := r.db.QueryRow(ctx, `
		UPDATE reimbursements SET
			payee_user_id = $2, budget_item_id = $3, amount_cents = $4, description = $5,
			status = $6, rejection_reason = $7, reviewed_at = $8, paid_at = $9,
			receipt_ref = $10, form_pdf_ref = $11, packet_pdf_ref = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, rb.ID, rb.PayeeUserID, rb.BudgetItemID, rb.AmountCents, rb.Description,
		rb.Status, rb.RejectionReason, rb.ReviewedAt, rb.PaidAt,
		rb.ReceiptRef, rb.FormPDFRef, rb.PacketPDFRef,
	).Scan(&rb.UpdatedAt)
	if err != nil {
		return wrap("update reimbursement", err)
	}
	return nil
}

// Delete locks the row, deletes it and hands its file references to remove
// before committing. If remove fails the transaction is rolled back and the
// row is left in place.
func (r *ReimbursementRepository) Delete(ctx context.Context, id string, remove RemoveFilesFunc) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		rb, err := scanReimbursement(tx.QueryRow(ctx, `
			SELECT `+reimbursementColumns+` FROM reimbursements WHERE id = $1 FOR UPDATE
		`, id))
		if err != nil {
			return wrap("lock reimbursement", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM reimbursements WHERE id = $1`, id); err != nil {
			return wrap("delete reimbursement", err)
		}

		if refs := rb.FileRefs(); len(refs) > 0 && remove != nil {
			if err := remove(ctx, refs); err != nil {
				return fmt.Errorf("failed to remove reimbursement files: %w", err)
			}
		}
		return nil
	})
}
