// Package report renders club reimbursement exports and budget charts.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"gitlab.com/sgtreasury/tally/internal/models"
)

var csvHeader = []string{
	"ID", "Submitted", "Club", "Payee", "Description", "Amount", "Status",
	"Reviewed", "Paid", "Budget Item", "Rejection Reason",
}

// WriteReimbursementsCSV writes one row per reimbursement. payees maps user
// IDs to display names; unknown payees fall back to their ID.
func WriteReimbursementsCSV(w io.Writer, reimbursements []models.Reimbursement, payees map[string]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range reimbursements {
		r := &reimbursements[i]
		payee := payees[r.PayeeUserID]
		if payee == "" {
			payee = r.PayeeUserID
		}
		budgetItem := ""
		if r.BudgetItemID != nil {
			budgetItem = *r.BudgetItemID
		}

		row := []string{
			r.ID,
			r.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
			r.ClubName,
			payee,
			r.Description,
			models.Dollars(r.AmountCents).StringFixed(2),
			string(r.Status),
			formatOptional(r.ReviewedAt),
			formatOptional(r.PaidAt),
			budgetItem,
			r.RejectionReason,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// CSVFilename names an export like "chess-club_reimbursements_2026-03-01.csv".
func CSVFilename(clubName string, now time.Time) string {
	return fmt.Sprintf("%s_reimbursements_%s.csv", slug(clubName), now.Format("2006-01-02"))
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		default:
			if !dash && len(out) > 0 {
				out = append(out, '-')
				dash = true
			}
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return "club"
	}
	return string(out)
}
