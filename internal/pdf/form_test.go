package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/models"
)

func TestRenderForm(t *testing.T) {
	t.Parallel()

	form := Form{
		Reimbursement: models.Reimbursement{
			ID: "r1", ClubName: "Société de Café", AmountCents: 4250, Description: "Coffee for finals week study night",
			Status: models.StatusRejected, RejectionReason: "missing itemized receipt",
			SubmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Payee: models.User{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu", StudentID: "915000000",
			LocalAddress: models.Address{Line: "1 Shields Ave", City: "Davis", State: "CA", Zip: "95616"},
		},
		BudgetItem:  &models.BudgetItem{Label: "Study nights", Category: models.BudgetCategoryFood},
		GeneratedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, RenderForm(&buf, form))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	require.Greater(t, buf.Len(), 1000)
}

func TestRenderForm_Minimal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderForm(&buf, Form{Reimbursement: models.Reimbursement{ID: "r2", AmountCents: 1}}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFormatAddress(t *testing.T) {
	t.Parallel()

	require.Equal(t, "1 Main St, Davis, CA 95616",
		formatAddress(models.Address{Line: "1 Main St", City: "Davis", State: "CA", Zip: "95616"}))
	require.Equal(t, "CA", formatAddress(models.Address{State: "CA"}))
	require.Empty(t, formatAddress(models.Address{}))
}
