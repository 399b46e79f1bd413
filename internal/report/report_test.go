package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/models"
)

func TestWriteReimbursementsCSV(t *testing.T) {
	t.Parallel()

	paid := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	item := "item-1"
	rows := []models.Reimbursement{
		{
			ID: "r1", ClubName: "Chess", PayeeUserID: "u1", Description: "Boards, clocks",
			AmountCents: 12345, Status: models.StatusPaid, BudgetItemID: &item,
			SubmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), ReviewedAt: &paid, PaidAt: &paid,
		},
		{
			ID: "r2", ClubName: "Chess", PayeeUserID: "u2", Description: "Snacks",
			AmountCents: 5, Status: models.StatusRejected, RejectionReason: "duplicate",
			SubmittedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReimbursementsCSV(&buf, rows, map[string]string{"u1": "Ada Lovelace"}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, csvHeader, records[0])
	require.Equal(t, []string{
		"r1", "2026-03-01 12:00:00", "Chess", "Ada Lovelace", "Boards, clocks", "123.45", "paid",
		"2026-03-04 09:30:00", "2026-03-04 09:30:00", "item-1", "",
	}, records[1])
	require.Equal(t, "u2", records[2][3])
	require.Equal(t, "0.05", records[2][5])
	require.Equal(t, "duplicate", records[2][10])
}

func TestWriteReimbursementsCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteReimbursementsCSV(&buf, nil, nil))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestCSVFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "chess-club_reimbursements_2026-03-01.csv", CSVFilename("  Chess   Club!", now))
	require.Equal(t, "club_reimbursements_2026-03-01.csv", CSVFilename("日本", now))
}

func TestBudgetChart(t *testing.T) {
	t.Parallel()

	t.Run("renders png", func(t *testing.T) {
		t.Parallel()
		png, err := BudgetChart("Chess", []models.SectionTotal{
			{Title: "Events", AllocatedCents: 50000},
			{Title: "Supplies", AllocatedCents: 12500},
			{Title: "Empty"},
		})
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	})

	t.Run("nothing allocated", func(t *testing.T) {
		t.Parallel()
		_, err := BudgetChart("Chess", []models.SectionTotal{{Title: "Empty"}})
		require.ErrorIs(t, err, ErrEmptyBudget)
	})
}
