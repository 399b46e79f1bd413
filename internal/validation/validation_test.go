package validation

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/sgtreasury/tally/internal/models"
	"pgregory.net/rapid"
)

func TestParse_UserInput(t *testing.T) {
	t.Parallel()

	t.Run("lower-cases email", func(t *testing.T) {
		t.Parallel()
		var in UserInput
		err := Parse(strings.NewReader(`{"email":"  Ada.Lovelace@Uni.EDU ","firstName":" Ada "}`), &in)
		require.NoError(t, err)
		require.Equal(t, "ada.lovelace@uni.edu", in.Email)
		require.Equal(t, "Ada", in.FirstName)
	})

	t.Run("rejects missing email", func(t *testing.T) {
		t.Parallel()
		var in UserInput
		err := Parse(strings.NewReader(`{"firstName":"Ada"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)

		var verr *Error
		require.True(t, errors.As(err, &verr))
		require.Contains(t, verr.Fields, "email:required")
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		t.Parallel()
		var in UserInput
		err := Parse(strings.NewReader(`{"email":"not-an-email"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		var in UserInput
		err := Parse(strings.NewReader(`{"email":"a@b.co","role":"treasury"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		t.Parallel()
		var in UserInput
		err := Parse(strings.NewReader(`{"email":`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestNormalizeEmail_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		local := rapid.StringMatching(`[a-zA-Z0-9.]{1,12}`).Draw(t, "local")
		domain := rapid.StringMatching(`[a-zA-Z]{1,8}\.[a-zA-Z]{2,4}`).Draw(t, "domain")
		email := local + "@" + domain

		upper := NormalizeEmail(strings.ToUpper(email))
		lower := NormalizeEmail(strings.ToLower(email))
		if upper != lower {
			t.Fatalf("case variants normalize differently: %q vs %q", upper, lower)
		}
		if NormalizeEmail(upper) != upper {
			t.Fatalf("normalization is not idempotent for %q", upper)
		}
	})
}

func TestParse_MembershipInput(t *testing.T) {
	t.Parallel()

	t.Run("defaults role to member", func(t *testing.T) {
		t.Parallel()
		var in MembershipInput
		require.NoError(t, Parse(strings.NewReader(`{"clubId":"c1","userId":"u1"}`), &in))
		require.Equal(t, models.MembershipRoleMember, in.Role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		t.Parallel()
		var in MembershipInput
		err := Parse(strings.NewReader(`{"clubId":"c1","userId":"u1","role":"president"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestParse_InviteInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expires string
		want    time.Time
	}{
		{"rfc3339", `"2026-05-01T10:00:00Z"`, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"plain date", `"2026-05-01"`, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", `1777629600`, time.Unix(1777629600, 0).UTC()},
		{"unix seconds as string", `"1777629600"`, time.Unix(1777629600, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var in InviteInput
			body := `{"clubId":"c1","email":"New@Member.org","expiresAt":` + tt.expires + `}`
			require.NoError(t, Parse(strings.NewReader(body), &in))
			require.True(t, tt.want.Equal(in.ExpiresAt.Time))
			require.Equal(t, "new@member.org", in.Email)
			require.Equal(t, models.MembershipRoleMember, in.Role)
		})
	}

	t.Run("requires expiry", func(t *testing.T) {
		t.Parallel()
		var in InviteInput
		err := Parse(strings.NewReader(`{"clubId":"c1","email":"a@b.co"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects garbage expiry", func(t *testing.T) {
		t.Parallel()
		var in InviteInput
		err := Parse(strings.NewReader(`{"clubId":"c1","email":"a@b.co","expiresAt":"next week"}`), &in)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestBudgetItemPatch(t *testing.T) {
	t.Parallel()

	base := func() *models.BudgetItem {
		return &models.BudgetItem{
			Label: "Pizza", Category: models.BudgetCategoryFood,
			AllocatedCents: 10000, SpentCents: 2500, Notes: "weekly",
		}
	}

	t.Run("changes only named fields", func(t *testing.T) {
		t.Parallel()
		var patch BudgetItemPatch
		require.NoError(t, Parse(strings.NewReader(`{"spentCents":5000}`), &patch))

		item := base()
		patch.Apply(item)
		require.NoError(t, BudgetItem(item))
		require.Equal(t, int64(5000), item.SpentCents)
		require.Equal(t, int64(10000), item.AllocatedCents)
		require.Equal(t, "Pizza", item.Label)
		require.Equal(t, "weekly", item.Notes)
	})

	t.Run("rejects spent above allocated after merge", func(t *testing.T) {
		t.Parallel()
		var patch BudgetItemPatch
		require.NoError(t, Parse(strings.NewReader(`{"allocatedCents":1000}`), &patch))

		item := base()
		patch.Apply(item)
		require.ErrorIs(t, BudgetItem(item), ErrInvalidInput)
	})

	t.Run("rejects negative amounts", func(t *testing.T) {
		t.Parallel()
		var patch BudgetItemPatch
		err := Parse(strings.NewReader(`{"spentCents":-1}`), &patch)
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects immutable section change", func(t *testing.T) {
		t.Parallel()
		var patch BudgetItemPatch
		err := Parse(strings.NewReader(`{"sectionId":"other"}`), &patch)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestParse_BudgetItemInput(t *testing.T) {
	t.Parallel()

	var in BudgetItemInput
	err := Parse(strings.NewReader(`{"sectionId":"s1","label":"Cups","category":"non_food","allocatedCents":500}`), &in)
	require.NoError(t, err)

	item := in.ToModel()
	require.Equal(t, int64(0), item.SpentCents)
	require.NoError(t, BudgetItem(item))

	var bad BudgetItemInput
	err = Parse(strings.NewReader(`{"sectionId":"s1","label":"Cups","category":"drinks","allocatedCents":500}`), &bad)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParse_ReimbursementInput(t *testing.T) {
	t.Parallel()

	t.Run("defaults status and drops blank budget item", func(t *testing.T) {
		t.Parallel()
		var in ReimbursementInput
		body := `{"clubId":"c1","payeeUserId":"u1","amountCents":1299,"description":"Snacks","budgetItemId":" "}`
		require.NoError(t, Parse(strings.NewReader(body), &in))
		require.Equal(t, models.StatusSubmitted, in.Status)
		require.Nil(t, in.BudgetItemID)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		t.Parallel()
		var in ReimbursementInput
		body := `{"clubId":"c1","payeeUserId":"u1","amountCents":0,"description":"Snacks"}`
		require.ErrorIs(t, Parse(strings.NewReader(body), &in), ErrInvalidInput)
	})

	t.Run("rejects creating in a later state", func(t *testing.T) {
		t.Parallel()
		var in ReimbursementInput
		body := `{"clubId":"c1","payeeUserId":"u1","amountCents":10,"description":"x","status":"paid"}`
		require.ErrorIs(t, Parse(strings.NewReader(body), &in), ErrInvalidInput)
	})

	t.Run("rejects public receipt urls", func(t *testing.T) {
		t.Parallel()
		var in ReimbursementInput
		body := `{"clubId":"c1","payeeUserId":"u1","amountCents":10,"description":"x","receiptRef":"https://example.com/r.png"}`
		require.ErrorIs(t, Parse(strings.NewReader(body), &in), ErrInvalidInput)
	})
}

func TestReimbursementPatch(t *testing.T) {
	t.Parallel()

	item := "item-1"
	r := &models.Reimbursement{
		AmountCents: 500, Description: "Cups", Status: models.StatusSubmitted, BudgetItemID: &item,
	}

	var patch ReimbursementPatch
	require.NoError(t, Parse(strings.NewReader(`{"description":" Plates ","budgetItemId":""}`), &patch))
	patch.Apply(r)

	require.Equal(t, "Plates", r.Description)
	require.Nil(t, r.BudgetItemID)
	require.Equal(t, int64(500), r.AmountCents)
	require.NoError(t, Reimbursement(r))

	r.Status = models.StatusRejected
	require.NoError(t, Reimbursement(r), "the rejection reason is optional")
	r.RejectionReason = "no receipt"
	require.NoError(t, Reimbursement(r))
}

func TestClubPatch_RejectsBlankName(t *testing.T) {
	t.Parallel()

	var patch ClubPatch
	err := Parse(strings.NewReader(`{"name":"   "}`), &patch)
	require.ErrorIs(t, err, ErrInvalidInput)
}
