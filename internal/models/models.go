// Package models defines the domain entities for the reimbursement tracker.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserRole is the global role of a user.
type UserRole string

// Global roles.
const (
	UserRoleMember   UserRole = "member"
	UserRoleTreasury UserRole = "treasury"
)

// MembershipRole is the club-scoped role of a membership or invite.
type MembershipRole string

// Club roles, ordered by privilege.
const (
	MembershipRoleMember    MembershipRole = "member"
	MembershipRoleTreasurer MembershipRole = "treasurer"
)

// Rank orders roles by privilege; unknown roles rank lowest.
func (r MembershipRole) Rank() int {
	switch r {
	case MembershipRoleTreasurer:
		return 2
	case MembershipRoleMember:
		return 1
	default:
		return 0
	}
}

// BudgetCategory classifies a budget line item.
type BudgetCategory string

// Budget categories.
const (
	BudgetCategoryFood    BudgetCategory = "food"
	BudgetCategoryNonFood BudgetCategory = "non_food"
)

// Address is a postal address.
type Address struct {
	Line  string `json:"line"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

// User is an authenticated person. ID is issued by the identity provider.
type User struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Email            string    `json:"email"`
	Role             UserRole  `json:"role"`
	StudentID        string    `json:"studentId"`
	Phone            string    `json:"phone"`
	PermanentAddress Address   `json:"permanentAddress"`
	LocalAddress     Address   `json:"localAddress"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FullName joins the first and last name.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Club is a student organization.
type Club struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClubMembership says a user belongs to a club with a role.
type ClubMembership struct {
	ID        string         `json:"id"`
	ClubID    string         `json:"clubId"`
	UserID    string         `json:"userId"`
	Role      MembershipRole `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ClubInvite is a pending offer of membership addressed to an email.
type ClubInvite struct {
	ID        string         `json:"id"`
	ClubID    string         `json:"clubId"`
	Email     string         `json:"email"`
	Role      MembershipRole `json:"role"`
	ExpiresAt time.Time      `json:"expiresAt"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Expired reports whether the invite can no longer be accepted.
func (i *ClubInvite) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// BudgetSection is a named bucket under a club's budget.
type BudgetSection struct {
	ID         string    `json:"id"`
	ClubID     string    `json:"clubId"`
	Title      string    `json:"title"`
	Definition string    `json:"definition"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BudgetItem is a line item inside a budget section. Amounts are in cents.
type BudgetItem struct {
	ID             string         `json:"id"`
	SectionID      string         `json:"sectionId"`
	Label          string         `json:"label"`
	Category       BudgetCategory `json:"category"`
	AllocatedCents int64          `json:"allocatedCents"`
	SpentCents     int64          `json:"spentCents"`
	Notes          string         `json:"notes"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Reimbursement is a request for money owed to a payee.
type Reimbursement struct {
	ID              string              `json:"id"`
	ClubID          string              `json:"clubId"`
	ClubName        string              `json:"clubName"`
	CreatedBy       string              `json:"createdBy"`
	PayeeUserID     string              `json:"payeeUserId"`
	BudgetItemID    *string             `json:"budgetItemId"`
	AmountCents     int64               `json:"amountCents"`
	Description     string              `json:"description"`
	Status          ReimbursementStatus `json:"status"`
	RejectionReason string              `json:"rejectionReason"`
	SubmittedAt     time.Time           `json:"submittedAt"`
	ReviewedAt      *time.Time          `json:"reviewedAt"`
	PaidAt          *time.Time          `json:"paidAt"`
	ReceiptRef      string              `json:"receiptRef"`
	FormPDFRef      string              `json:"formPdfRef"`
	PacketPDFRef    string              `json:"packetPdfRef"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// FileRefs returns every non-empty stored file reference.
func (r *Reimbursement) FileRefs() []string {
	var refs []string
	for _, ref := range []string{r.ReceiptRef, r.FormPDFRef, r.PacketPDFRef} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// SectionTotal is the sum of a budget section's items.
type SectionTotal struct {
	SectionID      string `json:"sectionId"`
	Title          string `json:"title"`
	AllocatedCents int64  `json:"allocatedCents"`
	SpentCents     int64  `json:"spentCents"`
}

// TreasurerView is the club a user treasures together with its memberships.
type TreasurerView struct {
	Club        Club             `json:"club"`
	Memberships []ClubMembership `json:"memberships"`
}

// Dollars converts an amount in cents to a decimal dollar value.
func Dollars(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatCents renders cents as a dollar string like "$12.50".
func FormatCents(cents int64) string {
	return "$" + Dollars(cents).StringFixed(2)
}

// CentsFromDollars rounds a dollar amount to whole cents.
func CentsFromDollars(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
