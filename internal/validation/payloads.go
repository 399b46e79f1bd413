package validation

import (
	"strings"

	"gitlab.com/sgtreasury/tally/internal/models"
)

// UserInput is the profile submitted on first sign-in.
type UserInput struct {
	FirstName        string         `json:"firstName" validate:"max=100"`
	LastName         string         `json:"lastName" validate:"max=100"`
	Email            string         `json:"email" validate:"required,email"`
	StudentID        string         `json:"studentId" validate:"max=32"`
	Phone            string         `json:"phone" validate:"max=32"`
	PermanentAddress models.Address `json:"permanentAddress"`
	LocalAddress     models.Address `json:"localAddress"`
}

// Normalize implements Normalizer.
func (p *UserInput) Normalize() {
	p.Email = NormalizeEmail(p.Email)
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
}

// ToModel builds a user row owned by the identity-provider subject id.
func (p *UserInput) ToModel(id string) *models.User {
	return &models.User{
		ID:               id,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Role:             models.UserRoleMember,
		StudentID:        p.StudentID,
		Phone:            p.Phone,
		PermanentAddress: p.PermanentAddress,
		LocalAddress:     p.LocalAddress,
	}
}

// UserPatch holds the profile fields a user may change. Email and role are
// owned by the identity provider and the treasury respectively.
type UserPatch struct {
	FirstName        *string         `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string         `json:"lastName" validate:"omitempty,max=100"`
	StudentID        *string         `json:"studentId" validate:"omitempty,max=32"`
	Phone            *string         `json:"phone" validate:"omitempty,max=32"`
	PermanentAddress *models.Address `json:"permanentAddress"`
	LocalAddress     *models.Address `json:"localAddress"`
}

// Normalize implements Normalizer.
func (p *UserPatch) Normalize() {
	trimPtr(p.FirstName)
	trimPtr(p.LastName)
}

// Apply copies every set field onto u.
func (p *UserPatch) Apply(u *models.User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.StudentID != nil {
		u.StudentID = *p.StudentID
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.PermanentAddress != nil {
		u.PermanentAddress = *p.PermanentAddress
	}
	if p.LocalAddress != nil {
		u.LocalAddress = *p.LocalAddress
	}
}

// ClubInput creates a club.
type ClubInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

// Normalize implements Normalizer.
func (p *ClubInput) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
}

// ClubPatch renames a club.
type ClubPatch struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
}

// Normalize implements Normalizer.
func (p *ClubPatch) Normalize() {
	trimPtr(p.Name)
}

// Apply copies every set field onto c.
func (p *ClubPatch) Apply(c *models.Club) {
	if p.Name != nil {
		c.Name = *p.Name
	}
}

// MembershipInput adds a user to a club.
type MembershipInput struct {
	ClubID string                `json:"clubId" validate:"required"`
	UserID string                `json:"userId" validate:"required"`
	Role   models.MembershipRole `json:"role" validate:"omitempty,oneof=treasurer member"`
}

// Normalize implements Normalizer.
func (p *MembershipInput) Normalize() {
	if p.Role == "" {
		p.Role = models.MembershipRoleMember
	}
}

// MembershipPatch changes a member's role.
type MembershipPatch struct {
	Role *models.MembershipRole `json:"role" validate:"omitempty,oneof=treasurer member"`
}

// Apply copies every set field onto m.
func (p *MembershipPatch) Apply(m *models.ClubMembership) {
	if p.Role != nil {
		m.Role = *p.Role
	}
}

// InviteInput offers membership to an email address.
type InviteInput struct {
	ClubID    string                `json:"clubId" validate:"required"`
	Email     string                `json:"email" validate:"required,email"`
	Role      models.MembershipRole `json:"role" validate:"omitempty,oneof=treasurer member"`
	ExpiresAt FlexTime              `json:"expiresAt" validate:"required"`
}

// Normalize implements Normalizer.
func (p *InviteInput) Normalize() {
	p.Email = NormalizeEmail(p.Email)
	if p.Role == "" {
		p.Role = models.MembershipRoleMember
	}
}

// InvitePatch changes the offered role or the expiry.
type InvitePatch struct {
	Role      *models.MembershipRole `json:"role" validate:"omitempty,oneof=treasurer member"`
	ExpiresAt *FlexTime              `json:"expiresAt"`
}

// Apply copies every set field onto i.
func (p *InvitePatch) Apply(i *models.ClubInvite) {
	if p.Role != nil {
		i.Role = *p.Role
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.IsZero() {
		i.ExpiresAt = p.ExpiresAt.Time
	}
}

// InviteDecision accepts or declines the actor's invites to a club.
type InviteDecision struct {
	ClubID string `json:"clubId" validate:"required"`
}

// BudgetSectionInput creates a budget section.
type BudgetSectionInput struct {
	ClubID     string `json:"clubId" validate:"required"`
	Title      string `json:"title" validate:"required,max=200"`
	Definition string `json:"definition" validate:"max=2000"`
}

// Normalize implements Normalizer.
func (p *BudgetSectionInput) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
}

// BudgetSectionPatch changes a section's title or definition.
type BudgetSectionPatch struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=200"`
	Definition *string `json:"definition" validate:"omitempty,max=2000"`
}

// Normalize implements Normalizer.
func (p *BudgetSectionPatch) Normalize() {
	trimPtr(p.Title)
}

// Apply copies every set field onto s.
func (p *BudgetSectionPatch) Apply(s *models.BudgetSection) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Definition != nil {
		s.Definition = *p.Definition
	}
}

// BudgetItemInput creates a budget line item.
type BudgetItemInput struct {
	SectionID      string                `json:"sectionId" validate:"required"`
	Label          string                `json:"label" validate:"required,max=200"`
	Category       models.BudgetCategory `json:"category" validate:"required,oneof=food non_food"`
	AllocatedCents int64                 `json:"allocatedCents" validate:"gte=0"`
	SpentCents     int64                 `json:"spentCents" validate:"gte=0"`
	Notes          string                `json:"notes" validate:"max=2000"`
}

// Normalize implements Normalizer.
func (p *BudgetItemInput) Normalize() {
	p.Label = strings.TrimSpace(p.Label)
}

// ToModel builds the row to insert.
func (p *BudgetItemInput) ToModel() *models.BudgetItem {
	return &models.BudgetItem{
		SectionID:      p.SectionID,
		Label:          p.Label,
		Category:       p.Category,
		AllocatedCents: p.AllocatedCents,
		SpentCents:     p.SpentCents,
		Notes:          p.Notes,
	}
}

// BudgetItemPatch changes any editable field of a line item.
type BudgetItemPatch struct {
	Label          *string                `json:"label" validate:"omitempty,min=1,max=200"`
	Category       *models.BudgetCategory `json:"category" validate:"omitempty,oneof=food non_food"`
	AllocatedCents *int64                 `json:"allocatedCents" validate:"omitempty,gte=0"`
	SpentCents     *int64                 `json:"spentCents" validate:"omitempty,gte=0"`
	Notes          *string                `json:"notes" validate:"omitempty,max=2000"`
}

// Normalize implements Normalizer.
func (p *BudgetItemPatch) Normalize() {
	trimPtr(p.Label)
}

// Apply copies every set field onto item.
func (p *BudgetItemPatch) Apply(item *models.BudgetItem) {
	if p.Label != nil {
		item.Label = *p.Label
	}
	if p.Category != nil {
		item.Category = *p.Category
	}
	if p.AllocatedCents != nil {
		item.AllocatedCents = *p.AllocatedCents
	}
	if p.SpentCents != nil {
		item.SpentCents = *p.SpentCents
	}
	if p.Notes != nil {
		item.Notes = *p.Notes
	}
}

// BudgetItem checks the cross-field invariants of a complete line item.
func BudgetItem(item *models.BudgetItem) error {
	if item.AllocatedCents < 0 {
		return Invalid("allocatedCents", "gte")
	}
	if item.SpentCents < 0 {
		return Invalid("spentCents", "gte")
	}
	if item.SpentCents > item.AllocatedCents {
		return Invalid("spentCents", "lte_allocated")
	}
	return nil
}

// ReimbursementInput submits a reimbursement request.
type ReimbursementInput struct {
	ClubID       string                     `json:"clubId" validate:"required"`
	PayeeUserID  string                     `json:"payeeUserId" validate:"required"`
	BudgetItemID *string                    `json:"budgetItemId" validate:"omitempty,min=1"`
	AmountCents  int64                      `json:"amountCents" validate:"required,gt=0"`
	Description  string                     `json:"description" validate:"required,max=2000"`
	Status       models.ReimbursementStatus `json:"status" validate:"omitempty,oneof=submitted"`
	ReceiptRef   string                     `json:"receiptRef" validate:"omitempty,startswith=storage://"`
}

// Normalize implements Normalizer.
func (p *ReimbursementInput) Normalize() {
	p.Description = strings.TrimSpace(p.Description)
	if p.BudgetItemID != nil && strings.TrimSpace(*p.BudgetItemID) == "" {
		p.BudgetItemID = nil
	}
	if p.Status == "" {
		p.Status = models.StatusSubmitted
	}
}

// ReimbursementPatch changes editable fields of a reimbursement. Status
// changes are further checked against the transition table by the service.
type ReimbursementPatch struct {
	PayeeUserID     *string                     `json:"payeeUserId" validate:"omitempty,min=1"`
	BudgetItemID    *string                     `json:"budgetItemId"`
	AmountCents     *int64                      `json:"amountCents" validate:"omitempty,gt=0"`
	Description     *string                     `json:"description" validate:"omitempty,min=1,max=2000"`
	Status          *models.ReimbursementStatus `json:"status" validate:"omitempty,oneof=submitted approved paid rejected"`
	RejectionReason *string                     `json:"rejectionReason" validate:"omitempty,max=2000"`
	ReceiptRef      *string                     `json:"receiptRef" validate:"omitempty,startswith=storage://"`
	FormPDFRef      *string                     `json:"formPdfRef" validate:"omitempty,startswith=storage://"`
	PacketPDFRef    *string                     `json:"packetPdfRef" validate:"omitempty,startswith=storage://"`
}

// Normalize implements Normalizer.
func (p *ReimbursementPatch) Normalize() {
	trimPtr(p.Description)
	trimPtr(p.RejectionReason)
}

// Apply copies every set field except Status onto r. The status change is
// applied by the caller once the transition has been checked.
func (p *ReimbursementPatch) Apply(r *models.Reimbursement) {
	if p.PayeeUserID != nil {
		r.PayeeUserID = *p.PayeeUserID
	}
	if p.BudgetItemID != nil {
		if *p.BudgetItemID == "" {
			r.BudgetItemID = nil
		} else {
			id := *p.BudgetItemID
			r.BudgetItemID = &id
		}
	}
	if p.AmountCents != nil {
		r.AmountCents = *p.AmountCents
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.RejectionReason != nil {
		r.RejectionReason = *p.RejectionReason
	}
	if p.ReceiptRef != nil {
		r.ReceiptRef = *p.ReceiptRef
	}
	if p.FormPDFRef != nil {
		r.FormPDFRef = *p.FormPDFRef
	}
	if p.PacketPDFRef != nil {
		r.PacketPDFRef = *p.PacketPDFRef
	}
}

// Reimbursement checks the invariants of a complete reimbursement row.
func Reimbursement(r *models.Reimbursement) error {
	if r.AmountCents <= 0 {
		return Invalid("amountCents", "gt")
	}
	if strings.TrimSpace(r.Description) == "" {
		return Invalid("description", "required")
	}
	if !r.Status.Valid() {
		return Invalid("status", "oneof")
	}
	return nil
}
