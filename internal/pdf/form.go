// Package pdf renders the treasury's reimbursement request form.
package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"gitlab.com/sgtreasury/tally/internal/models"
)

// Form is everything printed on a reimbursement request form.
type Form struct {
	Reimbursement models.Reimbursement
	Payee         models.User
	BudgetItem    *models.BudgetItem
	GeneratedAt   time.Time
}

const (
	pageMargin = 18.0
	labelWidth = 48.0
	lineHeight = 7.0
)

// RenderForm writes the form as a single-page PDF.
func RenderForm(w io.Writer, form Form) error {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(true, pageMargin)
	doc.SetTitle("Reimbursement Request "+form.Reimbursement.ID, true)
	doc.SetCreator("Tally", true)
	if !form.GeneratedAt.IsZero() {
		doc.SetCreationDate(form.GeneratedAt)
		doc.SetModificationDate(form.GeneratedAt)
	}
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AddPage()
	pageWidth, _ := doc.GetPageSize()
	contentWidth := pageWidth - 2*pageMargin

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(contentWidth, 10, "Student Government Treasury", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(contentWidth, 8, "Reimbursement Request Form", "", 1, "C", false, 0, "")
	doc.Ln(4)

	r := form.Reimbursement
	section(doc, contentWidth, "Request")
	field(doc, tr, "Request ID", r.ID)
	field(doc, tr, "Club", r.ClubName)
	field(doc, tr, "Submitted", r.SubmittedAt.Format("January 2, 2006"))
	field(doc, tr, "Status", strings.ToUpper(string(r.Status)))
	field(doc, tr, "Amount", models.FormatCents(r.AmountCents))
	if form.BudgetItem != nil {
		field(doc, tr, "Budget line", fmt.Sprintf("%s (%s)", form.BudgetItem.Label, categoryLabel(form.BudgetItem.Category)))
	}
	multiField(doc, tr, contentWidth, "Description", r.Description)
	if r.Status == models.StatusRejected && r.RejectionReason != "" {
		multiField(doc, tr, contentWidth, "Rejection reason", r.RejectionReason)
	}
	doc.Ln(3)

	p := form.Payee
	section(doc, contentWidth, "Payee")
	field(doc, tr, "Name", p.FullName())
	field(doc, tr, "Email", p.Email)
	field(doc, tr, "Student ID", p.StudentID)
	field(doc, tr, "Phone", p.Phone)
	field(doc, tr, "Permanent address", formatAddress(p.PermanentAddress))
	field(doc, tr, "Local address", formatAddress(p.LocalAddress))
	doc.Ln(10)

	signatures(doc, contentWidth, "Payee signature", "Club treasurer signature")
	doc.Ln(8)
	signatures(doc, contentWidth, "Treasury approval", "Date paid")

	if !form.GeneratedAt.IsZero() {
		doc.SetY(-pageMargin - 6)
		doc.SetFont("Helvetica", "I", 8)
		doc.CellFormat(contentWidth, 5, "Generated "+form.GeneratedAt.UTC().Format(time.RFC1123), "", 0, "R", false, 0, "")
	}

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render form: %w", err)
	}
	return nil
}

func section(doc *fpdf.Fpdf, width float64, title string) {
	doc.SetFont("Helvetica", "B", 11)
	doc.SetFillColor(230, 230, 230)
	doc.CellFormat(width, lineHeight, title, "", 1, "L", true, 0, "")
	doc.Ln(1)
}

func field(doc *fpdf.Fpdf, tr func(string) string, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(labelWidth, lineHeight, label, "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(0, lineHeight, tr(value), "B", 1, "L", false, 0, "")
}

func multiField(doc *fpdf.Fpdf, tr func(string) string, width float64, label, value string) {
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(labelWidth, lineHeight, label, "", 0, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.MultiCell(width-labelWidth, lineHeight, tr(value), "B", "L", false)
}

func signatures(doc *fpdf.Fpdf, width float64, left, right string) {
	half := (width - 10) / 2
	doc.CellFormat(half, lineHeight, "", "B", 0, "L", false, 0, "")
	doc.CellFormat(10, lineHeight, "", "", 0, "L", false, 0, "")
	doc.CellFormat(half, lineHeight, "", "B", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 8)
	doc.CellFormat(half, 5, left, "", 0, "L", false, 0, "")
	doc.CellFormat(10, 5, "", "", 0, "L", false, 0, "")
	doc.CellFormat(half, 5, right, "", 1, "L", false, 0, "")
}

func formatAddress(a models.Address) string {
	var parts []string
	for _, p := range []string{a.Line, a.City, strings.TrimSpace(a.State + " " + a.Zip)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func categoryLabel(c models.BudgetCategory) string {
	if c == models.BudgetCategoryFood {
		return "food"
	}
	return "non-food"
}
