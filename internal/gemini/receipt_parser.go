package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/sgtreasury/tally/internal/models"
	"google.golang.org/genai"
)

// ParseReceiptTimeout bounds a single Gemini call.
const ParseReceiptTimeout = 30 * time.Second

var maxReceiptDollars = decimal.NewFromInt(1_000_000_000)

var (
	// ErrParseTimeout indicates the Gemini API call timed out.
	ErrParseTimeout = errors.New("receipt parsing timed out")
	// ErrNoData indicates nothing usable could be read from the receipt.
	ErrNoData = errors.New("no usable data extracted from receipt")
	// ErrNoImage is returned for an empty upload.
	ErrNoImage = errors.New("image data is required")
)

// Receipt is what could be read from a receipt image.
type Receipt struct {
	AmountCents int64                 `json:"amountCents"`
	Merchant    string                `json:"merchant"`
	Date        *time.Time            `json:"date,omitempty"`
	Category    models.BudgetCategory `json:"category"`
	Description string                `json:"description"`
	Confidence  float64               `json:"confidence"`
}

// IsEmpty reports whether neither an amount nor a merchant was found.
func (r *Receipt) IsEmpty() bool {
	return r.AmountCents == 0 && r.Merchant == ""
}

type receiptResponse struct {
	Amount      string  `json:"amount"`
	Merchant    string  `json:"merchant"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ParseReceipt reads the total, merchant, date and budget category from a
// receipt image.
func (c *Client) ParseReceipt(ctx context.Context, image []byte, mimeType string) (*Receipt, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, ParseReceiptTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
				{Text: receiptPrompt},
			},
		},
	}, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	receipt, err := parseReceiptResponse(text)
	if err != nil {
		return nil, err
	}
	if receipt.IsEmpty() {
		return nil, ErrNoData
	}
	return receipt, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

const receiptPrompt = `Analyze this receipt image for a student club reimbursement request.
Return ONLY a JSON object with no additional text or markdown formatting.

Fields:
- amount: the total paid as a numeric string, e.g. "54.60"
- merchant: the store or vendor name
- date: the purchase date in YYYY-MM-DD format
- category: "food" if the purchase is mostly food or drink, otherwise "non_food"
- description: a short description of what was bought, at most 12 words
- confidence: your confidence in the extraction from 0.0 to 1.0

If a field cannot be determined use an empty string, "0" for amount or 0.0 for confidence.

Example:
{"amount": "54.60", "merchant": "Costco", "date": "2024-01-15", "category": "food", "description": "Snacks and drinks for general meeting", "confidence": 0.9}`

func parseReceiptResponse(response string) (*Receipt, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var rr receiptResponse
	if err := json.Unmarshal([]byte(response), &rr); err != nil {
		return nil, fmt.Errorf("failed to parse receipt response: %w", err)
	}

	receipt := &Receipt{
		Merchant:    strings.TrimSpace(rr.Merchant),
		Description: strings.TrimSpace(rr.Description),
		Category:    models.BudgetCategoryNonFood,
		Confidence:  min(max(rr.Confidence, 0), 1),
	}
	if strings.EqualFold(strings.TrimSpace(rr.Category), string(models.BudgetCategoryFood)) {
		receipt.Category = models.BudgetCategoryFood
	}

	amount := strings.TrimPrefix(strings.TrimSpace(rr.Amount), "$")
	if amount != "" && amount != "0" {
		d, err := decimal.NewFromString(strings.ReplaceAll(amount, ",", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", rr.Amount, err)
		}
		if d.IsNegative() || d.GreaterThan(maxReceiptDollars) {
			return nil, fmt.Errorf("amount %q out of range", rr.Amount)
		}
		receipt.AmountCents = models.CentsFromDollars(d)
	}

	if rr.Date != "" {
		if date, err := time.Parse("2006-01-02", rr.Date); err == nil {
			receipt.Date = &date
		}
	}

	return receipt, nil
}
