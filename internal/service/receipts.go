package service

import (
	"context"
	"net/http"
	"strings"

	"gitlab.com/sgtreasury/tally/internal/gemini"
	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

// ReceiptService suggests reimbursement fields from a receipt photo.
type ReceiptService struct {
	scanner ReceiptScanner
}

// NewReceiptService creates a ReceiptService. A nil scanner makes every
// scan fail with ErrScanningDisabled.
func NewReceiptService(scanner ReceiptScanner) *ReceiptService {
	return &ReceiptService{scanner: scanner}
}

// Enabled reports whether a scanner is configured.
func (s *ReceiptService) Enabled() bool {
	return s != nil && s.scanner != nil
}

// Scan extracts the amount, merchant, date and category from an image.
func (s *ReceiptService) Scan(ctx context.Context, image []byte, mimeType string) (*gemini.Receipt, error) {
	if !s.Enabled() {
		return nil, ErrScanningDisabled
	}
	if len(image) == 0 {
		return nil, validation.Invalid("file", "required")
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf" {
		return nil, validation.Invalid("file", "image")
	}

	receipt, err := s.scanner.ParseReceipt(ctx, image, mimeType)
	if err != nil {
		logger.Log.Warn().Err(err).Str("mime", mimeType).Msg("Receipt scan failed")
		return nil, err
	}
	metrics.receiptsScanned.Add(ctx, 1)
	return receipt, nil
}
