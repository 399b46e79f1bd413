// Package notify posts reimbursement activity to the treasury's Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/sgtreasury/tally/internal/logger"
	"gitlab.com/sgtreasury/tally/internal/models"
)

// Notifier announces reimbursement events. Implementations never block the
// request on delivery problems; they return errors for the caller to log.
type Notifier interface {
	ReimbursementSubmitted(ctx context.Context, r *models.Reimbursement) error
	ReimbursementStatusChanged(ctx context.Context, r *models.Reimbursement, from models.ReimbursementStatus) error
}

// TelegramAPI is the part of the bot client the notifier uses.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

var _ TelegramAPI = (*bot.Bot)(nil)

// Telegram sends notifications to one chat.
type Telegram struct {
	api    TelegramAPI
	chatID int64
}

// NewTelegram creates a bot client for token without starting update polling.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return NewTelegramWithAPI(b, chatID), nil
}

// NewTelegramWithAPI creates a Telegram notifier over any TelegramAPI.
func NewTelegramWithAPI(api TelegramAPI, chatID int64) *Telegram {
	return &Telegram{api: api, chatID: chatID}
}

// ReimbursementSubmitted implements Notifier.
func (t *Telegram) ReimbursementSubmitted(ctx context.Context, r *models.Reimbursement) error {
	text := fmt.Sprintf("🧾 <b>New reimbursement</b>\n%s · %s\n%s\nID: <code>%s</code>",
		escapeHTML(r.ClubName), models.FormatCents(r.AmountCents), escapeHTML(truncate(r.Description, 200)), r.ID)
	return t.send(ctx, text)
}

// ReimbursementStatusChanged implements Notifier.
func (t *Telegram) ReimbursementStatusChanged(ctx context.Context, r *models.Reimbursement, from models.ReimbursementStatus) error {
	text := fmt.Sprintf("%s <b>Reimbursement %s</b>\n%s · %s\n%s → %s\nID: <code>%s</code>",
		statusEmoji(r.Status), r.Status, escapeHTML(r.ClubName), models.FormatCents(r.AmountCents),
		from, r.Status, r.ID)
	if r.Status == models.StatusRejected && r.RejectionReason != "" {
		text += "\nReason: " + escapeHTML(truncate(r.RejectionReason, 200))
	}
	return t.send(ctx, text)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	_, err := t.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func statusEmoji(s models.ReimbursementStatus) string {
	switch s {
	case models.StatusApproved:
		return "✅"
	case models.StatusPaid:
		return "💸"
	case models.StatusRejected:
		return "❌"
	default:
		return "🧾"
	}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Nop discards notifications.
type Nop struct{}

// ReimbursementSubmitted implements Notifier.
func (Nop) ReimbursementSubmitted(_ context.Context, r *models.Reimbursement) error {
	logger.Log.Debug().Str("reimbursement_id", r.ID).Msg("Treasury notifications disabled")
	return nil
}

// ReimbursementStatusChanged implements Notifier.
func (Nop) ReimbursementStatusChanged(context.Context, *models.Reimbursement, models.ReimbursementStatus) error {
	return nil
}
