// Package telegram wraps the bot API with the helpers the handlers need:
// markdown-safe sending, message splitting, keyboards, file downloads.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const MaxMessageLen = 4096

// Sender is the messaging facade handed to services as their Notifier.
type Sender struct {
	bot *bot.Bot
}

func NewSender(b *bot.Bot) *Sender {
	return &Sender{bot: b}
}

// SendMessage sends text as Markdown, splitting into parts when it exceeds
// the Telegram limit and falling back to plain text if parsing fails.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	return SendLong(ctx, s.bot, chatID, text, nil)
}

// SendWithKeyboard sends one Markdown message with an inline keyboard.
func (s *Sender) SendWithKeyboard(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      FixMarkdown(text),
		ParseMode: models.ParseModeMarkdownV1,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	_, err := s.bot.SendMessage(ctx, params)
	if err != nil {
		slog.Warn("markdown send failed, falling back to plain text", "error", err)
		params.ParseMode = ""
		_, err = s.bot.SendMessage(ctx, params)
	}
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendLong sends a potentially long message, split at the Telegram limit.
func SendLong(ctx context.Context, b *bot.Bot, chatID int64, text string, replyToID *int) error {
	text = FixMarkdown(text)
	parts := SplitMessage(text, MaxMessageLen)

	for _, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeMarkdownV1,
		}
		if replyToID != nil {
			params.ReplyParameters = &models.ReplyParameters{
				MessageID: *replyToID,
			}
			replyToID = nil // only reply to first part
		}

		_, err := b.SendMessage(ctx, params)
		if err != nil {
			// Fallback to plain text
			slog.Warn("markdown send failed, falling back to plain text", "error", err)
			params.ParseMode = ""
			_, err = b.SendMessage(ctx, params)
			if err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// StartTyping sends the typing action every 4 seconds until the returned
// cancel function is called. Used while speech recognition runs.
func StartTyping(ctx context.Context, b *bot.Bot, chatID int64) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		// Send immediately
		b.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: models.ChatActionTyping,
		})
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.SendChatAction(ctx, &bot.SendChatActionParams{
					ChatID: chatID,
					Action: models.ChatActionTyping,
				})
			}
		}
	}()
	return cancel
}
