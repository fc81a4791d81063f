package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/service"
)

// Activity returns middleware that stamps last_activity on every update
// from a known user. The inactivity reminders count from this timestamp.
// Runs after UserLoader.
func Activity(users *service.UserService) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if user := GetUser(ctx); user != nil {
				if err := users.TouchActivity(ctx, user.ID); err != nil {
					slog.Error("touch activity", "error", err, "telegram_id", user.TelegramID)
				}
			}
			next(ctx, b, update)
		}
	}
}
