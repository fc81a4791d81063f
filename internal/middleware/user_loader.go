package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/timezone"
)

type ctxKey string

const UserKey ctxKey = "user"

// GetUser extracts the loaded user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// UserLoader returns middleware that resolves the sender into a domain user
// and puts it on the context. New users get a timezone guessed from their
// Telegram language code.
func UserLoader(users *service.UserService, cfg interface{ IsAdmin(int64) bool }) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			from := senderOf(update)
			if from == nil {
				next(ctx, b, update)
				return
			}

			user, isNew, err := users.FindOrCreate(ctx,
				from.ID,
				from.FirstName,
				from.LastName,
				from.Username,
				timezone.Detect(from.LanguageCode),
				cfg.IsAdmin(from.ID),
			)
			if err != nil {
				slog.Error("load user", "error", err, "telegram_id", from.ID)
				next(ctx, b, update)
				return
			}

			if isNew {
				slog.Info("new user registered",
					"telegram_id", from.ID,
					"username", from.Username,
					"timezone", user.Timezone,
				)
			}

			next(context.WithValue(ctx, UserKey, user), b, update)
		}
	}
}

func senderOf(update *models.Update) *models.User {
	switch {
	case update.Message != nil:
		return update.Message.From
	case update.CallbackQuery != nil:
		return &update.CallbackQuery.From
	default:
		return nil
	}
}
