package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/middleware"
)

// handleStats is admin-only: the course funnel in one message.
func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil || !user.IsAdmin {
		return
	}
	chatID := update.Message.Chat.ID

	stats, err := h.progress.Stats(ctx)
	if err != nil {
		slog.Error("course stats", "error", err)
		return
	}

	var days strings.Builder
	for d := 1; d <= h.cfg.CourseDays; d++ {
		fmt.Fprintf(&days, "День %d: %d\n", d, stats.DayCompletions[d])
	}

	text := fmt.Sprintf(
		"📈 *Статистика курса*\n\n"+
			"👥 Всего пользователей: %d\n"+
			"💳 Оплатили: %d\n"+
			"🏁 Прошли курс: %d\n"+
			"💰 Выручка: %s %s\n\n"+
			"*Завершения по дням:*\n%s",
		stats.TotalUsers, stats.PaidUsers, stats.FinishedUsers,
		stats.Revenue.StringFixed(2), h.cfg.CourseCurrency, days.String(),
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send stats", "error", err)
	}
}
