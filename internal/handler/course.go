package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/middleware"
	"github.com/neovoice/escapebot/internal/telegram"
)

func (h *Handler) handleDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	day := user.CurrentDay
	if day < 1 {
		day = 1
	}
	h.openDay(ctx, user, update.Message.Chat.ID, day)
}

func (h *Handler) handleDayOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	day, ok := callbackInt(update, "day_")
	if user == nil || !ok {
		return
	}
	h.openDay(ctx, user, callbackChatID(update), day)
}

func (h *Handler) openDay(ctx context.Context, user *domain.User, chatID int64, dayNum int) {
	if chatID == 0 {
		return
	}

	progress, err := h.progress.EnterDay(ctx, user.TelegramID, dayNum)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoAccess):
			h.sender.SendMessage(ctx, chatID,
				"🔒 Доступ к симуляции закрыт.\n\nКупи код доступа: /pay")
		case errors.Is(err, domain.ErrDayLocked):
			h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
				"⏳ *День %d ещё заблокирован.*\n\n"+
					"Заверши текущий день — следующий откроется автоматически.", dayNum))
		default:
			slog.Error("enter day", "error", err, "telegram_id", user.TelegramID, "day", dayNum)
		}
		return
	}

	day, err := h.catalog.Day(dayNum)
	if err != nil {
		h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
			"📦 Материалы дня %d ещё загружаются. Загляни позже.", dayNum))
		return
	}

	name := user.FirstName
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"⚡ *День %d/%d: %s*\n\n"+
			"%s, твой следующий протокол готов.\n"+
			"Симуляция наблюдает...\n\n"+
			"🎥 Посмотри брифинг\n"+
			"📄 Прочитай разведданные\n"+
			"✅ Выполни испытания\n\n"+
			"*Время взломать систему.*",
		dayNum, h.cfg.CourseDays, day.Title, name,
	)

	rows := [][]models.InlineKeyboardButton{}
	if day.Video != "" {
		rows = append(rows, telegram.ButtonRow(telegram.URLButton("🎥 Брифинг", day.Video)))
	}
	rows = append(rows,
		telegram.ButtonRow(telegram.InlineButton("📄 Разведданные", fmt.Sprintf("brief_%d", dayNum))),
		telegram.ButtonRow(telegram.InlineButton("✅ К испытаниям", fmt.Sprintf("task_%d_1", dayNum))),
	)
	if progress.TasksCompleted {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton("🔄 Пройти день заново", fmt.Sprintf("restart_%d", dayNum)),
		))
	}

	if day.Video != "" {
		// A URL button opening counts as watching; mark it up front.
		if err := h.progress.MarkMaterialViewed(ctx, user.TelegramID, dayNum, "video"); err != nil {
			slog.Error("mark video viewed", "error", err, "telegram_id", user.TelegramID)
		}
	}

	if err := h.sender.SendWithKeyboard(ctx, chatID, text, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send day", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleVideo(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	day, ok := callbackInt(update, "video_")
	if user == nil || !ok {
		return
	}
	if err := h.progress.MarkMaterialViewed(ctx, user.TelegramID, day, "video"); err != nil {
		slog.Error("mark video viewed", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleBrief(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	dayNum, ok := callbackInt(update, "brief_")
	if user == nil || !ok {
		return
	}
	chatID := callbackChatID(update)

	day, err := h.catalog.Day(dayNum)
	if err != nil || day.Brief == "" {
		h.sender.SendMessage(ctx, chatID, "📄 Разведданные для этого дня ещё не расшифрованы.")
		return
	}

	if err := h.progress.MarkMaterialViewed(ctx, user.TelegramID, dayNum, "brief"); err != nil {
		slog.Error("mark brief viewed", "error", err, "telegram_id", user.TelegramID)
	}

	text := fmt.Sprintf("📄 *Разведданные, день %d*\n\n%s", dayNum, day.Brief)
	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("✅ К испытаниям", fmt.Sprintf("task_%d_1", dayNum))),
	)
	if err := h.sender.SendWithKeyboard(ctx, chatID, text, kb); err != nil {
		slog.Error("send brief", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleFinishDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	dayNum, ok := callbackInt(update, "finish_")
	if user == nil || !ok {
		return
	}
	chatID := callbackChatID(update)

	updated, err := h.progress.CompleteDay(ctx, user.TelegramID, dayNum)
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			h.sender.SendMessage(ctx, chatID, "⚠️ Сначала открой день: /day")
			return
		}
		slog.Error("complete day", "error", err, "telegram_id", user.TelegramID, "day", dayNum)
		return
	}

	if updated.CourseFinished() {
		h.sendCompletion(ctx, chatID, updated)
		return
	}

	letter := h.catalog.LetterForDay(dayNum)
	name := updated.FirstName
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"✅ *Протокол взломан!*\n\n"+
			"Отличная работа, %s! Ты разблокировал: *%s*\n\n"+
			"*Прогресс:* Уровень %d/%d\n"+
			"*Фрагмент кода:* `%s`\n\n"+
			"Продолжай. Свобода ближе.",
		name, letter, dayNum, h.cfg.CourseDays, updated.Code,
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send day completion", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleRestartDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	dayNum, ok := callbackInt(update, "restart_")
	if user == nil || !ok {
		return
	}
	chatID := callbackChatID(update)

	if err := h.attempts.ResetDayAttempts(ctx, user.TelegramID, dayNum); err != nil {
		slog.Error("restart day", "error", err, "telegram_id", user.TelegramID, "day", dayNum)
		return
	}
	h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
		"🔄 *День %d сброшен.*\n\nПопытки обнулены, фрагмент кода изъят. Вперёд: /day", dayNum))
}

func (h *Handler) handleProgress(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	o, err := h.progress.Overview(ctx, user.TelegramID)
	if err != nil {
		slog.Error("progress overview", "error", err, "telegram_id", user.TelegramID)
		return
	}

	var days strings.Builder
	for _, p := range o.Records {
		mark := "▫️"
		if p.TasksCompleted {
			mark = "✅"
		}
		fmt.Fprintf(&days, "%s День %d — %d/%d заданий\n", mark, p.DayNumber, p.CompletedTasks, p.TotalTasks)
	}
	if days.Len() == 0 {
		days.WriteString("Пока пусто. Начни: /day\n")
	}

	text := fmt.Sprintf(
		"📊 *Твой прогресс*\n\n"+
			"🗓 Текущий день: %d/%d\n"+
			"🔑 Код: `%s`\n"+
			"🎯 Точность: %.0f%%\n\n%s",
		o.User.CurrentDay, h.cfg.CourseDays, o.User.Code, o.Accuracy, days.String(),
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send progress", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleCode(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	text := fmt.Sprintf(
		"🔑 *Код освобождения*\n\n`%s`\n\n"+
			"Каждый пройденный день открывает одну букву. Собери все %d.",
		user.Code, h.cfg.CourseDays,
	)
	if err := h.sender.SendMessage(ctx, update.Message.Chat.ID, text); err != nil {
		slog.Error("send code", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) sendCompletion(ctx context.Context, chatID int64, user *domain.User) {
	name := user.FirstName
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"🎉 *КОД ОСВОБОЖДЕНИЯ РАЗБЛОКИРОВАН!*\n\n"+
			"Поздравляем, *%s*!\n\n"+
			"Ты вырвался из симуляции.\n"+
			"✅ *%d/%d дней пройдено*\n"+
			"🔑 *Финальный код:* `%s`\n\n"+
			"Ты настоящий хакер. Добро пожаловать в реальность.",
		name, h.cfg.CourseDays, h.cfg.CourseDays, h.catalog.FinalCode(),
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send course completion", "error", err, "telegram_id", user.TelegramID)
	}
}

// callbackInt parses the numeric suffix of callback data like "day_3".
func callbackInt(update *models.Update, prefix string) (int, bool) {
	if update.CallbackQuery == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
