package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/middleware"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/telegram"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	// A payment confirmed while the user was away is picked up here: the
	// redirect back from the provider lands on /start.
	if !user.HasAccess && h.payments != nil {
		outcome, err := h.payments.CheckPendingPayments(ctx, user.TelegramID)
		if err != nil {
			slog.Error("check pending payments on start", "error", err, "telegram_id", user.TelegramID)
		}
		if outcome == service.OutcomeGranted {
			// Success message already sent by the payment service.
			return
		}
	}

	if user.HasAccess {
		h.sendMainMenu(ctx, chatID, user.FirstName)
		return
	}

	name := user.FirstName
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"🔓 *Добро пожаловать в NeoVoice, %s*\n\n"+
			"Сердце стучит: что ждёт в NeoVoice? *%d-дневный квест A1-A2:* взломай код, задавай вопросы и почувствуй адреналин свободы!\n\n"+
			"*Корпорация ShadowNet* хочет стереть тебя. Но есть надежда...\n\n"+
			"💰 *Цена кода доступа:* %d %s\n"+
			"⏱️ *Длительность протокола:* %d дней\n"+
			"🎯 *Миссия:* Собери секретный код, чтобы вырваться на свободу\n\n"+
			"⚠️ *Время уходит.* Каждая секунда на счету.",
		name, h.cfg.CourseDays, h.cfg.CoursePrice, h.cfg.CourseCurrency, h.cfg.CourseDays,
	)

	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.InlineButton("💳 Оплатить доступ", "buy_course")),
		telegram.ButtonRow(telegram.InlineButton("🔄 Я уже оплатил", "check_payment")),
	)
	if err := h.sender.SendWithKeyboard(ctx, chatID, text, kb); err != nil {
		slog.Error("send welcome", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	text := "📋 *Команды:*\n\n" +
		"/day — Текущий день курса\n" +
		"/progress — Твой прогресс\n" +
		"/code — Собранный код\n" +
		"/pay — Купить доступ\n" +
		"/check\\_payment — Проверить оплату\n" +
		"/help — Это сообщение"
	if err := h.sender.SendMessage(ctx, update.Message.Chat.ID, text); err != nil {
		slog.Error("send help", "error", err)
	}
}

func (h *Handler) sendMainMenu(ctx context.Context, chatID int64, name string) {
	if name == "" {
		name = "Субъект X"
	}
	text := fmt.Sprintf(
		"⚡ *С возвращением, %s*\n\n"+
			"Симуляция наблюдает. Твой протокол ждёт.\n\n"+
			"🎬 Текущий день: /day\n"+
			"📊 Прогресс: /progress\n"+
			"🔑 Код: /code",
		name,
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send main menu", "error", err, "chat_id", chatID)
	}
}
