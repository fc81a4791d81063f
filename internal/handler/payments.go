package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/middleware"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/telegram"
)

func (h *Handler) handlePay(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.startPayment(ctx, middleware.GetUser(ctx), update.Message.Chat.ID)
}

func (h *Handler) handleBuyCourse(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	h.startPayment(ctx, middleware.GetUser(ctx), callbackChatID(update))
}

func (h *Handler) handleCheckPayment(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.checkPayment(ctx, middleware.GetUser(ctx), update.Message.Chat.ID)
}

func (h *Handler) handleCheckPaymentCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	h.checkPayment(ctx, middleware.GetUser(ctx), callbackChatID(update))
}

func (h *Handler) startPayment(ctx context.Context, user *domain.User, chatID int64) {
	if user == nil || chatID == 0 {
		return
	}
	if user.HasAccess {
		h.sendMainMenu(ctx, chatID, user.FirstName)
		return
	}
	if h.payments == nil {
		h.sender.SendMessage(ctx, chatID, "⚠️ Оплата временно недоступна. Попробуй позже.")
		return
	}

	_, confirmationURL, err := h.payments.CreateCoursePayment(ctx, user)
	if err != nil {
		slog.Error("create payment", "error", err, "telegram_id", user.TelegramID)
		h.sender.SendMessage(ctx, chatID, "❌ Не удалось создать платёж. Попробуй ещё раз через минуту.")
		return
	}

	kb := telegram.InlineKeyboard(
		telegram.ButtonRow(telegram.URLButton("💳 Перейти к оплате", confirmationURL)),
		telegram.ButtonRow(telegram.InlineButton("🔄 Я оплатил", "check_payment")),
	)
	text := "🔐 *Платёж создан*\n\n" +
		"Переходи по ссылке и оплачивай доступ. После оплаты нажми «Я оплатил» — " +
		"или просто вернись в бот, я проверю сам."
	if err := h.sender.SendWithKeyboard(ctx, chatID, text, kb); err != nil {
		slog.Error("send payment link", "error", err, "telegram_id", user.TelegramID)
	}
}

func (h *Handler) checkPayment(ctx context.Context, user *domain.User, chatID int64) {
	if user == nil || chatID == 0 {
		return
	}
	if user.HasAccess {
		h.sendMainMenu(ctx, chatID, user.FirstName)
		return
	}
	if h.payments == nil {
		return
	}

	outcome, err := h.payments.CheckPendingPayments(ctx, user.TelegramID)
	if err != nil {
		slog.Error("check payment", "error", err, "telegram_id", user.TelegramID)
		h.sender.SendMessage(ctx, chatID, "❌ Не удалось проверить платёж. Попробуй позже.")
		return
	}

	switch outcome {
	case service.OutcomeGranted:
		// Success message already sent by the payment service.
	case service.OutcomeAlreadyHadAccess:
		h.sendMainMenu(ctx, chatID, user.FirstName)
	default:
		h.sender.SendMessage(ctx, chatID,
			"⏳ Оплата пока не подтверждена.\n\n"+
				"Если ты только что оплатил — подожди минуту и нажми «Я оплатил» ещё раз.")
	}
}
