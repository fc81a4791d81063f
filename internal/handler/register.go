package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, h.handleHelp)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/day", bot.MatchTypePrefix, h.handleDay)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/progress", bot.MatchTypePrefix, h.handleProgress)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/code", bot.MatchTypePrefix, h.handleCode)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pay", bot.MatchTypePrefix, h.handlePay)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/check_payment", bot.MatchTypePrefix, h.handleCheckPayment)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, h.handleStats)

	// Payment callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "buy_course", bot.MatchTypeExact, h.handleBuyCourse)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "check_payment", bot.MatchTypeExact, h.handleCheckPaymentCallback)

	// Day navigation callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "day_", bot.MatchTypePrefix, h.handleDayOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "video_", bot.MatchTypePrefix, h.handleVideo)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "brief_", bot.MatchTypePrefix, h.handleBrief)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "finish_", bot.MatchTypePrefix, h.handleFinishDay)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "restart_", bot.MatchTypePrefix, h.handleRestartDay)

	// Task callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "task_", bot.MatchTypePrefix, h.handleTaskOpen)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "ans_", bot.MatchTypePrefix, h.handleAnswer)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "dlg_", bot.MatchTypePrefix, h.handleDialogAnswer)
}

// HandleDefault is the bot's default handler: it routes voice messages
// into the grading pipeline. Everything else falls through.
func (h *Handler) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message != nil && update.Message.Voice != nil {
		h.handleVoiceMessage(ctx, b, update)
	}
}

func (h *Handler) answerCallback(ctx context.Context, update *models.Update) {
	if update.CallbackQuery != nil {
		h.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: update.CallbackQuery.ID,
		})
	}
}

// callbackChatID extracts the chat id behind a callback query.
func callbackChatID(update *models.Update) int64 {
	if update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil {
		return update.CallbackQuery.Message.Message.Chat.ID
	}
	return 0
}
