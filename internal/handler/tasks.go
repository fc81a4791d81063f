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

	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/middleware"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/telegram"
)

// handleTaskOpen renders one task. Callback data: task_{day}_{num}.
func (h *Handler) handleTaskOpen(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	parts, ok := callbackInts(update, "task_", 2)
	if user == nil || !ok {
		return
	}
	h.showTask(ctx, user, callbackChatID(update), parts[0], parts[1])
}

func (h *Handler) showTask(ctx context.Context, user *domain.User, chatID int64, dayNum, taskNum int) {
	if chatID == 0 {
		return
	}
	if !h.progress.CanAccessDay(user, dayNum) {
		h.sender.SendMessage(ctx, chatID, "🔒 Этот день ещё заблокирован.")
		return
	}

	task, err := h.catalog.Task(dayNum, taskNum)
	if err != nil {
		// Past the last task: everything is done, offer to close the day.
		h.offerFinish(ctx, chatID, dayNum)
		return
	}

	switch task.Type {
	case domain.TaskKindChoice:
		h.showChoiceTask(ctx, chatID, dayNum, task)
	case domain.TaskKindVoice:
		h.showVoiceTask(ctx, chatID, task)
	case domain.TaskKindDialog:
		h.showDialogStep(ctx, chatID, dayNum, task, 0)
	default:
		slog.Warn("unknown task type", "type", task.Type, "day", dayNum, "task", taskNum)
	}
}

func (h *Handler) showChoiceTask(ctx context.Context, chatID int64, dayNum int, task *content.Task) {
	var rows [][]models.InlineKeyboardButton
	for i, opt := range task.Options {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(opt, fmt.Sprintf("ans_%d_%d_%d", dayNum, task.TaskNumber, i)),
		))
	}
	text := fmt.Sprintf("🎯 *Испытание %d: %s*\n\n%s", task.TaskNumber, task.Title, task.Question)
	if err := h.sender.SendWithKeyboard(ctx, chatID, text, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send choice task", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) showVoiceTask(ctx context.Context, chatID int64, task *content.Task) {
	text := fmt.Sprintf(
		"🎤 *Испытание %d: %s*\n\n%s\n\n"+
			"1. Запиши голосовое сообщение\n"+
			"2. Говори чётко, %d–%d секунд\n"+
			"3. Отправь его прямо сюда\n\n"+
			"Готов? Жми на микрофон!",
		task.TaskNumber, task.Title, task.VoicePrompt,
		config.VoiceMinDuration, config.VoiceMaxDuration,
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send voice task", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) showDialogStep(ctx context.Context, chatID int64, dayNum int, task *content.Task, step int) {
	if step >= len(task.DialogSteps) {
		return
	}
	s := task.DialogSteps[step]

	var rows [][]models.InlineKeyboardButton
	for i, opt := range s.Options {
		rows = append(rows, telegram.ButtonRow(
			telegram.InlineButton(opt, fmt.Sprintf("dlg_%d_%d_%d_%d", dayNum, task.TaskNumber, step, i)),
		))
	}
	text := fmt.Sprintf(
		"💬 *Испытание %d: %s* (реплика %d/%d)\n\n%s",
		task.TaskNumber, task.Title, step+1, len(task.DialogSteps), s.Prompt,
	)
	if err := h.sender.SendWithKeyboard(ctx, chatID, text, telegram.InlineKeyboard(rows...)); err != nil {
		slog.Error("send dialog step", "error", err, "chat_id", chatID)
	}
}

// handleAnswer grades a choice answer. Callback data: ans_{day}_{task}_{option}.
func (h *Handler) handleAnswer(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	parts, ok := callbackInts(update, "ans_", 3)
	if user == nil || !ok {
		return
	}
	chatID := callbackChatID(update)
	dayNum, taskNum, optIdx := parts[0], parts[1], parts[2]

	task, err := h.catalog.Task(dayNum, taskNum)
	if err != nil || optIdx < 0 || optIdx >= len(task.Options) {
		return
	}
	answer := task.Options[optIdx]
	isCorrect := answer == task.CorrectAnswer

	h.recordAndRender(ctx, user, chatID, dayNum, task, domain.TaskKindChoice, isCorrect, service.AttemptPayload{
		Answer:        answer,
		CorrectAnswer: task.CorrectAnswer,
	})
}

// handleDialogAnswer grades one dialog reply. A wrong reply costs one
// attempt; the final correct reply completes the task. Callback data:
// dlg_{day}_{task}_{step}_{option}.
func (h *Handler) handleDialogAnswer(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.answerCallback(ctx, update)
	user := middleware.GetUser(ctx)
	parts, ok := callbackInts(update, "dlg_", 4)
	if user == nil || !ok {
		return
	}
	chatID := callbackChatID(update)
	dayNum, taskNum, step, optIdx := parts[0], parts[1], parts[2], parts[3]

	task, err := h.catalog.Task(dayNum, taskNum)
	if err != nil || step < 0 || step >= len(task.DialogSteps) {
		return
	}
	dialogStep := task.DialogSteps[step]
	if optIdx < 0 || optIdx >= len(dialogStep.Options) {
		return
	}
	answer := dialogStep.Options[optIdx]

	if answer != dialogStep.CorrectAnswer {
		h.recordAndRender(ctx, user, chatID, dayNum, task, domain.TaskKindDialog, false, service.AttemptPayload{
			Answer:        answer,
			CorrectAnswer: dialogStep.CorrectAnswer,
		})
		return
	}

	if step+1 < len(task.DialogSteps) {
		h.showDialogStep(ctx, chatID, dayNum, task, step+1)
		return
	}

	// Last reply correct: the whole dialog is done.
	h.recordAndRender(ctx, user, chatID, dayNum, task, domain.TaskKindDialog, true, service.AttemptPayload{
		Answer:        answer,
		CorrectAnswer: dialogStep.CorrectAnswer,
	})
}

// handleVoiceMessage downloads the voice file and runs it through the
// recognition pipeline against the user's active voice task.
func (h *Handler) handleVoiceMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := middleware.GetUser(ctx)
	if user == nil || update.Message == nil || update.Message.Voice == nil {
		return
	}
	chatID := update.Message.Chat.ID
	voice := update.Message.Voice

	if h.voice == nil {
		h.sender.SendMessage(ctx, chatID, "🎤 Распознавание речи временно отключено.")
		return
	}

	stopTyping := telegram.StartTyping(ctx, b, chatID)
	defer stopTyping()

	audio, _, err := telegram.DownloadFile(ctx, b, voice.FileID)
	if err != nil {
		slog.Error("download voice", "error", err, "telegram_id", user.TelegramID)
		h.sender.SendMessage(ctx, chatID, "❌ Не удалось скачать голосовое. Попробуй ещё раз.")
		return
	}

	verdict, err := h.voice.ProcessVoice(ctx, user, audio, voice.MimeType, float64(voice.Duration))
	if err != nil {
		h.renderVoiceError(ctx, chatID, err)
		return
	}

	day := h.progress.ResolveActiveDay(ctx, user)
	task, taskErr := h.catalog.Task(day, voiceTaskNumber(h.catalog, day))
	if verdict.Attempt.IsCorrect || verdict.IsCorrect {
		greeting := ""
		if verdict.Name != "" {
			greeting = fmt.Sprintf("Приятно познакомиться, %s! ", verdict.Name)
		}
		h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
			"🎤 *Голос распознан!*\n\n«%s»\n\n✅ %sПротокол принят.",
			verdict.Transcript, greeting))
		if taskErr == nil {
			h.advanceAfterTask(ctx, user, chatID, day, task.TaskNumber)
		}
		return
	}

	hint := "Скажи фразу чётче и полностью."
	if taskErr == nil {
		hint = task.Hint()
	}
	h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
		"🎤 Я услышал: «%s»\n\n❌ *Обнаружен сбой системы*\n\n%s\n\n*Осталось попыток:* %d/%d",
		verdict.Transcript, hint, verdict.Attempt.Remaining, config.MaxTaskAttempts))
}

func (h *Handler) renderVoiceError(ctx context.Context, chatID int64, err error) {
	switch {
	case errors.Is(err, domain.ErrVoiceTooShort):
		h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
			"⚠️ Слишком коротко. Говори хотя бы %d сек.", config.VoiceMinDuration))
	case errors.Is(err, domain.ErrVoiceTooLong):
		h.sender.SendMessage(ctx, chatID, fmt.Sprintf(
			"⚠️ Слишком длинно. Уложись в %d сек.", config.VoiceMaxDuration))
	case errors.Is(err, domain.ErrActiveRequest):
		h.sender.SendMessage(ctx, chatID, "⏳ Предыдущее голосовое ещё обрабатывается. Подожди.")
	case errors.Is(err, domain.ErrTaskNotFound):
		h.sender.SendMessage(ctx, chatID, "🎤 Сейчас нет голосового испытания. Открой день: /day")
	case errors.Is(err, domain.ErrAttemptLimit):
		h.sender.SendMessage(ctx, chatID,
			"🚫 Попытки исчерпаны. Сбрось день и попробуй заново: /day")
	default:
		slog.Error("process voice", "error", err, "chat_id", chatID)
		h.sender.SendMessage(ctx, chatID, "❌ Не удалось распознать голос. Попробуй ещё раз.")
	}
}

// recordAndRender stores one graded submission and renders the outcome.
func (h *Handler) recordAndRender(ctx context.Context, user *domain.User, chatID int64, dayNum int, task *content.Task, kind domain.TaskKind, isCorrect bool, payload service.AttemptPayload) {
	result, err := h.attempts.RecordAttempt(ctx, user.TelegramID, dayNum, task.TaskNumber, kind, isCorrect, payload)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptLimit) {
			kb := telegram.InlineKeyboard(telegram.ButtonRow(
				telegram.InlineButton("🔄 Пройти день заново", fmt.Sprintf("restart_%d", dayNum)),
			))
			h.sender.SendWithKeyboard(ctx, chatID,
				"🚫 *Попытки исчерпаны.*\n\nShadowNet заблокировал терминал. Сбрось день, чтобы вернуть доступ.", kb)
			return
		}
		slog.Error("record attempt", "error", err, "telegram_id", user.TelegramID)
		return
	}

	if isCorrect {
		h.advanceAfterTask(ctx, user, chatID, dayNum, task.TaskNumber)
		return
	}

	name := user.FirstName
	if name == "" {
		name = "X"
	}
	text := fmt.Sprintf(
		"❌ *Обнаружен сбой системы*\n\n%s\n\n"+
			"*Осталось попыток:* %d/%d\n"+
			"Попробуй снова, Субъект %s. Код в пределах досягаемости.",
		task.Hint(), result.Remaining, config.MaxTaskAttempts, name,
	)
	if err := h.sender.SendMessage(ctx, chatID, text); err != nil {
		slog.Error("send incorrect verdict", "error", err, "telegram_id", user.TelegramID)
	}
}

// advanceAfterTask moves the user to the next task, or offers to finish the
// day after the last one.
func (h *Handler) advanceAfterTask(ctx context.Context, user *domain.User, chatID int64, dayNum, taskNum int) {
	tasks := h.catalog.Tasks(dayNum)
	if taskNum < len(tasks) {
		kb := telegram.InlineKeyboard(telegram.ButtonRow(
			telegram.InlineButton("➡️ Следующее испытание", fmt.Sprintf("task_%d_%d", dayNum, taskNum+1)),
		))
		h.sender.SendWithKeyboard(ctx, chatID,
			fmt.Sprintf("✅ *Верно!* Испытание %d/%d пройдено.", taskNum, len(tasks)), kb)
		return
	}
	h.offerFinish(ctx, chatID, dayNum)
}

func (h *Handler) offerFinish(ctx context.Context, chatID int64, dayNum int) {
	kb := telegram.InlineKeyboard(telegram.ButtonRow(
		telegram.InlineButton("🏁 Завершить день", fmt.Sprintf("finish_%d", dayNum)),
	))
	h.sender.SendWithKeyboard(ctx, chatID,
		fmt.Sprintf("🎯 *Все испытания дня %d пройдены!*\n\nЗабирай фрагмент кода.", dayNum), kb)
}

// voiceTaskNumber resolves which task a voice submission belongs to: the
// day's voice task.
func voiceTaskNumber(catalog *content.Catalog, day int) int {
	for _, t := range catalog.Tasks(day) {
		if t.Type == domain.TaskKindVoice {
			return t.TaskNumber
		}
	}
	return 0
}

// callbackInts parses n underscore-separated ints after the prefix.
func callbackInts(update *models.Update, prefix string, n int) ([]int, bool) {
	if update.CallbackQuery == nil {
		return nil, false
	}
	fields := strings.Split(strings.TrimPrefix(update.CallbackQuery.Data, prefix), "_")
	if len(fields) != n {
		return nil, false
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
