package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// reminderMessages is the fixed three-step escalation ladder. Which message
// a user gets next is decided purely by counting their prior reminder rows,
// so even a user inactive for weeks only ever receives these three.
var reminderMessages = []string{
	"🔔 *Эй, Субъект X!*\n\n" +
		"Ты неактивен уже сутки. Симуляция ждёт... Не дай прогрессу ускользнуть!\n\n" +
		"🎯 Твоя миссия: продолжить побег\n" +
		"🔑 Твой код: `%[1]s`\n\n" +
		"Продолжить: /day",

	"⚠️ *Субъект X, ты ещё здесь?*\n\n" +
		"Симуляция заметила твоё отсутствие.\n\n" +
		"⏰ Время уходит!\n" +
		"Твой код не собран: `%[1]s`\n\n" +
		"Не сдавайся. Каждый день на счету.\n\n" +
		"Продолжить миссию: /day",

	"🚨 *ПОСЛЕДНЕЕ ПРЕДУПРЕЖДЕНИЕ, Субъект X!*\n\n" +
		"Система готова закрыть доступ навсегда...\n\n" +
		"🔴 Это твой последний шанс!\n" +
		"💪 Ты уже прошёл %[2]d дней\n" +
		"🔑 Не теряй прогресс: `%[1]s`\n\n" +
		"Путь к побегу ещё открыт... но ненадолго.\n\n" +
		"*ДЕЙСТВУЙ:* /day",
}

// TimeWindow is a local-hour range during which notifications may be sent.
type TimeWindow struct {
	FromHour int
	ToHour   int
}

// Contains reports whether t's hour falls in [FromHour, ToHour).
func (w TimeWindow) Contains(t time.Time) bool {
	return t.Hour() >= w.FromHour && t.Hour() < w.ToHour
}

// ZoneResolver turns a stored zone name into a location, falling back to the
// operator default when the name does not resolve.
type ZoneResolver struct {
	Default *time.Location
}

func (z ZoneResolver) Resolve(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil || name == "" {
		return z.Default
	}
	return loc
}

// ReminderService drives the inactivity escalation ladder.
type ReminderService struct {
	store    repository.Store
	notifier Notifier
	zones    ZoneResolver
	window   TimeWindow

	courseDays   int
	maxReminders int
	threshold    time.Duration
}

func NewReminderService(store repository.Store, notifier Notifier, zones ZoneResolver, window TimeWindow, courseDays, maxReminders int, threshold time.Duration) *ReminderService {
	return &ReminderService{
		store:        store,
		notifier:     notifier,
		zones:        zones,
		window:       window,
		courseDays:   courseDays,
		maxReminders: maxReminders,
		threshold:    threshold,
	}
}

// ProcessInactiveUsers is the hourly job body. One user's failure never
// aborts the rest of the batch; eligibility checks degrade by skipping the
// user. Windowing uses each user's own time zone, same as the unlock job.
func (s *ReminderService) ProcessInactiveUsers(ctx context.Context, now time.Time) (sent int, err error) {
	cutoff := now.Add(-s.threshold)
	users, err := s.store.ListInactiveUsers(ctx, cutoff, s.courseDays)
	if err != nil {
		return 0, fmt.Errorf("list inactive users: %w", err)
	}

	for i := range users {
		user := &users[i]
		ok, err := s.remindOne(ctx, user, now)
		if err != nil {
			slog.Error("send reminder", "error", err, "telegram_id", user.TelegramID)
			continue
		}
		if ok {
			sent++
		}
	}

	slog.Info("reminder job finished", "candidates", len(users), "sent", sent)
	return sent, nil
}

func (s *ReminderService) remindOne(ctx context.Context, user *domain.User, now time.Time) (bool, error) {
	local := now.In(s.zones.Resolve(user.Timezone))
	if !s.window.Contains(local) {
		return false, nil
	}

	count, err := s.store.CountReminders(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("count reminders: %w", err)
	}
	if count >= s.maxReminders {
		return false, nil
	}

	text := s.messageFor(count+1, user)
	if err := s.notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
		return false, fmt.Errorf("send message: %w", err)
	}

	if _, err := s.store.CreateReminder(ctx, repository.CreateReminderParams{
		UserID:       user.ID,
		DayNumber:    user.CurrentDay,
		ReminderType: "inactive",
		MessageText:  truncate(text, 500),
		SentAt:       now.UTC(),
	}); err != nil {
		return false, fmt.Errorf("store reminder: %w", err)
	}

	slog.Info("reminder sent", "telegram_id", user.TelegramID, "attempt", count+1)
	return true, nil
}

func (s *ReminderService) messageFor(attempt int, user *domain.User) string {
	if attempt < 1 || attempt > len(reminderMessages) {
		attempt = 1
	}
	return fmt.Sprintf(reminderMessages[attempt-1], user.Code, user.CompletedDays)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
