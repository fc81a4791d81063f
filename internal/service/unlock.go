package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/domain"
	"github.com/neovoice/escapebot/internal/repository"
)

// UnlockService advances users to the next day once their current day is
// completed, inside their own local-time notification window, at most once
// per day per user.
type UnlockService struct {
	store    repository.Store
	catalog  *content.Catalog
	notifier Notifier
	zones    ZoneResolver
	window   TimeWindow
}

func NewUnlockService(store repository.Store, catalog *content.Catalog, notifier Notifier, zones ZoneResolver, window TimeWindow) *UnlockService {
	return &UnlockService{store: store, catalog: catalog, notifier: notifier, zones: zones, window: window}
}

// ProcessUnlocks is the hourly job body. Per-user failures are logged and
// skipped; the batch always runs to the end.
func (s *UnlockService) ProcessUnlocks(ctx context.Context, now time.Time) (unlocked int, err error) {
	users, err := s.store.ListUnlockCandidates(ctx, s.catalog.CourseDays())
	if err != nil {
		return 0, fmt.Errorf("list unlock candidates: %w", err)
	}

	for i := range users {
		user := &users[i]
		ok, err := s.unlockOne(ctx, user, now)
		if err != nil {
			slog.Error("unlock next day", "error", err, "telegram_id", user.TelegramID)
			continue
		}
		if ok {
			unlocked++
		}
	}

	slog.Info("unlock job finished", "candidates", len(users), "unlocked", unlocked)
	return unlocked, nil
}

func (s *UnlockService) unlockOne(ctx context.Context, user *domain.User, now time.Time) (bool, error) {
	local := now.In(s.zones.Resolve(user.Timezone))
	if !s.window.Contains(local) {
		return false, nil
	}

	// One unlock notice per user per day, gated by the stored timestamp's
	// date rather than a counter.
	if user.UnlockNotifiedOn(now) {
		return false, nil
	}

	progress, err := s.store.ProgressByDay(ctx, user.ID, user.CurrentDay)
	if err != nil {
		if errors.Is(err, domain.ErrProgressNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get progress: %w", err)
	}
	if !progress.TasksCompleted {
		return false, nil
	}

	nextDay := user.CurrentDay + 1
	if err := s.store.SetUserCurrentDay(ctx, user.ID, nextDay); err != nil {
		return false, fmt.Errorf("advance day: %w", err)
	}
	if err := s.store.SetLastUnlockNotification(ctx, user.ID, now.UTC()); err != nil {
		return false, fmt.Errorf("stamp notification: %w", err)
	}

	text := fmt.Sprintf(
		"🌅 *Доброе утро, Субъект X!*\n\n"+
			"*День %d разблокирован!*\n\n"+
			"Ты прошёл день %d. Симуляция продолжается...\n\n"+
			"🔓 Следующая миссия ждёт\n"+
			"🔑 Прогресс кода: `%s`\n\n"+
			"Продолжить: /day",
		nextDay, user.CurrentDay, user.Code,
	)
	if err := s.notifier.SendMessage(ctx, user.TelegramID, text); err != nil {
		// The unlock itself already committed; the user just misses the
		// notice until the next interaction.
		slog.Error("send unlock notification", "error", err, "telegram_id", user.TelegramID)
	}

	slog.Info("day unlocked", "telegram_id", user.TelegramID, "day", nextDay)
	return true, nil
}
