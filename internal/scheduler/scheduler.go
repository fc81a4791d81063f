// Package scheduler runs the background jobs: hourly day unlocks, hourly
// inactivity reminders, and a daily maintenance pass.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/repository"
	"github.com/neovoice/escapebot/internal/service"
)

type Scheduler struct {
	scheduler *gocron.Scheduler
	unlocks   *service.UnlockService
	reminders *service.ReminderService
	store     repository.Store
}

func New(unlocks *service.UnlockService, reminders *service.ReminderService, store repository.Store) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// A slow batch must never overlap the next tick of the same job.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		unlocks:   unlocks,
		reminders: reminders,
		store:     store,
	}
}

// Start registers the jobs and launches the scheduler in the background.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(config.UnlockJobInterval).Do(s.runUnlocks); err != nil {
		return err
	}
	if s.reminders != nil {
		if _, err := s.scheduler.Every(config.ReminderJobInterval).Do(s.runReminders); err != nil {
			return err
		}
	}
	if _, err := s.scheduler.Every(1).Day().At(config.DailyCleanupAt).Do(s.runDailyReport); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	slog.Info("scheduler started",
		"unlock_interval", config.UnlockJobInterval.String(),
		"reminder_interval", config.ReminderJobInterval.String(),
		"daily_report_at", config.DailyCleanupAt,
	)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runUnlocks() {
	ctx, cancel := context.WithTimeout(context.Background(), config.JobTimeout)
	defer cancel()
	if _, err := s.unlocks.ProcessUnlocks(ctx, time.Now()); err != nil {
		slog.Error("unlock job failed", "error", err)
	}
}

func (s *Scheduler) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), config.JobTimeout)
	defer cancel()
	if _, err := s.reminders.ProcessInactiveUsers(ctx, time.Now()); err != nil {
		slog.Error("reminder job failed", "error", err)
	}
}

// runDailyReport logs a course snapshot once a day so operators can follow
// the funnel without querying the database.
func (s *Scheduler) runDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), config.JobTimeout)
	defer cancel()
	stats, err := s.store.CourseStats(ctx)
	if err != nil {
		slog.Error("daily report failed", "error", err)
		return
	}
	slog.Info("daily course report",
		"total_users", stats.TotalUsers,
		"paid_users", stats.PaidUsers,
		"finished_users", stats.FinishedUsers,
		"revenue", stats.Revenue.String(),
	)
}
