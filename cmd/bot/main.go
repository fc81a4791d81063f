package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	escapebot "github.com/neovoice/escapebot"
	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/handler"
	"github.com/neovoice/escapebot/internal/middleware"
	"github.com/neovoice/escapebot/internal/repository"
	"github.com/neovoice/escapebot/internal/scheduler"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/speech"
	"github.com/neovoice/escapebot/internal/telegram"
	"github.com/neovoice/escapebot/internal/webhook"
	"github.com/neovoice/escapebot/internal/yookassa"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(escapebot.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Load course content
	catalog, err := content.Load(cfg.MaterialsPath, cfg.CodeWord, cfg.CourseDays)
	if err != nil {
		slog.Error("failed to load course content", "error", err)
		os.Exit(1)
	}

	store := repository.NewPG(pool)

	// Initialize services
	userService := service.NewUserService(store, catalog)
	progressService := service.NewProgressService(store, catalog)
	attemptService := service.NewAttemptService(store, catalog, config.MaxTaskAttempts)

	// Handler pointer for use in default handler closure
	var h *handler.Handler

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.UserLoader(userService, cfg),
			middleware.Activity(userService),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h != nil {
				h.HandleDefault(ctx, b, update)
			}
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	sender := telegram.NewSender(b)

	// Payments are optional; without them every user stays locked at the
	// paywall, which is still a valid staging setup.
	var paymentService *service.PaymentService
	if cfg.PaymentsEnabled {
		provider := yookassa.NewClient(cfg.YooKassaShopID, cfg.YooKassaSecretKey, cfg.YooKassaURL)
		paymentService = service.NewPaymentService(store, provider, sender, service.PaymentConfig{
			CourseName:  cfg.CourseName,
			CoursePrice: cfg.CoursePrice,
			Currency:    cfg.CourseCurrency,
			CourseDays:  cfg.CourseDays,
			ReturnURL:   cfg.PaymentReturnURL,
		})
	}

	var voiceService *service.VoiceService
	if cfg.SpeechEnabled && cfg.SpeechAPIURL != "" {
		recognizer := speech.NewHTTPRecognizer(cfg.SpeechAPIURL)
		voiceService = service.NewVoiceService(recognizer, attemptService, progressService, catalog, service.NewGuard())
	}

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		Catalog:  catalog,
		Sender:   sender,
		Users:    userService,
		Progress: progressService,
		Attempts: attemptService,
		Payments: paymentService,
		Voice:    voiceService,
	})
	h.Register()

	// Background jobs
	defaultLoc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		slog.Error("invalid TIMEZONE", "error", err, "timezone", cfg.DefaultTimezone)
		os.Exit(1)
	}
	zones := service.ZoneResolver{Default: defaultLoc}
	window := service.TimeWindow{FromHour: cfg.NotifyFromHour, ToHour: cfg.NotifyToHour}
	unlockService := service.NewUnlockService(store, catalog, sender, zones, window)
	var reminderService *service.ReminderService
	if cfg.RemindersEnabled {
		reminderService = service.NewReminderService(store, sender, zones, window,
			cfg.CourseDays, cfg.MaxReminders, cfg.InactivityThreshold)
	}

	sched := scheduler.New(unlockService, reminderService, store)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Payment webhook server
	if paymentService != nil {
		srv := webhook.NewServer(cfg.WebhookAddr, paymentService)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("webhook server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("webhook server shutdown", "error", err)
			}
		}()
	}

	// Start bot
	slog.Info("starting bot", "course", cfg.CourseName, "days", cfg.CourseDays)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
