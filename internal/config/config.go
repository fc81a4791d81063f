package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Course
	CourseName     string `env:"COURSE_NAME" envDefault:"The Language Escape"`
	CoursePrice    int    `env:"COURSE_PRICE" envDefault:"999"`
	CourseCurrency string `env:"COURSE_CURRENCY" envDefault:"RUB"`
	CourseDays     int    `env:"COURSE_DAYS" envDefault:"10"`
	CodeWord       string `env:"LIBERATION_CODE" envDefault:"LIBERATION"`
	MaterialsPath  string `env:"MATERIALS_PATH" envDefault:"materials"`

	// Payments: YooKassa
	PaymentsEnabled   bool   `env:"PAYMENTS_ENABLED" envDefault:"true"`
	YooKassaShopID    string `env:"YOOKASSA_SHOP_ID"`
	YooKassaSecretKey string `env:"YOOKASSA_SECRET_KEY"`
	YooKassaURL       string `env:"YOOKASSA_API_URL" envDefault:"https://api.yookassa.ru/v3"`
	PaymentReturnURL  string `env:"PAYMENT_RETURN_URL" envDefault:"https://t.me"`

	// Webhook server for provider callbacks
	WebhookAddr string `env:"WEBHOOK_ADDR" envDefault:":8443"`

	// Speech recognition
	SpeechEnabled bool   `env:"SPEECH_ENABLED" envDefault:"true"`
	SpeechAPIURL  string `env:"SPEECH_API_URL"`

	// Scheduling
	DefaultTimezone     string        `env:"TIMEZONE" envDefault:"Europe/Moscow"`
	NotifyFromHour      int           `env:"NOTIFY_FROM_HOUR" envDefault:"12"`
	NotifyToHour        int           `env:"NOTIFY_TO_HOUR" envDefault:"18"`
	MaxReminders        int           `env:"MAX_REMINDERS" envDefault:"3"`
	InactivityThreshold time.Duration `env:"INACTIVITY_THRESHOLD" envDefault:"24h"`
	RemindersEnabled    bool          `env:"REMINDERS_ENABLED" envDefault:"true"`

	// Admin
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PaymentsEnabled && (cfg.YooKassaShopID == "" || cfg.YooKassaSecretKey == "") {
		return nil, fmt.Errorf("YOOKASSA_SHOP_ID and YOOKASSA_SECRET_KEY are required when PAYMENTS_ENABLED=true")
	}
	if len(cfg.CodeWord) < cfg.CourseDays {
		return nil, fmt.Errorf("LIBERATION_CODE must have at least %d characters", cfg.CourseDays)
	}
	return cfg, nil
}

func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}
