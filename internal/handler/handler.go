// Package handler maps Telegram commands and callbacks onto the course
// services. Handlers render; services decide.
package handler

import (
	"github.com/go-telegram/bot"

	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/content"
	"github.com/neovoice/escapebot/internal/service"
	"github.com/neovoice/escapebot/internal/telegram"
)

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	catalog  *content.Catalog
	sender   *telegram.Sender
	users    *service.UserService
	progress *service.ProgressService
	attempts *service.AttemptService
	payments *service.PaymentService
	voice    *service.VoiceService
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	Catalog  *content.Catalog
	Sender   *telegram.Sender
	Users    *service.UserService
	Progress *service.ProgressService
	Attempts *service.AttemptService
	Payments *service.PaymentService
	Voice    *service.VoiceService
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		catalog:  deps.Catalog,
		sender:   deps.Sender,
		users:    deps.Users,
		progress: deps.Progress,
		attempts: deps.Attempts,
		payments: deps.Payments,
		voice:    deps.Voice,
	}
}
