// Package webhook is the HTTP push channel for payment notifications. The
// notification body is treated as a hint to reconcile, never as proof of
// payment; the reconciler re-queries the provider itself.
package webhook

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/neovoice/escapebot/internal/service"
)

type Server struct {
	echo     *echo.Echo
	payments *service.PaymentService
	addr     string
}

func NewServer(addr string, payments *service.PaymentService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, payments: payments, addr: addr}
	e.POST("/webhook/yookassa", s.handleNotification)
	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return s
}

func (s *Server) Start() error {
	slog.Info("webhook server listening", "addr", s.addr)
	return s.echo.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type notification struct {
	Type   string `json:"type"`
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"object"`
}

// handleNotification acknowledges every well-formed notification with 200.
// A non-200 makes the provider retry with backoff, which is only wanted for
// transient local failures.
func (s *Server) handleNotification(c echo.Context) error {
	var n notification
	if err := c.Bind(&n); err != nil {
		slog.Warn("malformed payment notification", "error", err)
		return c.NoContent(http.StatusBadRequest)
	}
	if n.Object.ID == "" {
		return c.NoContent(http.StatusBadRequest)
	}

	slog.Info("payment notification", "event", n.Event, "payment_id", n.Object.ID)

	outcome, err := s.payments.GrantAccessIfPaid(c.Request().Context(), n.Object.ID)
	if err != nil {
		slog.Error("reconcile webhook payment", "error", err, "payment_id", n.Object.ID)
		return c.NoContent(http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, map[string]string{"result": outcome.String()})
}
