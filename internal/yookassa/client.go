// Package yookassa is a thin client for the YooKassa payments API,
// covering payment creation and status lookups.
package yookassa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/neovoice/escapebot/internal/config"
	"github.com/neovoice/escapebot/internal/service"
)

type Client struct {
	shopID     string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(shopID, secretKey, baseURL string) *Client {
	return &Client{
		shopID:     shopID,
		secretKey:  secretKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: config.ProviderQueryTimeout},
	}
}

type apiAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type apiConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type apiPayment struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	Paid         bool              `json:"paid"`
	Amount       apiAmount         `json:"amount"`
	Confirmation *apiConfirmation  `json:"confirmation,omitempty"`
	CapturedAt   *time.Time        `json:"captured_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// CreatePayment registers a capture-on-success payment and returns the
// confirmation URL the user is sent to.
func (c *Client) CreatePayment(ctx context.Context, req service.ProviderPaymentRequest) (*service.ProviderPayment, error) {
	body := struct {
		Amount       apiAmount         `json:"amount"`
		Capture      bool              `json:"capture"`
		Confirmation apiConfirmation   `json:"confirmation"`
		Description  string            `json:"description"`
		Metadata     map[string]string `json:"metadata,omitempty"`
	}{
		Amount:       apiAmount{Value: req.Amount.StringFixed(2), Currency: req.Currency},
		Capture:      true,
		Confirmation: apiConfirmation{Type: "redirect", ReturnURL: req.ReturnURL},
		Description:  req.Description,
		Metadata:     req.Metadata,
	}

	payment, err := c.do(ctx, "POST", "/payments", body)
	if err != nil {
		return nil, err
	}
	return toProviderPayment(payment), nil
}

// PaymentStatus fetches the provider's current view of the payment.
func (c *Client) PaymentStatus(ctx context.Context, id string) (*service.ProviderPayment, error) {
	payment, err := c.do(ctx, "GET", "/payments/"+id, nil)
	if err != nil {
		return nil, err
	}
	return toProviderPayment(payment), nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*apiPayment, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.shopID, c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		// YooKassa deduplicates writes by this key.
		req.Header.Set("Idempotence-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yookassa request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yookassa status %d: %s", resp.StatusCode, data)
	}

	var payment apiPayment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, fmt.Errorf("parse payment: %w", err)
	}
	return &payment, nil
}

func toProviderPayment(p *apiPayment) *service.ProviderPayment {
	amount, _ := decimal.NewFromString(p.Amount.Value)
	out := &service.ProviderPayment{
		ID:       p.ID,
		Status:   p.Status,
		Paid:     p.Paid,
		Amount:   amount,
		Currency: p.Amount.Currency,
		PaidAt:   p.CapturedAt,
		Metadata: p.Metadata,
	}
	if p.Confirmation != nil {
		out.ConfirmationURL = p.Confirmation.ConfirmationURL
	}
	return out
}
