package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/giftlane/giftlane-backend/pkg/config"
	pkgerrors "github.com/giftlane/giftlane-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Gateway is the payment collaborator contract: charge at placement, refund
// best-effort on cancellation of a paid order.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, paymentRef string, amountCents int) error
}

// ChargeRequest describes one payment attempt against an order.
type ChargeRequest struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	AmountCents int       `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

// ChargeResult carries the gateway's payment identifier.
type ChargeResult struct {
	PaymentRef string `json:"payment_ref"`
}

// Client talks to the payment gateway over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.PaymentsConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("payments base url is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Charge submits a payment and returns the gateway reference on success.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	var result ChargeResult
	if err := c.post(ctx, "/v1/charges", req, &result); err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.PaymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway returned no payment reference")
	}
	return &result, nil
}

// Refund reverses a prior charge. Callers treat failures as best-effort.
func (c *Client) Refund(ctx context.Context, paymentRef string, amountCents int) error {
	if strings.TrimSpace(paymentRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	payload := map[string]any{
		"payment_ref":  paymentRef,
		"amount_cents": amountCents,
	}
	return c.post(ctx, "/v1/refunds", payload, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gateway request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
	}
	return nil
}
