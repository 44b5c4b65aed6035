package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
)

// ProviderError carries the provider's code/message pair. It is persisted in
// the payment ledger but never returned raw to clients.
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("toss error %s: %s", e.Code, e.Message)
}

// BillingAuth is the result of exchanging an authKey for a billing key.
type Card struct {
	Company string `json:"company"`
	Number  string `json:"number"`
}

type BillingAuth struct {
	BillingKey string `json:"billingKey"`
	Card       Card   `json:"card"`
}

// ChargeResult is a successful billing-key charge.
type ChargeResult struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	ApprovedAt string `json:"approvedAt"`
}

// Client calls the payment provider's billing-key APIs with Basic auth and a
// bounded request timeout.
type Client struct {
	secretKey string
	baseURL   string
	httpc     *http.Client
	log       *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		secretKey: cfg.Toss.SecretKey,
		baseURL:   cfg.Toss.BaseURL,
		httpc:     &http.Client{Timeout: time.Duration(cfg.Toss.TimeoutMS) * time.Millisecond},
		log:       log,
	}
}

func (c *Client) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.secretKey+":"))
}

// IssueBillingKey exchanges the widget's authKey for a reusable billing key.
func (c *Client) IssueBillingKey(ctx context.Context, authKey, customerKey string) (*BillingAuth, error) {
	var out BillingAuth
	err := c.post(ctx, "/v1/billing/authorizations/issue", map[string]string{
		"authKey":     authKey,
		"customerKey": customerKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChargeBillingKey approves a recurring payment against a stored billing key.
func (c *Client) ChargeBillingKey(ctx context.Context, billingKey, customerKey string, amount int64, orderID, orderName string) (*ChargeResult, error) {
	var out ChargeResult
	err := c.post(ctx, "/v1/billing/"+billingKey, map[string]any{
		"customerKey": customerKey,
		"amount":      amount,
		"orderId":     orderID,
		"orderName":   orderName,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("payment provider call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var pe ProviderError
		if err := json.Unmarshal(raw, &pe); err != nil || pe.Code == "" {
			pe = ProviderError{Code: "PROVIDER_ERROR", Message: fmt.Sprintf("status %d", resp.StatusCode)}
		}
		logctx.FromCtx(ctx, c.log).Warnw("toss request rejected",
			"path", path, "status", resp.StatusCode, "code", pe.Code)
		return &pe
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
