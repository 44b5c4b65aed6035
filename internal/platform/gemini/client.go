package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/types"
)

// FailureKind classifies generation failures. Timeout takes priority over
// RateLimited, which takes priority over Generic.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureGeneric     FailureKind = "generic"
)

// GenerateError is the gateway's tagged failure type.
type GenerateError struct {
	Kind  FailureKind
	cause error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.cause)
}

func (e *GenerateError) Unwrap() error { return e.cause }

// KindOf extracts the failure kind from any error chain; non-gateway errors
// classify as generic.
func KindOf(err error) FailureKind {
	var ge *GenerateError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return FailureGeneric
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.status, e.body)
}

// Client wraps the generative-AI provider's REST API with a wall-clock
// timeout and bounded exponential-backoff retry on rate limits only.
type Client struct {
	apiKey         string
	baseURL        string
	freeModel      string
	proModel       string
	timeout        time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	httpc          *http.Client
	log            *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	g := cfg.Gemini
	return &Client{
		apiKey:         g.APIKey,
		baseURL:        g.BaseURL,
		freeModel:      g.FreeModel,
		proModel:       g.ProModel,
		timeout:        time.Duration(g.TimeoutMS) * time.Millisecond,
		maxAttempts:    g.MaxAttempts,
		initialBackoff: time.Duration(g.InitialBackoffMS) * time.Millisecond,
		httpc:          &http.Client{},
		log:            log,
	}
}

// ModelForTier is a pure function of subscription tier.
func (c *Client) ModelForTier(tier types.SubscriptionTier) string {
	if tier == types.SubscriptionTierPro {
		return c.proModel
	}
	return c.freeModel
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate calls the provider and returns the raw response text. The whole
// operation, retries included, is bounded by the configured wall-clock
// timeout. Only rate-limit responses are retried; every other failure
// propagates immediately.
func (c *Client) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := c.initialBackoff
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		text, err := c.generateOnce(ctx, modelID, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", &GenerateError{Kind: FailureTimeout, cause: ctx.Err()}
		}

		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusTooManyRequests {
			if attempt < c.maxAttempts-1 {
				logctx.FromCtx(ctx, c.log).Warnw("generation rate limited, backing off",
					"attempt", attempt+1, "backoff_ms", backoff.Milliseconds())
				select {
				case <-time.After(backoff):
					backoff *= 2
					continue
				case <-ctx.Done():
					return "", &GenerateError{Kind: FailureTimeout, cause: ctx.Err()}
				}
			}
			return "", &GenerateError{Kind: FailureRateLimited, cause: err}
		}
		return "", &GenerateError{Kind: FailureGeneric, cause: err}
	}
	return "", &GenerateError{Kind: FailureRateLimited, cause: lastErr}
}

func (c *Client) generateOnce(ctx context.Context, modelID, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, modelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{status: resp.StatusCode, body: string(raw)}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("provider returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
