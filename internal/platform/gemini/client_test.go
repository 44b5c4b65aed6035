package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/pkg/types"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		apiKey:         "test-key",
		baseURL:        baseURL,
		freeModel:      "gemini-2.5-flash-lite",
		proModel:       "gemini-2.5-pro",
		timeout:        2 * time.Second,
		maxAttempts:    3,
		initialBackoff: time.Millisecond,
		httpc:          &http.Client{},
		log:            zap.NewNop().Sugar(),
	}
}

func candidateResponse(text string) string {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(raw)
}

func TestGenerate_ReturnsCandidateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.Contains(t, r.URL.Path, "gemini-2.5-pro:generateContent")
		w.Write([]byte(candidateResponse("분석 결과")))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "gemini-2.5-pro", "prompt")
	require.NoError(t, err)
	require.Equal(t, "분석 결과", text)
}

func TestGenerate_RetriesOnRateLimitThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(candidateResponse("ok")))
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "gemini-2.5-flash-lite", "prompt")
	require.NoError(t, err)
	require.Equal(t, "ok", text)
	require.Equal(t, 3, calls)
}

func TestGenerate_RateLimitExhaustsAttempts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "gemini-2.5-flash-lite", "prompt")
	require.Error(t, err)
	require.Equal(t, FailureRateLimited, KindOf(err))
	require.Equal(t, 3, calls)
}

func TestGenerate_NonRateLimitFailsImmediately(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "gemini-2.5-flash-lite", "prompt")
	require.Error(t, err)
	require.Equal(t, FailureGeneric, KindOf(err))
	require.Equal(t, 1, calls, "server errors are not retried")
}

func TestGenerate_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.timeout = 50 * time.Millisecond

	_, err := c.Generate(context.Background(), "gemini-2.5-flash-lite", "prompt")
	require.Error(t, err)
	require.Equal(t, FailureTimeout, KindOf(err))
}

func TestModelForTier(t *testing.T) {
	c := newTestClient("http://unused")
	require.Equal(t, "gemini-2.5-flash-lite", c.ModelForTier(types.SubscriptionTierFree))
	require.Equal(t, "gemini-2.5-pro", c.ModelForTier(types.SubscriptionTierPro))
}
