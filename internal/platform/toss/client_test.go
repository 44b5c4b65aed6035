package toss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		secretKey: "test_sk_abc",
		baseURL:   baseURL,
		httpc:     &http.Client{},
		log:       zap.NewNop().Sugar(),
	}
}

func TestIssueBillingKey_SendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("test_sk_abc:"))
		require.Equal(t, expected, r.Header.Get("Authorization"))
		require.Equal(t, "/v1/billing/authorizations/issue", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "auth-1", body["authKey"])
		require.Equal(t, "cust-1", body["customerKey"])

		json.NewEncoder(w).Encode(map[string]any{
			"billingKey": "bk-1",
			"card":       map[string]string{"company": "신한", "number": "1234-****-****-5678"},
		})
	}))
	defer srv.Close()

	auth, err := newTestClient(srv.URL).IssueBillingKey(context.Background(), "auth-1", "cust-1")
	require.NoError(t, err)
	require.Equal(t, "bk-1", auth.BillingKey)
	require.Equal(t, "신한", auth.Card.Company)
}

func TestChargeBillingKey_PostsToBillingKeyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/billing/bk-1", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 9900, body["amount"])
		require.Equal(t, "AUTO_abc", body["orderId"])

		json.NewEncoder(w).Encode(map[string]string{
			"paymentKey": "pay-1", "orderId": "AUTO_abc", "status": "DONE",
		})
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).ChargeBillingKey(context.Background(), "bk-1", "cust-1", 9900, "AUTO_abc", "monthly")
	require.NoError(t, err)
	require.Equal(t, "pay-1", res.PaymentKey)
	require.Equal(t, "DONE", res.Status)
}

func TestChargeBillingKey_ProviderErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code": "REJECT_CARD_PAYMENT", "message": "한도초과 혹은 잔액부족",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ChargeBillingKey(context.Background(), "bk-1", "cust-1", 9900, "AUTO_abc", "monthly")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "REJECT_CARD_PAYMENT", pe.Code)
}

func TestChargeBillingKey_UnparseableErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ChargeBillingKey(context.Background(), "bk-1", "cust-1", 9900, "AUTO_abc", "monthly")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "PROVIDER_ERROR", pe.Code)
}
