package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sajulab/sajuback/internal/app/service/cronjob"
	"github.com/sajulab/sajuback/pkg/config"
)

type stubCronMgr struct {
	billingErr error
	expiryErr  error
	billing    int
	expiry     int
}

func (s *stubCronMgr) RunBilling(_ context.Context) (*cronjob.BillingReport, error) {
	s.billing++
	if s.billingErr != nil {
		return nil, s.billingErr
	}
	return &cronjob.BillingReport{ProcessedCount: 2, SuccessCount: 2}, nil
}

func (s *stubCronMgr) RunExpiry(_ context.Context) (*cronjob.ExpireReport, error) {
	s.expiry++
	if s.expiryErr != nil {
		return nil, s.expiryErr
	}
	return &cronjob.ExpireReport{ExpiredCount: 1}, nil
}

func cronRouter(mgr cronjob.Manager) (*gin.Engine, *config.Config) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Cron.Secret = "cron-secret"
	r := gin.New()
	RegisterCronRoutes(r, cfg, mgr)
	return r, cfg
}

func cronRequest(r *gin.Engine, path, secret string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(map[string]string{"timestamp": "2026-03-15T02:00:00Z"})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Cron-Secret", secret)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiCronBilling_RunsWithValidSecret(t *testing.T) {
	mgr := &stubCronMgr{}
	r, _ := cronRouter(mgr)

	w := cronRequest(r, "/subscription/billing/cron", "cron-secret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"processedCount":2`)
	require.Equal(t, 1, mgr.billing)
}

func TestApiCronBilling_RejectsBadSecret(t *testing.T) {
	mgr := &stubCronMgr{}
	r, _ := cronRouter(mgr)

	w := cronRequest(r, "/subscription/billing/cron", "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, 0, mgr.billing, "job must not run without the secret")
}

func TestApiCronBilling_RejectsMissingSecret(t *testing.T) {
	mgr := &stubCronMgr{}
	r, _ := cronRouter(mgr)

	w := cronRequest(r, "/subscription/billing/cron", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApiCronBilling_RequiresTimestamp(t *testing.T) {
	r, _ := cronRouter(&stubCronMgr{})

	req := httptest.NewRequest(http.MethodPost, "/subscription/billing/cron", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cron-Secret", "cron-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApiCronBilling_SecondRunConflicts(t *testing.T) {
	mgr := &stubCronMgr{billingErr: cronjob.ErrAlreadyProcessed}
	r, _ := cronRouter(mgr)

	w := cronRequest(r, "/subscription/billing/cron", "cron-secret")
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "ALREADY_PROCESSED")
}

func TestApiCronExpire_RunsWithValidSecret(t *testing.T) {
	mgr := &stubCronMgr{}
	r, _ := cronRouter(mgr)

	w := cronRequest(r, "/subscription/expire/cron", "cron-secret")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"expiredCount":1`)
	require.Equal(t, 1, mgr.expiry)
}

func TestCronSecretUnsetRejectsEverything(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	r := gin.New()
	RegisterCronRoutes(r, cfg, &stubCronMgr{})

	w := cronRequest(r, "/subscription/billing/cron", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
