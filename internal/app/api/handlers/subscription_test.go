package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sajulab/sajuback/internal/app/service/subscription"
	"github.com/sajulab/sajuback/pkg/types"
)

type stubSubMgr struct {
	confirmErr    error
	cancelErr     error
	reactivateErr error
	confirmedAuth string
}

func (s *stubSubMgr) GetInfo(_ context.Context, _ string) (*subscription.Info, error) {
	return &subscription.Info{
		SubscriptionTier: types.SubscriptionTierPro,
		RemainingTests:   7,
		Subscription: &subscription.SubscriptionInfo{
			Status: types.SubscriptionStatusActive,
		},
	}, nil
}

func (s *stubSubMgr) ConfirmBilling(_ context.Context, _, _, authKey string) (*subscription.ConfirmResult, error) {
	s.confirmedAuth = authKey
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return &subscription.ConfirmResult{
		Message:          "subscription confirmed",
		SubscriptionTier: types.SubscriptionTierPro,
		RemainingTests:   10,
		NextBillingDate:  "2026-04-15",
	}, nil
}

func (s *stubSubMgr) Cancel(_ context.Context, _ string) (*subscription.CancelResult, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &subscription.CancelResult{Message: "cancelled", ExpiryDate: "2026-04-15"}, nil
}

func (s *stubSubMgr) Reactivate(_ context.Context, _ string) (*subscription.ReactivateResult, error) {
	if s.reactivateErr != nil {
		return nil, s.reactivateErr
	}
	return &subscription.ReactivateResult{Message: "reactivated", NextBillingDate: "2026-04-15"}, nil
}

func subRouter(mgr subscription.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", "user-1") })
	RegisterSubscriptionRoutes(r, mgr)
	return r
}

func TestApiSubscriptionInfo(t *testing.T) {
	r := subRouter(&stubSubMgr{})
	req := httptest.NewRequest(http.MethodGet, "/subscription", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"subscriptionTier":"pro"`)
	require.Contains(t, w.Body.String(), `"remainingTests":7`)
}

func TestApiSubscriptionConfirm_PassesAuthKey(t *testing.T) {
	mgr := &stubSubMgr{}
	w := postJSON(subRouter(mgr), "/subscription/billing/confirm",
		map[string]string{"authKey": "auth-1", "customerKey": "cust-1"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "auth-1", mgr.confirmedAuth)
	require.Contains(t, w.Body.String(), `"nextBillingDate":"2026-04-15"`)
}

func TestApiSubscriptionConfirm_MissingKeysRejected(t *testing.T) {
	w := postJSON(subRouter(&stubSubMgr{}), "/subscription/billing/confirm",
		map[string]string{"authKey": "auth-1"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestApiSubscriptionCancel_NoActive404(t *testing.T) {
	mgr := &stubSubMgr{cancelErr: subscription.ErrNoActiveSubscription}
	w := postJSON(subRouter(mgr), "/subscription/cancel", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NO_ACTIVE_SUBSCRIPTION")
}

func TestApiSubscriptionReactivate_DeletedKey400(t *testing.T) {
	mgr := &stubSubMgr{reactivateErr: subscription.ErrBillingKeyDeleted}
	w := postJSON(subRouter(mgr), "/subscription/reactivate", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "BILLING_KEY_DELETED")
}
