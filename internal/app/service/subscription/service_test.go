package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/internal/platform/toss"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/types"
)

type fakeStore struct {
	user  *models.User
	sub   *models.Subscription
	tier  types.SubscriptionTier
	tests int
	saved []*models.Subscription
}

func (f *fakeStore) GetUser(_ context.Context, _ string) (*models.User, error) {
	return f.user, nil
}

func (f *fakeStore) CurrentSubscription(_ context.Context, _ string, statuses ...types.SubscriptionStatus) (*models.Subscription, error) {
	if f.sub == nil {
		return nil, nil
	}
	for _, st := range statuses {
		if f.sub.Status == st {
			return f.sub, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	f.sub = sub
	f.saved = append(f.saved, sub)
	return nil
}

func (f *fakeStore) SetUserTier(_ context.Context, _ string, tier types.SubscriptionTier, remaining int) error {
	f.tier = tier
	f.tests = remaining
	return nil
}

type fakeAuthorizer struct {
	auth *toss.BillingAuth
	err  error
}

func (f *fakeAuthorizer) IssueBillingKey(_ context.Context, _, _ string) (*toss.BillingAuth, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.auth, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Billing.MonthlyTests = 10
	return cfg
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
}

func newTestService(store *fakeStore, auth *fakeAuthorizer) *Service {
	return &Service{
		cfg:        testConfig(),
		log:        zap.NewNop().Sugar(),
		store:      store,
		authorizer: auth,
		now:        fixedNow,
	}
}

func TestConfirmBilling_ActivatesAndUpgrades(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: "user-1"}}
	auth := &fakeAuthorizer{auth: &toss.BillingAuth{
		BillingKey: "bk-1",
		Card:       toss.Card{Company: "신한", Number: "1234-****"},
	}}

	res, err := newTestService(store, auth).ConfirmBilling(context.Background(), "user-1", "cust-1", "auth-1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionTierPro, res.SubscriptionTier)
	require.Equal(t, 10, res.RemainingTests)
	require.Equal(t, "2026-04-15", res.NextBillingDate)

	require.Equal(t, types.SubscriptionStatusActive, store.sub.Status)
	require.Equal(t, "bk-1", *store.sub.BillingKey)
	require.Equal(t, "cust-1", *store.sub.CustomerKey)
	require.Equal(t, types.SubscriptionTierPro, store.tier)
	require.Equal(t, 10, store.tests)
}

func TestConfirmBilling_ProviderRejectionIs400(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: "user-1"}}
	auth := &fakeAuthorizer{err: &toss.ProviderError{Code: "INVALID_AUTH_KEY", Message: "invalid authKey"}}

	_, err := newTestService(store, auth).ConfirmBilling(context.Background(), "user-1", "cust-1", "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "BILLING_KEY_ISSUE_FAILED")
	require.Empty(t, store.saved)
}

func TestConfirmBilling_ReusesExpiredRow(t *testing.T) {
	store := &fakeStore{
		user: &models.User{ID: "user-1"},
		sub:  &models.Subscription{ID: "sub-1", UserID: "user-1", Status: types.SubscriptionStatusExpired},
	}
	auth := &fakeAuthorizer{auth: &toss.BillingAuth{BillingKey: "bk-2"}}

	_, err := newTestService(store, auth).ConfirmBilling(context.Background(), "user-1", "cust-1", "auth-1")
	require.NoError(t, err)
	require.Equal(t, "sub-1", store.sub.ID, "existing row is reused, not duplicated")
	require.Equal(t, types.SubscriptionStatusActive, store.sub.Status)
}

func TestCancel_KeepsPaidPeriodClearsKeys(t *testing.T) {
	next := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		user: &models.User{ID: "user-1"},
		sub: &models.Subscription{
			ID: "sub-1", UserID: "user-1",
			Status:          types.SubscriptionStatusActive,
			BillingKey:      lo.ToPtr("bk-1"),
			CustomerKey:     lo.ToPtr("cust-1"),
			NextBillingDate: &next,
		},
	}

	res, err := newTestService(store, &fakeAuthorizer{}).Cancel(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "2026-04-01", res.ExpiryDate)
	require.Equal(t, types.SubscriptionStatusCancelled, store.sub.Status)
	require.Nil(t, store.sub.BillingKey)
	require.Nil(t, store.sub.CustomerKey)
}

func TestCancel_NoActiveSubscription(t *testing.T) {
	store := &fakeStore{user: &models.User{ID: "user-1"}}

	_, err := newTestService(store, &fakeAuthorizer{}).Cancel(context.Background(), "user-1")
	require.True(t, errors.Is(err, ErrNoActiveSubscription))
}

func TestReactivate_DeletedBillingKeyRejected(t *testing.T) {
	next := fixedNow().AddDate(0, 0, 10)
	store := &fakeStore{
		user: &models.User{ID: "user-1"},
		sub: &models.Subscription{
			ID: "sub-1", UserID: "user-1",
			Status:          types.SubscriptionStatusCancelled,
			NextBillingDate: &next,
		},
	}

	_, err := newTestService(store, &fakeAuthorizer{}).Reactivate(context.Background(), "user-1")
	require.True(t, errors.Is(err, ErrBillingKeyDeleted))
}

func TestReactivate_ElapsedPeriodRejected(t *testing.T) {
	past := fixedNow().AddDate(0, 0, -1)
	store := &fakeStore{
		user: &models.User{ID: "user-1"},
		sub: &models.Subscription{
			ID: "sub-1", UserID: "user-1",
			Status:          types.SubscriptionStatusCancelled,
			BillingKey:      lo.ToPtr("bk-1"),
			NextBillingDate: &past,
		},
	}

	_, err := newTestService(store, &fakeAuthorizer{}).Reactivate(context.Background(), "user-1")
	require.True(t, errors.Is(err, ErrSubscriptionExpired))
}

func TestReactivate_RestoresActiveStatus(t *testing.T) {
	next := fixedNow().AddDate(0, 0, 10)
	store := &fakeStore{
		user: &models.User{ID: "user-1"},
		sub: &models.Subscription{
			ID: "sub-1", UserID: "user-1",
			Status:          types.SubscriptionStatusCancelled,
			BillingKey:      lo.ToPtr("bk-1"),
			NextBillingDate: &next,
		},
	}

	res, err := newTestService(store, &fakeAuthorizer{}).Reactivate(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, next.Format("2006-01-02"), res.NextBillingDate)
	require.Equal(t, types.SubscriptionStatusActive, store.sub.Status)
}

func TestGetInfo_NoSubscription(t *testing.T) {
	store := &fakeStore{user: &models.User{
		ID:               "user-1",
		SubscriptionTier: types.SubscriptionTierFree,
		RemainingTests:   3,
	}}

	info, err := newTestService(store, &fakeAuthorizer{}).GetInfo(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionTierFree, info.SubscriptionTier)
	require.Equal(t, 3, info.RemainingTests)
	require.Nil(t, info.Subscription)
}
