package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/app/service/quota"
	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/internal/platform/toss"
	"github.com/sajulab/sajuback/pkg/apperr"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/types"
)

const dateLayout = "2006-01-02"

var (
	ErrUserNotFound         = apperr.New(http.StatusNotFound, "NOT_FOUND", "user not found")
	ErrNoActiveSubscription = apperr.New(http.StatusNotFound, "NO_ACTIVE_SUBSCRIPTION", "no active subscription to cancel")
	ErrNoCancelled          = apperr.New(http.StatusNotFound, "NOT_FOUND", "no cancelled subscription")
	ErrBillingKeyDeleted    = apperr.New(http.StatusBadRequest, "BILLING_KEY_DELETED", "billing key was deleted, please subscribe again")
	ErrSubscriptionExpired  = apperr.New(http.StatusBadRequest, "SUBSCRIPTION_EXPIRED", "subscription period already elapsed")
)

type SubscriptionInfo struct {
	Status          types.SubscriptionStatus `json:"status"`
	NextBillingDate *string                  `json:"nextBillingDate"`
	CardCompany     *string                  `json:"cardCompany"`
	CardNumber      *string                  `json:"cardNumber"`
}

type Info struct {
	SubscriptionTier types.SubscriptionTier `json:"subscriptionTier"`
	RemainingTests   int                    `json:"remainingTests"`
	Subscription     *SubscriptionInfo      `json:"subscription"`
}

type ConfirmResult struct {
	Message          string                 `json:"message"`
	SubscriptionTier types.SubscriptionTier `json:"subscriptionTier"`
	RemainingTests   int                    `json:"remainingTests"`
	NextBillingDate  string                 `json:"nextBillingDate"`
}

type CancelResult struct {
	Message    string `json:"message"`
	ExpiryDate string `json:"expiryDate"`
}

type ReactivateResult struct {
	Message         string `json:"message"`
	NextBillingDate string `json:"nextBillingDate"`
}

// BillingAuthorizer issues billing keys at the payment provider.
type BillingAuthorizer interface {
	IssueBillingKey(ctx context.Context, authKey, customerKey string) (*toss.BillingAuth, error)
}

// Store is the persistence surface of the subscription lifecycle.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	// CurrentSubscription returns the user's subscription in any of the given
	// statuses, or nil when none exists.
	CurrentSubscription(ctx context.Context, userID string, statuses ...types.SubscriptionStatus) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	SetUserTier(ctx context.Context, userID string, tier types.SubscriptionTier, remaining int) error
}

type Manager interface {
	GetInfo(ctx context.Context, userID string) (*Info, error)
	ConfirmBilling(ctx context.Context, userID, customerKey, authKey string) (*ConfirmResult, error)
	Cancel(ctx context.Context, userID string) (*CancelResult, error)
	Reactivate(ctx context.Context, userID string) (*ReactivateResult, error)
}

type Service struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	store      Store
	authorizer BillingAuthorizer
	now        func() time.Time
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, ledger *quota.Ledger, client *toss.Client) Manager {
	return &Service{
		cfg:        cfg,
		log:        log,
		store:      &gormStore{db: db, ledger: ledger},
		authorizer: client,
		now:        time.Now,
	}
}

func (s *Service) GetInfo(ctx context.Context, userID string) (*Info, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "FETCH_ERROR", "failed to load user", err)
	}

	sub, err := s.store.CurrentSubscription(ctx, userID,
		types.SubscriptionStatusActive, types.SubscriptionStatusCancelled)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "FETCH_ERROR", "failed to load subscription", err)
	}

	info := &Info{
		SubscriptionTier: user.SubscriptionTier,
		RemainingTests:   user.RemainingTests,
	}
	if sub != nil {
		info.Subscription = &SubscriptionInfo{
			Status:          sub.Status,
			NextBillingDate: formatDatePtr(sub.NextBillingDate),
			CardCompany:     sub.CardCompany,
			CardNumber:      sub.CardNumber,
		}
	}
	return info, nil
}

// ConfirmBilling exchanges the payment widget's authKey for a billing key,
// activates the subscription and upgrades the user to pro with the monthly
// allotment.
func (s *Service) ConfirmBilling(ctx context.Context, userID, customerKey, authKey string) (*ConfirmResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	auth, err := s.authorizer.IssueBillingKey(ctx, authKey, customerKey)
	if err != nil {
		var pe *toss.ProviderError
		if errors.As(err, &pe) {
			return nil, apperr.Wrap(http.StatusBadRequest, "BILLING_KEY_ISSUE_FAILED", pe.Message, err)
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "BILLING_AUTH_FAILED", "failed to issue billing key", err)
	}

	nextBilling := s.now().AddDate(0, 1, 0)
	sub, err := s.store.CurrentSubscription(ctx, userID,
		types.SubscriptionStatusActive, types.SubscriptionStatusCancelled, types.SubscriptionStatusExpired)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to load subscription", err)
	}
	if sub == nil {
		sub = &models.Subscription{UserID: userID}
	}
	sub.CustomerKey = &customerKey
	sub.BillingKey = &auth.BillingKey
	sub.CardCompany = &auth.Card.Company
	sub.CardNumber = &auth.Card.Number
	sub.Status = types.SubscriptionStatusActive
	sub.NextBillingDate = &nextBilling

	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to create subscription", err)
	}
	if err := s.store.SetUserTier(ctx, userID, types.SubscriptionTierPro, s.cfg.Billing.MonthlyTests); err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to upgrade user", err)
	}

	log.Infow("subscription confirmed", "user_id", userID, "next_billing_date", nextBilling.Format(dateLayout))
	return &ConfirmResult{
		Message:          "subscription confirmed",
		SubscriptionTier: types.SubscriptionTierPro,
		RemainingTests:   s.cfg.Billing.MonthlyTests,
		NextBillingDate:  nextBilling.Format(dateLayout),
	}, nil
}

// Cancel keeps the paid period: the subscription stays usable until its next
// billing date, but the payment instrument references are cleared and cannot
// be recovered.
func (s *Service) Cancel(ctx context.Context, userID string) (*CancelResult, error) {
	sub, err := s.store.CurrentSubscription(ctx, userID, types.SubscriptionStatusActive)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to load subscription", err)
	}
	if sub == nil {
		return nil, ErrNoActiveSubscription
	}

	expiry := ""
	if sub.NextBillingDate != nil {
		expiry = sub.NextBillingDate.Format(dateLayout)
	}
	sub.Status = types.SubscriptionStatusCancelled
	sub.BillingKey = nil
	sub.CustomerKey = nil
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to cancel subscription", err)
	}

	return &CancelResult{
		Message:    fmt.Sprintf("subscription cancelled, usable until %s", expiry),
		ExpiryDate: expiry,
	}, nil
}

func (s *Service) Reactivate(ctx context.Context, userID string) (*ReactivateResult, error) {
	sub, err := s.store.CurrentSubscription(ctx, userID, types.SubscriptionStatusCancelled)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to load subscription", err)
	}
	if sub == nil {
		return nil, ErrNoCancelled
	}
	if sub.BillingKey == nil {
		return nil, ErrBillingKeyDeleted
	}
	today := s.now().Format(dateLayout)
	if sub.NextBillingDate != nil && sub.NextBillingDate.Format(dateLayout) < today {
		return nil, ErrSubscriptionExpired
	}

	sub.Status = types.SubscriptionStatusActive
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "DATABASE_ERROR", "failed to reactivate subscription", err)
	}

	next := ""
	if sub.NextBillingDate != nil {
		next = sub.NextBillingDate.Format(dateLayout)
	}
	return &ReactivateResult{Message: "subscription reactivated", NextBillingDate: next}, nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
