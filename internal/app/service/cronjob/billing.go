package cronjob

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/pkg/apperr"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/tool"
	"github.com/sajulab/sajuback/pkg/types"
)

type BillingResult struct {
	UserID          string `json:"userId"`
	SubscriptionID  string `json:"subscriptionId"`
	Status          string `json:"status"`
	PaymentID       string `json:"paymentId,omitempty"`
	NextBillingDate string `json:"nextBillingDate,omitempty"`
	ErrorCode       string `json:"errorCode,omitempty"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

type BillingReport struct {
	ProcessedCount  int             `json:"processedCount"`
	SuccessCount    int             `json:"successCount"`
	FailureCount    int             `json:"failureCount"`
	Results         []BillingResult `json:"results"`
	ExecutionTimeMS int64           `json:"executionTimeMs"`
}

// RunBilling charges every active subscription due today. Each item is
// handled independently: one bad billing key never blocks the rest of the
// cohort. The per-day guard makes the sweep at-most-once per calendar day.
func (r *Runner) RunBilling(ctx context.Context) (*BillingReport, error) {
	log := logctx.FromCtx(ctx, r.log)
	start := r.now()
	today := start.Format(dateLayout)

	logID, err := r.store.AcquireLog(ctx, jobBilling, today)
	if err != nil {
		return nil, err
	}

	subs, err := r.store.DueSubscriptions(ctx, today)
	if err != nil {
		msg := err.Error()
		r.completeLog(ctx, logID, types.CronStatusFailed, 0, 0, 0, start, &msg)
		return nil, apperr.Wrap(http.StatusInternalServerError, "BILLING_FETCH_ERROR", "failed to load due subscriptions", err)
	}

	results := make([]BillingResult, 0, len(subs))
	for _, sub := range subs {
		results = append(results, r.billOne(ctx, sub))
	}

	successCount := lo.CountBy(results, func(res BillingResult) bool { return res.Status == "success" })
	failureCount := len(results) - successCount
	elapsed := r.now().Sub(start).Milliseconds()

	if err := r.store.CompleteLog(ctx, logID, types.CronStatusCompleted, len(subs), successCount, failureCount, elapsed, nil); err != nil {
		log.Errorw("failed to complete billing execution log", "log_id", logID, "err", err)
	}
	log.Infow("billing sweep finished", "processed", len(subs), "success", successCount, "failure", failureCount, "elapsed_ms", elapsed)

	return &BillingReport{
		ProcessedCount:  len(subs),
		SuccessCount:    successCount,
		FailureCount:    failureCount,
		Results:         results,
		ExecutionTimeMS: elapsed,
	}, nil
}

func (r *Runner) billOne(ctx context.Context, sub *models.Subscription) BillingResult {
	log := logctx.FromCtx(ctx, r.log)
	orderID := tool.GenerateOrderID()
	amount := r.cfg.Billing.Amount

	if sub.BillingKey == nil || sub.CustomerKey == nil {
		return r.failCharge(ctx, sub, orderID, "MISSING_BILLING_KEY", "subscription has no billing key")
	}

	charge, err := r.charger.ChargeBillingKey(ctx, *sub.BillingKey, *sub.CustomerKey, amount, orderID, r.cfg.Billing.OrderName)
	if err != nil {
		return r.failCharge(ctx, sub, orderID, "PAYMENT_FAILED", err.Error())
	}

	now := r.now()
	payment := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PaymentKey:     &charge.PaymentKey,
		OrderID:        orderID,
		Amount:         amount,
		Status:         types.PaymentStatusSuccess,
		Method:         billingMethod,
		PaidAt:         &now,
	}
	if raw, merr := json.Marshal(charge); merr == nil {
		payment.Extra = raw
	}
	if err := r.store.InsertPayment(ctx, payment); err != nil {
		return r.failCharge(ctx, sub, orderID, "PAYMENT_RECORD_ERROR", err.Error())
	}

	next := sub.NextBillingDate.AddDate(0, 1, 0)
	if err := r.store.AdvanceBillingDate(ctx, sub.ID, next); err != nil {
		return r.failCharge(ctx, sub, orderID, "PAYMENT_RECORD_ERROR", err.Error())
	}
	if err := r.store.SetUserTier(ctx, sub.UserID, types.SubscriptionTierPro, r.cfg.Billing.MonthlyTests); err != nil {
		log.Errorw("failed to reset quota after charge", "user_id", sub.UserID, "err", err)
	}

	return BillingResult{
		UserID:          sub.UserID,
		SubscriptionID:  sub.ID,
		Status:          "success",
		PaymentID:       payment.ID,
		NextBillingDate: next.Format(dateLayout),
	}
}

// failCharge records the FAILED ledger row and applies the failure policy:
// either immediate expiry and demotion (the default no-retry posture) or
// leaving the subscription due so tomorrow's sweep retries.
func (r *Runner) failCharge(ctx context.Context, sub *models.Subscription, orderID, code, message string) BillingResult {
	log := logctx.FromCtx(ctx, r.log)
	log.Warnw("billing charge failed", "subscription_id", sub.ID, "user_id", sub.UserID, "code", code, "err", message)

	payment := &models.Payment{
		ID:             tool.GenerateUUIDV7(),
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		OrderID:        orderID,
		Amount:         r.cfg.Billing.Amount,
		Status:         types.PaymentStatusFailed,
		Method:         billingMethod,
		ErrorMessage:   &message,
	}
	if err := r.store.InsertPayment(ctx, payment); err != nil {
		log.Errorw("failed to record failed payment", "subscription_id", sub.ID, "err", err)
	}

	if r.cfg.Billing.ExpireOnFirstFailure {
		if err := r.store.ExpireSubscription(ctx, sub.ID); err != nil {
			log.Errorw("failed to expire subscription", "subscription_id", sub.ID, "err", err)
		}
		if err := r.store.SetUserTier(ctx, sub.UserID, types.SubscriptionTierFree, 0); err != nil {
			log.Errorw("failed to demote user", "user_id", sub.UserID, "err", err)
		}
	}

	return BillingResult{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		Status:         "failed",
		ErrorCode:      code,
		ErrorMessage:   message,
	}
}

func (r *Runner) completeLog(ctx context.Context, logID string, status types.CronStatus, processed, success, failure int, start time.Time, errMsg *string) {
	elapsed := r.now().Sub(start).Milliseconds()
	if err := r.store.CompleteLog(ctx, logID, status, processed, success, failure, elapsed, errMsg); err != nil {
		logctx.FromCtx(ctx, r.log).Errorw("failed to finalize execution log", "log_id", logID, "err", err)
	}
}
