package cronjob

import (
	"context"
	"net/http"

	"github.com/sajulab/sajuback/pkg/apperr"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/types"
)

type ExpireResult struct {
	UserID            string `json:"userId"`
	SubscriptionID    string `json:"subscriptionId"`
	ExpiredDate       string `json:"expiredDate"`
	NewTier           string `json:"newTier"`
	NewRemainingTests int    `json:"newRemainingTests"`
}

type ExpireReport struct {
	ExpiredCount    int            `json:"expiredCount"`
	Results         []ExpireResult `json:"results"`
	ExecutionTimeMS int64          `json:"executionTimeMs"`
}

// RunExpiry demotes cancelled subscriptions whose paid period has elapsed.
func (r *Runner) RunExpiry(ctx context.Context) (*ExpireReport, error) {
	log := logctx.FromCtx(ctx, r.log)
	start := r.now()
	today := start.Format(dateLayout)

	logID, err := r.store.AcquireLog(ctx, jobExpiry, today)
	if err != nil {
		return nil, err
	}

	subs, err := r.store.CancelledDue(ctx, today)
	if err != nil {
		msg := err.Error()
		r.completeLog(ctx, logID, types.CronStatusFailed, 0, 0, 0, start, &msg)
		return nil, apperr.Wrap(http.StatusInternalServerError, "EXPIRE_FETCH_ERROR", "failed to load expiring subscriptions", err)
	}

	results := make([]ExpireResult, 0, len(subs))
	for _, sub := range subs {
		expiredDate := ""
		if sub.NextBillingDate != nil {
			expiredDate = sub.NextBillingDate.Format(dateLayout)
		}
		if err := r.store.ExpireSubscription(ctx, sub.ID); err != nil {
			log.Errorw("failed to expire subscription", "subscription_id", sub.ID, "err", err)
			continue
		}
		if err := r.store.SetUserTier(ctx, sub.UserID, types.SubscriptionTierFree, 0); err != nil {
			log.Errorw("failed to demote user", "user_id", sub.UserID, "err", err)
		}
		results = append(results, ExpireResult{
			UserID:            sub.UserID,
			SubscriptionID:    sub.ID,
			ExpiredDate:       expiredDate,
			NewTier:           string(types.SubscriptionTierFree),
			NewRemainingTests: 0,
		})
	}

	elapsed := r.now().Sub(start).Milliseconds()
	if err := r.store.CompleteLog(ctx, logID, types.CronStatusCompleted, len(subs), len(results), len(subs)-len(results), elapsed, nil); err != nil {
		log.Errorw("failed to complete expiry execution log", "log_id", logID, "err", err)
	}
	log.Infow("expiry sweep finished", "expired", len(results), "elapsed_ms", elapsed)

	return &ExpireReport{
		ExpiredCount:    len(results),
		Results:         results,
		ExecutionTimeMS: elapsed,
	}, nil
}
