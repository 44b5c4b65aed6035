package cronjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/app/service/quota"
	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/pkg/tool"
	"github.com/sajulab/sajuback/pkg/types"
)

type gormStore struct {
	db     *gorm.DB
	ledger *quota.Ledger
}

// AcquireLog inserts first and lets the unique (job_name, execution_date)
// index arbitrate; there is no check-then-insert window.
func (s *gormStore) AcquireLog(ctx context.Context, jobName, date string) (string, error) {
	row := &models.CronExecutionLog{
		ID:            tool.GenerateUUIDV7(),
		JobName:       jobName,
		ExecutionDate: date,
		Status:        types.CronStatusRunning,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrAlreadyProcessed
		}
		return "", fmt.Errorf("failed to create execution log: %w", err)
	}
	return row.ID, nil
}

func (s *gormStore) CompleteLog(ctx context.Context, logID string, status types.CronStatus, processed, success, failure int, elapsedMS int64, errMsg *string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&models.CronExecutionLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"status":            status,
			"processed_count":   processed,
			"success_count":     success,
			"failure_count":     failure,
			"execution_time_ms": elapsedMS,
			"error_message":     errMsg,
			"completed_at":      now,
		}).Error
}

func (s *gormStore) DueSubscriptions(ctx context.Context, date string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_billing_date = ?", types.SubscriptionStatusActive, date).
		Find(&subs).Error
	return subs, err
}

func (s *gormStore) CancelledDue(ctx context.Context, date string) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_billing_date <= ?", types.SubscriptionStatusCancelled, date).
		Find(&subs).Error
	return subs, err
}

func (s *gormStore) InsertPayment(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) AdvanceBillingDate(ctx context.Context, subID string, next time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subID).
		Update("next_billing_date", next).Error
}

func (s *gormStore) ExpireSubscription(ctx context.Context, subID string) error {
	return s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subID).
		Updates(map[string]any{
			"status":            types.SubscriptionStatusExpired,
			"billing_key":       nil,
			"customer_key":      nil,
			"next_billing_date": nil,
		}).Error
}

func (s *gormStore) SetUserTier(ctx context.Context, userID string, tier types.SubscriptionTier, remaining int) error {
	return s.ledger.SetForTier(ctx, userID, tier, remaining)
}
