package quota

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/pkg/types"
)

// ErrNoQuota is returned when a user has no remaining tests to consume.
var ErrNoQuota = errors.New("no remaining tests")

// Ledger is the single mutation point for the per-user quota counter.
type Ledger struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewLedger(db *gorm.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Consume atomically decrements the user's remaining tests. The conditional
// update is the sole quota gate: it either decrements a positive counter or
// affects zero rows, so the counter can never go negative and two concurrent
// requests can never over-grant.
func (l *Ledger) Consume(ctx context.Context, userID string) error {
	tx := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND remaining_tests > 0", userID).
		UpdateColumn("remaining_tests", gorm.Expr("remaining_tests - 1"))
	if tx.Error != nil {
		return fmt.Errorf("failed to consume quota: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNoQuota
	}
	return nil
}

// Refund compensates a consumed unit with a relative increment, so it never
// clobbers a concurrent decrement from another in-flight request.
func (l *Ledger) Refund(ctx context.Context, userID string) error {
	tx := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("remaining_tests", gorm.Expr("remaining_tests + 1"))
	if tx.Error != nil {
		return fmt.Errorf("failed to refund quota: %w", tx.Error)
	}
	return nil
}

// SetForTier updates tier and counter together, used by subscription
// upgrades and the billing/expiry sweeps.
func (l *Ledger) SetForTier(ctx context.Context, userID string, tier types.SubscriptionTier, remaining int) error {
	tx := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"subscription_tier": tier,
			"remaining_tests":   remaining,
		})
	if tx.Error != nil {
		return fmt.Errorf("failed to set tier for user %s: %w", userID, tx.Error)
	}
	return nil
}
