package subscription

import (
	"context"
	"errors"

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

func (s *gormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) CurrentSubscription(ctx context.Context, userID string, statuses ...types.SubscriptionStatus) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, statuses).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	return s.db.WithContext(ctx).Save(sub).Error
}

func (s *gormStore) SetUserTier(ctx context.Context, userID string, tier types.SubscriptionTier, remaining int) error {
	return s.ledger.SetForTier(ctx, userID, tier, remaining)
}
