package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/types"
)

// Profile carries the identity fields mirrored from the auth provider.
type Profile struct {
	UserID          string
	Email           string
	Name            *string
	ProfileImageURL *string
}

// Manager mirrors auth-provider account events into the local users table.
type Manager interface {
	CreateUser(ctx context.Context, p Profile) error
	UpdateUser(ctx context.Context, p Profile) error
	DeleteUser(ctx context.Context, userID string) error
}

type Service struct {
	cfg *config.Config
	log *zap.SugaredLogger
	db  *gorm.DB
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB) Manager {
	return &Service{cfg: cfg, log: log, db: db}
}

// CreateUser provisions a fresh account on the free tier with the signup
// test allowance. Replays of the same event are tolerated.
func (s *Service) CreateUser(ctx context.Context, p Profile) error {
	log := logctx.FromCtx(ctx, s.log)

	user := &models.User{
		ID:               p.UserID,
		Email:            p.Email,
		Name:             p.Name,
		ProfileImageURL:  p.ProfileImageURL,
		SubscriptionTier: types.SubscriptionTierFree,
		RemainingTests:   s.cfg.Billing.SignupTests,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Infow("user already provisioned", "user_id", p.UserID)
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	log.Infow("user provisioned", "user_id", p.UserID, "remaining_tests", s.cfg.Billing.SignupTests)
	return nil
}

// UpdateUser refreshes the mirrored profile fields. Tier and quota are
// owned locally and never touched here.
func (s *Service) UpdateUser(ctx context.Context, p Profile) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", p.UserID).
		Updates(map[string]any{
			"email":             p.Email,
			"name":              p.Name,
			"profile_image_url": p.ProfileImageURL,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	log := logctx.FromCtx(ctx, s.log)
	if err := s.db.WithContext(ctx).Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	log.Infow("user removed", "user_id", userID)
	return nil
}
