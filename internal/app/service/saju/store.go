package saju

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/pkg/types"
)

type gormStore struct {
	db *gorm.DB
}

func (s *gormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormStore) InsertTest(ctx context.Context, t *models.SajuTest) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *gormStore) MarkCompleted(ctx context.Context, id, summary, full string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.SajuTest{}).
		Where("id = ? AND status = ?", id, types.SajuTestStatusProcessing).
		Updates(map[string]any{
			"status":         types.SajuTestStatusCompleted,
			"summary_result": summary,
			"full_result":    full,
			"completed_at":   at,
		}).Error
}

func (s *gormStore) MarkFailed(ctx context.Context, id, message string) error {
	return s.db.WithContext(ctx).Model(&models.SajuTest{}).
		Where("id = ? AND status = ?", id, types.SajuTestStatusProcessing).
		Updates(map[string]any{
			"status":        types.SajuTestStatusFailed,
			"error_message": message,
		}).Error
}

func (s *gormStore) GetTest(ctx context.Context, id string) (*models.SajuTest, error) {
	var test models.SajuTest
	if err := s.db.WithContext(ctx).First(&test, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (s *gormStore) ListTests(ctx context.Context, userID string, offset, limit int, search string) ([]*models.SajuTest, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.SajuTest{}).Where("user_id = ?", userID)
	if search != "" {
		q = q.Where("test_name ILIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tests []*models.SajuTest
	if err := q.Order("created_at desc").Offset(offset).Limit(limit).Find(&tests).Error; err != nil {
		return nil, 0, err
	}
	return tests, total, nil
}
