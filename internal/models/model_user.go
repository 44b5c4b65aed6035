package models

import (
	"time"

	"github.com/sajulab/sajuback/pkg/types"
)

// User mirrors an identity-provider account. The primary key is the external
// identity key, so webhook upserts are idempotent.
// Invariant: RemainingTests never goes negative; tier and counter are updated
// together on upgrade/downgrade/expiry.
type User struct {
	ID               string                 `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email            string                 `gorm:"column:email;type:varchar(255);not null" json:"email"`
	Name             *string                `gorm:"column:name;type:varchar(255)" json:"name"`
	ProfileImageURL  *string                `gorm:"column:profile_image_url;type:text" json:"profile_image_url"`
	SubscriptionTier types.SubscriptionTier `gorm:"column:subscription_tier;type:varchar(16);not null;default:'free'" json:"subscription_tier"`
	RemainingTests   int                    `gorm:"column:remaining_tests;not null;default:0" json:"remaining_tests"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
