package models

import (
	"time"

	"github.com/sajulab/sajuback/pkg/types"
)

// Subscription stores the recurring-billing state for a user.
// Invariant: BillingKey is non-nil only while the subscription is active or
// cancelled-within-paid-period; once expired the payment instrument
// references are cleared and cannot be recovered.
type Subscription struct {
	ID          string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	CustomerKey *string                  `gorm:"column:customer_key;type:varchar(128)" json:"customer_key"`
	BillingKey  *string                  `gorm:"column:billing_key;type:varchar(128)" json:"billing_key"`
	CardCompany *string                  `gorm:"column:card_company;type:varchar(64)" json:"card_company"`
	CardNumber  *string                  `gorm:"column:card_number;type:varchar(32)" json:"card_number"`
	Status      types.SubscriptionStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	// NextBillingDate is date-granular; nil once expired.
	NextBillingDate *time.Time `gorm:"column:next_billing_date;type:date" json:"next_billing_date"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
