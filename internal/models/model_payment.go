package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/sajulab/sajuback/pkg/types"
)

// Payment is an append-only audit row, one per charge attempt. Never mutated
// after insert.
type Payment struct {
	ID             string              `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID         string              `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	SubscriptionID string              `gorm:"column:subscription_id;type:uuid;not null" json:"subscription_id"`
	PaymentKey     *string             `gorm:"column:payment_key;type:varchar(128)" json:"payment_key"`
	OrderID        string              `gorm:"column:order_id;type:varchar(128);not null;uniqueIndex" json:"order_id"`
	Amount         int64               `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Status         types.PaymentStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	Method         string              `gorm:"column:method;type:varchar(64);not null" json:"method"`
	PaidAt         *time.Time          `gorm:"column:paid_at" json:"paid_at"`
	ErrorMessage   *string             `gorm:"column:error_message;type:text" json:"error_message"`
	// Extra keeps the raw provider response for dispute handling.
	Extra     datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}
