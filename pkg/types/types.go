package types

// SubscriptionTier determines the quota size and which generation model is used.
type SubscriptionTier string

const (
	SubscriptionTierFree SubscriptionTier = "free"
	SubscriptionTierPro  SubscriptionTier = "pro"
)

// SubscriptionStatus lifecycle: active -> cancelled -> expired. Expired is terminal.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// SajuTestStatus lifecycle: processing -> completed | failed. Terminal states are final.
type SajuTestStatus string

const (
	SajuTestStatusProcessing SajuTestStatus = "processing"
	SajuTestStatusCompleted  SajuTestStatus = "completed"
	SajuTestStatusFailed     SajuTestStatus = "failed"
)

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type CronStatus string

const (
	CronStatusRunning   CronStatus = "running"
	CronStatusCompleted CronStatus = "completed"
	CronStatusFailed    CronStatus = "failed"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)
