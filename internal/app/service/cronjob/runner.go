package cronjob

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/app/service/quota"
	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/internal/platform/toss"
	"github.com/sajulab/sajuback/pkg/apperr"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/types"
)

const (
	jobBilling = "recurring-payment-trigger"
	jobExpiry  = "subscription-expire-trigger"

	dateLayout    = "2006-01-02"
	billingMethod = "cron_auto_billing"
)

// ErrAlreadyProcessed signals the daily guard rejected a second run.
var ErrAlreadyProcessed = apperr.New(http.StatusConflict, "ALREADY_PROCESSED", "job already executed today")

// Charger approves recurring payments against stored billing keys.
type Charger interface {
	ChargeBillingKey(ctx context.Context, billingKey, customerKey string, amount int64, orderID, orderName string) (*toss.ChargeResult, error)
}

// Store is the persistence surface shared by the billing and expiry sweeps.
type Store interface {
	// AcquireLog inserts the per-day guard row; a duplicate (jobName, date)
	// yields ErrAlreadyProcessed.
	AcquireLog(ctx context.Context, jobName, date string) (string, error)
	CompleteLog(ctx context.Context, logID string, status types.CronStatus, processed, success, failure int, elapsedMS int64, errMsg *string) error

	DueSubscriptions(ctx context.Context, date string) ([]*models.Subscription, error)
	CancelledDue(ctx context.Context, date string) ([]*models.Subscription, error)
	InsertPayment(ctx context.Context, p *models.Payment) error
	AdvanceBillingDate(ctx context.Context, subID string, next time.Time) error
	// ExpireSubscription clears billing/customer keys and the next billing
	// date; the references cannot be recovered afterwards.
	ExpireSubscription(ctx context.Context, subID string) error
	SetUserTier(ctx context.Context, userID string, tier types.SubscriptionTier, remaining int) error
}

// Manager runs the two daily jobs.
type Manager interface {
	RunBilling(ctx context.Context) (*BillingReport, error)
	RunExpiry(ctx context.Context) (*ExpireReport, error)
}

type Runner struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	store   Store
	charger Charger
	now     func() time.Time
}

func NewRunner(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, ledger *quota.Ledger, client *toss.Client) Manager {
	return &Runner{
		cfg:     cfg,
		log:     log,
		store:   &gormStore{db: db, ledger: ledger},
		charger: client,
		now:     time.Now,
	}
}
