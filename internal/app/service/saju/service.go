package saju

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sajulab/sajuback/internal/app/service/quota"
	"github.com/sajulab/sajuback/internal/models"
	"github.com/sajulab/sajuback/internal/platform/gemini"
	"github.com/sajulab/sajuback/pkg/apperr"
	"github.com/sajulab/sajuback/pkg/config"
	"github.com/sajulab/sajuback/pkg/logctx"
	"github.com/sajulab/sajuback/pkg/tool"
	"github.com/sajulab/sajuback/pkg/types"
)

// Public error codes for the analyze lifecycle.
var (
	ErrNoTestsRemaining = apperr.New(http.StatusForbidden, "NO_TESTS_REMAINING", "no analysis credits remaining")
	ErrNotFound         = apperr.New(http.StatusNotFound, "NOT_FOUND", "analysis not found")
	ErrForbidden        = apperr.New(http.StatusForbidden, "FORBIDDEN", "not the owner of this analysis")
)

type AnalyzeRequest struct {
	TestName           string       `json:"test_name"`
	BirthDate          string       `json:"birth_date"`
	BirthTime          *string      `json:"birth_time"`
	IsBirthTimeUnknown bool         `json:"is_birth_time_unknown"`
	Gender             types.Gender `json:"gender"`
}

type SubmitResult struct {
	TestID  string `json:"testId"`
	Summary string `json:"summary"`
}

type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type ListResult struct {
	Tests      []*models.SajuTest `json:"tests"`
	Pagination Pagination         `json:"pagination"`
}

// Generator is the generation gateway seen by the state machine.
type Generator interface {
	Generate(ctx context.Context, modelID, prompt string) (string, error)
	ModelForTier(tier types.SubscriptionTier) string
}

// QuotaLedger is the quota gate and its compensation.
type QuotaLedger interface {
	Consume(ctx context.Context, userID string) error
	Refund(ctx context.Context, userID string) error
}

// Store is the persistence surface of the state machine.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	InsertTest(ctx context.Context, t *models.SajuTest) error
	MarkCompleted(ctx context.Context, id, summary, full string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	GetTest(ctx context.Context, id string) (*models.SajuTest, error)
	ListTests(ctx context.Context, userID string, offset, limit int, search string) ([]*models.SajuTest, int64, error)
}

// Manager orchestrates the analysis-request lifecycle.
type Manager interface {
	Submit(ctx context.Context, userID string, req *AnalyzeRequest) (*SubmitResult, error)
	GetTest(ctx context.Context, userID, testID string) (*models.SajuTest, error)
	ListTests(ctx context.Context, userID string, q ListQuery) (*ListResult, error)
}

type Service struct {
	cfg    *config.Config
	log    *zap.SugaredLogger
	store  Store
	ledger QuotaLedger
	gen    Generator
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, db *gorm.DB, ledger *quota.Ledger, gen *gemini.Client) Manager {
	return &Service{cfg: cfg, log: log, store: &gormStore{db: db}, ledger: ledger, gen: gen}
}

// Submit runs processing -> completed | failed. The atomic quota consume is
// the sole gate and happens before the processing row exists; an insert
// failure is compensated with a refund. After the gateway call the row always
// reaches a terminal state, and quota is refunded only for non-timeout
// failures (a timed-out provider may still have done the work).
func (s *Service) Submit(ctx context.Context, userID string, req *AnalyzeRequest) (*SubmitResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "FETCH_ERROR", "failed to load user", err)
	}

	if err := s.ledger.Consume(ctx, userID); err != nil {
		if errors.Is(err, quota.ErrNoQuota) {
			return nil, ErrNoTestsRemaining
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "UPDATE_ERROR", "failed to reserve analysis credit", err)
	}

	modelID := s.gen.ModelForTier(user.SubscriptionTier)
	test := &models.SajuTest{
		ID:                 tool.GenerateUUIDV7(),
		UserID:             userID,
		TestName:           req.TestName,
		BirthDate:          req.BirthDate,
		BirthTime:          req.BirthTime,
		IsBirthTimeUnknown: req.IsBirthTimeUnknown,
		Gender:             req.Gender,
		ModelUsed:          modelID,
		Status:             types.SajuTestStatusProcessing,
	}
	if err := s.store.InsertTest(ctx, test); err != nil {
		if rerr := s.ledger.Refund(ctx, userID); rerr != nil {
			log.Errorw("quota refund after insert failure failed", "user_id", userID, "err", rerr)
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "INSERT_ERROR", "failed to create analysis record", err)
	}

	text, err := s.gen.Generate(ctx, modelID, buildPrompt(req))
	if err != nil {
		return nil, s.finalizeFailure(ctx, test, userID, err)
	}

	summary, full := parseAnalysis(text)
	if err := s.store.MarkCompleted(ctx, test.ID, summary, full, time.Now()); err != nil {
		log.Errorw("failed to persist completed analysis", "test_id", test.ID, "err", err)
		return nil, apperr.Wrap(http.StatusInternalServerError, "UPDATE_ERROR", "failed to store analysis result", err)
	}
	return &SubmitResult{TestID: test.ID, Summary: summary}, nil
}

func (s *Service) finalizeFailure(ctx context.Context, test *models.SajuTest, userID string, genErr error) error {
	log := logctx.FromCtx(ctx, s.log)
	kind := gemini.KindOf(genErr)

	var code, message string
	switch kind {
	case gemini.FailureTimeout:
		code, message = "AI_TIMEOUT", "analysis timed out, please try again"
	case gemini.FailureRateLimited:
		code, message = "AI_RATE_LIMIT", "analysis service is busy, please try again later"
	default:
		code, message = "AI_SERVICE_ERROR", "analysis service error"
	}
	log.Errorw("generation failed", "test_id", test.ID, "kind", kind, "err", genErr)

	if err := s.store.MarkFailed(ctx, test.ID, message); err != nil {
		log.Errorw("failed to persist failed analysis", "test_id", test.ID, "err", err)
	}

	// A timeout gives no certainty the provider didn't perform the work, so
	// the deduction is kept conservatively.
	if kind != gemini.FailureTimeout {
		if err := s.ledger.Refund(ctx, userID); err != nil {
			log.Errorw("quota refund after generation failure failed", "user_id", userID, "err", err)
		}
	}

	return apperr.Wrap(http.StatusInternalServerError, code, message, genErr).
		WithDetails(map[string]string{"testId": test.ID})
}

// GetTest returns the record only to its owner; a foreign record yields 403
// without leaking contents.
func (s *Service) GetTest(ctx context.Context, userID, testID string) (*models.SajuTest, error) {
	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, apperr.Wrap(http.StatusInternalServerError, "FETCH_ERROR", "failed to load analysis", err)
	}
	if test.UserID != userID {
		return nil, ErrForbidden
	}
	return test, nil
}

func (s *Service) ListTests(ctx context.Context, userID string, q ListQuery) (*ListResult, error) {
	page := lo.Ternary(q.Page >= 1, q.Page, 1)
	limit := q.Limit
	if limit < 1 || limit > 50 {
		limit = 10
	}

	tests, total, err := s.store.ListTests(ctx, userID, (page-1)*limit, limit, q.Search)
	if err != nil {
		return nil, apperr.Wrap(http.StatusInternalServerError, "FETCH_ERROR", "failed to load analysis history", err)
	}
	return &ListResult{
		Tests: tests,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}
