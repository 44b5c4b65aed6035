package models

import (
	"time"

	"github.com/sajulab/sajuback/pkg/types"
)

// SajuTest is one analysis request. Created in processing state; exactly one
// of completed (summary + full result set) or failed (error message set)
// follows, and terminal rows are never re-opened.
type SajuTest struct {
	ID                 string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID             string               `gorm:"column:user_id;type:varchar(64);not null;index:idx_saju_tests_user_id_id,priority:1" json:"user_id"`
	TestName           string               `gorm:"column:test_name;type:varchar(64);not null" json:"test_name"`
	BirthDate          string               `gorm:"column:birth_date;type:date;not null" json:"birth_date"`
	BirthTime          *string              `gorm:"column:birth_time;type:time" json:"birth_time"`
	IsBirthTimeUnknown bool                 `gorm:"column:is_birth_time_unknown;not null;default:false" json:"is_birth_time_unknown"`
	Gender             types.Gender         `gorm:"column:gender;type:varchar(8);not null" json:"gender"`
	ModelUsed          string               `gorm:"column:model_used;type:varchar(64);not null" json:"model_used"`
	Status             types.SajuTestStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	SummaryResult      *string              `gorm:"column:summary_result;type:text" json:"summary_result"`
	FullResult         *string              `gorm:"column:full_result;type:text" json:"full_result"`
	ErrorMessage       *string              `gorm:"column:error_message;type:text" json:"error_message"`
	CreatedAt          time.Time            `gorm:"index:idx_saju_tests_user_id_id,priority:2,sort:desc" json:"created_at"`
	CompletedAt        *time.Time           `gorm:"column:completed_at" json:"completed_at"`
}

func (SajuTest) TableName() string {
	return "saju_tests"
}

func (t *SajuTest) IsTerminal() bool {
	return t != nil && (t.Status == types.SajuTestStatusCompleted || t.Status == types.SajuTestStatusFailed)
}
