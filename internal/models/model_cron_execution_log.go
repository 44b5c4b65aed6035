package models

import (
	"time"

	"github.com/sajulab/sajuback/pkg/types"
)

// CronExecutionLog is the per-day job mutex. The unique index on
// (job_name, execution_date) makes the insert itself the lock acquisition:
// a duplicate-key conflict means the job already ran today.
type CronExecutionLog struct {
	ID      string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	JobName string `gorm:"column:job_name;type:varchar(64);not null;uniqueIndex:uniq_cron_job_date,priority:1" json:"job_name"`
	// ExecutionDate is the calendar day ("2006-01-02"), not a timestamp.
	ExecutionDate   string           `gorm:"column:execution_date;type:date;not null;uniqueIndex:uniq_cron_job_date,priority:2" json:"execution_date"`
	Status          types.CronStatus `gorm:"column:status;type:varchar(16);not null" json:"status"`
	ProcessedCount  int              `gorm:"column:processed_count;not null;default:0" json:"processed_count"`
	SuccessCount    int              `gorm:"column:success_count;not null;default:0" json:"success_count"`
	FailureCount    int              `gorm:"column:failure_count;not null;default:0" json:"failure_count"`
	ExecutionTimeMS int64            `gorm:"column:execution_time_ms;not null;default:0" json:"execution_time_ms"`
	ErrorMessage    *string          `gorm:"column:error_message;type:text" json:"error_message"`
	CompletedAt     *time.Time       `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (CronExecutionLog) TableName() string {
	return "cron_execution_log"
}
