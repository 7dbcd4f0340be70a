package models

import (
	"time"

	"github.com/lib/pq"
)

// Processing log statuses
const (
	ProcessingStatusProcessing = "processing"
	ProcessingStatusCompleted  = "completed"
	ProcessingStatusFailed     = "failed"
)

// ProcessingLog is the append-only record of one ingestion run. It is created in
// `processing` status before any row is touched and finalized exactly once.
type ProcessingLog struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID uint   `gorm:"not null;index:idx_processing_logs_tenant_id" json:"tenant_id"`
	Tenant   Tenant `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	SourceFile string `gorm:"size:255" json:"source_file"`

	TotalRecords int `gorm:"not null;default:0" json:"total_records"`
	Created      int `gorm:"not null;default:0" json:"created"`
	Updated      int `gorm:"not null;default:0" json:"updated"`
	Skipped      int `gorm:"not null;default:0" json:"skipped"`
	NoIdentifier int `gorm:"not null;default:0" json:"no_identifier"`

	RowErrors pq.StringArray `gorm:"type:text[]" json:"row_errors,omitempty"`

	Status       string  `gorm:"size:20;not null;default:processing;index:idx_processing_logs_status" json:"status"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_processing_logs_created_at" json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (ProcessingLog) TableName() string {
	return "processing_logs"
}

// ProcessingLogFilter represents filter criteria for processing log queries
type ProcessingLogFilter struct {
	ID            *uint
	TenantID      *uint
	SourceFile    *string
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
