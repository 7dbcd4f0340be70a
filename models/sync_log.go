package models

import (
	"time"
)

// Sync log statuses
const (
	SyncStatusProcessing = "processing"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

// SyncLog is the append-only record of one sync run against the external
// audience platform.
type SyncLog struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID uint   `gorm:"not null;index:idx_sync_logs_tenant_id" json:"tenant_id"`
	Tenant   Tenant `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	// External audience identifier on the remote platform.
	AudienceID string `gorm:"size:64;not null" json:"audience_id"`

	TotalRecords int `gorm:"not null;default:0" json:"total_records"`
	Succeeded    int `gorm:"not null;default:0" json:"succeeded"`
	Failed       int `gorm:"not null;default:0" json:"failed"`

	Status       string  `gorm:"size:20;not null;default:processing;index:idx_sync_logs_status" json:"status"`
	ErrorMessage *string `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_sync_logs_created_at" json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (SyncLog) TableName() string {
	return "sync_logs"
}

// SyncLogFilter represents filter criteria for sync log queries
type SyncLogFilter struct {
	ID            *uint
	TenantID      *uint
	AudienceID    *string
	Status        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
