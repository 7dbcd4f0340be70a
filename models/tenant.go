// Package models contains domain entities and business models for the contact pipeline
package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tenants_uuid;index:idx_tenants_uuid" json:"uuid"`
	Name string    `gorm:"size:255;not null" json:"name"`

	// External audience configured on the advertising platform; nil means the
	// tenant ingests but never syncs.
	AudienceID *string `gorm:"size:64" json:"audience_id,omitempty"`

	// Remote file source; the source cipher holds vault-encrypted
	// RemoteCredentials JSON, the credential cipher the platform access token.
	// Neither is ever serialized.
	SourceDir              string  `gorm:"size:255;not null" json:"source_dir"`
	SourceCredentialCipher *string `gorm:"type:text" json:"-"`
	CredentialCipher       *string `gorm:"type:text" json:"-"`

	IsActive *bool `gorm:"default:true;index:idx_tenants_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_tenants_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	IdentityRecords []IdentityRecord `gorm:"foreignKey:TenantID" json:"-"`
	ProcessingLogs  []ProcessingLog  `gorm:"foreignKey:TenantID" json:"-"`
	SyncLogs        []SyncLog        `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	IsActive      *bool
	HasAudience   *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// CanSync reports whether the tenant has an external audience configured.
func (t *Tenant) CanSync() bool {
	return t.AudienceID != nil && *t.AudienceID != ""
}
