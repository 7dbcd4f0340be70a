package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity record statuses
const (
	IdentityStatusActive       = "active"
	IdentityStatusNoIdentifier = "no_identifier"
)

// IdentityRecord is the durable record representing one contact for one tenant.
// Email is stored lowercase-trimmed, Phone digits-only; both nil when absent.
// The composite unique index backs the defensive duplicate skip on bulk insert.
type IdentityRecord struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_identity_records_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_identity_records_tenant_id;uniqueIndex:uk_identity_records_contact" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Email     *string `gorm:"size:255;index:idx_identity_records_email;uniqueIndex:uk_identity_records_contact" json:"email,omitempty"`
	Phone     *string `gorm:"size:20;index:idx_identity_records_phone;uniqueIndex:uk_identity_records_contact" json:"phone,omitempty"`
	FirstName string  `gorm:"size:255;uniqueIndex:uk_identity_records_contact" json:"first_name"`
	LastName  string  `gorm:"size:255;uniqueIndex:uk_identity_records_contact" json:"last_name"`

	Status string `gorm:"size:20;not null;default:active;index:idx_identity_records_status" json:"status"`

	// RemainingDays is decremented daily; records at zero or below are expired.
	RemainingDays int       `gorm:"not null;default:30;index:idx_identity_records_remaining_days" json:"remaining_days"`
	DateAdded     time.Time `gorm:"not null" json:"date_added"`
	SourceFile    string    `gorm:"size:255" json:"source_file"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (IdentityRecord) TableName() string {
	return "identity_records"
}

// IdentityRecordFilter represents filter criteria for identity record queries
type IdentityRecordFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	Email         *string
	Phone         *string
	Status        *string
	Eligible      *bool // remaining_days > 0
	AddedAfter    *time.Time
	AddedBefore   *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// HasIdentifier reports whether the record carries at least one of email or phone.
func (r *IdentityRecord) HasIdentifier() bool {
	return (r.Email != nil && *r.Email != "") || (r.Phone != nil && *r.Phone != "")
}

// DeriveStatus returns the status implied by identifier presence.
func (r *IdentityRecord) DeriveStatus() string {
	if r.HasIdentifier() {
		return IdentityStatusActive
	}
	return IdentityStatusNoIdentifier
}
