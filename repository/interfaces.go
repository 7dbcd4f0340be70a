// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/listflow/listflow/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid uuid.UUID) (*models.Tenant, error)
	ListActive(ctx context.Context) ([]*models.Tenant, error)
}

// IdentityRecordRepository defines operations for identity records
type IdentityRecordRepository interface {
	Repository[models.IdentityRecord, models.IdentityRecordFilter]

	// Matching lookups, all scoped to a tenant. Email and name comparisons are
	// case-insensitive; phone comparison is exact.
	ByEmailAndName(ctx context.Context, tenantID uint, email, firstName, lastName string) (*models.IdentityRecord, error)
	ByPhoneAndName(ctx context.Context, tenantID uint, phone, firstName, lastName string) (*models.IdentityRecord, error)
	ByEmail(ctx context.Context, tenantID uint, email string) (*models.IdentityRecord, error)
	ByPhone(ctx context.Context, tenantID uint, phone string) (*models.IdentityRecord, error)

	// ListEligible returns records with remaining_days > 0 in insertion order.
	ListEligible(ctx context.Context, tenantID uint) ([]*models.IdentityRecord, error)

	// SaveBatchSkipConflicts bulk-inserts records, silently skipping rows that
	// violate the composite contact unique constraint.
	SaveBatchSkipConflicts(ctx context.Context, records []*models.IdentityRecord) error

	// DecrementRetention decrements remaining_days by one for every record still
	// above zero and returns the number of rows touched.
	DecrementRetention(ctx context.Context) (int64, error)

	// DeleteExpired removes every record with remaining_days <= 0 and returns the
	// number deleted.
	DeleteExpired(ctx context.Context) (int64, error)

	Delete(ctx context.Context, record *models.IdentityRecord) error
}

// ProcessingLogRepository defines operations for ingestion run logs
type ProcessingLogRepository interface {
	Repository[models.ProcessingLog, models.ProcessingLogFilter]
	LatestByTenant(ctx context.Context, tenantID uint) (*models.ProcessingLog, error)
}

// SyncLogRepository defines operations for sync run logs
type SyncLogRepository interface {
	Repository[models.SyncLog, models.SyncLogFilter]
	LatestByTenant(ctx context.Context, tenantID uint) (*models.SyncLog, error)
}
