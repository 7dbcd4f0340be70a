package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/listflow/listflow/models"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements TenantRepository
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db)}
}

func (r *TenantRepositoryImpl) applyFilter(db *gorm.DB, f models.TenantFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.Name != nil {
		db = db.Where("name = ?", *f.Name)
	}
	if f.IsActive != nil {
		db = db.Where("is_active = ?", *f.IsActive)
	}
	if f.HasAudience != nil {
		if *f.HasAudience {
			db = db.Where("audience_id IS NOT NULL AND audience_id <> ''")
		} else {
			db = db.Where("audience_id IS NULL OR audience_id = ''")
		}
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)
	if orderBy == "" {
		orderBy = "id ASC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Tenant
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find tenants by filter: %w", err)
	}
	return rows, nil
}

func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ByUUID retrieves a tenant by its public UUID
func (r *TenantRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	rows, err := r.ByFilter(ctx, models.TenantFilter{UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListActive retrieves all active tenants in stable order
func (r *TenantRepositoryImpl) ListActive(ctx context.Context) ([]*models.Tenant, error) {
	active := true
	return r.ByFilter(ctx, models.TenantFilter{IsActive: &active}, "id ASC", 0, 0)
}
