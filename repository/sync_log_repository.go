package repository

import (
	"context"
	"fmt"

	"github.com/listflow/listflow/models"
	"gorm.io/gorm"
)

// SyncLogRepositoryImpl implements SyncLogRepository
type SyncLogRepositoryImpl struct {
	*BaseRepository[models.SyncLog, models.SyncLogFilter]
}

// NewSyncLogRepository creates a new sync log repository
func NewSyncLogRepository(db *gorm.DB) SyncLogRepository {
	return &SyncLogRepositoryImpl{BaseRepository: NewBaseRepository[models.SyncLog, models.SyncLogFilter](db)}
}

func (r *SyncLogRepositoryImpl) applyFilter(db *gorm.DB, f models.SyncLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.TenantID != nil {
		db = db.Where("tenant_id = ?", *f.TenantID)
	}
	if f.AudienceID != nil {
		db = db.Where("audience_id = ?", *f.AudienceID)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *SyncLogRepositoryImpl) ByFilter(ctx context.Context, filter models.SyncLogFilter, orderBy string, limit, offset int) ([]*models.SyncLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SyncLog{}), filter)
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

	var rows []*models.SyncLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find sync logs by filter: %w", err)
	}
	return rows, nil
}

func (r *SyncLogRepositoryImpl) Count(ctx context.Context, filter models.SyncLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.SyncLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SyncLogRepositoryImpl) Exists(ctx context.Context, filter models.SyncLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestByTenant returns the most recent sync run for a tenant
func (r *SyncLogRepositoryImpl) LatestByTenant(ctx context.Context, tenantID uint) (*models.SyncLog, error) {
	rows, err := r.ByFilter(ctx, models.SyncLogFilter{TenantID: &tenantID}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
