package repository

import (
	"context"
	"fmt"

	"github.com/listflow/listflow/models"
	"gorm.io/gorm"
)

// ProcessingLogRepositoryImpl implements ProcessingLogRepository
type ProcessingLogRepositoryImpl struct {
	*BaseRepository[models.ProcessingLog, models.ProcessingLogFilter]
}

// NewProcessingLogRepository creates a new processing log repository
func NewProcessingLogRepository(db *gorm.DB) ProcessingLogRepository {
	return &ProcessingLogRepositoryImpl{BaseRepository: NewBaseRepository[models.ProcessingLog, models.ProcessingLogFilter](db)}
}

func (r *ProcessingLogRepositoryImpl) applyFilter(db *gorm.DB, f models.ProcessingLogFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.TenantID != nil {
		db = db.Where("tenant_id = ?", *f.TenantID)
	}
	if f.SourceFile != nil {
		db = db.Where("source_file = ?", *f.SourceFile)
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

func (r *ProcessingLogRepositoryImpl) ByFilter(ctx context.Context, filter models.ProcessingLogFilter, orderBy string, limit, offset int) ([]*models.ProcessingLog, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProcessingLog{}), filter)
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

	var rows []*models.ProcessingLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find processing logs by filter: %w", err)
	}
	return rows, nil
}

func (r *ProcessingLogRepositoryImpl) Count(ctx context.Context, filter models.ProcessingLogFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ProcessingLog{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ProcessingLogRepositoryImpl) Exists(ctx context.Context, filter models.ProcessingLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestByTenant returns the most recent ingestion run for a tenant
func (r *ProcessingLogRepositoryImpl) LatestByTenant(ctx context.Context, tenantID uint) (*models.ProcessingLog, error) {
	rows, err := r.ByFilter(ctx, models.ProcessingLogFilter{TenantID: &tenantID}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
