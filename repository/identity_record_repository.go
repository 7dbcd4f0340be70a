package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/listflow/listflow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdentityRecordRepositoryImpl implements IdentityRecordRepository
type IdentityRecordRepositoryImpl struct {
	*BaseRepository[models.IdentityRecord, models.IdentityRecordFilter]
}

// NewIdentityRecordRepository creates a new identity record repository
func NewIdentityRecordRepository(db *gorm.DB) IdentityRecordRepository {
	return &IdentityRecordRepositoryImpl{BaseRepository: NewBaseRepository[models.IdentityRecord, models.IdentityRecordFilter](db)}
}

func (r *IdentityRecordRepositoryImpl) applyFilter(db *gorm.DB, f models.IdentityRecordFilter) *gorm.DB {
	if f.ID != nil {
		db = db.Where("id = ?", *f.ID)
	}
	if f.UUID != nil {
		db = db.Where("uuid = ?", *f.UUID)
	}
	if f.TenantID != nil {
		db = db.Where("tenant_id = ?", *f.TenantID)
	}
	if f.Email != nil {
		db = db.Where("LOWER(email) = LOWER(?)", *f.Email)
	}
	if f.Phone != nil {
		db = db.Where("phone = ?", *f.Phone)
	}
	if f.Status != nil {
		db = db.Where("status = ?", *f.Status)
	}
	if f.Eligible != nil {
		if *f.Eligible {
			db = db.Where("remaining_days > 0")
		} else {
			db = db.Where("remaining_days <= 0")
		}
	}
	if f.AddedAfter != nil {
		db = db.Where("date_added >= ?", *f.AddedAfter)
	}
	if f.AddedBefore != nil {
		db = db.Where("date_added < ?", *f.AddedBefore)
	}
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at < ?", *f.CreatedBefore)
	}
	return db
}

func (r *IdentityRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.IdentityRecordFilter, orderBy string, limit, offset int) ([]*models.IdentityRecord, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.IdentityRecord{}), filter)
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

	var rows []*models.IdentityRecord
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find identity records by filter: %w", err)
	}
	return rows, nil
}

func (r *IdentityRecordRepositoryImpl) Count(ctx context.Context, filter models.IdentityRecordFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.IdentityRecord{}), filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *IdentityRecordRepositoryImpl) Exists(ctx context.Context, filter models.IdentityRecordFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *IdentityRecordRepositoryImpl) first(ctx context.Context, conds func(*gorm.DB) *gorm.DB) (*models.IdentityRecord, error) {
	db := r.getDB(ctx)
	var rec models.IdentityRecord
	err := conds(db.Model(&models.IdentityRecord{})).Order("id ASC").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find identity record: %w", err)
	}
	return &rec, nil
}

// ByEmailAndName finds a record matching email and both name fields, all compared
// case-insensitively. Ties break on the oldest record.
func (r *IdentityRecordRepositoryImpl) ByEmailAndName(ctx context.Context, tenantID uint, email, firstName, lastName string) (*models.IdentityRecord, error) {
	return r.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID).
			Where("LOWER(email) = LOWER(?)", email).
			Where("LOWER(first_name) = LOWER(?)", firstName).
			Where("LOWER(last_name) = LOWER(?)", lastName)
	})
}

// ByPhoneAndName finds a record matching exact phone and case-insensitive names.
func (r *IdentityRecordRepositoryImpl) ByPhoneAndName(ctx context.Context, tenantID uint, phone, firstName, lastName string) (*models.IdentityRecord, error) {
	return r.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID).
			Where("phone = ?", phone).
			Where("LOWER(first_name) = LOWER(?)", firstName).
			Where("LOWER(last_name) = LOWER(?)", lastName)
	})
}

// ByEmail finds a record by email alone (match-append fallback).
func (r *IdentityRecordRepositoryImpl) ByEmail(ctx context.Context, tenantID uint, email string) (*models.IdentityRecord, error) {
	return r.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID).Where("LOWER(email) = LOWER(?)", email)
	})
}

// ByPhone finds a record by phone alone (match-append fallback).
func (r *IdentityRecordRepositoryImpl) ByPhone(ctx context.Context, tenantID uint, phone string) (*models.IdentityRecord, error) {
	return r.first(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID).Where("phone = ?", phone)
	})
}

// ListEligible returns all retention-eligible records for a tenant in insertion order.
func (r *IdentityRecordRepositoryImpl) ListEligible(ctx context.Context, tenantID uint) ([]*models.IdentityRecord, error) {
	eligible := true
	return r.ByFilter(ctx, models.IdentityRecordFilter{TenantID: &tenantID, Eligible: &eligible}, "id ASC", 0, 0)
}

// SaveBatchSkipConflicts bulk-inserts records, skipping rows that collide with the
// composite contact unique constraint. The match pass already filtered true
// duplicates; the constraint skip only guards against races between runs.
func (r *IdentityRecordRepositoryImpl) SaveBatchSkipConflicts(ctx context.Context, records []*models.IdentityRecord) error {
	if len(records) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(records, 100).Error
	if err != nil {
		return fmt.Errorf("failed to bulk insert identity records: %w", err)
	}

	return nil
}

// DecrementRetention decrements remaining_days for every record still above zero.
// Records already at or below zero are left for DeleteExpired.
func (r *IdentityRecordRepositoryImpl) DecrementRetention(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.IdentityRecord{}).
		Where("remaining_days > 0").
		UpdateColumn("remaining_days", gorm.Expr("remaining_days - 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decrement retention: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteExpired removes every record whose retention has run out.
func (r *IdentityRecordRepositoryImpl) DeleteExpired(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("remaining_days <= 0").Delete(&models.IdentityRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired identity records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a single identity record.
func (r *IdentityRecordRepositoryImpl) Delete(ctx context.Context, record *models.IdentityRecord) error {
	db := r.getDB(ctx)
	if err := db.Delete(record).Error; err != nil {
		return fmt.Errorf("failed to delete identity record %d: %w", record.ID, err)
	}
	return nil
}
