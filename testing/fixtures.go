// Package testing provides test utilities and database setup for testing the contact pipeline
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates a tenant with an audience configured so it is sync-eligible
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	suffix := rand.Intn(1000000)

	tenant := &models.Tenant{
		UUID:                   uuid.New(),
		Name:                   fmt.Sprintf("Acme Retail %d", suffix),
		AudienceID:             utils.ToPtr(fmt.Sprintf("aud-%d", suffix)),
		SourceDir:              fmt.Sprintf("drops/acme-%d", suffix),
		SourceCredentialCipher: utils.ToPtr("deadbeef:deadbeef:deadbeef"),
		CredentialCipher:       utils.ToPtr("deadbeef:deadbeef:deadbeef"),
		IsActive:               utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(tenant).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestTenantWithoutAudience creates a tenant that ingests but never syncs
func (tf *TestFixtures) CreateTestTenantWithoutAudience() (*models.Tenant, error) {
	suffix := rand.Intn(1000000)

	tenant := &models.Tenant{
		UUID:      uuid.New(),
		Name:      fmt.Sprintf("Local Only %d", suffix),
		SourceDir: fmt.Sprintf("drops/local-%d", suffix),
		IsActive:  utils.ToPtr(true),
	}

	err := tf.DB.DB.Create(tenant).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}

	return tenant, nil
}

// CreateTestIdentityRecord creates an active identity record with a unique email and phone
func (tf *TestFixtures) CreateTestIdentityRecord(tenantID uint) (*models.IdentityRecord, error) {
	suffix := rand.Intn(1000000)

	record := &models.IdentityRecord{
		UUID:          uuid.New(),
		TenantID:      tenantID,
		Email:         utils.ToPtr(fmt.Sprintf("contact.%d@example.com", suffix)),
		Phone:         utils.ToPtr(fmt.Sprintf("1555%07d", suffix)),
		FirstName:     "John",
		LastName:      "Doe",
		Status:        models.IdentityStatusActive,
		RemainingDays: utils.DefaultRetentionDays,
		DateAdded:     utils.UTCNow(),
		SourceFile:    "contacts.csv",
	}

	err := tf.DB.DB.Create(record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create test identity record: %w", err)
	}

	return record, nil
}

// CreateExpiredIdentityRecord creates a record whose retention has run out
func (tf *TestFixtures) CreateExpiredIdentityRecord(tenantID uint) (*models.IdentityRecord, error) {
	suffix := rand.Intn(1000000)

	record := &models.IdentityRecord{
		UUID:          uuid.New(),
		TenantID:      tenantID,
		Email:         utils.ToPtr(fmt.Sprintf("expired.%d@example.com", suffix)),
		FirstName:     "Jane",
		LastName:      "Doe",
		Status:        models.IdentityStatusActive,
		RemainingDays: 0,
		DateAdded:     utils.UTCNowAdd(-30 * 24 * time.Hour),
		SourceFile:    "contacts.csv",
	}

	err := tf.DB.DB.Create(record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create expired identity record: %w", err)
	}

	return record, nil
}

// CreateMultipleTestRecords creates several identity records for one tenant
func (tf *TestFixtures) CreateMultipleTestRecords(tenantID uint, count int) ([]*models.IdentityRecord, error) {
	var records []*models.IdentityRecord
	for i := 0; i < count; i++ {
		record, err := tf.CreateTestIdentityRecord(tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to create record %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}
