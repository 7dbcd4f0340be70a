// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/listflow/listflow/models"
	testingutil "github.com/listflow/listflow/testing"
	"github.com/listflow/listflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenant(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("TableName", func(t *testing.T) {
			tenant := &models.Tenant{}
			assert.Equal(t, "tenants", tenant.TableName())
		})

		t.Run("CreateTenant", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			assert.NotZero(t, tenant.ID)
			assert.True(t, utils.IsTrue(tenant.IsActive))
			assert.NotNil(t, tenant.AudienceID)
		})

		t.Run("CanSync", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			assert.True(t, tenant.CanSync())

			local, err := fixtures.CreateTestTenantWithoutAudience()
			require.NoError(t, err)
			assert.False(t, local.CanSync())

			empty := &models.Tenant{AudienceID: utils.ToPtr("")}
			assert.False(t, empty.CanSync())
		})

		t.Run("UniqueUUID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			dup := &models.Tenant{
				UUID:      tenant.UUID,
				Name:      "Duplicate",
				SourceDir: "drops/dup",
				IsActive:  utils.ToPtr(true),
			}
			err = testDB.DB.Create(dup).Error
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestIdentityRecord(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		t.Run("TableName", func(t *testing.T) {
			record := &models.IdentityRecord{}
			assert.Equal(t, "identity_records", record.TableName())
		})

		t.Run("CreateRecord", func(t *testing.T) {
			record, err := fixtures.CreateTestIdentityRecord(tenant.ID)
			require.NoError(t, err)
			assert.NotZero(t, record.ID)
			assert.Equal(t, models.IdentityStatusActive, record.Status)
			assert.Equal(t, utils.DefaultRetentionDays, record.RemainingDays)
		})

		t.Run("HasIdentifier", func(t *testing.T) {
			record := &models.IdentityRecord{Email: utils.ToPtr("a@example.com")}
			assert.True(t, record.HasIdentifier())

			record = &models.IdentityRecord{Phone: utils.ToPtr("15551234567")}
			assert.True(t, record.HasIdentifier())

			record = &models.IdentityRecord{FirstName: "John", LastName: "Doe"}
			assert.False(t, record.HasIdentifier())

			record = &models.IdentityRecord{Email: utils.ToPtr(""), Phone: utils.ToPtr("")}
			assert.False(t, record.HasIdentifier())
		})

		t.Run("DeriveStatus", func(t *testing.T) {
			record := &models.IdentityRecord{Email: utils.ToPtr("a@example.com")}
			assert.Equal(t, models.IdentityStatusActive, record.DeriveStatus())

			record = &models.IdentityRecord{FirstName: "John", LastName: "Doe"}
			assert.Equal(t, models.IdentityStatusNoIdentifier, record.DeriveStatus())
		})

		t.Run("DuplicateContactRejected", func(t *testing.T) {
			record, err := fixtures.CreateTestIdentityRecord(tenant.ID)
			require.NoError(t, err)

			dup := &models.IdentityRecord{
				UUID:          uuid.New(),
				TenantID:      record.TenantID,
				Email:         record.Email,
				Phone:         record.Phone,
				FirstName:     record.FirstName,
				LastName:      record.LastName,
				Status:        models.IdentityStatusActive,
				RemainingDays: utils.DefaultRetentionDays,
				DateAdded:     utils.UTCNow(),
			}
			err = testDB.DB.Create(dup).Error
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestProcessingLog(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		t.Run("TableName", func(t *testing.T) {
			plog := &models.ProcessingLog{}
			assert.Equal(t, "processing_logs", plog.TableName())
		})

		t.Run("RowErrorsRoundTrip", func(t *testing.T) {
			plog := &models.ProcessingLog{
				TenantID:     tenant.ID,
				SourceFile:   "contacts.csv",
				TotalRecords: 3,
				Created:      2,
				RowErrors:    []string{"Row 1: match failed", "Row 2: save failed"},
				Status:       models.ProcessingStatusCompleted,
				FinishedAt:   utils.UTCNowPtr(),
			}
			require.NoError(t, testDB.DB.Create(plog).Error)

			var loaded models.ProcessingLog
			require.NoError(t, testDB.DB.First(&loaded, plog.ID).Error)
			assert.Len(t, loaded.RowErrors, 2)
			assert.Equal(t, "Row 1: match failed", loaded.RowErrors[0])
			assert.NotNil(t, loaded.FinishedAt)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSyncLog(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		t.Run("TableName", func(t *testing.T) {
			slog := &models.SyncLog{}
			assert.Equal(t, "sync_logs", slog.TableName())
		})

		t.Run("CreateSyncLog", func(t *testing.T) {
			slog := &models.SyncLog{
				TenantID:     tenant.ID,
				AudienceID:   *tenant.AudienceID,
				TotalRecords: 10,
				Succeeded:    8,
				Failed:       2,
				Status:       models.SyncStatusCompleted,
				FinishedAt:   utils.UTCNowPtr(),
			}
			require.NoError(t, testDB.DB.Create(slog).Error)
			assert.NotZero(t, slog.ID)
		})

		return nil
	})
	require.NoError(t, err)
}
