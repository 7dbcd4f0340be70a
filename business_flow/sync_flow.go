package businessflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/listflow/listflow/app/services"
	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/repository"
	"github.com/listflow/listflow/utils"
)

// SyncFlow pushes a tenant's eligible identity records to the tenant's remote
// audience and removes expired ones from it.
type SyncFlow interface {
	Sync(ctx context.Context, tenant *models.Tenant, records []*models.IdentityRecord) (*SyncResult, error)
	Remove(ctx context.Context, tenant *models.Tenant, records []*models.IdentityRecord) error
}

// SyncFlowImpl implements the audience sync engine
type SyncFlowImpl struct {
	client      services.AudienceClient
	vault       services.CredentialVault
	syncLogRepo repository.SyncLogRepository
	batchSize   int
	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)
}

// NewSyncFlow creates a new sync flow instance
func NewSyncFlow(client services.AudienceClient, vault services.CredentialVault, syncLogRepo repository.SyncLogRepository) *SyncFlowImpl {
	return &SyncFlowImpl{
		client:      client,
		vault:       vault,
		syncLogRepo: syncLogRepo,
		batchSize:   utils.SyncBatchSize,
		maxAttempts: utils.SyncMaxAttempts,
		backoffBase: utils.SyncBackoffBase,
		sleep:       time.Sleep,
	}
}

// Sync uploads the records in fixed-size batches, retrying throttled batches
// with a doubling backoff. Exhausting the retries, or any non-throttling
// platform error, aborts the run with the remaining batches unsent; batches
// already uploaded stay uploaded.
func (f *SyncFlowImpl) Sync(ctx context.Context, tenant *models.Tenant, records []*models.IdentityRecord) (*SyncResult, error) {
	if !tenant.CanSync() {
		return nil, NewBusinessError("AUDIENCE_NOT_CONFIGURED", fmt.Sprintf("Tenant %d has no audience configured", tenant.ID), ErrAudienceNotConfigured)
	}

	accessToken, err := f.accessToken(tenant)
	if err != nil {
		return nil, err
	}

	syncRecords := BuildSyncRecords(records)

	slog := &models.SyncLog{
		TenantID:     tenant.ID,
		AudienceID:   *tenant.AudienceID,
		TotalRecords: len(syncRecords),
		Status:       models.SyncStatusProcessing,
		CreatedAt:    utils.UTCNow(),
	}
	if err := f.syncLogRepo.Save(ctx, slog); err != nil {
		return nil, NewBusinessError("SYNC_LOG_FAILED", "Failed to open sync log", err)
	}

	result := &SyncResult{Total: len(syncRecords)}
	runErr := f.pushBatches(ctx, accessToken, *tenant.AudienceID, syncRecords, result)

	f.finalizeLog(ctx, slog, result, runErr)

	if runErr != nil {
		return result, NewBusinessError("SYNC_ABORTED", fmt.Sprintf("Sync aborted: %s", services.ErrorMessage(runErr)), fmt.Errorf("%w: %w", ErrSyncAborted, runErr))
	}
	return result, nil
}

func (f *SyncFlowImpl) pushBatches(ctx context.Context, accessToken, audienceID string, records []services.SyncRecord, result *SyncResult) error {
	for start := 0; start < len(records); start += f.batchSize {
		end := min(start+f.batchSize, len(records))
		batch := records[start:end]

		if err := f.uploadWithRetry(ctx, accessToken, audienceID, batch); err != nil {
			result.Failed += len(records) - start
			return err
		}
		result.Uploaded += len(batch)
	}
	return nil
}

func (f *SyncFlowImpl) uploadWithRetry(ctx context.Context, accessToken, audienceID string, batch []services.SyncRecord) error {
	var err error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		err = f.client.UploadBatch(ctx, accessToken, audienceID, batch)
		if err == nil || !services.IsRateLimited(err) {
			return err
		}
		if attempt < f.maxAttempts {
			f.sleep(f.backoffBase << (attempt - 1))
		}
	}
	return err
}

// Remove deletes the records from the remote audience. Remote failures are
// reported but never block local expiry.
func (f *SyncFlowImpl) Remove(ctx context.Context, tenant *models.Tenant, records []*models.IdentityRecord) error {
	if !tenant.CanSync() {
		return NewBusinessError("AUDIENCE_NOT_CONFIGURED", fmt.Sprintf("Tenant %d has no audience configured", tenant.ID), ErrAudienceNotConfigured)
	}

	accessToken, err := f.accessToken(tenant)
	if err != nil {
		return err
	}

	syncRecords := BuildSyncRecords(records)
	for start := 0; start < len(syncRecords); start += f.batchSize {
		end := min(start+f.batchSize, len(syncRecords))
		if err := f.client.RemoveBatch(ctx, accessToken, *tenant.AudienceID, syncRecords[start:end]); err != nil {
			return NewBusinessError("AUDIENCE_REMOVE_FAILED", fmt.Sprintf("Failed to remove records from audience: %s", services.ErrorMessage(err)), err)
		}
	}
	return nil
}

func (f *SyncFlowImpl) accessToken(tenant *models.Tenant) (string, error) {
	if tenant.CredentialCipher == nil || *tenant.CredentialCipher == "" {
		return "", NewBusinessError("CREDENTIALS_MISSING", fmt.Sprintf("Tenant %d has no stored credentials", tenant.ID), ErrAudienceNotConfigured)
	}
	token, err := f.vault.Decrypt(*tenant.CredentialCipher)
	if err != nil {
		return "", NewBusinessError("CREDENTIALS_DECRYPT_FAILED", "Failed to decrypt tenant credentials", err)
	}
	return token, nil
}

func (f *SyncFlowImpl) finalizeLog(ctx context.Context, slog *models.SyncLog, result *SyncResult, runErr error) {
	slog.Succeeded = result.Uploaded
	slog.Failed = result.Failed
	slog.FinishedAt = utils.UTCNowPtr()

	if runErr != nil {
		slog.Status = models.SyncStatusFailed
		slog.ErrorMessage = utils.ToPtr(services.ErrorMessage(runErr))
	} else {
		slog.Status = models.SyncStatusCompleted
	}

	_ = f.syncLogRepo.Update(ctx, slog)
}

// BuildSyncRecords converts identity records to hashed wire form. Records
// without any identifier are excluded; they cannot be matched by the platform.
func BuildSyncRecords(records []*models.IdentityRecord) []services.SyncRecord {
	out := make([]services.SyncRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasIdentifier() {
			continue
		}
		sr := services.SyncRecord{
			FirstNameHash: hashField(rec.FirstName),
			LastNameHash:  hashField(rec.LastName),
		}
		if rec.Email != nil {
			sr.EmailHash = hashField(*rec.Email)
		}
		if rec.Phone != nil {
			sr.PhoneHash = hashField(*rec.Phone)
		}
		out = append(out, sr)
	}
	return out
}

// hashField lowercases and trims the value before hashing, per the platform's
// normalization rules. Empty values stay empty instead of hashing "".
func hashField(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
