package businessflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/repository"
	"github.com/listflow/listflow/utils"
	"gorm.io/gorm"
)

// IngestionFlow handles reconciliation of normalized contacts against the
// persisted identity population of one tenant.
type IngestionFlow interface {
	Reconcile(ctx context.Context, contacts []Contact, tenantID uint, sourceFile string, mode IngestionMode) (*ProcessingResult, error)
}

// IngestionConfig tunes the reconciliation strategy.
type IngestionConfig struct {
	// OverwriteOnMatch selects the bulk-ingestion update policy: true treats the
	// incoming file as authoritative and overwrites matched records
	// unconditionally (resetting retention); false applies a field-level diff
	// and skips identical rows. Match-append always diffs.
	OverwriteOnMatch bool

	// BulkThreshold is the contact count at which the two-phase batched strategy
	// replaces row-by-row commits.
	BulkThreshold int

	// UpdateChunkSize bounds records per update transaction in the batched path.
	UpdateChunkSize int

	// RetentionDays is the remaining-days value assigned on enrollment and
	// re-enrollment.
	RetentionDays int
}

func (c IngestionConfig) withDefaults() IngestionConfig {
	if c.BulkThreshold <= 0 {
		c.BulkThreshold = utils.BulkIngestThreshold
	}
	if c.UpdateChunkSize <= 0 {
		c.UpdateChunkSize = utils.UpdateChunkSize
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = utils.DefaultRetentionDays
	}
	return c
}

// IngestionFlowImpl implements the reconciliation engine
type IngestionFlowImpl struct {
	tenantRepo   repository.TenantRepository
	identityRepo repository.IdentityRecordRepository
	plogRepo     repository.ProcessingLogRepository
	matcher      Matcher
	cfg          IngestionConfig
	withTx       func(ctx context.Context, fn func(context.Context) error) error
}

// NewIngestionFlow creates a new ingestion flow instance
func NewIngestionFlow(
	tenantRepo repository.TenantRepository,
	identityRepo repository.IdentityRecordRepository,
	plogRepo repository.ProcessingLogRepository,
	matcher Matcher,
	db *gorm.DB,
	cfg IngestionConfig,
) IngestionFlow {
	return &IngestionFlowImpl{
		tenantRepo:   tenantRepo,
		identityRepo: identityRepo,
		plogRepo:     plogRepo,
		matcher:      matcher,
		cfg:          cfg.withDefaults(),
		withTx: func(ctx context.Context, fn func(context.Context) error) error {
			return repository.WithTransaction(ctx, db, fn)
		},
	}
}

// Reconcile matches every contact against the tenant's persisted population and
// persists create/update decisions. Row-level failures are accumulated, never
// fatal; the run always finalizes its processing log exactly once.
func (f *IngestionFlowImpl) Reconcile(ctx context.Context, contacts []Contact, tenantID uint, sourceFile string, mode IngestionMode) (*ProcessingResult, error) {
	tenant, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", fmt.Sprintf("Tenant %d not found", tenantID), ErrTenantNotFound)
	}

	plog := &models.ProcessingLog{
		TenantID:   tenant.ID,
		SourceFile: sourceFile,
		Status:     models.ProcessingStatusProcessing,
		CreatedAt:  utils.UTCNow(),
	}
	if err := f.plogRepo.Save(ctx, plog); err != nil {
		return nil, NewBusinessError("PROCESSING_LOG_FAILED", "Failed to open processing log", err)
	}

	result := &ProcessingResult{Total: len(contacts)}

	var runErr error
	if len(contacts) < f.cfg.BulkThreshold {
		runErr = f.reconcileSequential(ctx, contacts, tenant, sourceFile, mode, result)
	} else {
		runErr = f.reconcileBatched(ctx, contacts, tenant, sourceFile, mode, result)
	}

	f.finalizeLog(ctx, plog, result, runErr)

	if runErr != nil {
		return result, NewBusinessError("RECONCILIATION_FAILED", "Reconciliation run failed", runErr)
	}
	return result, nil
}

// reconcileSequential commits each row fully before the next. Used below the
// bulk threshold where simplicity beats throughput.
func (f *IngestionFlowImpl) reconcileSequential(ctx context.Context, contacts []Contact, tenant *models.Tenant, sourceFile string, mode IngestionMode, result *ProcessingResult) error {
	for i, contact := range contacts {
		if err := f.reconcileOne(ctx, contact, tenant, sourceFile, mode, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return nil
}

func (f *IngestionFlowImpl) reconcileOne(ctx context.Context, contact Contact, tenant *models.Tenant, sourceFile string, mode IngestionMode, result *ProcessingResult) error {
	match, err := f.matcher.FindMatch(ctx, contact, tenant.ID, mode)
	if err != nil {
		return err
	}

	if !match.Matched() {
		rec := f.newIdentityRecord(tenant.ID, contact, sourceFile)
		if err := f.identityRepo.Save(ctx, rec); err != nil {
			return err
		}
		f.countCreate(rec, result)
		return nil
	}

	changed := f.applyContact(match.Record, contact, mode)
	if !changed {
		result.Skipped++
		return nil
	}
	if err := f.identityRepo.Update(ctx, match.Record); err != nil {
		return err
	}
	result.Updated++
	return nil
}

// reconcileBatched is the two-phase strategy for large files: resolve every
// match first, then bulk-insert the new set and apply updates in bounded
// transactions. Produces the same logical result as the sequential path.
func (f *IngestionFlowImpl) reconcileBatched(ctx context.Context, contacts []Contact, tenant *models.Tenant, sourceFile string, mode IngestionMode, result *ProcessingResult) error {
	type updateOp struct {
		row    int
		record *models.IdentityRecord
	}

	var creates []*models.IdentityRecord
	var updates []updateOp

	// Phase one: read-only match resolution, preserving input order for error
	// attribution. Rows in the same file are deliberately not matched against
	// each other, only against persisted state.
	for i, contact := range contacts {
		match, err := f.matcher.FindMatch(ctx, contact, tenant.ID, mode)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}

		if !match.Matched() {
			rec := f.newIdentityRecord(tenant.ID, contact, sourceFile)
			creates = append(creates, rec)
			f.countCreate(rec, result)
			continue
		}

		if f.applyContact(match.Record, contact, mode) {
			updates = append(updates, updateOp{row: i + 1, record: match.Record})
		} else {
			result.Skipped++
		}
	}

	// Phase two: bulk insert with the unique-constraint defensive skip.
	if err := f.identityRepo.SaveBatchSkipConflicts(ctx, creates); err != nil {
		return fmt.Errorf("bulk insert failed: %w", err)
	}

	// Updates in fixed-size transactions to bound lock duration.
	for start := 0; start < len(updates); start += f.cfg.UpdateChunkSize {
		end := min(start+f.cfg.UpdateChunkSize, len(updates))
		chunk := updates[start:end]

		err := f.withTx(ctx, func(txCtx context.Context) error {
			for _, op := range chunk {
				if err := f.identityRepo.Update(txCtx, op.record); err != nil {
					return fmt.Errorf("Row %d: %w", op.row, err)
				}
			}
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Updated += len(chunk)
	}

	return nil
}

func (f *IngestionFlowImpl) newIdentityRecord(tenantID uint, contact Contact, sourceFile string) *models.IdentityRecord {
	now := utils.UTCNow()
	rec := &models.IdentityRecord{
		UUID:          uuid.New(),
		TenantID:      tenantID,
		FirstName:     contact.FirstName,
		LastName:      contact.LastName,
		RemainingDays: f.cfg.RetentionDays,
		DateAdded:     now,
		SourceFile:    sourceFile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if contact.Email != "" {
		rec.Email = utils.ToPtr(contact.Email)
	}
	if contact.Phone != "" {
		rec.Phone = utils.ToPtr(contact.Phone)
	}
	rec.Status = rec.DeriveStatus()
	return rec
}

func (f *IngestionFlowImpl) countCreate(rec *models.IdentityRecord, result *ProcessingResult) {
	if rec.HasIdentifier() {
		result.Created++
	} else {
		result.NoIdentifier++
	}
}

// applyContact mutates the matched record according to the mode's update policy
// and reports whether anything changed. The re-enrollment invariant holds in
// every path: a record gaining its first identifier gets an active status, a
// fresh retention counter, and a refreshed enrollment date.
func (f *IngestionFlowImpl) applyContact(rec *models.IdentityRecord, contact Contact, mode IngestionMode) bool {
	hadIdentifier := rec.HasIdentifier()
	changed := false

	overwrite := mode == IngestionModeAppend && f.cfg.OverwriteOnMatch
	if overwrite {
		// File is authoritative: replace every mutable field, clearing absent
		// ones, and reset retention regardless of the diff.
		changed = setOptional(&rec.Email, contact.Email) || changed
		changed = setOptional(&rec.Phone, contact.Phone) || changed
		changed = setString(&rec.FirstName, contact.FirstName) || changed
		changed = setString(&rec.LastName, contact.LastName) || changed
		rec.RemainingDays = f.cfg.RetentionDays
		changed = true
	} else {
		// Field-level diff: only non-empty incoming fields are applied, and
		// identical rows are skipped.
		if contact.Email != "" && (rec.Email == nil || *rec.Email != contact.Email) {
			rec.Email = utils.ToPtr(contact.Email)
			changed = true
		}
		if contact.Phone != "" && (rec.Phone == nil || *rec.Phone != contact.Phone) {
			rec.Phone = utils.ToPtr(contact.Phone)
			changed = true
		}
		changed = setString(&rec.FirstName, contact.FirstName) || changed
		changed = setString(&rec.LastName, contact.LastName) || changed
	}

	rec.Status = rec.DeriveStatus()

	if !hadIdentifier && rec.HasIdentifier() {
		// Re-enrollment: the record just became reachable again.
		rec.RemainingDays = f.cfg.RetentionDays
		rec.DateAdded = utils.UTCNow()
		changed = true
	}

	if changed {
		rec.UpdatedAt = utils.UTCNow()
	}
	return changed
}

func setOptional(dst **string, val string) bool {
	if val == "" {
		if *dst != nil {
			*dst = nil
			return true
		}
		return false
	}
	if *dst == nil || **dst != val {
		*dst = utils.ToPtr(val)
		return true
	}
	return false
}

func setString(dst *string, val string) bool {
	if val != "" && *dst != val {
		*dst = val
		return true
	}
	return false
}

func (f *IngestionFlowImpl) finalizeLog(ctx context.Context, plog *models.ProcessingLog, result *ProcessingResult, runErr error) {
	plog.TotalRecords = result.Total
	plog.Created = result.Created
	plog.Updated = result.Updated
	plog.Skipped = result.Skipped
	plog.NoIdentifier = result.NoIdentifier
	plog.RowErrors = result.Errors
	plog.FinishedAt = utils.UTCNowPtr()

	if runErr != nil {
		plog.Status = models.ProcessingStatusFailed
		plog.ErrorMessage = utils.ToPtr(runErr.Error())
	} else {
		plog.Status = models.ProcessingStatusCompleted
	}

	// A log finalization failure must not mask the run outcome.
	_ = f.plogRepo.Update(ctx, plog)
}
