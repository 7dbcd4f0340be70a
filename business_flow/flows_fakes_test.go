package businessflow

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/listflow/listflow/app/services"
	"github.com/listflow/listflow/models"
)

// In-memory repository fakes backing the flow tests. They implement the same
// lookup semantics as the postgres repositories: email and name comparisons
// case-insensitive, phone exact, oldest record wins on ties.

type memTenantRepo struct {
	tenants map[uint]*models.Tenant
}

func newMemTenantRepo(tenants ...*models.Tenant) *memTenantRepo {
	m := &memTenantRepo{tenants: make(map[uint]*models.Tenant)}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

func (r *memTenantRepo) ByID(_ context.Context, id uint) (*models.Tenant, error) {
	return r.tenants[id], nil
}

func (r *memTenantRepo) ByFilter(_ context.Context, _ models.TenantFilter, _ string, _, _ int) ([]*models.Tenant, error) {
	return nil, nil
}
func (r *memTenantRepo) Save(_ context.Context, t *models.Tenant) error {
	r.tenants[t.ID] = t
	return nil
}
func (r *memTenantRepo) SaveBatch(_ context.Context, _ []*models.Tenant) error { return nil }
func (r *memTenantRepo) Update(_ context.Context, t *models.Tenant) error {
	r.tenants[t.ID] = t
	return nil
}
func (r *memTenantRepo) Count(_ context.Context, _ models.TenantFilter) (int64, error) {
	return int64(len(r.tenants)), nil
}
func (r *memTenantRepo) Exists(_ context.Context, _ models.TenantFilter) (bool, error) {
	return len(r.tenants) > 0, nil
}
func (r *memTenantRepo) ByUUID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	for _, t := range r.tenants {
		if t.UUID == id {
			return t, nil
		}
	}
	return nil, nil
}
func (r *memTenantRepo) ListActive(_ context.Context) ([]*models.Tenant, error) {
	var out []*models.Tenant
	for _, t := range r.tenants {
		if t.IsActive == nil || *t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memIdentityRepo struct {
	records []*models.IdentityRecord
	nextID  uint

	saveErr   error
	updateErr error
}

func newMemIdentityRepo(records ...*models.IdentityRecord) *memIdentityRepo {
	r := &memIdentityRepo{nextID: 1}
	for _, rec := range records {
		cp := *rec
		if cp.ID == 0 {
			cp.ID = r.nextID
		}
		if cp.ID >= r.nextID {
			r.nextID = cp.ID + 1
		}
		r.records = append(r.records, &cp)
	}
	return r
}

func eqFold(a, b string) bool { return strings.EqualFold(a, b) }

func (r *memIdentityRepo) ByID(_ context.Context, id uint) (*models.IdentityRecord, error) {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) ByFilter(_ context.Context, _ models.IdentityRecordFilter, _ string, _, _ int) ([]*models.IdentityRecord, error) {
	return r.records, nil
}

func (r *memIdentityRepo) Save(_ context.Context, rec *models.IdentityRecord) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	rec.ID = r.nextID
	r.nextID++
	r.records = append(r.records, rec)
	return nil
}

func (r *memIdentityRepo) SaveBatch(ctx context.Context, recs []*models.IdentityRecord) error {
	for _, rec := range recs {
		if err := r.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *memIdentityRepo) Update(_ context.Context, rec *models.IdentityRecord) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i, existing := range r.records {
		if existing.ID == rec.ID {
			r.records[i] = rec
			return nil
		}
	}
	return nil
}

func (r *memIdentityRepo) Count(_ context.Context, _ models.IdentityRecordFilter) (int64, error) {
	return int64(len(r.records)), nil
}
func (r *memIdentityRepo) Exists(_ context.Context, _ models.IdentityRecordFilter) (bool, error) {
	return len(r.records) > 0, nil
}

func (r *memIdentityRepo) ByEmailAndName(_ context.Context, tenantID uint, email, firstName, lastName string) (*models.IdentityRecord, error) {
	for _, rec := range r.records {
		if rec.TenantID != tenantID || rec.Email == nil {
			continue
		}
		if eqFold(*rec.Email, email) && eqFold(rec.FirstName, firstName) && eqFold(rec.LastName, lastName) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) ByPhoneAndName(_ context.Context, tenantID uint, phone, firstName, lastName string) (*models.IdentityRecord, error) {
	for _, rec := range r.records {
		if rec.TenantID != tenantID || rec.Phone == nil {
			continue
		}
		if *rec.Phone == phone && eqFold(rec.FirstName, firstName) && eqFold(rec.LastName, lastName) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) ByEmail(_ context.Context, tenantID uint, email string) (*models.IdentityRecord, error) {
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Email != nil && eqFold(*rec.Email, email) {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) ByPhone(_ context.Context, tenantID uint, phone string) (*models.IdentityRecord, error) {
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Phone != nil && *rec.Phone == phone {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) ListEligible(_ context.Context, tenantID uint) ([]*models.IdentityRecord, error) {
	var out []*models.IdentityRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.RemainingDays > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memIdentityRepo) SaveBatchSkipConflicts(ctx context.Context, recs []*models.IdentityRecord) error {
	return r.SaveBatch(ctx, recs)
}

func (r *memIdentityRepo) DecrementRetention(_ context.Context) (int64, error) {
	var affected int64
	for _, rec := range r.records {
		if rec.RemainingDays > 0 {
			rec.RemainingDays--
			affected++
		}
	}
	return affected, nil
}

func (r *memIdentityRepo) DeleteExpired(_ context.Context) (int64, error) {
	var kept []*models.IdentityRecord
	var removed int64
	for _, rec := range r.records {
		if rec.RemainingDays <= 0 {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return removed, nil
}

func (r *memIdentityRepo) Delete(_ context.Context, rec *models.IdentityRecord) error {
	for i, existing := range r.records {
		if existing.ID == rec.ID {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return nil
}

type memProcessingLogRepo struct {
	logs   []*models.ProcessingLog
	nextID uint
}

func newMemProcessingLogRepo() *memProcessingLogRepo {
	return &memProcessingLogRepo{nextID: 1}
}

func (r *memProcessingLogRepo) ByID(_ context.Context, id uint) (*models.ProcessingLog, error) {
	for _, l := range r.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}
func (r *memProcessingLogRepo) ByFilter(_ context.Context, _ models.ProcessingLogFilter, _ string, _, _ int) ([]*models.ProcessingLog, error) {
	return r.logs, nil
}
func (r *memProcessingLogRepo) Save(_ context.Context, l *models.ProcessingLog) error {
	l.ID = r.nextID
	r.nextID++
	r.logs = append(r.logs, l)
	return nil
}
func (r *memProcessingLogRepo) SaveBatch(ctx context.Context, ls []*models.ProcessingLog) error {
	for _, l := range ls {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
func (r *memProcessingLogRepo) Update(_ context.Context, l *models.ProcessingLog) error {
	for i, existing := range r.logs {
		if existing.ID == l.ID {
			r.logs[i] = l
		}
	}
	return nil
}
func (r *memProcessingLogRepo) Count(_ context.Context, _ models.ProcessingLogFilter) (int64, error) {
	return int64(len(r.logs)), nil
}
func (r *memProcessingLogRepo) Exists(_ context.Context, _ models.ProcessingLogFilter) (bool, error) {
	return len(r.logs) > 0, nil
}
func (r *memProcessingLogRepo) LatestByTenant(_ context.Context, tenantID uint) (*models.ProcessingLog, error) {
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].TenantID == tenantID {
			return r.logs[i], nil
		}
	}
	return nil, nil
}

type memSyncLogRepo struct {
	logs   []*models.SyncLog
	nextID uint
}

func newMemSyncLogRepo() *memSyncLogRepo {
	return &memSyncLogRepo{nextID: 1}
}

func (r *memSyncLogRepo) ByID(_ context.Context, id uint) (*models.SyncLog, error) {
	for _, l := range r.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}
func (r *memSyncLogRepo) ByFilter(_ context.Context, _ models.SyncLogFilter, _ string, _, _ int) ([]*models.SyncLog, error) {
	return r.logs, nil
}
func (r *memSyncLogRepo) Save(_ context.Context, l *models.SyncLog) error {
	l.ID = r.nextID
	r.nextID++
	r.logs = append(r.logs, l)
	return nil
}
func (r *memSyncLogRepo) SaveBatch(ctx context.Context, ls []*models.SyncLog) error {
	for _, l := range ls {
		if err := r.Save(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
func (r *memSyncLogRepo) Update(_ context.Context, l *models.SyncLog) error {
	for i, existing := range r.logs {
		if existing.ID == l.ID {
			r.logs[i] = l
		}
	}
	return nil
}
func (r *memSyncLogRepo) Count(_ context.Context, _ models.SyncLogFilter) (int64, error) {
	return int64(len(r.logs)), nil
}
func (r *memSyncLogRepo) Exists(_ context.Context, _ models.SyncLogFilter) (bool, error) {
	return len(r.logs) > 0, nil
}
func (r *memSyncLogRepo) LatestByTenant(_ context.Context, tenantID uint) (*models.SyncLog, error) {
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].TenantID == tenantID {
			return r.logs[i], nil
		}
	}
	return nil, nil
}

// fakeAudienceClient records calls and plays back scripted per-call errors.
type fakeAudienceClient struct {
	uploads [][]services.SyncRecord
	removes [][]services.SyncRecord

	// uploadErrs[i] is returned by the i-th UploadBatch call; nil past the end.
	uploadErrs []error
	removeErr  error
}

func (c *fakeAudienceClient) UploadBatch(_ context.Context, _, _ string, records []services.SyncRecord) error {
	call := len(c.uploads)
	c.uploads = append(c.uploads, records)
	if call < len(c.uploadErrs) {
		return c.uploadErrs[call]
	}
	return nil
}

func (c *fakeAudienceClient) RemoveBatch(_ context.Context, _, _ string, records []services.SyncRecord) error {
	c.removes = append(c.removes, records)
	return c.removeErr
}

// fakeVault passes credentials through unchanged.
type fakeVault struct{}

func (fakeVault) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (fakeVault) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
