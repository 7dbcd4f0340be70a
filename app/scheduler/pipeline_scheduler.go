// Package scheduler
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/listflow/listflow/app/services"
	businessflow "github.com/listflow/listflow/business_flow"
	"github.com/listflow/listflow/config"
	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/repository"
	"github.com/listflow/listflow/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
)

// PipelineScheduler periodically runs the full contact pipeline: retention
// lifecycle first, then per-tenant ingestion and audience sync.
type PipelineScheduler struct {
	tenantRepo   repository.TenantRepository
	identityRepo repository.IdentityRecordRepository
	ingestion    businessflow.IngestionFlow
	retention    businessflow.RetentionFlow
	sync         businessflow.SyncFlow
	fileSource   services.FileSourceClient
	vault        services.CredentialVault

	rc       *redis.Client
	cacheCfg config.CacheConfig

	logger   *log.Logger
	interval time.Duration

	logFile io.WriteCloser
}

// TenantOutcome captures one tenant's result within a run.
type TenantOutcome struct {
	TenantID uint                           `json:"tenant_id"`
	Name     string                         `json:"name"`
	Ingested *businessflow.ProcessingResult `json:"ingested,omitempty"`
	Synced   *businessflow.SyncResult       `json:"synced,omitempty"`
	Skipped  string                         `json:"skipped,omitempty"`
	Error    string                         `json:"error,omitempty"`
}

// RunSummary aggregates one full pipeline run.
type RunSummary struct {
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Decremented int64           `json:"decremented"`
	Expired     int64           `json:"expired"`
	Tenants     []TenantOutcome `json:"tenants"`
}

// ErrRunInProgress means another worker holds the pipeline run lock.
var ErrRunInProgress = errors.New("pipeline run already in progress")

func NewPipelineScheduler(
	tenantRepo repository.TenantRepository,
	identityRepo repository.IdentityRecordRepository,
	ingestion businessflow.IngestionFlow,
	retention businessflow.RetentionFlow,
	sync businessflow.SyncFlow,
	fileSource services.FileSourceClient,
	vault services.CredentialVault,
	rc *redis.Client,
	cacheCfg config.CacheConfig,
	interval time.Duration,
	runLogPath string,
	logCfg config.LoggingConfig,
) *PipelineScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	s := &PipelineScheduler{
		tenantRepo:   tenantRepo,
		identityRepo: identityRepo,
		ingestion:    ingestion,
		retention:    retention,
		sync:         sync,
		fileSource:   fileSource,
		vault:        vault,
		rc:           rc,
		cacheCfg:     cacheCfg,
		interval:     interval,
	}
	s.initRunLogger(runLogPath, logCfg)
	return s
}

// initRunLogger configures a logger that writes to both stdout and a rotating
// file so run history survives restarts.
func (s *PipelineScheduler) initRunLogger(path string, logCfg config.LoggingConfig) {
	if path == "" {
		s.logger = log.New(os.Stdout, "pipeline ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return
	}
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logCfg.MaxSize,
		MaxBackups: logCfg.MaxBackups,
		MaxAge:     logCfg.MaxAge,
		Compress:   logCfg.Compress,
	}
	s.logFile = rotating
	mw := io.MultiWriter(os.Stdout, rotating)
	s.logger = log.New(mw, "pipeline ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *PipelineScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runTick(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runTick(ctx)
			}
		}
	}()

	return func() {
		cancel()
		if s.logFile != nil {
			_ = s.logFile.Close()
		}
	}
}

func (s *PipelineScheduler) runTick(ctx context.Context) {
	summary, err := s.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			pipelineRunsTotal.WithLabelValues("skipped").Inc()
			s.logger.Printf("pipeline: run skipped, another worker holds the lock")
			return
		}
		pipelineRunsTotal.WithLabelValues("failed").Inc()
		s.logger.Printf("pipeline: run failed: %v", err)
		return
	}
	pipelineRunsTotal.WithLabelValues("completed").Inc()
	s.logger.Printf("pipeline: run completed in %s, decremented=%d expired=%d tenants=%d",
		summary.FinishedAt.Sub(summary.StartedAt), summary.Decremented, summary.Expired, len(summary.Tenants))
}

// RunOnce executes one full pipeline run under the distributed run lock.
// Retention failures abort the run before any tenant work; per-tenant failures
// are isolated so one tenant cannot block the rest.
func (s *PipelineScheduler) RunOnce(ctx context.Context) (*RunSummary, error) {
	release, err := s.acquireRunLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	started := utils.UTCNow()
	timer := prometheus.NewTimer(pipelineRunDuration)
	defer timer.ObserveDuration()

	summary := &RunSummary{StartedAt: started}

	// Retention runs first so expired records are gone before today's files are
	// reconciled and synced.
	decremented, err := s.retention.DecrementAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("retention decrement failed: %w", err)
	}
	summary.Decremented = decremented

	expired, err := s.expireWithRemoteRemoval(ctx)
	if err != nil {
		return nil, fmt.Errorf("retention expiry failed: %w", err)
	}
	summary.Expired = expired
	pipelineExpiredRecords.Add(float64(expired))

	tenants, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenants: %w", err)
	}

	for _, tenant := range tenants {
		outcome := s.processTenant(ctx, tenant)
		summary.Tenants = append(summary.Tenants, outcome)
	}

	summary.FinishedAt = utils.UTCNow()
	return summary, nil
}

// expireWithRemoteRemoval removes soon-to-be-deleted records from each tenant's
// remote audience before the local hard delete. Remote removal is best effort;
// the local expiry always proceeds.
func (s *PipelineScheduler) expireWithRemoteRemoval(ctx context.Context) (int64, error) {
	tenants, err := s.tenantRepo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active tenants: %w", err)
	}

	expired := false
	for _, tenant := range tenants {
		if !tenant.CanSync() {
			continue
		}
		records, err := s.identityRepo.ByFilter(ctx, models.IdentityRecordFilter{TenantID: &tenant.ID, Eligible: &expired}, "id ASC", 0, 0)
		if err != nil {
			s.logger.Printf("pipeline: tenant id=%d list expired failed: %v", tenant.ID, err)
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := s.sync.Remove(ctx, tenant, records); err != nil {
			pipelineTenantFailures.WithLabelValues("remove").Inc()
			s.logger.Printf("pipeline: tenant id=%d remote removal failed: %v", tenant.ID, err)
		}
	}

	return s.retention.ExpireAll(ctx)
}

func (s *PipelineScheduler) processTenant(ctx context.Context, tenant *models.Tenant) TenantOutcome {
	outcome := TenantOutcome{TenantID: tenant.ID, Name: tenant.Name}

	creds, err := s.sourceCredentials(tenant)
	if err != nil {
		pipelineTenantFailures.WithLabelValues("credentials").Inc()
		outcome.Error = fmt.Sprintf("decrypt source credentials: %v", err)
		s.logger.Printf("pipeline: tenant id=%d credential decrypt failed: %v", tenant.ID, err)
		return outcome
	}

	filename, data, err := s.fileSource.FetchLatest(ctx, creds, tenant.SourceDir)
	switch {
	case errors.Is(err, services.ErrNoSourceFile):
		outcome.Skipped = "no source file"
	case err != nil:
		pipelineTenantFailures.WithLabelValues("fetch").Inc()
		outcome.Error = fmt.Sprintf("fetch source file: %v", err)
		s.logger.Printf("pipeline: tenant id=%d fetch failed: %v", tenant.ID, err)
		return outcome
	default:
		contacts, stats, err := businessflow.ParseContacts(data, filename)
		if err != nil {
			pipelineTenantFailures.WithLabelValues("parse").Inc()
			outcome.Error = fmt.Sprintf("parse %s: %v", filename, err)
			s.logger.Printf("pipeline: tenant id=%d parse %s failed: %v", tenant.ID, filename, err)
			return outcome
		}
		s.logger.Printf("pipeline: tenant id=%d parsed %s rows=%d dropped=%d invalid_emails=%d",
			tenant.ID, filename, stats.RowsTotal, stats.RowsDropped, stats.InvalidEmails)

		result, err := s.ingestion.Reconcile(ctx, contacts, tenant.ID, filename, businessflow.IngestionModeAppend)
		if err != nil {
			pipelineTenantFailures.WithLabelValues("reconcile").Inc()
			outcome.Error = fmt.Sprintf("reconcile: %v", err)
			s.logger.Printf("pipeline: tenant id=%d reconcile failed: %v", tenant.ID, err)
			return outcome
		}
		outcome.Ingested = result
		pipelineRecordsTotal.WithLabelValues("created").Add(float64(result.Created))
		pipelineRecordsTotal.WithLabelValues("updated").Add(float64(result.Updated))
		pipelineRecordsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
		pipelineRecordsTotal.WithLabelValues("no_identifier").Add(float64(result.NoIdentifier))
		s.logger.Printf("pipeline: tenant id=%d reconciled total=%d created=%d updated=%d skipped=%d no_identifier=%d errors=%d",
			tenant.ID, result.Total, result.Created, result.Updated, result.Skipped, result.NoIdentifier, len(result.Errors))
	}

	if !tenant.CanSync() {
		return outcome
	}

	eligible, err := s.identityRepo.ListEligible(ctx, tenant.ID)
	if err != nil {
		pipelineTenantFailures.WithLabelValues("sync").Inc()
		outcome.Error = fmt.Sprintf("list eligible: %v", err)
		s.logger.Printf("pipeline: tenant id=%d list eligible failed: %v", tenant.ID, err)
		return outcome
	}
	if len(eligible) == 0 {
		return outcome
	}

	syncResult, err := s.sync.Sync(ctx, tenant, eligible)
	if syncResult != nil {
		outcome.Synced = syncResult
		pipelineSyncedRecords.WithLabelValues("uploaded").Add(float64(syncResult.Uploaded))
		pipelineSyncedRecords.WithLabelValues("failed").Add(float64(syncResult.Failed))
	}
	if err != nil {
		pipelineTenantFailures.WithLabelValues("sync").Inc()
		outcome.Error = fmt.Sprintf("sync: %v", err)
		s.logger.Printf("pipeline: tenant id=%d sync failed: %v", tenant.ID, err)
		return outcome
	}
	s.logger.Printf("pipeline: tenant id=%d synced total=%d uploaded=%d failed=%d",
		tenant.ID, syncResult.Total, syncResult.Uploaded, syncResult.Failed)
	return outcome
}

// sourceCredentials decrypts the tenant's stored drop service credentials.
// Tenants without a stored cipher fetch from the default drop endpoint
// unauthenticated.
func (s *PipelineScheduler) sourceCredentials(tenant *models.Tenant) (services.RemoteCredentials, error) {
	if tenant.SourceCredentialCipher == nil || *tenant.SourceCredentialCipher == "" {
		return services.RemoteCredentials{}, nil
	}
	return services.DecryptCredentials(s.vault, *tenant.SourceCredentialCipher)
}

// acquireRunLock takes the distributed run lock (SETNX with TTL) so overlapping
// ticks and multiple workers never run the pipeline concurrently. Without a
// cache client the lock degrades to a no-op.
func (s *PipelineScheduler) acquireRunLock(ctx context.Context) (func(), error) {
	if s.rc == nil {
		return func() {}, nil
	}

	lockKey := s.cacheCfg.RedisPrefix + utils.RunLockKey
	ok, err := s.rc.SetNX(ctx, lockKey, "1", utils.RunLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		_ = s.rc.Del(context.Background(), lockKey).Err()
	}, nil
}
