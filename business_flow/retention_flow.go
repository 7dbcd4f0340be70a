package businessflow

import (
	"context"

	"github.com/listflow/listflow/repository"
)

// RetentionFlow manages the daily retention lifecycle of identity records.
type RetentionFlow interface {
	// DecrementAll decrements the retention counter of every record that still
	// has days left and returns how many were touched.
	DecrementAll(ctx context.Context) (int64, error)

	// ExpireAll hard-deletes every record whose retention counter has reached
	// zero and returns how many were removed.
	ExpireAll(ctx context.Context) (int64, error)
}

// RetentionFlowImpl implements the retention lifecycle
type RetentionFlowImpl struct {
	identityRepo repository.IdentityRecordRepository
}

// NewRetentionFlow creates a new retention flow instance
func NewRetentionFlow(identityRepo repository.IdentityRecordRepository) RetentionFlow {
	return &RetentionFlowImpl{identityRepo: identityRepo}
}

func (f *RetentionFlowImpl) DecrementAll(ctx context.Context) (int64, error) {
	affected, err := f.identityRepo.DecrementRetention(ctx)
	if err != nil {
		return 0, NewBusinessError("RETENTION_DECREMENT_FAILED", "Failed to decrement retention counters", err)
	}
	return affected, nil
}

func (f *RetentionFlowImpl) ExpireAll(ctx context.Context) (int64, error) {
	removed, err := f.identityRepo.DeleteExpired(ctx)
	if err != nil {
		return 0, NewBusinessError("RETENTION_EXPIRE_FAILED", "Failed to delete expired records", err)
	}
	return removed, nil
}
