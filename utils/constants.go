package utils

import (
	"time"
)

// Retention lifecycle constants
const (
	// DefaultRetentionDays is the number of days a newly enrolled identity record
	// stays eligible before expiry. Re-enrollment resets the counter to this value.
	DefaultRetentionDays = 30
)

// Reconciliation constants
const (
	// BulkIngestThreshold is the contact count at which reconciliation switches
	// from row-by-row commits to the two-phase batched strategy.
	BulkIngestThreshold = 100

	// UpdateChunkSize bounds the number of records updated per transaction in the
	// batched reconciliation path.
	UpdateChunkSize = 100
)

// Sync engine constants
const (
	// SyncBatchSize is the number of hashed rows per upload call.
	SyncBatchSize = 1000

	// SyncMaxAttempts is the per-batch retry ceiling for rate-limited uploads.
	SyncMaxAttempts = 3

	// SyncBackoffBase is the initial backoff delay, doubled on each retry.
	SyncBackoffBase = 2 * time.Second
)

// Scheduler constants
const (
	// RunLockTTL caps how long a pipeline run may hold the cross-process lock.
	RunLockTTL = 30 * time.Minute

	// RunLockKey is the redis key guarding concurrent pipeline runs, applied
	// after the configured cache prefix.
	RunLockKey = "pipeline:run_lock"
)

// Context keys used by handlers when building request contexts
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	IPAddressKey  ContextKey = "ip_address"
	UserAgentKey  ContextKey = "user_agent"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)
