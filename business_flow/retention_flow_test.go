package businessflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionLifecycle(t *testing.T) {
	ctx := context.Background()

	fresh := identityFixture(1, 1, "a@example.com", "", "A", "One")
	fresh.RemainingDays = 2
	lastDay := identityFixture(2, 1, "b@example.com", "", "B", "Two")
	lastDay.RemainingDays = 1
	expired := identityFixture(3, 1, "c@example.com", "", "C", "Three")
	expired.RemainingDays = 0

	repo := newMemIdentityRepo(fresh, lastDay, expired)
	flow := NewRetentionFlow(repo)

	affected, err := flow.DecrementAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	// Already-expired records are untouched by the decrement.
	assert.Equal(t, 0, repo.records[2].RemainingDays)
	assert.Equal(t, 1, repo.records[0].RemainingDays)
	assert.Equal(t, 0, repo.records[1].RemainingDays)

	removed, err := flow.ExpireAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	require.Len(t, repo.records, 1)
	assert.Equal(t, uint(1), repo.records[0].ID)
}

func TestRetentionDecrementNeverGoesNegative(t *testing.T) {
	ctx := context.Background()

	rec := identityFixture(1, 1, "a@example.com", "", "A", "One")
	rec.RemainingDays = 1
	repo := newMemIdentityRepo(rec)
	flow := NewRetentionFlow(repo)

	for range 3 {
		_, err := flow.DecrementAll(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, repo.records[0].RemainingDays)
}
