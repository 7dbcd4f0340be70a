package businessflow

import (
	"context"
	"testing"

	"github.com/listflow/listflow/models"
	"github.com/listflow/listflow/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityFixture(id, tenantID uint, email, phone, first, last string) *models.IdentityRecord {
	rec := &models.IdentityRecord{
		ID:        id,
		TenantID:  tenantID,
		FirstName: first,
		LastName:  last,
	}
	if email != "" {
		rec.Email = utils.ToPtr(email)
	}
	if phone != "" {
		rec.Phone = utils.ToPtr(phone)
	}
	rec.Status = rec.DeriveStatus()
	rec.RemainingDays = utils.DefaultRetentionDays
	return rec
}

func TestFindMatchPriorityOrder(t *testing.T) {
	ctx := context.Background()

	byEmailName := identityFixture(1, 1, "john@example.com", "", "John", "Doe")
	byPhoneName := identityFixture(2, 1, "", "15550001111", "John", "Doe")
	repo := newMemIdentityRepo(byEmailName, byPhoneName)
	matcher := NewMatcher(repo)

	t.Run("email plus name wins over phone plus name", func(t *testing.T) {
		contact := Contact{FirstName: "John", LastName: "Doe", Email: "john@example.com", Phone: "15550001111"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeAppend)
		require.NoError(t, err)
		require.True(t, match.Matched())
		assert.Equal(t, MatchedByEmailName, match.MatchedBy)
		assert.Equal(t, uint(1), match.Record.ID)
	})

	t.Run("falls through to phone plus name", func(t *testing.T) {
		contact := Contact{FirstName: "John", LastName: "Doe", Email: "other@example.com", Phone: "15550001111"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeAppend)
		require.NoError(t, err)
		require.True(t, match.Matched())
		assert.Equal(t, MatchedByPhoneName, match.MatchedBy)
		assert.Equal(t, uint(2), match.Record.ID)
	})

	t.Run("email comparison is case-insensitive", func(t *testing.T) {
		contact := Contact{FirstName: "JOHN", LastName: "doe", Email: "John@Example.COM"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeAppend)
		require.NoError(t, err)
		require.True(t, match.Matched())
		assert.Equal(t, MatchedByEmailName, match.MatchedBy)
	})

	t.Run("scoped to tenant", func(t *testing.T) {
		contact := Contact{FirstName: "John", LastName: "Doe", Email: "john@example.com"}
		match, err := matcher.FindMatch(ctx, contact, 2, IngestionModeMatchAppend)
		require.NoError(t, err)
		assert.False(t, match.Matched())
	})
}

func TestFindMatchModeFallbacks(t *testing.T) {
	ctx := context.Background()

	existing := identityFixture(1, 1, "ada@example.com", "442079460958", "Ada", "Lovelace")
	repo := newMemIdentityRepo(existing)
	matcher := NewMatcher(repo)

	t.Run("append mode requires a name agreement", func(t *testing.T) {
		contact := Contact{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeAppend)
		require.NoError(t, err)
		assert.False(t, match.Matched())
	})

	t.Run("match-append falls back to email alone", func(t *testing.T) {
		contact := Contact{FirstName: "Augusta", LastName: "King", Email: "ada@example.com"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeMatchAppend)
		require.NoError(t, err)
		require.True(t, match.Matched())
		assert.Equal(t, MatchedByEmail, match.MatchedBy)
	})

	t.Run("match-append falls back to phone alone", func(t *testing.T) {
		contact := Contact{FirstName: "Augusta", LastName: "King", Phone: "442079460958"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeMatchAppend)
		require.NoError(t, err)
		require.True(t, match.Matched())
		assert.Equal(t, MatchedByPhone, match.MatchedBy)
	})

	t.Run("no identifiers never matches", func(t *testing.T) {
		contact := Contact{FirstName: "Ada", LastName: "Lovelace"}
		match, err := matcher.FindMatch(ctx, contact, 1, IngestionModeMatchAppend)
		require.NoError(t, err)
		assert.False(t, match.Matched())
		assert.Equal(t, MatchedByNone, match.MatchedBy)
	})
}
