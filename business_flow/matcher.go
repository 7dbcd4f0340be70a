package businessflow

import (
	"context"
	"fmt"

	"github.com/listflow/listflow/repository"
)

// Matcher resolves a contact to an existing identity record within one tenant.
type Matcher interface {
	FindMatch(ctx context.Context, contact Contact, tenantID uint, mode IngestionMode) (MatchResult, error)
}

// MatcherImpl implements the progressive matching strategy
type MatcherImpl struct {
	identityRepo repository.IdentityRecordRepository
}

// NewMatcher creates a new matcher instance
func NewMatcher(identityRepo repository.IdentityRecordRepository) Matcher {
	return &MatcherImpl{identityRepo: identityRepo}
}

// FindMatch tries the matching strategies in fixed priority order and returns the
// first hit. Bulk ingestion (append) uses only identifier+name strategies; the
// interactive match-append path extends them with email-alone and phone-alone
// fallbacks. Absence of a match is a normal result, never an error.
func (m *MatcherImpl) FindMatch(ctx context.Context, contact Contact, tenantID uint, mode IngestionMode) (MatchResult, error) {
	if contact.Email != "" {
		rec, err := m.identityRepo.ByEmailAndName(ctx, tenantID, contact.Email, contact.FirstName, contact.LastName)
		if err != nil {
			return MatchResult{}, fmt.Errorf("email+name lookup failed: %w", err)
		}
		if rec != nil {
			return MatchResult{Record: rec, MatchedBy: MatchedByEmailName}, nil
		}
	}

	if contact.Phone != "" {
		rec, err := m.identityRepo.ByPhoneAndName(ctx, tenantID, contact.Phone, contact.FirstName, contact.LastName)
		if err != nil {
			return MatchResult{}, fmt.Errorf("phone+name lookup failed: %w", err)
		}
		if rec != nil {
			return MatchResult{Record: rec, MatchedBy: MatchedByPhoneName}, nil
		}
	}

	if mode != IngestionModeMatchAppend {
		return MatchResult{}, nil
	}

	// Looser fallbacks: the interactive caller has more context, so duplicate
	// avoidance wins over merge precision here.
	if contact.Email != "" {
		rec, err := m.identityRepo.ByEmail(ctx, tenantID, contact.Email)
		if err != nil {
			return MatchResult{}, fmt.Errorf("email lookup failed: %w", err)
		}
		if rec != nil {
			return MatchResult{Record: rec, MatchedBy: MatchedByEmail}, nil
		}
	}

	if contact.Phone != "" {
		rec, err := m.identityRepo.ByPhone(ctx, tenantID, contact.Phone)
		if err != nil {
			return MatchResult{}, fmt.Errorf("phone lookup failed: %w", err)
		}
		if rec != nil {
			return MatchResult{Record: rec, MatchedBy: MatchedByPhone}, nil
		}
	}

	return MatchResult{}, nil
}
