// Package businessflow contains the core business logic for contact ingestion,
// identity matching, retention lifecycle, and audience sync.
package businessflow

import (
	"github.com/listflow/listflow/models"
)

// IngestionMode selects the matching strategy set during reconciliation.
type IngestionMode string

const (
	// IngestionModeAppend is bulk file ingestion: identifier+name strategies only,
	// favoring precision over recall.
	IngestionModeAppend IngestionMode = "append"

	// IngestionModeMatchAppend is the interactive update path: the append
	// strategies plus email-alone and phone-alone fallbacks, favoring recall.
	IngestionModeMatchAppend IngestionMode = "match-append"
)

// ParseIngestionMode validates a caller-supplied mode string.
func ParseIngestionMode(s string) (IngestionMode, error) {
	switch IngestionMode(s) {
	case IngestionModeAppend:
		return IngestionModeAppend, nil
	case IngestionModeMatchAppend:
		return IngestionModeMatchAppend, nil
	}
	return "", ErrInvalidIngestionMode
}

// Contact is one normalized input row. Email is lowercase-trimmed, Phone
// digits-only; empty string means the field is absent. Contacts are consumed
// immediately and never persisted.
type Contact struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// HasIdentifier reports whether the contact carries at least one of email or phone.
func (c Contact) HasIdentifier() bool {
	return c.Email != "" || c.Phone != ""
}

// MatchedBy tags which strategy resolved a match.
type MatchedBy string

const (
	MatchedByEmailName MatchedBy = "email+name"
	MatchedByPhoneName MatchedBy = "phone+name"
	MatchedByEmail     MatchedBy = "email"
	MatchedByPhone     MatchedBy = "phone"
	MatchedByNone      MatchedBy = ""
)

// MatchResult references the matched record, if any, plus the strategy that
// fired. Used only to decide create/update/skip and for audit logging.
type MatchResult struct {
	Record    *models.IdentityRecord
	MatchedBy MatchedBy
}

// Matched reports whether a record was found.
func (m MatchResult) Matched() bool {
	return m.Record != nil
}

// ProcessingResult summarizes one reconciliation run. The four outcome counters
// are disjoint; NoIdentifier counts rows whose resulting record lacks both
// identifiers.
type ProcessingResult struct {
	Total        int
	Created      int
	Updated      int
	Skipped      int
	NoIdentifier int
	Errors       []string
}

// SyncResult summarizes one sync run against the external platform.
type SyncResult struct {
	Total    int
	Uploaded int
	Failed   int
}
