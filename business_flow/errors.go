package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Input file errors (fatal to the ingestion run, no partial reconciliation)
	ErrEmptyInput         = errors.New("input contains no parseable rows")
	ErrUnrecognizedSchema = errors.New("no first name or last name column detected")
	ErrUnsupportedFormat  = errors.New("unsupported file format")

	// Precondition errors
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant is inactive")

	// Sync errors
	ErrAudienceNotConfigured = errors.New("tenant has no external audience configured")
	ErrSyncAborted           = errors.New("sync run aborted")

	// Ingestion errors
	ErrInvalidIngestionMode = errors.New("invalid ingestion mode")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsEmptyInput(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}

func IsUnrecognizedSchema(err error) bool {
	return errors.Is(err, ErrUnrecognizedSchema)
}

func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsAudienceNotConfigured(err error) bool {
	return errors.Is(err, ErrAudienceNotConfigured)
}

func IsSyncAborted(err error) bool {
	return errors.Is(err, ErrSyncAborted)
}

func IsInvalidIngestionMode(err error) bool {
	return errors.Is(err, ErrInvalidIngestionMode)
}
