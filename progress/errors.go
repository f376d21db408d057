package progress

import "errors"

// Sentinel errors for the progress engine. Handlers and jobs map these to
// HTTP statuses or job-summary entries.
var (
	// ErrNotFound - submission, module, or enrollment missing
	ErrNotFound = errors.New("record not found")
	// ErrConfiguration - module missing required deadline config for scoring
	ErrConfiguration = errors.New("invalid module configuration")
	// ErrAlreadyProcessed - an idempotency guard tripped; callers treat this
	// as success with no effect
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrConcurrencyConflict - lost update detected on an aggregate row
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)
