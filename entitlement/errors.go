/*
errors.go - Centralized error types for the entitlement engine

PURPOSE:
  All calculation errors are deterministic and input-derived: there is no
  meaningful fallback for "what is this person's gratuity" when the inputs
  are invalid, so errors propagate to the caller with no local recovery.

ERROR CATEGORIES:
  1. Validation errors - invalid dates, missing end date
  2. Lookup errors     - unknown employee

USAGE:
  Callers branch with errors.Is():

    if errors.Is(err, entitlement.ErrMissingEndDate) {
        // 400 to the user
    }
*/
package entitlement

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDate is returned for unparseable hire/end dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMissingEndDate is returned when a strict single-employee EOS
	// calculation is requested for an employee with no end date. The
	// projected (liability) path does not use it.
	ErrMissingEndDate = errors.New("employee must have an end date to calculate EOS")

	// ErrEmployeeNotFound is returned when the requested employee
	// identifier does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidDateError reports which date field was unusable.
type InvalidDateError struct {
	Field string // "hireDate" or "endDate"
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// DataIntegrityWarning is a non-fatal flag attached to results when the
// inputs are suspicious: negative service years, or a cached balance row
// that diverges from the live recomputation. It is logged/surfaced but
// never blocks computation - the engine always prefers the live value.
type DataIntegrityWarning struct {
	EmployeeID string
	Code       string // e.g. "negative_service_years", "stale_balance_cache"
	Detail     string
	ObservedAt time.Time
}

func (w DataIntegrityWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Detail)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error stems from invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrMissingEndDate)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}
