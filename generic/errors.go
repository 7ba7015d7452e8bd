/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Fetch errors - An origin collection could not be read (hard stop, retry)
  2. Validation errors - A save is blocked by a missing/invalid field
  3. Lookup errors - A referenced party/category/product does not exist

  Data-quality problems (bad dates, NaN input) are NOT errors. They are
  recovered where they occur and logged.

USAGE:
    if errors.Is(err, generic.ErrFetchFailed) {
        // show one message, let the user retry the whole build
    }

SEE ALSO:
  - ledger/builder.go: FetchError
  - discount/validate.go: Category and product validation
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFetchFailed is returned when an origin collection cannot be read.
	// No partial ledger is ever produced alongside it.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrValidation is returned when a config save is missing required data.
	ErrValidation = errors.New("validation failed")

	// ErrPartyNotFound is returned when a referenced party doesn't exist.
	ErrPartyNotFound = errors.New("party not found")

	// ErrCategoryNotFound is returned when a referenced category doesn't exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrProductNotFound is returned when a referenced product doesn't exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrDuplicateRecord is returned when a record ID already exists in its
	// origin collection.
	ErrDuplicateRecord = errors.New("duplicate record id")

	// ErrInvalidKind is returned for an unknown record kind.
	ErrInvalidKind = errors.New("invalid record kind")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the field that blocked a save.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrFetchFailed)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPartyNotFound) ||
		errors.Is(err, ErrCategoryNotFound) ||
		errors.Is(err, ErrProductNotFound)
}
