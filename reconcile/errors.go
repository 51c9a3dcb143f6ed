/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place. Callers (store, API) wrap these with
  additional context.

ERROR CATEGORIES:
  1. Structural errors - No input source can be located at all
  2. Malformed records - A row fails date/number parsing (recovered locally)
  3. Mutation errors   - A positional edit/delete targets a bad index

PROPAGATION POLICY:
  Parsing failures degrade only the affected row and are reported as warnings,
  never as errors. A missing reference table is treated as empty. Only the
  complete absence of inputs is surfaced to the caller, so the engine never
  silently produces an empty-looking but misleading report.
*/
package reconcile

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoInputSources is returned when a run is requested but no time
	// entries and no roster have been loaded. A single missing source is
	// fine (treated as empty); all of them missing is a structural failure.
	ErrNoInputSources = errors.New("no input sources available")

	// ErrPositionOutOfRange is returned when a justification edit or delete
	// targets a position outside the current record list.
	ErrPositionOutOfRange = errors.New("position out of range")

	// ErrUnknownDeviation is returned when a justification carries a code
	// outside the closed deviation set.
	ErrUnknownDeviation = errors.New("unknown deviation code")

	// ErrEmptyWindow is returned when no coverage window can be derived
	// because no entry carries a usable work date.
	ErrEmptyWindow = errors.New("no observed dates to derive coverage window")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MalformedRecordError describes a dropped input row. It is logged as a
// warning by the aggregator, not returned: one bad row never fails a batch.
type MalformedRecordError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s=%q (%s)", e.Field, e.Value, e.Reason)
}

// PositionError describes an out-of-range justification mutation.
type PositionError struct {
	Position int
	Length   int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d out of range (have %d records)", e.Position, e.Length)
}

func (e *PositionError) Unwrap() error { return ErrPositionOutOfRange }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPositionOutOfRange) ||
		errors.Is(err, ErrUnknownDeviation)
}

// IsStructural returns true if the error means no report can be produced.
func IsStructural(err error) bool {
	return errors.Is(err, ErrNoInputSources)
}
