// Package ddlerrors collects the driver's error taxonomy (spec §7).
//
// Only ErrInvalidMutationInfo and ErrCoverageInfoMismatch are fatal at
// start-up; every other sentinel here is recovered locally by its caller and
// never halts the outer run loop.
package ddlerrors

import "errors"

var (
	// ErrInvalidMutationInfo signals a malformed mutation-info document
	// (unknown group kind, missing required field). Fatal at start-up.
	ErrInvalidMutationInfo = errors.New("invalid mutation info document")

	// ErrCoverageInfoMismatch signals that the two mutation-info documents
	// (main and coverage-tracking) do not describe structurally identical
	// trees. Fatal at start-up.
	ErrCoverageInfoMismatch = errors.New("coverage mutation info does not match main mutation info")

	// ErrInvalidMutationID signals an out-of-range mutation id was passed to
	// a tree query. This is an assertion-class internal bug.
	ErrInvalidMutationID = errors.New("invalid mutation id")

	// ErrReferenceGenerationFailure signals a recoverable per-attempt
	// failure while producing a reference ProgramStats; the caller abandons
	// the attempt and tries again.
	ErrReferenceGenerationFailure = errors.New("reference program generation failed")

	// ErrReducerFailure signals that the external reducer exited non-zero;
	// the miscompilation is dropped from reduction but its kill record is
	// preserved.
	ErrReducerFailure = errors.New("reducer failed")
)
