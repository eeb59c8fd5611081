package trackrun

import "errors"

// Domain errors for run-level operations. The run fails fast and never
// silently drops or overwrites a track.
var (
	// ErrTimestepMismatch indicates an attempt to merge runs with different
	// nominal time steps.
	ErrTimestepMismatch = errors.New("trackrun: cannot extend by a run with a different time step")

	// ErrCategoryStateMismatch indicates an attempt to merge runs whose
	// categorisation schemas are incompatible (inclusive vs independent).
	ErrCategoryStateMismatch = errors.New("trackrun: categorisation schema differs between runs")

	// ErrNotCategorised indicates a category query on a run that has not
	// been classified.
	ErrNotCategorised = errors.New("trackrun: run is not categorised")

	// ErrUnknownCategory indicates a label absent from the category columns.
	ErrUnknownCategory = errors.New("trackrun: unknown category label")

	// ErrTrackNotFound indicates a track id not present in the run.
	ErrTrackNotFound = errors.New("trackrun: track id not found")

	// ErrDuplicateID indicates a track id collision on construction.
	ErrDuplicateID = errors.New("trackrun: duplicate track id")

	// ErrFlagLength indicates a category column whose length does not match
	// the number of tracks.
	ErrFlagLength = errors.New("trackrun: category column length does not match track count")

	// ErrBadSelection indicates an out-of-range position selection.
	ErrBadSelection = errors.New("trackrun: selection out of range")
)
