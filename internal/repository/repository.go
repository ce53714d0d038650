package repository

import "errors"

var (
	// ErrStorage wraps persistent-store failures so callers can distinguish an
	// unavailable database from domain errors. The core never retries it.
	ErrStorage = errors.New("storage failure")

	// ErrConflict is returned when a guarded update matched no rows because
	// another writer already moved the row out of the expected state.
	ErrConflict = errors.New("state conflict")
)
