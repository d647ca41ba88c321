package storage

import "errors"

// Common client storage errors
var (
	// ErrSessionNotFound indicates that no session data exists
	ErrSessionNotFound = errors.New("session data not found")

	// ErrNotebookNotFound indicates that notebook was not found
	ErrNotebookNotFound = errors.New("notebook not found")

	// ErrPageNotFound indicates that page was not found in the notebook
	ErrPageNotFound = errors.New("page not found")

	// ErrChangeNotFound indicates that ledger entry was not found
	ErrChangeNotFound = errors.New("pending change not found")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
