package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on insert.
	ErrAlreadyExists = errors.New("already exists")
	// ErrSyncInProgress is returned when a sync is requested for a merchant
	// that already has one running.
	ErrSyncInProgress = errors.New("sync already in progress")
)
