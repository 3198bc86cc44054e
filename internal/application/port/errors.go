package port

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist in the
	// caller's tenant
	ErrNotFound = errors.New("not found")

	// ErrStatusConflict is returned by guarded status updates when the
	// stored status changed after the caller read it
	ErrStatusConflict = errors.New("claim status changed concurrently")
)
