package checkpoint

import "errors"

var (
	// ErrStorageUnavailable wraps any failure to create, write, rename or
	// read progress files.
	ErrStorageUnavailable = errors.New("checkpoint: storage unavailable")

	// ErrNotFound is returned for missing, corrupted or incompatible
	// progress files and for malformed session ids.
	ErrNotFound = errors.New("checkpoint: session not found")
)
