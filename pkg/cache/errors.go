package cache

import "errors"

var (
	// ErrNotFound is returned for a missing or expired key.
	ErrNotFound = errors.New("cache: entry not found")

	ErrMarshal   = errors.New("cache: failed to marshal value")
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")
)
