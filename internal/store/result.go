package store

import "cachecore/internal/remote"

// OpResult is the uniform outcome shape for single-entity operations.
type OpResult[E any] struct {
	OK     bool
	Data   E
	Err    *remote.Error
	Cached bool
}

// ListResult is the uniform outcome shape for bulk operations.
type ListResult[E any] struct {
	OK     bool
	Data   []E
	Err    *remote.Error
	Cached bool
}
