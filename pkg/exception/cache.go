package exception

import "errors"

var (
	ErrCacheOrderExists    = errors.New("cache: order already exists")
	ErrCacheOrderMissing   = errors.New("cache: order not found")
	ErrCachePositionExists = errors.New("cache: position already exists")
	ErrCacheNilStore       = errors.New("cache: nil store")
)
