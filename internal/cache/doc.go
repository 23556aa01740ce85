// Package cache provides a small bounded LRU cache.
//
// It memoizes work keyed by generated shader source, such as naga
// validation, so programs built from identical configurations skip the
// repeated parse and lowering.
//
//	c := cache.New[string, error](64)
//	err := c.GetOrCreate(code, func() error { return validate(code) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
