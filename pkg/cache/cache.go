// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

// Package cache provides an in-process TTL store.
package cache

import (
	"time"
)

// Cache is the cache interface.
type Cache[K comparable, V any] interface {
	Get(key K) (V, error)
	Set(key K, value V, ttl time.Duration)
	Delete(key K)
	Clear()
}

// Entry represents a cache entry.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

// CacheError represents a cache error.
type CacheError struct {
	Code string
}

func (e *CacheError) Error() string {
	return e.Code
}

// ErrCacheMiss is returned by Get for absent or expired keys.
var ErrCacheMiss = &CacheError{Code: "CACHE_MISS"}
