// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package cache

import (
	"sync"
	"time"
)

// MemoryCache is an in-memory cache safe for concurrent use.
// A zero or negative ttl keeps an entry until it is deleted.
type MemoryCache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*Entry[V]
	now   func() time.Time
}

// NewMemoryCache creates a new memory cache.
func NewMemoryCache[K comparable, V any]() *MemoryCache[K, V] {
	return &MemoryCache[K, V]{
		items: make(map[K]*Entry[V]),
		now:   time.Now,
	}
}

// Get retrieves a value from cache. An expired entry is removed.
func (m *MemoryCache[K, V]) Get(key K) (V, error) {
	var zero V

	m.mu.RLock()
	entry, ok := m.items[key]
	if ok && !m.expired(entry) {
		m.mu.RUnlock()
		return entry.Value, nil
	}
	m.mu.RUnlock()
	if !ok {
		return zero, ErrCacheMiss
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another goroutine may have replaced it meanwhile
	if cur, ok := m.items[key]; ok {
		if !m.expired(cur) {
			return cur.Value, nil
		}
		delete(m.items, key)
	}
	return zero, ErrCacheMiss
}

// Set stores a value in cache. Entries that are never read again are only
// freed by Purge, Delete or Clear.
func (m *MemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := &Entry[V]{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = m.now().Add(ttl)
	}
	m.items[key] = entry
}

// Delete removes a value from cache.
func (m *MemoryCache[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Clear removes all entries from cache.
func (m *MemoryCache[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[K]*Entry[V])
}

// Purge drops expired entries and returns how many were removed.
func (m *MemoryCache[K, V]) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.items {
		if m.expired(e) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet
// removed.
func (m *MemoryCache[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache[K, V]) expired(e *Entry[V]) bool {
	return !e.ExpiresAt.IsZero() && m.now().After(e.ExpiresAt)
}
