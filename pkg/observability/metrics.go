// Copyright 2026 CICD AI Toolkit. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");

package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics counts remote API requests in process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	mu       sync.Mutex
	requests map[requestKey]int
	took     map[string]time.Duration
}

type requestKey struct {
	op     string
	status int
}

// RequestCount is one row of a Metrics snapshot.
type RequestCount struct {
	Op     string
	Status int
	Count  int
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[requestKey]int),
		took:     make(map[string]time.Duration),
	}
}

// RecordRequest records one request for op. Transport failures use status 0.
func (m *Metrics) RecordRequest(op string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[requestKey{op: op, status: status}]++
	m.took[op] += took
}

// Requests returns how many requests were made for op, whatever the outcome.
func (m *Metrics) Requests(op string) int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, c := range m.requests {
		if k.op == op {
			n += c
		}
	}
	return n
}

// Took returns the total time spent on op.
func (m *Metrics) Took(op string) time.Duration {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.took[op]
}

// Snapshot returns all counts ordered by op then status.
func (m *Metrics) Snapshot() []RequestCount {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RequestCount, 0, len(m.requests))
	for k, c := range m.requests {
		out = append(out, RequestCount{Op: k.op, Status: k.status, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Op != out[j].Op {
			return out[i].Op < out[j].Op
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// Log writes the snapshot at debug level.
func (m *Metrics) Log(l Logger) {
	for _, rc := range m.Snapshot() {
		l.Debug("api requests",
			String("op", rc.Op),
			String("status", strconv.Itoa(rc.Status)),
			Int("count", rc.Count),
			Duration("took", m.Took(rc.Op)))
	}
}
