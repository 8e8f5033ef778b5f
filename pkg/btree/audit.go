// SPDX-License-Identifier: Apache-2.0

package btree

import (
	"context"
	"sync"
	"time"
)

// AuditEvent records one node evaluation within a tree run.
type AuditEvent struct {
	TreeID     string
	RunID      string
	Node       string
	Kind       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// AuditFilter limits audit event queries. Zero fields match everything.
type AuditFilter struct {
	TreeID string
	RunID  string
	Node   string
	Status string
	Limit  int
}

// AuditStore persists node evaluation events.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// MemoryAuditStore keeps audit events in memory.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryAuditStore returns an in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record appends an audit event.
func (s *MemoryAuditStore) Record(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events in recording order.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, 0, len(s.events))
	for _, ev := range s.events {
		if !filter.matches(ev) {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f AuditFilter) matches(ev AuditEvent) bool {
	if f.TreeID != "" && ev.TreeID != f.TreeID {
		return false
	}
	if f.RunID != "" && ev.RunID != f.RunID {
		return false
	}
	if f.Node != "" && ev.Node != f.Node {
		return false
	}
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	return true
}

func normalizeAuditTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
