package btree

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvents() []AuditEvent {
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	return []AuditEvent{
		{TreeID: "qa", RunID: "run-1", Node: "answer", Kind: "action", Status: "SUCCESS", StartedAt: base, FinishedAt: base.Add(time.Second)},
		{TreeID: "qa", RunID: "run-1", Node: "safety-check", Kind: "condition", Status: "FAILURE", StartedAt: base.Add(time.Second), FinishedAt: base.Add(2 * time.Second)},
		{TreeID: "other", RunID: "run-2", Node: "answer", Kind: "action", Status: "SUCCESS", StartedAt: base.Add(2 * time.Second), FinishedAt: base.Add(3 * time.Second)},
	}
}

func TestMemoryAuditStoreFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAuditStore()
	for _, ev := range sampleEvents() {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	byTree, err := store.List(ctx, AuditFilter{TreeID: "qa"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTree) != 2 {
		t.Errorf("expected 2 qa events, got %d", len(byTree))
	}

	byStatus, err := store.List(ctx, AuditFilter{Status: "FAILURE"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byStatus) != 1 || byStatus[0].Node != "safety-check" {
		t.Errorf("unexpected FAILURE events: %+v", byStatus)
	}

	limited, err := store.List(ctx, AuditFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit respected, got %d", len(limited))
	}
}

func TestSQLiteAuditStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteAuditStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, ev := range sampleEvents() {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := store.List(ctx, AuditFilter{TreeID: "qa"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 qa events, got %d", len(events))
	}
	if events[0].Node != "answer" || events[1].Node != "safety-check" {
		t.Errorf("expected evaluation order preserved, got %+v", events)
	}

	byRun, err := store.List(ctx, AuditFilter{RunID: "run-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byRun) != 1 || byRun[0].TreeID != "other" {
		t.Errorf("unexpected run-2 events: %+v", byRun)
	}
}
