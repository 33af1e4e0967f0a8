package storage

import (
	"context"
	"testing"
	"time"
)

func TestDismissalStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	store := NewDismissalStore(NewRedisKV(client))

	set, err := store.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected empty set, got %v", set)
	}

	if err := store.Add(ctx, "ana@example.com", "task-overdue-42"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.AddAll(ctx, "ana@example.com", []string{"task-due-7", "task-overdue-42"}); err != nil {
		t.Fatalf("add all: %v", err)
	}

	set, err = store.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected deduplicated set of 2, got %v", set)
	}
	if _, ok := set["task-overdue-42"]; !ok {
		t.Fatalf("missing dismissed id: %v", set)
	}
}

func TestDismissalStoreSurvivesNewInstance(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	kv := NewRedisKV(client)

	first := NewDismissalStore(kv)
	if err := first.Add(ctx, "bruno@example.com", "meeting-9"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Simulates a process restart: a fresh store over the same backend must
	// see the persisted ids.
	second := NewDismissalStore(NewRedisKV(client))
	set, err := second.Get(ctx, "bruno@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := set["meeting-9"]; !ok {
		t.Fatalf("expected persisted dismissal, got %v", set)
	}
}

func TestDismissalStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	store := NewDismissalStore(NewMemoryKV())

	if err := store.Add(ctx, "ana@example.com", "task-pending-1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	set, err := store.Get(ctx, "bruno@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected other user's set to be empty, got %v", set)
	}
}

func TestDismissalStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewDismissalStore(NewMemoryKV())

	if err := store.AddAll(ctx, "ana@example.com", []string{"a", "b"}); err != nil {
		t.Fatalf("add all: %v", err)
	}
	if err := store.Clear(ctx, "ana@example.com"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	set, err := store.Get(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("expected cleared set, got %v", set)
	}
}

func TestAnalysisStampRoundTrip(t *testing.T) {
	ctx := context.Background()
	stamp := NewAnalysisStamp(NewMemoryKV())

	if _, ok, err := stamp.Get(ctx); err != nil || ok {
		t.Fatalf("expected no stamp yet, ok=%v err=%v", ok, err)
	}

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := stamp.Set(ctx, at); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := stamp.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}
}
