package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vidfetch/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []history.Entry{
		{JobID: "a", Reference: "youtube:abc", Format: "22", Path: "direct", State: "completed", Bytes: 42, Duration: 1500 * time.Millisecond, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{JobID: "b", Reference: "youtube:def", Path: "file", State: "failed", ErrorKind: "process_exit", ErrorMessage: "boom", StartedAt: base, FinishedAt: base.Add(2 * time.Second)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].JobID != "b" || got[1].JobID != "a" {
		t.Fatalf("expected newest first, got %s then %s", got[0].JobID, got[1].JobID)
	}
	if got[0].ErrorKind != "process_exit" || got[0].Format != "" {
		t.Fatalf("unexpected failed entry %+v", got[0])
	}
	if got[1].Duration != 1500*time.Millisecond || got[1].Bytes != 42 {
		t.Fatalf("unexpected completed entry %+v", got[1])
	}
	if !got[1].FinishedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected finished_at %s", got[1].FinishedAt)
	}

	limited, err := store.List(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected one entry with limit, got %d (%v)", len(limited), err)
	}
}

func TestRecordIgnoresDuplicateJobID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()
	entry := history.Entry{JobID: "dup", Reference: "r", Path: "direct", State: "completed", StartedAt: now, FinishedAt: now}
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	entry.State = "failed"
	if err := store.Record(ctx, entry); err != nil {
		t.Fatalf("second Record: %v", err)
	}
	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["completed"] != 1 || counts["failed"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordRequiresJobID(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), history.Entry{}); err == nil {
		t.Fatal("expected error for missing job id")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	now := time.Now()
	if err := store.Record(context.Background(), history.Entry{JobID: "x", Reference: "r", Path: "file", State: "cancelled", StartedAt: now, FinishedAt: now}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.List(context.Background(), 10)
	if err != nil || len(got) != 1 || got[0].State != "cancelled" {
		t.Fatalf("unexpected entries after reopen %+v (%v)", got, err)
	}
}
