package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"), 2)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInsertAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	run := &Run{
		StartedAt: started,
		Suite:     "config",
		OK:        false,
		Passed:    8,
		Failed:    1,
		Warned:    1,
		Findings:  []byte(`[{"id":"bash-denied","pass":false}]`),
	}
	if err := store.InsertRun(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected insert to assign an id")
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Suite != "config" || got.OK || got.Passed != 8 || got.Failed != 1 || got.Warned != 1 {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("expected started_at %v, got %v", started, got.StartedAt)
	}
	if string(got.Findings) != `[{"id":"bash-denied","pass":false}]` {
		t.Fatalf("unexpected findings: %s", got.Findings)
	}
}

func TestInsertRunDefaultsFindings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{StartedAt: time.Now(), Suite: "links", OK: true}
	if err := store.InsertRun(ctx, run); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Findings) != "[]" {
		t.Fatalf("expected empty findings array, got %s", got.Findings)
	}
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		suiteName := "config"
		if i%2 == 1 {
			suiteName = "links"
		}
		run := &Run{StartedAt: time.Now().Add(time.Duration(i) * time.Minute), Suite: suiteName, OK: true}
		if err := store.InsertRun(ctx, run); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(ctx, "", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected limit of 3 runs, got %d", len(runs))
	}
	if runs[0].ID < runs[1].ID {
		t.Fatal("expected newest run first")
	}

	runs, err = store.ListRuns(ctx, "links", 0)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 links runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Suite != "links" {
			t.Fatalf("filter leaked suite %s", r.Suite)
		}
	}
}

func TestPurgeOldRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	old := &Run{StartedAt: cutoff.Add(-24 * time.Hour), Suite: "config", OK: true}
	recent := &Run{StartedAt: cutoff.Add(24 * time.Hour), Suite: "config", OK: true}
	for _, r := range []*Run{old, recent} {
		if err := store.InsertRun(ctx, r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	deleted, err := store.PurgeOldRuns(ctx, cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 purged run, got %d", deleted)
	}

	if _, err := store.GetRun(ctx, old.ID); err == nil {
		t.Fatal("expected purged run to be gone")
	}
	if _, err := store.GetRun(ctx, recent.ID); err != nil {
		t.Fatalf("recent run should survive purge: %v", err)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := NewSQLiteStore(path, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	run := &Run{StartedAt: time.Now(), Suite: "config", OK: true}
	if err := store.InsertRun(context.Background(), run); err != nil {
		t.Fatalf("insert: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(path, 1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRun(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Suite != "config" {
		t.Fatalf("unexpected run after reopen: %+v", got)
	}
}
