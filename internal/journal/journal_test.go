package journal

import (
	"context"
	"path/filepath"
	"testing"

	"weft/internal/mesh"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "weft", "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	entries := []mesh.JournalEntry{
		{Mesh: "office", Op: "init", Target: "hq", Outcome: "ok", Detail: "anchor 10.20.0.1"},
		{Mesh: "office", Op: "add", Target: "web_1", Outcome: "ok", Detail: "10.20.0.2"},
		{Mesh: "lab", Op: "init", Target: "bench", Outcome: "ok"},
		{Mesh: "office", Op: "push", Outcome: "partial", Detail: "synced 1, skipped 1"},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := j.List(ctx, "office", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() = %d entries, want 3 (filtered by mesh)", len(got))
	}
	if got[0].Op != "push" || got[2].Op != "init" {
		t.Errorf("order = %s..%s, want newest first", got[0].Op, got[2].Op)
	}
	if got[0].At.IsZero() {
		t.Error("timestamp not recorded")
	}
}

func TestListLimit(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := j.Record(ctx, mesh.JournalEntry{Mesh: "office", Op: "push", Outcome: "ok"}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := j.List(ctx, "office", 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(limit=2) = %d entries", len(got))
	}
}

func TestListEmpty(t *testing.T) {
	j := openTest(t)
	got, err := j.List(context.Background(), "nowhere", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %d entries, want 0", len(got))
	}
}
