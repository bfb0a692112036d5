package trace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0x6d61/hopper/internal/client"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore(:memory:) returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTrace(id, startURL string) *Trace {
	return &Trace{
		ID:         id,
		Method:     "GET",
		StartURL:   startURL,
		FinalURL:   startURL + "landing",
		StatusCode: 200,
		Outcome:    "ok",
		Hops: []client.Hop{
			{Method: "GET", URL: startURL, StatusCode: 302, Location: startURL + "landing"},
		},
		Duration: 120 * time.Millisecond,
	}
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tr := sampleTrace("trace-1", "http://example.com/")
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load(ctx, "http://example.com/")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil trace")
	}
	if loaded.ID != "trace-1" {
		t.Errorf("ID = %q, want %q", loaded.ID, "trace-1")
	}
	if loaded.FinalURL != "http://example.com/landing" {
		t.Errorf("FinalURL = %q, want %q", loaded.FinalURL, "http://example.com/landing")
	}
	if loaded.Duration != 120*time.Millisecond {
		t.Errorf("Duration = %v, want 120ms", loaded.Duration)
	}
	if len(loaded.Hops) != 1 {
		t.Fatalf("Hops length = %d, want 1", len(loaded.Hops))
	}
	if loaded.Hops[0].StatusCode != 302 {
		t.Errorf("Hops[0].StatusCode = %d, want 302", loaded.Hops[0].StatusCode)
	}
	if loaded.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestSQLiteStore_LoadReturnsLatest(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	older := sampleTrace("older", "http://example.com/")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := sampleTrace("newer", "http://example.com/")
	newer.StatusCode = 404

	for _, tr := range []*Trace{newer, older} {
		if err := store.Save(ctx, tr); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	loaded, err := store.Load(ctx, "http://example.com/")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded == nil || loaded.ID != "newer" {
		t.Fatalf("Load = %+v, want trace %q", loaded, "newer")
	}
}

func TestSQLiteStore_List(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)
	for i, id := range []string{"a", "b", "c"} {
		tr := sampleTrace(id, "http://example.com/"+id+"/")
		tr.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.Save(ctx, tr); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("List returned %d summaries, want 3", len(summaries))
	}
	want := []string{"c", "b", "a"}
	for i, s := range summaries {
		if s.ID != want[i] {
			t.Errorf("summaries[%d].ID = %q, want %q", i, s.ID, want[i])
		}
		if s.Redirects != 1 {
			t.Errorf("summaries[%d].Redirects = %d, want 1", i, s.Redirects)
		}
		if s.CreatedAt.IsZero() {
			t.Errorf("summaries[%d] has zero CreatedAt", i)
		}
	}
}

func TestSQLiteStore_SaveUpdate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tr := sampleTrace("update-id", "http://example.com/")
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("first Save returned error: %v", err)
	}
	tr.Outcome = "redirect_loop"
	tr.Error = "loop"
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("second Save returned error: %v", err)
	}

	loaded, err := store.LoadByID(ctx, "update-id")
	if err != nil {
		t.Fatalf("LoadByID returned error: %v", err)
	}
	if loaded.Outcome != "redirect_loop" {
		t.Errorf("Outcome = %q, want %q", loaded.Outcome, "redirect_loop")
	}

	summaries, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(summaries) != 1 {
		t.Errorf("List returned %d summaries after update, want 1", len(summaries))
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleTrace("delete-me", "http://example.com/")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Delete(ctx, "delete-me"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	loaded, err := store.LoadByID(ctx, "delete-me")
	if err != nil {
		t.Fatalf("LoadByID returned error after delete: %v", err)
	}
	if loaded != nil {
		t.Error("LoadByID returned non-nil after delete")
	}

	if err := store.Delete(ctx, "delete-me"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_LoadNotFound(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	loaded, err := store.Load(ctx, "http://nonexistent.com/")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded != nil {
		t.Error("Load returned non-nil for unknown URL")
	}

	loaded, err = store.LoadByID(ctx, "nonexistent-id")
	if err != nil {
		t.Fatalf("LoadByID returned error: %v", err)
	}
	if loaded != nil {
		t.Error("LoadByID returned non-nil for unknown ID")
	}
}

func TestSQLiteStore_Cleanup(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	old := sampleTrace("old", "http://example.com/old/")
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	if err := store.Save(ctx, old); err != nil {
		t.Fatalf("Save old trace: %v", err)
	}
	if err := store.Save(ctx, sampleTrace("new", "http://example.com/new/")); err != nil {
		t.Fatalf("Save new trace: %v", err)
	}

	deleted, err := store.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup returned error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Cleanup deleted %d traces, want 1", deleted)
	}

	if loaded, _ := store.LoadByID(ctx, "old"); loaded != nil {
		t.Error("old trace still exists after cleanup")
	}
	if loaded, _ := store.LoadByID(ctx, "new"); loaded == nil {
		t.Error("new trace was removed by cleanup")
	}
}

func TestSQLiteStore_EmptyID(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tr := sampleTrace("", "http://example.com/auto/")
	if err := store.Save(ctx, tr); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if len(tr.ID) != 36 {
		t.Fatalf("generated ID = %q, want a UUID", tr.ID)
	}

	loaded, err := store.LoadByID(ctx, tr.ID)
	if err != nil {
		t.Fatalf("LoadByID returned error: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadByID returned nil for generated ID")
	}
}

func TestSQLiteStore_FileBacked(t *testing.T) {
	path := t.TempDir() + "/traces.db"
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%s) returned error: %v", path, err)
	}
	if err := store.Save(ctx, sampleTrace("persisted", "http://example.com/")); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadByID(ctx, "persisted")
	if err != nil || loaded == nil {
		t.Fatalf("LoadByID after reopen = %v, %v", loaded, err)
	}
}
