package index

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, id string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+id)
	r.mu.Unlock()
}

func (r *recorder) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestRowFor_TextNote(t *testing.T) {
	n := models.Node{
		ID:   "t",
		Tags: []string{"tag-1", "tag-x"},
		Body: models.Text{Content: "# Groceries\nmilk #errands #home"},
	}
	names := func(id string) (string, bool) {
		if id == "tag-1" {
			return "home", true
		}
		return "", false
	}
	row, err := RowFor(n, names)
	if err != nil {
		t.Fatalf("RowFor: %v", err)
	}
	if row.Title != "Groceries" || row.Type != "text" {
		t.Errorf("row = %+v", row)
	}
	want := []string{"home", "tag-x", "errands"}
	if len(row.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", row.Tags, want)
	}
	for i := range want {
		if row.Tags[i] != want[i] {
			t.Errorf("tags = %v, want %v", row.Tags, want)
		}
	}
	if row.Checksum == "" {
		t.Error("empty checksum")
	}
}

func TestRowFor_ChecksumIgnoresIndex(t *testing.T) {
	a := models.Node{ID: "d", Index: 0, Body: models.Directory{Name: "Docs"}}
	b := a
	b.Index = 7
	ra, _ := RowFor(a, nil)
	rb, _ := RowFor(b, nil)
	if ra.Checksum != rb.Checksum {
		t.Error("checksum changed with index")
	}
	b.ParentID = models.TrashID
	rc, _ := RowFor(b, nil)
	if rc.Checksum == ra.Checksum {
		t.Error("checksum did not change with parent")
	}
}

func TestRowFor_UnknownBody(t *testing.T) {
	if _, err := RowFor(models.Node{ID: "x"}, nil); err == nil {
		t.Error("expected error for node without body")
	}
}

func TestSync_CreatesUpdatesDeletes(t *testing.T) {
	db := testDB(t)
	rec := &recorder{}
	nodes := []models.Node{
		{ID: "a", Body: models.Text{Content: "alpha"}},
		{ID: "b", Index: 1, Body: models.Anchor{ContentURL: "https://example.org", Title: "Example"}},
	}
	if err := Sync(db, nodes, nil, quietLogger(), rec.record); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !rec.has("created:a") || !rec.has("created:b") {
		t.Errorf("events = %v", rec.events)
	}

	// Unchanged nodes are skipped.
	before := rec.count()
	_ = Sync(db, nodes, nil, quietLogger(), rec.record)
	if rec.count() != before {
		t.Errorf("unchanged sync emitted events: %v", rec.events[before:])
	}

	nodes = []models.Node{{ID: "a", Body: models.Text{Content: "alpha two"}}}
	_ = Sync(db, nodes, nil, quietLogger(), rec.record)
	if !rec.has("updated:a") || !rec.has("deleted:b") {
		t.Errorf("events = %v", rec.events)
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestWatch_FollowsLibrary(t *testing.T) {
	db := testDB(t)
	lib := library.New(storage.NewMemory(nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, db, lib.Nodes.Observable(), lib.Tags.Name, quietLogger(), rec.record)
	}()

	note, err := lib.CreateText(ctx, "", "watch me uniqueterm")
	if err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(note.ID)
		return cs != ""
	}, "new node not indexed by watcher")
	eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("created:" + note.ID)
	}, "expected created callback")

	if err := lib.Nodes.Remove(ctx, note.ID); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("deleted:" + note.ID)
	}, "expected deleted callback")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
