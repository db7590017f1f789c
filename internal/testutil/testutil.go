// Package testutil provides shared test helpers for libraries, bridges and databases.
package testutil

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/nodeservice"
	"github.com/starford/shelf/internal/persist"
	"github.com/starford/shelf/internal/storage"
)

// Epoch is the first instant handed out by Clock.
var Epoch = time.Date(2025, 1, 2, 3, 4, 5, 600_000_007, time.UTC)

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Clock returns a time source starting at Epoch that advances by step on
// every call.
func Clock(step time.Duration) func() time.Time {
	var (
		mu  sync.Mutex
		cur = Epoch
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

// SequentialIDs returns an id source yielding prefix-1, prefix-2, ...
func SequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// TestLibrary creates a library over an in-memory bridge with sequential ids
// and a clock that ticks one millisecond per call. Extra options are applied
// after the defaults.
func TestLibrary(t *testing.T, opts ...library.Option) (*library.Library, *storage.Memory) {
	t.Helper()
	bridge := storage.NewMemory(Clock(time.Millisecond))
	defaults := []library.Option{
		library.WithIDs(SequentialIDs("id")),
		library.WithLogger(Logger()),
	}
	return library.New(bridge, append(defaults, opts...)...), bridge
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "shelf-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService wires a test library, a save coordinator over the same bridge
// and a temporary index into a node service.
func TestService(t *testing.T) (*nodeservice.Service, *index.DB, *persist.Coordinator) {
	t.Helper()
	lib, bridge := TestLibrary(t)
	coord := persist.New(lib, bridge,
		persist.WithLogger(Logger()),
		persist.WithClearDelay(0),
		persist.WithStatusIDs(SequentialIDs("status")),
	)
	lib.SetSaver(coord)
	db := TestDB(t)
	return nodeservice.NewService(lib, db, coord), db, coord
}

// Reindex brings db in line with the library's current nodes.
func Reindex(t *testing.T, db *index.DB, lib *library.Library) {
	t.Helper()
	if err := index.Sync(db, lib.Nodes.All(), lib.Tags.Name, Logger(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

// TestRoot creates a temporary library root with a filesystem bridge.
func TestRoot(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root, "")
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}
