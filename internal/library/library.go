// Package library is the in-memory model of a Shelf library: the node, file
// and tag stores, path resolution and directory helpers.
//
// Every mutation builds a new slice from the previous snapshot and publishes
// it through the store's observable value in a single step, so a published
// snapshot is never modified afterwards. Mutations across all three stores are
// serialised by one mutex; persistence I/O happens after it is released.
package library

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
	"github.com/starford/shelf/internal/storage"
)

// Saver persists the current library state.
type Saver interface {
	Save(ctx context.Context) error
}

// Option configures a Library.
type Option func(*Library)

// WithIDs replaces the id source (uuid.NewString by default).
func WithIDs(fn func() string) Option {
	return func(l *Library) {
		l.newID = fn
	}
}

// WithClock replaces the time source (the bridge's Now by default).
func WithClock(fn func() time.Time) Option {
	return func(l *Library) {
		l.now = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithSaver sets the persistence hook called after mutations.
func WithSaver(s Saver) Option {
	return func(l *Library) {
		l.saver = s
	}
}

// Library aggregates the three stores over one host storage bridge.
type Library struct {
	mu     sync.Mutex
	bridge storage.Provider
	saver  Saver
	newID  func() string
	now    func() time.Time
	logger *slog.Logger

	Nodes *NodeStore
	Files *FileStore
	Tags  *TagStore
}

// New creates an empty library over bridge.
func New(bridge storage.Provider, opts ...Option) *Library {
	l := &Library{
		bridge: bridge,
		newID:  uuid.NewString,
		now:    bridge.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.Nodes = &NodeStore{lib: l, snap: observable.New([]models.Node{})}
	l.Files = &FileStore{lib: l, snap: observable.New([]models.File{})}
	l.Tags = &TagStore{lib: l, snap: observable.New([]models.Tag{})}
	return l
}

// SetSaver installs the persistence hook. It is meant to be called once
// while wiring, before the library is shared.
func (l *Library) SetSaver(s Saver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saver = s
}

// Bridge returns the host storage bridge.
func (l *Library) Bridge() storage.Provider { return l.bridge }

// Snapshot returns the current state as a library document.
func (l *Library) Snapshot() models.Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	return models.Library{
		Nodes:   l.Nodes.snap.Get(),
		Files:   l.Files.snap.Get(),
		Tags:    l.Tags.snap.Get(),
		Version: models.SchemaVersion,
	}
}

// Hydrate replaces the state of every store with doc. Missing collections
// become empty and nodes are put in index order. Files and tags are published
// before nodes, so a node listener always sees the files and tags its
// snapshot refers to; readers needing all three at once use Snapshot.
func (l *Library) Hydrate(doc models.Library) {
	nodes := slices.Clone(doc.Nodes)
	if nodes == nil {
		nodes = []models.Node{}
	}
	slices.SortStableFunc(nodes, func(a, b models.Node) int { return cmp.Compare(a.Index, b.Index) })

	files, tags := doc.Files, doc.Tags
	if files == nil {
		files = []models.File{}
	}
	if tags == nil {
		tags = []models.Tag{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.Files.snap.Set(files)
	l.Tags.snap.Set(tags)
	l.Nodes.snap.Set(nodes)
}

// persist runs the configured saver, if any.
func (l *Library) persist(ctx context.Context) error {
	l.mu.Lock()
	s := l.saver
	l.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Save(ctx)
}

func (l *Library) timestamp() models.Timestamp {
	return models.NewTimestamp(l.now())
}
