// Package persist saves and loads the library document through the host
// storage bridge and reports save progress as an observable status.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// DefaultClearDelay is how long a "saved" status stays visible.
const DefaultClearDelay = 5 * time.Second

// Kind classifies a save status.
type Kind string

// Status kinds.
const (
	KindSaving Kind = "saving"
	KindSaved  Kind = "saved"
	KindError  Kind = "error"
)

// Status is a transient save notification. Every status carries a fresh id
// so that a delayed clear removes only the status it was scheduled for.
type Status struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	Message   string `json:"message"`
	ElapsedMS int64  `json:"elapsedMs,omitempty"`
}

// Store is the in-memory side the coordinator snapshots and hydrates.
type Store interface {
	Snapshot() models.Library
	Hydrate(doc models.Library)
}

// Documents reads and writes the raw library document.
type Documents interface {
	ReadDocument(ctx context.Context) ([]byte, error)
	WriteDocument(ctx context.Context, data []byte) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClearDelay sets how long a "saved" status is kept before it is
// cleared. Zero or negative keeps it until the next status.
func WithClearDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		c.clearDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithStatusIDs replaces the status id source.
func WithStatusIDs(fn func() string) Option {
	return func(c *Coordinator) {
		c.newID = fn
	}
}

// Coordinator serialises writes of the library document. At most one write
// is in flight; later callers wait for it to finish and then write the
// snapshot current at that time.
type Coordinator struct {
	store      Store
	docs       Documents
	logger     *slog.Logger
	clearDelay time.Duration
	newID      func() string

	mu       sync.Mutex
	inflight chan struct{}
	status   *observable.Value[*Status]
}

// New creates a Coordinator.
func New(store Store, docs Documents, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		docs:       docs,
		logger:     slog.Default(),
		clearDelay: DefaultClearDelay,
		newID:      uuid.NewString,
		status:     observable.New[*Status](nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status exposes the current save status; nil means idle.
func (c *Coordinator) Status() *observable.Value[*Status] { return c.status }

// Saving reports whether a write is in flight.
func (c *Coordinator) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

// Save writes the current snapshot. If another save is in flight it waits
// for that one to finish first. The wait honours ctx; the write itself runs
// to completion once started.
func (c *Coordinator) Save(ctx context.Context) error {
	done, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.release(done)

	c.publish(&Status{ID: c.newID(), Kind: KindSaving, Message: "Saving"})
	start := time.Now()

	data, err := Encode(c.store.Snapshot())
	if err == nil {
		err = c.docs.WriteDocument(context.WithoutCancel(ctx), data)
	}
	if err != nil {
		c.logger.Error("save failed", slog.String("error", err.Error()))
		c.publish(&Status{ID: c.newID(), Kind: KindError, Message: err.Error()})
		return fmt.Errorf("save library: %w", err)
	}

	elapsed := time.Since(start)
	saved := &Status{
		ID:        c.newID(),
		Kind:      KindSaved,
		Message:   fmt.Sprintf("Saved in %dms", elapsed.Milliseconds()),
		ElapsedMS: elapsed.Milliseconds(),
	}
	c.publish(saved)
	c.logger.Debug("library saved",
		slog.Int("bytes", len(data)),
		slog.Duration("elapsed", elapsed),
	)
	if c.clearDelay > 0 {
		time.AfterFunc(c.clearDelay, func() { c.clear(saved.ID) })
	}
	return nil
}

// acquire waits until no write is in flight and claims the guard.
func (c *Coordinator) acquire(ctx context.Context) (chan struct{}, error) {
	for {
		c.mu.Lock()
		prev := c.inflight
		if prev == nil {
			done := make(chan struct{})
			c.inflight = done
			c.mu.Unlock()
			return done, nil
		}
		c.mu.Unlock()

		select {
		case <-prev:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Coordinator) release(done chan struct{}) {
	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(done)
}

func (c *Coordinator) publish(s *Status) {
	c.status.Set(s)
}

// clear removes the status with the given id if it is still current.
func (c *Coordinator) clear(id string) {
	c.status.Update(func(cur *Status) (*Status, bool) {
		if cur == nil || cur.ID != id {
			return cur, false
		}
		return nil, true
	})
}

// Load reads, validates and hydrates the stored document. A missing
// document loads as an empty library. An invalid document leaves the store
// untouched and returns an error wrapping ErrInvalidDocument. Load waits for
// an in-flight write and holds the guard while it reads and hydrates.
func (c *Coordinator) Load(ctx context.Context) error {
	done, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.release(done)

	data, err := c.docs.ReadDocument(ctx)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Info("no library document, starting empty")
		c.store.Hydrate(models.Library{Version: models.SchemaVersion})
		return nil
	}
	if err != nil {
		return fmt.Errorf("read library: %w", err)
	}

	doc, err := Decode(data)
	if err != nil {
		return err
	}
	c.store.Hydrate(doc)
	c.logger.Info("library loaded",
		slog.Int("nodes", len(doc.Nodes)),
		slog.Int("files", len(doc.Files)),
		slog.Int("tags", len(doc.Tags)),
	)
	return nil
}
