package persist_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/persist"
	"github.com/starford/shelf/internal/storage"
	"github.com/starford/shelf/internal/testutil"
)

type interval struct {
	start, end time.Time
}

// slowDocs is a document writer that takes a while and records when each
// write ran.
type slowDocs struct {
	*storage.Memory
	delay  time.Duration
	active atomic.Int32
	mu     sync.Mutex
	writes []interval
	fail   []error
}

func (d *slowDocs) WriteDocument(ctx context.Context, data []byte) error {
	if d.active.Add(1) != 1 {
		panic("overlapping document writes")
	}
	defer d.active.Add(-1)

	start := time.Now()
	time.Sleep(d.delay)

	d.mu.Lock()
	var err error
	if len(d.fail) > 0 {
		err, d.fail = d.fail[0], d.fail[1:]
	}
	d.writes = append(d.writes, interval{start: start, end: time.Now()})
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.Memory.WriteDocument(ctx, data)
}

func (d *slowDocs) intervals() []interval {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]interval(nil), d.writes...)
}

// gatedDocs blocks document writes until gate is closed, when gate is set.
type gatedDocs struct {
	*storage.Memory
	gate    chan struct{}
	started chan struct{}
}

func (d *gatedDocs) WriteDocument(ctx context.Context, data []byte) error {
	if d.gate != nil {
		close(d.started)
		<-d.gate
	}
	return d.Memory.WriteDocument(ctx, data)
}

func newCoordinator(t *testing.T, docs persist.Documents, opts ...persist.Option) (*library.Library, *persist.Coordinator) {
	t.Helper()
	lib, _ := testutil.TestLibrary(t)
	defaults := []persist.Option{
		persist.WithLogger(testutil.Logger()),
		persist.WithStatusIDs(testutil.SequentialIDs("status")),
	}
	coord := persist.New(lib, docs, append(defaults, opts...)...)
	lib.SetSaver(coord)
	return lib, coord
}

func TestSave_ConcurrentCallsWriteSequentially(t *testing.T) {
	t.Parallel()
	docs := &slowDocs{Memory: storage.NewMemory(nil), delay: 5 * time.Millisecond}
	_, coord := newCoordinator(t, docs)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- coord.Save(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	writes := docs.intervals()
	require.Len(t, writes, n)
	for i := 1; i < len(writes); i++ {
		require.False(t, writes[i].start.Before(writes[i-1].end),
			"write %d started before write %d ended", i, i-1)
	}
	require.False(t, coord.Saving())
}

func TestSave_WaitHonoursContext(t *testing.T) {
	t.Parallel()
	docs := &slowDocs{Memory: storage.NewMemory(nil), delay: 50 * time.Millisecond}
	_, coord := newCoordinator(t, docs)

	go func() { _ = coord.Save(context.Background()) }()
	require.Eventually(t, coord.Saving, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, coord.Save(ctx), context.DeadlineExceeded)

	require.Eventually(t, func() bool { return !coord.Saving() }, time.Second, time.Millisecond)
	require.Len(t, docs.intervals(), 1)
}

func TestSave_FailureReleasesGuard(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	docs := &slowDocs{Memory: storage.NewMemory(nil), fail: []error{boom}}
	_, coord := newCoordinator(t, docs)

	err := coord.Save(context.Background())
	require.ErrorIs(t, err, boom)
	require.False(t, coord.Saving())
	status := coord.Status().Get()
	require.NotNil(t, status)
	require.Equal(t, persist.KindError, status.Kind)

	require.NoError(t, coord.Save(context.Background()))
	require.Equal(t, persist.KindSaved, coord.Status().Get().Kind)
	require.Len(t, docs.intervals(), 2)
}

func TestSave_StatusSequence(t *testing.T) {
	t.Parallel()
	docs := storage.NewMemory(nil)
	_, coord := newCoordinator(t, docs, persist.WithClearDelay(0))

	var kinds []persist.Kind
	var ids []string
	unsub := coord.Status().Subscribe(func(s *persist.Status) {
		if s != nil {
			kinds = append(kinds, s.Kind)
			ids = append(ids, s.ID)
		}
	})
	defer unsub()

	require.NoError(t, coord.Save(context.Background()))
	require.Equal(t, []persist.Kind{persist.KindSaving, persist.KindSaved}, kinds)
	require.NotEqual(t, ids[0], ids[1])
}

func TestSave_DelayedClearKeepsNewerStatus(t *testing.T) {
	t.Parallel()
	docs := storage.NewMemory(nil)
	_, coord := newCoordinator(t, docs, persist.WithClearDelay(40*time.Millisecond))

	require.NoError(t, coord.Save(context.Background()))
	first := coord.Status().Get()
	require.Equal(t, persist.KindSaved, first.Kind)

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, coord.Save(context.Background()))
	second := coord.Status().Get()
	require.NotEqual(t, first.ID, second.ID)

	// The first clear fires around here and must leave the second status.
	time.Sleep(30 * time.Millisecond)
	cur := coord.Status().Get()
	require.NotNil(t, cur)
	require.Equal(t, second.ID, cur.ID)

	require.Eventually(t, func() bool { return coord.Status().Get() == nil }, time.Second, 5*time.Millisecond)
}

func TestLoad_WaitsForInflightSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs := &gatedDocs{Memory: storage.NewMemory(nil)}
	lib, coord := newCoordinator(t, docs)

	_, err := lib.CreateText(ctx, "", "a")
	require.NoError(t, err)

	docs.gate = make(chan struct{})
	docs.started = make(chan struct{})
	created := make(chan error, 1)
	go func() {
		_, err := lib.CreateText(ctx, "", "b")
		created <- err
	}()
	<-docs.started
	require.True(t, coord.Saving())

	loaded := make(chan error, 1)
	go func() { loaded <- coord.Load(ctx) }()

	select {
	case err := <-loaded:
		t.Fatalf("Load returned %v while a save was in flight", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(docs.gate)
	require.NoError(t, <-created)
	require.NoError(t, <-loaded)
	require.Equal(t, 2, lib.Nodes.Len())
}

func TestLoad_HonoursContextWhileSaving(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs := &gatedDocs{Memory: storage.NewMemory(nil), gate: make(chan struct{}), started: make(chan struct{})}
	lib, coord := newCoordinator(t, docs)

	created := make(chan error, 1)
	go func() {
		_, err := lib.CreateText(ctx, "", "a")
		created <- err
	}()
	<-docs.started

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, coord.Load(waitCtx), context.DeadlineExceeded)
	require.Equal(t, 1, lib.Nodes.Len())

	close(docs.gate)
	require.NoError(t, <-created)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs := storage.NewMemory(nil)
	lib, _ := newCoordinator(t, docs)

	dir, err := lib.CreateDirectoryPath(ctx, "projects/go")
	require.NoError(t, err)
	note, err := lib.CreateText(ctx, dir, "# Plan\nship it")
	require.NoError(t, err)
	_, err = lib.CreateImage(ctx, dir, library.ImageUpload{
		Name: "diagram.png", ContentType: "image/png", Data: []byte("png"),
	})
	require.NoError(t, err)
	modified := models.TimestampFromNanos(1_700_000_000_123_456_789)
	_, err = lib.CreateAnchor(ctx, "", models.Anchor{
		ContentURL:      "https://go.dev/doc",
		ContentType:     "text/html",
		Title:           "Docs",
		ContentModified: &modified,
	})
	require.NoError(t, err)
	tags, err := lib.TagNames(ctx, []string{"work", "golang"})
	require.NoError(t, err)
	_, err = lib.SetTags(ctx, note.ID, tags)
	require.NoError(t, err)
	_, err = lib.CreateText(ctx, models.TrashID, "old")
	require.NoError(t, err)

	want := lib.Snapshot()

	fresh, _ := testutil.TestLibrary(t)
	loader := persist.New(fresh, docs, persist.WithLogger(testutil.Logger()))
	require.NoError(t, loader.Load(ctx))

	got := fresh.Snapshot()
	require.Equal(t, want.Nodes, got.Nodes)
	require.Equal(t, want.Files, got.Files)
	require.Equal(t, want.Tags, got.Tags)
	require.Equal(t, models.SchemaVersion, got.Version)
}

func TestLoad_MissingDocumentIsEmpty(t *testing.T) {
	t.Parallel()
	lib, coord := newCoordinator(t, storage.NewMemory(nil))
	lib.Hydrate(models.Library{Nodes: []models.Node{{ID: "stale", Body: models.Text{}}}})

	require.NoError(t, coord.Load(context.Background()))
	require.Equal(t, 0, lib.Nodes.Len())
	require.NotNil(t, lib.Tags.All())
}

func TestLoad_MissingCollectionsDefaultToEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	docs := storage.NewMemory(nil)
	require.NoError(t, docs.WriteDocument(ctx, []byte(
		`{"nodes":[{"id":"d","type":"directory","name":"D","index":0,"created":"1700000000000000001"}],"version":1}`)))

	lib, coord := newCoordinator(t, docs)
	require.NoError(t, coord.Load(ctx))
	require.Equal(t, 1, lib.Nodes.Len())
	require.Empty(t, lib.Tags.All())
	require.Empty(t, lib.Files.All())
	d, ok := lib.Nodes.Get("d")
	require.True(t, ok)
	require.Equal(t, int64(1700000000000000001), d.Created.UnixNano())
}

func TestLoad_InvalidDocumentLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"not json":        `{"nodes":`,
		"nodes not array": `{"nodes":{"id":"x"}}`,
		"unknown variant": `{"nodes":[{"id":"x","type":"video","index":0}]}`,
		"missing type":    `{"nodes":[{"id":"x","index":0}]}`,
		"duplicate ids": `{"nodes":[{"id":"x","type":"text","index":0},` +
			`{"id":"x","type":"text","index":1}]}`,
		"index gap":      `{"nodes":[{"id":"x","type":"text","index":1}]}`,
		"broken parent":  `{"nodes":[{"id":"x","type":"text","index":0,"parentID":"nowhere"}]}`,
		"text parent":    `{"nodes":[{"id":"x","type":"text","index":0},{"id":"y","type":"text","index":1,"parentID":"x"}]}`,
		"nameless dir":   `{"nodes":[{"id":"x","type":"directory","index":0}]}`,
		"reserved id":    `{"nodes":[{"id":"trash","type":"directory","name":"T","index":0}]}`,
		"future version": `{"nodes":[],"version":99}`,
		"tag without id": `{"tags":[{"name":"x"}]}`,
		"duplicate file": `{"files":[{"id":"f","type":"image/png"},{"id":"f","type":"image/png"}]}`,
		"shared file": `{"files":[{"id":"f","type":"image/png"}],"nodes":[` +
			`{"id":"a","type":"image","fileID":"f","index":0},` +
			`{"id":"b","type":"image","fileID":"f","index":1}]}`,
		"missing file": `{"nodes":[{"id":"a","type":"image","fileID":"ghost","index":0}]}`,
		"anchor shares": `{"files":[{"id":"f","type":"image/png"}],"nodes":[` +
			`{"id":"a","type":"image","fileID":"f","index":0},` +
			`{"id":"b","type":"anchor","contentURL":"https://go.dev","contentImageFileID":"f","index":1}]}`,
		"missing preview": `{"nodes":[{"id":"a","type":"anchor","contentURL":"https://go.dev","contentImageFileID":"ghost","index":0}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			docs := storage.NewMemory(nil)
			lib, coord := newCoordinator(t, docs)
			_, err := lib.CreateText(ctx, "", "existing")
			require.NoError(t, err)
			before := lib.Snapshot()

			require.NoError(t, docs.WriteDocument(ctx, []byte(raw)))
			err = coord.Load(ctx)
			require.ErrorIs(t, err, persist.ErrInvalidDocument)
			require.Equal(t, before, lib.Snapshot())
		})
	}
}
