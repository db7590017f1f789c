package nodeservice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/testutil"
)

func TestGetNode_LocationAndTags(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	lib := svc.Library()
	ctx := context.Background()

	leaf, err := lib.CreateDirectoryPath(ctx, "work/notes")
	require.NoError(t, err)
	note, err := lib.CreateText(ctx, leaf, "hello")
	require.NoError(t, err)
	tags, err := lib.TagNames(ctx, []string{"Urgent"})
	require.NoError(t, err)
	_, err = lib.SetTags(ctx, note.ID, tags)
	require.NoError(t, err)

	detail, err := svc.GetNode(ctx, note.ID)
	require.NoError(t, err)
	require.Equal(t, "/work/notes", detail.Location)
	require.Equal(t, []string{"Urgent"}, detail.TagNames)
	require.Nil(t, detail.File)

	dir, err := svc.GetNode(ctx, leaf)
	require.NoError(t, err)
	require.Equal(t, "/work/notes", dir.Location)

	_, err = svc.GetNode(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetNode_ImageCarriesFile(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	img, err := svc.Library().CreateImage(ctx, "", library.ImageUpload{
		Name:        "cat.png",
		ContentType: "image/png",
		Data:        []byte("png"),
	})
	require.NoError(t, err)

	detail, err := svc.GetNode(ctx, img.ID)
	require.NoError(t, err)
	require.Equal(t, "/", detail.Location)
	require.NotNil(t, detail.File)
	require.Equal(t, "cat.png", detail.File.Name)
}

func TestListChildren(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	lib := svc.Library()
	ctx := context.Background()

	dir, err := lib.CreateDirectory(ctx, "", "inbox")
	require.NoError(t, err)
	a, err := lib.CreateText(ctx, dir.ID, "first")
	require.NoError(t, err)
	b, err := lib.CreateText(ctx, dir.ID, "second")
	require.NoError(t, err)

	items, err := svc.ListChildren(ctx, dir.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, a.ID, items[0].ID)
	require.Equal(t, b.ID, items[1].ID)
	require.Equal(t, "second", items[1].Text)

	root, err := svc.ListChildren(ctx, "")
	require.NoError(t, err)
	require.Len(t, root, 1)

	trash, err := svc.ListChildren(ctx, models.TrashID)
	require.NoError(t, err)
	require.Empty(t, trash)

	_, err = svc.ListChildren(ctx, a.ID)
	require.ErrorIs(t, err, library.ErrNotDirectory)
	_, err = svc.ListChildren(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearch_DropsStaleHits(t *testing.T) {
	t.Parallel()
	svc, db, _ := testutil.TestService(t)
	lib := svc.Library()
	ctx := context.Background()

	keep, err := lib.CreateText(ctx, "", "zebra crossing")
	require.NoError(t, err)
	gone, err := lib.CreateText(ctx, "", "zebra stripes")
	require.NoError(t, err)
	testutil.Reindex(t, db, lib)

	require.NoError(t, lib.Nodes.Remove(ctx, gone.ID))

	hits, err := svc.Search(ctx, "zebra", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, keep.ID, hits[0].ID)

	_, err = svc.Search(ctx, "  ", 10)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestListTagged(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	lib := svc.Library()
	ctx := context.Background()

	note, err := lib.CreateText(ctx, "", "menu")
	require.NoError(t, err)
	_, err = lib.CreateText(ctx, "", "other")
	require.NoError(t, err)
	ids, err := lib.TagNames(ctx, []string{"Café"})
	require.NoError(t, err)
	_, err = lib.SetTags(ctx, note.ID, ids)
	require.NoError(t, err)

	items, err := svc.ListTagged(ctx, "CAFE")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, note.ID, items[0].ID)

	_, err = svc.ListTagged(ctx, "unknown")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTreeAndRemove(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	lib := svc.Library()
	ctx := context.Background()

	leaf, err := lib.CreateDirectoryPath(ctx, "a/b")
	require.NoError(t, err)
	_, err = lib.CreateText(ctx, leaf, "inside")
	require.NoError(t, err)

	forest, err := svc.Tree(ctx, "")
	require.NoError(t, err)
	require.Len(t, forest, 1)
	require.Equal(t, 2, forest[0].Size())

	top := forest[0].Directory.ID
	_, err = svc.Remove(ctx, top, false)
	require.ErrorIs(t, err, library.ErrDirectoryNotEmpty)

	n, err := svc.Remove(ctx, top, true)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Zero(t, lib.Nodes.Len())

	forest, err = svc.Tree(ctx, "")
	require.NoError(t, err)
	require.Empty(t, forest)
}

func TestTreeLabel(t *testing.T) {
	t.Parallel()
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	leaf, err := svc.Library().CreateDirectoryPath(ctx, "a/b")
	require.NoError(t, err)

	require.Equal(t, "/", svc.TreeLabel(""))
	require.Equal(t, library.TrashName, svc.TreeLabel(models.TrashID))
	require.Equal(t, "/a", svc.TreeLabel(leaf))
	require.Equal(t, "/", svc.TreeLabel("missing"))
}

func TestSave_WritesDocument(t *testing.T) {
	t.Parallel()
	svc, _, coord := testutil.TestService(t)
	ctx := context.Background()

	_, err := svc.Library().CreateText(ctx, "", "persisted")
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx))

	status := coord.Status().Get()
	require.NotNil(t, status)
	require.Equal(t, "saved", string(status.Kind))
}
