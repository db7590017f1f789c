package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// FileStore holds the metadata of stored blobs.
type FileStore struct {
	lib  *Library
	snap *observable.Value[[]models.File]
}

// Observable exposes the file snapshots.
func (s *FileStore) Observable() *observable.Value[[]models.File] { return s.snap }

// All returns the current snapshot. The slice is shared and read-only.
func (s *FileStore) All() []models.File { return s.snap.Get() }

// Get returns the file with the given id.
func (s *FileStore) Get(id string) (models.File, bool) {
	files := s.snap.Get()
	if i := filePosition(files, id); i >= 0 {
		return cloneFile(files[i]), true
	}
	return models.File{}, false
}

// Add appends a file record. It does not write the blob or persist.
func (s *FileStore) Add(file models.File) error {
	if file.ID == "" {
		return fmt.Errorf("add file: empty id: %w", ErrEmptyName)
	}
	s.lib.mu.Lock()
	defer s.lib.mu.Unlock()

	files := s.snap.Get()
	if filePosition(files, file.ID) >= 0 {
		return fmt.Errorf("add file %q: %w", file.ID, ErrDuplicateID)
	}
	next := make([]models.File, len(files), len(files)+1)
	copy(next, files)
	s.snap.Set(append(next, cloneFile(file)))
	return nil
}

// Remove deletes the blob through the bridge, then drops the record and
// persists. Unknown ids are a no-op. A file still referenced by a node
// cannot be removed on its own; remove the node instead.
func (s *FileStore) Remove(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return nil
	}
	if owner, ok := fileOwner(s.lib.Nodes.snap.Get(), id); ok {
		return fmt.Errorf("remove file %q owned by %q: %w", id, owner, ErrFileInUse)
	}
	if err := s.deleteBlob(ctx, id); err != nil {
		return err
	}

	s.lib.mu.Lock()
	files, changed := dropFiles(s.snap.Get(), []string{id})
	if changed {
		s.snap.Set(files)
	}
	s.lib.mu.Unlock()

	if !changed {
		return nil
	}
	return s.lib.persist(ctx)
}

// deleteBlob asks the bridge to delete a blob. A blob that is already gone
// is logged and ignored.
func (s *FileStore) deleteBlob(ctx context.Context, id string) error {
	err := s.lib.bridge.DeleteBlob(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		s.lib.logger.Warn("blob already missing", slog.String("file_id", id))
		return nil
	default:
		return fmt.Errorf("delete blob %q: %w", id, err)
	}
}

func dropFiles(files []models.File, ids []string) ([]models.File, bool) {
	if len(ids) == 0 {
		return files, false
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]models.File, 0, len(files))
	for _, f := range files {
		if _, ok := drop[f.ID]; ok {
			continue
		}
		out = append(out, f)
	}
	return out, len(out) != len(files)
}

func filePosition(files []models.File, id string) int {
	for i, f := range files {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func cloneFile(f models.File) models.File {
	if f.Modified != nil {
		m := *f.Modified
		f.Modified = &m
	}
	return f
}
