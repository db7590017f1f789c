package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/shelf/internal/fold"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// TagStore holds the tag definitions. Creation never deduplicates; callers
// that want find-or-create semantics use Library.TagNames.
type TagStore struct {
	lib  *Library
	snap *observable.Value[[]models.Tag]
}

// Observable exposes the tag snapshots.
func (s *TagStore) Observable() *observable.Value[[]models.Tag] { return s.snap }

// All returns the current snapshot. The slice is shared and read-only.
func (s *TagStore) All() []models.Tag { return s.snap.Get() }

// Create appends a tag with a fresh id and persists.
func (s *TagStore) Create(ctx context.Context, name string) (models.Tag, error) {
	if strings.TrimSpace(name) == "" {
		return models.Tag{}, fmt.Errorf("create tag: %w", ErrEmptyName)
	}
	s.lib.mu.Lock()
	tag := s.createLocked(name)
	s.lib.mu.Unlock()

	if err := s.lib.persist(ctx); err != nil {
		return tag, err
	}
	return tag, nil
}

// Find returns the first tag whose name matches name ignoring accents and
// case.
func (s *TagStore) Find(name string) (models.Tag, bool) {
	return findTag(s.snap.Get(), name)
}

// Get returns the tag with the given id.
func (s *TagStore) Get(id string) (models.Tag, bool) {
	for _, t := range s.snap.Get() {
		if t.ID == id {
			return t, true
		}
	}
	return models.Tag{}, false
}

// Name returns the name of the tag with the given id.
func (s *TagStore) Name(id string) (string, bool) {
	t, ok := s.Get(id)
	return t.Name, ok
}

func (s *TagStore) createLocked(name string) models.Tag {
	tag := models.Tag{ID: s.lib.newID(), Name: name}
	tags := s.snap.Get()
	next := make([]models.Tag, len(tags), len(tags)+1)
	copy(next, tags)
	s.snap.Set(append(next, tag))
	return tag
}

func findTag(tags []models.Tag, name string) (models.Tag, bool) {
	key := fold.Key(name)
	for _, t := range tags {
		if fold.Key(t.Name) == key {
			return t, true
		}
	}
	return models.Tag{}, false
}
