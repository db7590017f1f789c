package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/shelf/internal/fold"
	"github.com/starford/shelf/internal/models"
)

// TrashName is the display name of the trash pseudo-directory.
const TrashName = "Trash"

// ResolvePath returns the absolute, "/"-joined path of directory names from
// the root to id. The trash resolves to "Trash", and a directory whose chain
// ends in the trash resolves under it ("Trash/A/B"). A parent reference that
// does not resolve fails with ErrBrokenParent.
func (s *NodeStore) ResolvePath(id string) (string, error) {
	switch id {
	case "":
		return "/", nil
	case models.TrashID:
		return TrashName, nil
	}
	return resolvePath(s.snap.Get(), id)
}

func resolvePath(nodes []models.Node, id string) (string, error) {
	var names []string
	cur := id
	for hops := 0; ; hops++ {
		if hops > len(nodes) {
			return "", fmt.Errorf("resolve %q: %w", id, ErrCycle)
		}
		pos := position(nodes, cur)
		if pos < 0 {
			if cur == id {
				return "", notFound("directory", id)
			}
			return "", fmt.Errorf("resolve %q: parent %q: %w", id, cur, ErrBrokenParent)
		}
		name, ok := nodes[pos].DirectoryName()
		if !ok {
			if cur == id {
				return "", fmt.Errorf("resolve %q: %w", id, ErrNotDirectory)
			}
			return "", fmt.Errorf("resolve %q: parent %q: %w", id, cur, ErrBrokenParent)
		}
		names = append(names, name)

		switch parent := nodes[pos].ParentID; parent {
		case "":
			reverse(names)
			return "/" + strings.Join(names, "/"), nil
		case models.TrashID:
			reverse(names)
			return TrashName + "/" + strings.Join(names, "/"), nil
		default:
			cur = parent
		}
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// FindDirectory returns the directory child of parentID whose name matches
// name ignoring accents and case.
func (l *Library) FindDirectory(parentID, name string) (models.Node, bool) {
	n, ok := findDirectory(l.Nodes.snap.Get(), parentID, name)
	if !ok {
		return models.Node{}, false
	}
	return n.Clone(), true
}

func findDirectory(nodes []models.Node, parentID, name string) (models.Node, bool) {
	key := fold.Key(name)
	for _, n := range nodes {
		if n.ParentID != parentID {
			continue
		}
		if dn, ok := n.DirectoryName(); ok && fold.Key(dn) == key {
			return n, true
		}
	}
	return models.Node{}, false
}

// CreateDirectoryPath walks path segment by segment from the root, reusing
// matching directories and creating missing ones, and returns the id of the
// deepest directory. Empty segments are ignored; an empty path returns "".
// All new directories are published together and persisted once.
func (l *Library) CreateDirectoryPath(ctx context.Context, path string) (string, error) {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "", nil
	}

	l.mu.Lock()
	nodes := l.Nodes.snap.Get()
	files := l.Files.snap.Get()
	parent, created := "", 0
	for _, seg := range segments {
		if existing, ok := findDirectory(nodes, parent, seg); ok {
			parent = existing.ID
			continue
		}
		ts := l.timestamp()
		next, added, err := appendNode(nodes, files, models.Node{
			ID:       l.newID(),
			Created:  ts,
			Modified: ts,
			ParentID: parent,
			Body:     models.Directory{Name: seg},
		})
		if err != nil {
			l.mu.Unlock()
			return "", err
		}
		nodes = next
		parent = added.ID
		created++
	}
	if created > 0 {
		l.Nodes.snap.Set(nodes)
	}
	l.mu.Unlock()

	if created == 0 {
		return parent, nil
	}
	l.logger.Debug("directory path created", slog.String("path", path), slog.Int("created", created))
	return parent, l.persist(ctx)
}
