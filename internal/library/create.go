package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/shelf/internal/models"
)

// CreateText adds a text note under parentID and persists.
func (l *Library) CreateText(ctx context.Context, parentID, content string) (models.Node, error) {
	return l.create(ctx, parentID, models.Text{Content: content})
}

// CreateDirectory adds a directory under parentID and persists. Names are
// not deduplicated; see CreateDirectoryPath for find-or-create.
func (l *Library) CreateDirectory(ctx context.Context, parentID, name string) (models.Node, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return models.Node{}, fmt.Errorf("directory name %q: %w", name, ErrEmptyName)
	}
	return l.create(ctx, parentID, models.Directory{Name: name})
}

// CreateAnchor adds a bookmark under parentID and persists. A zero
// ContentAccessed is stamped with the current time.
func (l *Library) CreateAnchor(ctx context.Context, parentID string, anchor models.Anchor) (models.Node, error) {
	if anchor.ContentURL == "" {
		return models.Node{}, fmt.Errorf("anchor url: %w", ErrEmptyName)
	}
	if anchor.ContentAccessed.IsZero() {
		anchor.ContentAccessed = l.timestamp()
	}
	return l.create(ctx, parentID, anchor)
}

func (l *Library) create(ctx context.Context, parentID string, body models.Body) (models.Node, error) {
	ts := l.timestamp()
	node, err := l.Nodes.Add(models.Node{
		ID:       l.newID(),
		Created:  ts,
		Modified: ts,
		ParentID: parentID,
		Body:     body,
	})
	if err != nil {
		return models.Node{}, err
	}
	l.logger.Debug("node created",
		slog.String("id", node.ID),
		slog.String("type", string(node.Type())),
	)
	return node, l.persist(ctx)
}

// ImageUpload is the payload of CreateImage.
type ImageUpload struct {
	Name        string
	ContentType string
	URL         string
	Description string
	Data        []byte
}

// CreateImage stores the image bytes as a blob, then adds the file record
// and the owning image node in one step and persists. The blob is deleted
// again if the node cannot be added.
func (l *Library) CreateImage(ctx context.Context, parentID string, up ImageUpload) (models.Node, error) {
	if len(up.Data) == 0 {
		return models.Node{}, fmt.Errorf("image %q: no data: %w", up.Name, ErrEmptyName)
	}
	fileID := l.newID()
	if err := l.bridge.WriteBlob(ctx, fileID, up.Data); err != nil {
		return models.Node{}, fmt.Errorf("write blob: %w", err)
	}

	l.mu.Lock()
	ts := l.timestamp()
	file := models.File{
		ID:       fileID,
		Type:     up.ContentType,
		Name:     up.Name,
		URL:      up.URL,
		Accessed: ts,
	}
	files := l.Files.snap.Get()
	nextFiles := make([]models.File, len(files), len(files)+1)
	copy(nextFiles, files)
	nextFiles = append(nextFiles, file)

	nextNodes, node, err := appendNode(l.Nodes.snap.Get(), nextFiles, models.Node{
		ID:       l.newID(),
		Created:  ts,
		Modified: ts,
		ParentID: parentID,
		Body:     models.Image{FileID: fileID, Description: up.Description},
	})
	if err != nil {
		l.mu.Unlock()
		if derr := l.bridge.DeleteBlob(ctx, fileID); derr != nil {
			l.logger.Warn("orphan blob", slog.String("file_id", fileID), slog.String("error", derr.Error()))
		}
		return models.Node{}, err
	}
	l.Files.snap.Set(nextFiles)
	l.Nodes.snap.Set(nextNodes)
	l.mu.Unlock()

	l.logger.Debug("image created",
		slog.String("id", node.ID),
		slog.String("file_id", fileID),
		slog.Int("bytes", len(up.Data)),
	)
	return node, l.persist(ctx)
}

// EditText replaces the content of a text note and persists.
func (l *Library) EditText(ctx context.Context, id, content string) (models.Node, error) {
	node, err := l.Nodes.update(id, func(n models.Node) (models.Node, error) {
		if _, ok := n.Body.(models.Text); !ok {
			return n, fmt.Errorf("edit %q (%s): %w", id, n.Type(), ErrTypeMismatch)
		}
		n.Body = models.Text{Content: content}
		return n, nil
	})
	if err != nil {
		return models.Node{}, err
	}
	return node, l.persist(ctx)
}

// RenameDirectory renames a directory and persists.
func (l *Library) RenameDirectory(ctx context.Context, id, name string) (models.Node, error) {
	if strings.TrimSpace(name) == "" || strings.Contains(name, "/") {
		return models.Node{}, fmt.Errorf("directory name %q: %w", name, ErrEmptyName)
	}
	node, err := l.Nodes.update(id, func(n models.Node) (models.Node, error) {
		if !n.IsDirectory() {
			return n, fmt.Errorf("rename %q (%s): %w", id, n.Type(), ErrTypeMismatch)
		}
		n.Body = models.Directory{Name: name}
		return n, nil
	})
	if err != nil {
		return models.Node{}, err
	}
	return node, l.persist(ctx)
}

// SetTags replaces the tag ids attached to a node and persists. Every id
// must name an existing tag.
func (l *Library) SetTags(ctx context.Context, id string, tagIDs []string) (models.Node, error) {
	var tags []string
	seen := make(map[string]struct{}, len(tagIDs))
	for _, tid := range tagIDs {
		if _, dup := seen[tid]; dup {
			continue
		}
		if _, ok := l.Tags.Get(tid); !ok {
			return models.Node{}, notFound("tag", tid)
		}
		seen[tid] = struct{}{}
		tags = append(tags, tid)
	}
	node, err := l.Nodes.update(id, func(n models.Node) (models.Node, error) {
		n.Tags = tags
		return n, nil
	})
	if err != nil {
		return models.Node{}, err
	}
	return node, l.persist(ctx)
}

// TagNames resolves names to tag ids, creating the tags that no existing
// tag matches. It persists once when anything was created.
func (l *Library) TagNames(ctx context.Context, names []string) ([]string, error) {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("tag name: %w", ErrEmptyName)
		}
	}
	l.mu.Lock()
	ids := make([]string, 0, len(names))
	created := 0
	for _, name := range names {
		tag, ok := findTag(l.Tags.snap.Get(), name)
		if !ok {
			tag = l.Tags.createLocked(name)
			created++
		}
		ids = append(ids, tag.ID)
	}
	l.mu.Unlock()

	if created == 0 {
		return ids, nil
	}
	return ids, l.persist(ctx)
}

// RemoveTree removes a node and, for a directory, everything beneath it,
// with their files, then persists once.
func (l *Library) RemoveTree(ctx context.Context, id string) (int, error) {
	nodes := l.Nodes.snap.Get()
	if position(nodes, id) < 0 {
		return 0, notFound("node", id)
	}
	victims, err := subtree(nodes, id)
	if err != nil {
		return 0, err
	}
	if err := l.removeNodes(ctx, victims); err != nil {
		return 0, err
	}
	l.logger.Debug("tree removed", slog.String("id", id), slog.Int("count", len(victims)))
	return len(victims), nil
}

// subtree returns id and all its descendants, children before parents.
func subtree(nodes []models.Node, id string) ([]models.Node, error) {
	children := make(map[string][]models.Node)
	for _, n := range nodes {
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	visited := make(map[string]bool)
	var out []models.Node
	var walk func(n models.Node) error
	walk = func(n models.Node) error {
		if visited[n.ID] {
			return fmt.Errorf("remove %q: %w", id, ErrCycle)
		}
		visited[n.ID] = true
		for _, c := range children[n.ID] {
			if err := walk(c); err != nil {
				return err
			}
		}
		out = append(out, n)
		return nil
	}
	if err := walk(nodes[position(nodes, id)]); err != nil {
		return nil, err
	}
	return out, nil
}
