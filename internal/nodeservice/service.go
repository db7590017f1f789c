// Package nodeservice joins the library, the search index and the save
// coordinator for the HTTP API and the MCP server.
package nodeservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/tree"
)

// NodeDetail is the full representation of a node.
type NodeDetail struct {
	Node     models.Node  `json:"node"`
	Location string       `json:"location"`
	TagNames []string     `json:"tagNames"`
	File     *models.File `json:"file,omitempty"`
}

// NodeListItem is a lightweight item in a list response.
type NodeListItem struct {
	ID       string           `json:"id"`
	Type     models.NodeType  `json:"type"`
	Index    int              `json:"index"`
	Text     string           `json:"text"`
	Modified models.Timestamp `json:"modified"`
}

// Saver writes the library document.
type Saver interface {
	Save(ctx context.Context) error
}

// Service coordinates library and index operations.
type Service struct {
	lib   *library.Library
	db    index.NodeIndex
	saver Saver
}

// NewService creates a new node service.
func NewService(lib *library.Library, db index.NodeIndex, saver Saver) *Service {
	return &Service{lib: lib, db: db, saver: saver}
}

// Library returns the underlying library.
func (s *Service) Library() *library.Library { return s.lib }

// GetNode returns a node with its location, tag names and, for images, its
// file metadata.
func (s *Service) GetNode(_ context.Context, id string) (*NodeDetail, error) {
	node, ok := s.lib.Nodes.Get(id)
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, apperr.ErrNotFound)
	}
	loc, err := s.Location(node)
	if err != nil {
		return nil, err
	}
	detail := &NodeDetail{Node: node, Location: loc, TagNames: s.tagNames(node.Tags)}
	if img, ok := node.Body.(models.Image); ok {
		if f, ok := s.lib.Files.Get(img.FileID); ok {
			detail.File = &f
		}
	}
	return detail, nil
}

// Location is the directory path of a directory node, or of the directory
// holding any other node.
func (s *Service) Location(node models.Node) (string, error) {
	if node.IsDirectory() {
		return s.lib.Nodes.ResolvePath(node.ID)
	}
	return s.lib.Nodes.ResolvePath(node.ParentID)
}

// ListChildren returns the direct children of parentID in index order.
func (s *Service) ListChildren(_ context.Context, parentID string) ([]NodeListItem, error) {
	if parentID != "" && parentID != models.TrashID {
		parent, ok := s.lib.Nodes.Get(parentID)
		if !ok {
			return nil, fmt.Errorf("directory %q: %w", parentID, apperr.ErrNotFound)
		}
		if !parent.IsDirectory() {
			return nil, fmt.Errorf("%q: %w", parentID, library.ErrNotDirectory)
		}
	}
	children := s.lib.Nodes.Children(parentID)
	items := make([]NodeListItem, len(children))
	for i, n := range children {
		items[i] = Summary(n)
	}
	return items, nil
}

// Search runs a full-text query. Hits for nodes that no longer exist are
// dropped, since the index trails the library by a debounce interval.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query: %w", apperr.ErrInvalid)
	}
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	live := make([]index.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := s.lib.Nodes.Get(r.ID); ok {
			live = append(live, r)
		}
	}
	return live, nil
}

// ListTagged returns the nodes carrying the tag named name, matched without
// regard to accents or case.
func (s *Service) ListTagged(_ context.Context, name string) ([]NodeListItem, error) {
	tag, ok := s.lib.Tags.Find(name)
	if !ok {
		return nil, fmt.Errorf("tag %q: %w", name, apperr.ErrNotFound)
	}
	items := make([]NodeListItem, 0)
	for _, n := range s.lib.Nodes.All() {
		if n.HasTag(tag.ID) {
			items = append(items, Summary(n))
		}
	}
	return items, nil
}

// Tree returns the directory tree rooted at rootID, or the forest of
// top-level directories when rootID is "" or the trash.
func (s *Service) Tree(_ context.Context, rootID string) ([]tree.Tree, error) {
	if rootID == "" || rootID == models.TrashID {
		return tree.BuildForest(s.lib.Nodes, rootID)
	}
	t, err := tree.Build(s.lib.Nodes, rootID)
	if err != nil {
		return nil, err
	}
	return []tree.Tree{t}, nil
}

// TreeLabel returns the path of the directory that holds the trees Tree
// returns for rootID, used as the heading when they are drawn.
func (s *Service) TreeLabel(rootID string) string {
	switch rootID {
	case "":
		return "/"
	case models.TrashID:
		return library.TrashName
	}
	dir, ok := s.lib.Nodes.Get(rootID)
	if !ok {
		return "/"
	}
	label, err := s.lib.Nodes.ResolvePath(dir.ParentID)
	if err != nil {
		return "/"
	}
	return label
}

// Remove deletes a node. With recursive set, a directory is removed with
// everything below it. It returns how many nodes were removed.
func (s *Service) Remove(ctx context.Context, id string, recursive bool) (int, error) {
	if recursive {
		return s.lib.RemoveTree(ctx, id)
	}
	if err := s.lib.Nodes.Remove(ctx, id); err != nil {
		return 0, err
	}
	return 1, nil
}

// Save writes the library document now.
func (s *Service) Save(ctx context.Context) error {
	return s.saver.Save(ctx)
}

func (s *Service) tagNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if tag, ok := s.lib.Tags.Get(id); ok {
			names = append(names, tag.Name)
		}
	}
	return names
}

// Summary returns the list form of a node.
func Summary(n models.Node) NodeListItem {
	return NodeListItem{
		ID:       n.ID,
		Type:     n.Type(),
		Index:    n.Index,
		Text:     n.DisplayText(),
		Modified: n.Modified,
	}
}
