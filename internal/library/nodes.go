package library

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// NodeStore is the ordered collection of nodes. Index values across all
// nodes always form the dense range [0, N): a new node takes N, and removal
// shifts every greater index down.
type NodeStore struct {
	lib  *Library
	snap *observable.Value[[]models.Node]
}

// Observable exposes the node snapshots. Published slices must not be
// modified.
func (s *NodeStore) Observable() *observable.Value[[]models.Node] { return s.snap }

// All returns the current snapshot in index order. The slice is shared and
// read-only.
func (s *NodeStore) All() []models.Node { return s.snap.Get() }

// Len returns the number of nodes.
func (s *NodeStore) Len() int { return len(s.snap.Get()) }

// NextIndex returns the index the next added node will take.
func (s *NodeStore) NextIndex() int { return s.Len() }

// Get returns the node with the given id.
func (s *NodeStore) Get(id string) (models.Node, bool) {
	for _, n := range s.snap.Get() {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return models.Node{}, false
}

// Children returns the nodes whose parent is parentID ("" for root items,
// models.TrashID for trashed ones), in index order.
func (s *NodeStore) Children(parentID string) []models.Node {
	var out []models.Node
	for _, n := range s.snap.Get() {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out
}

// ChildDirectories returns the directory children of parentID in index order.
func (s *NodeStore) ChildDirectories(parentID string) []models.Node {
	var out []models.Node
	for _, n := range s.snap.Get() {
		if n.ParentID == parentID && n.IsDirectory() {
			out = append(out, n)
		}
	}
	return out
}

// Add appends node, assigning it the next index. The node must have a unique
// id, a known body, a valid parent and existing owned files. Add publishes a
// new snapshot but does not persist.
func (s *NodeStore) Add(node models.Node) (models.Node, error) {
	s.lib.mu.Lock()
	defer s.lib.mu.Unlock()

	next, added, err := appendNode(s.snap.Get(), s.lib.Files.snap.Get(), node)
	if err != nil {
		return models.Node{}, err
	}
	s.snap.Set(next)
	return added, nil
}

// Remove deletes the node with the given id, cascading to the files it owns,
// restores index density and persists. A directory must be empty; see
// Library.RemoveTree for subtree removal.
func (s *NodeStore) Remove(ctx context.Context, id string) error {
	node, ok := s.Get(id)
	if !ok {
		return notFound("node", id)
	}
	if node.IsDirectory() && len(s.Children(id)) > 0 {
		return fmt.Errorf("remove %q: %w", id, ErrDirectoryNotEmpty)
	}
	return s.lib.removeNodes(ctx, []models.Node{node})
}

// SetParent moves a node under parentID without touching its index or
// timestamps, then persists.
func (s *NodeStore) SetParent(ctx context.Context, id, parentID string) error {
	s.lib.mu.Lock()
	nodes := s.snap.Get()
	pos := position(nodes, id)
	if pos < 0 {
		s.lib.mu.Unlock()
		return notFound("node", id)
	}
	if err := checkParent(nodes, parentID); err != nil {
		s.lib.mu.Unlock()
		return err
	}
	if nodes[pos].IsDirectory() && isSelfOrDescendant(nodes, id, parentID) {
		s.lib.mu.Unlock()
		return fmt.Errorf("move %q under %q: %w", id, parentID, ErrCycle)
	}
	next := make([]models.Node, len(nodes))
	copy(next, nodes)
	next[pos].ParentID = parentID
	s.snap.Set(next)
	s.lib.mu.Unlock()

	return s.lib.persist(ctx)
}

// update applies fn to the node with the given id, stamps Modified and
// publishes. It does not persist.
func (s *NodeStore) update(id string, fn func(models.Node) (models.Node, error)) (models.Node, error) {
	s.lib.mu.Lock()
	defer s.lib.mu.Unlock()

	nodes := s.snap.Get()
	pos := position(nodes, id)
	if pos < 0 {
		return models.Node{}, notFound("node", id)
	}
	changed, err := fn(nodes[pos].Clone())
	if err != nil {
		return models.Node{}, err
	}
	changed.ID = nodes[pos].ID
	changed.Index = nodes[pos].Index
	changed.ParentID = nodes[pos].ParentID
	changed.Modified = s.lib.timestamp()

	next := make([]models.Node, len(nodes))
	copy(next, nodes)
	next[pos] = changed
	s.snap.Set(next)
	return changed, nil
}

// removeNodes deletes the blobs owned by nodes, then removes the nodes and
// their file records in one step, renumbers and persists. A blob that is
// already gone is not an error; any other bridge failure aborts before the
// in-memory state changes.
func (l *Library) removeNodes(ctx context.Context, victims []models.Node) error {
	var fileIDs []string
	for _, n := range victims {
		fileIDs = append(fileIDs, n.OwnedFiles()...)
	}
	for _, fid := range fileIDs {
		if _, ok := l.Files.Get(fid); !ok {
			continue
		}
		if err := l.Files.deleteBlob(ctx, fid); err != nil {
			return err
		}
	}

	l.mu.Lock()
	nodes := l.Nodes.snap.Get()
	ids := make(map[string]struct{}, len(victims))
	for _, n := range victims {
		if position(nodes, n.ID) < 0 {
			l.mu.Unlock()
			return notFound("node", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	if files, changed := dropFiles(l.Files.snap.Get(), fileIDs); changed {
		l.Files.snap.Set(files)
	}
	l.Nodes.snap.Set(dropAndRenumber(nodes, ids))
	l.mu.Unlock()

	return l.persist(ctx)
}

// dropAndRenumber returns nodes without the ids in drop. Every remaining
// index is lowered by the number of removed indices below it, which for a
// single removal is the "decrement everything greater" rule.
func dropAndRenumber(nodes []models.Node, drop map[string]struct{}) []models.Node {
	removed := make([]int, 0, len(drop))
	for _, n := range nodes {
		if _, ok := drop[n.ID]; ok {
			removed = append(removed, n.Index)
		}
	}
	sort.Ints(removed)

	out := make([]models.Node, 0, len(nodes)-len(removed))
	for _, n := range nodes {
		if _, ok := drop[n.ID]; ok {
			continue
		}
		n.Index -= sort.SearchInts(removed, n.Index)
		out = append(out, n)
	}
	return out
}

// appendNode validates node against the current snapshots and returns the
// extended node slice.
func appendNode(nodes []models.Node, files []models.File, node models.Node) ([]models.Node, models.Node, error) {
	if node.ID == "" {
		return nil, models.Node{}, fmt.Errorf("add node: empty id: %w", ErrEmptyName)
	}
	if node.ID == models.TrashID {
		return nil, models.Node{}, fmt.Errorf("add node: %q is reserved: %w", node.ID, ErrDuplicateID)
	}
	if position(nodes, node.ID) >= 0 {
		return nil, models.Node{}, fmt.Errorf("add node %q: %w", node.ID, ErrDuplicateID)
	}
	switch b := node.Body.(type) {
	case models.Directory:
		if b.Name == "" {
			return nil, models.Node{}, fmt.Errorf("add directory %q: %w", node.ID, ErrEmptyName)
		}
	case models.Text, models.Image, models.Anchor:
	default:
		return nil, models.Node{}, fmt.Errorf("add node %q: %w", node.ID, models.ErrUnknownNodeType)
	}
	if err := checkParent(nodes, node.ParentID); err != nil {
		return nil, models.Node{}, err
	}
	for _, fid := range node.OwnedFiles() {
		if filePosition(files, fid) < 0 {
			return nil, models.Node{}, notFound("file", fid)
		}
		if owner, ok := fileOwner(nodes, fid); ok {
			return nil, models.Node{}, fmt.Errorf("file %q owned by %q: %w", fid, owner, ErrFileInUse)
		}
	}

	node = node.Clone()
	node.Index = len(nodes)
	next := make([]models.Node, len(nodes), len(nodes)+1)
	copy(next, nodes)
	return append(next, node), node, nil
}

// checkParent accepts the root, the trash, or an existing directory.
func checkParent(nodes []models.Node, parentID string) error {
	if parentID == "" || parentID == models.TrashID {
		return nil
	}
	pos := position(nodes, parentID)
	if pos < 0 {
		return fmt.Errorf("parent %q: %w", parentID, ErrInvalidParent)
	}
	if !nodes[pos].IsDirectory() {
		return fmt.Errorf("parent %q: %w", parentID, ErrNotDirectory)
	}
	return nil
}

// isSelfOrDescendant reports whether candidate is id or lies below it.
func isSelfOrDescendant(nodes []models.Node, id, candidate string) bool {
	for hops := 0; candidate != "" && candidate != models.TrashID && hops <= len(nodes); hops++ {
		if candidate == id {
			return true
		}
		pos := position(nodes, candidate)
		if pos < 0 {
			return false
		}
		candidate = nodes[pos].ParentID
	}
	return false
}

func position(nodes []models.Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func fileOwner(nodes []models.Node, fileID string) (string, bool) {
	for _, n := range nodes {
		for _, fid := range n.OwnedFiles() {
			if fid == fileID {
				return n.ID, true
			}
		}
	}
	return "", false
}
