// Package tree builds the directory-only navigation tree of a library.
package tree

import (
	"fmt"
	"sort"

	"github.com/disiqueira/gotree/v3"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

var (
	// ErrCycle is returned when a parent chain loops back on itself.
	ErrCycle = fmt.Errorf("directory cycle: %w", apperr.ErrInvalid)
	// ErrNotDirectory is returned when the root of a tree is not a directory.
	ErrNotDirectory = fmt.Errorf("tree root is not a directory: %w", apperr.ErrInvalid)
)

// Source is the read side of a node store.
type Source interface {
	Get(id string) (models.Node, bool)
	ChildDirectories(parentID string) []models.Node
}

// Tree is a directory and the directories below it.
type Tree struct {
	Directory models.Node `json:"directory"`
	Depth     int         `json:"depth"`
	Subtrees  []Tree      `json:"subtrees"`
}

// Build returns the tree rooted at the directory rootID. Only directories
// appear; children are ordered by index.
func Build(src Source, rootID string) (Tree, error) {
	root, ok := src.Get(rootID)
	if !ok {
		return Tree{}, fmt.Errorf("tree root %q: %w", rootID, apperr.ErrNotFound)
	}
	if !root.IsDirectory() {
		return Tree{}, fmt.Errorf("tree root %q: %w", rootID, ErrNotDirectory)
	}
	b := builder{src: src, onPath: make(map[string]bool)}
	return b.build(root, 0)
}

// BuildForest returns one tree per directory directly under parentID, which
// may be "" for the root or models.TrashID.
func BuildForest(src Source, parentID string) ([]Tree, error) {
	b := builder{src: src, onPath: make(map[string]bool)}
	dirs := sorted(src.ChildDirectories(parentID))
	out := make([]Tree, 0, len(dirs))
	for _, d := range dirs {
		t, err := b.build(d, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

type builder struct {
	src    Source
	onPath map[string]bool
}

func (b builder) build(dir models.Node, depth int) (Tree, error) {
	if b.onPath[dir.ID] {
		return Tree{}, fmt.Errorf("directory %q: %w", dir.ID, ErrCycle)
	}
	b.onPath[dir.ID] = true
	defer delete(b.onPath, dir.ID)

	t := Tree{Directory: dir, Depth: depth, Subtrees: []Tree{}}
	for _, child := range sorted(b.src.ChildDirectories(dir.ID)) {
		sub, err := b.build(child, depth+1)
		if err != nil {
			return Tree{}, err
		}
		t.Subtrees = append(t.Subtrees, sub)
	}
	return t, nil
}

func sorted(nodes []models.Node) []models.Node {
	out := append([]models.Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Find returns the subtree for the directory id.
func (t Tree) Find(id string) (Tree, bool) {
	if t.Directory.ID == id {
		return t, true
	}
	for _, s := range t.Subtrees {
		if found, ok := s.Find(id); ok {
			return found, true
		}
	}
	return Tree{}, false
}

// Size returns the number of directories in the tree.
func (t Tree) Size() int {
	n := 1
	for _, s := range t.Subtrees {
		n += s.Size()
	}
	return n
}

// Render draws trees below a label line.
func Render(label string, trees ...Tree) string {
	root := gotree.New(label)
	for _, t := range trees {
		attach(root, t)
	}
	return root.Print()
}

func attach(parent gotree.Tree, t Tree) {
	name, _ := t.Directory.DirectoryName()
	node := parent.Add(name)
	for _, s := range t.Subtrees {
		attach(node, s)
	}
}
