// Package models defines the domain types for Shelf.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TrashID is the reserved parent identifier for trashed items. It never
// names a stored node.
const TrashID = "trash"

// NodeType is the discriminant of a node body on the wire.
type NodeType string

// Node variants.
const (
	TypeText      NodeType = "text"
	TypeImage     NodeType = "image"
	TypeAnchor    NodeType = "anchor"
	TypeDirectory NodeType = "directory"
)

// ErrUnknownNodeType is returned for a body or discriminant outside the
// known variants.
var ErrUnknownNodeType = errors.New("unknown node type")

// Body is the variant part of a Node. The set of implementations is closed:
// Text, Image, Anchor and Directory.
type Body interface {
	Type() NodeType
	isBody()
}

// Text is a plain text note.
type Text struct {
	Content string
}

// Image references a stored image file.
type Image struct {
	FileID      string
	Description string
}

// Anchor is a web bookmark.
type Anchor struct {
	ContentURL         string
	ContentType        string
	Title              string
	Description        string
	ContentImageFileID string
	ContentModified    *Timestamp
	ContentAccessed    Timestamp
}

// Directory groups other nodes.
type Directory struct {
	Name string
}

func (Text) Type() NodeType      { return TypeText }
func (Image) Type() NodeType     { return TypeImage }
func (Anchor) Type() NodeType    { return TypeAnchor }
func (Directory) Type() NodeType { return TypeDirectory }

func (Text) isBody()      {}
func (Image) isBody()     {}
func (Anchor) isBody()    {}
func (Directory) isBody() {}

// Node is one item of the library. Nodes are values: every edit produces a
// new Node and a new snapshot.
type Node struct {
	ID       string
	Created  Timestamp
	Modified Timestamp
	Tags     []string
	Index    int
	ParentID string
	Body     Body
}

// Type returns the discriminant of the node body, or "" when the body is nil.
func (n Node) Type() NodeType {
	if n.Body == nil {
		return ""
	}
	return n.Body.Type()
}

// IsDirectory reports whether n is a directory node.
func (n Node) IsDirectory() bool {
	_, ok := n.Body.(Directory)
	return ok
}

// DirectoryName returns the directory name and true for directory nodes.
func (n Node) DirectoryName() (string, bool) {
	d, ok := n.Body.(Directory)
	return d.Name, ok
}

// HasTag reports whether tagID is attached to n.
func (n Node) HasTag(tagID string) bool {
	for _, t := range n.Tags {
		if t == tagID {
			return true
		}
	}
	return false
}

// OwnedFiles returns the ids of the files this node owns.
func (n Node) OwnedFiles() []string {
	switch b := n.Body.(type) {
	case Image:
		if b.FileID != "" {
			return []string{b.FileID}
		}
	case Anchor:
		if b.ContentImageFileID != "" {
			return []string{b.ContentImageFileID}
		}
	case Text, Directory:
	}
	return nil
}

// DisplayText returns the human-facing label of the node used for searching
// and listings.
func (n Node) DisplayText() string {
	switch b := n.Body.(type) {
	case Text:
		return b.Content
	case Image:
		return b.Description
	case Anchor:
		if b.Title != "" {
			return b.Title
		}
		return b.ContentURL
	case Directory:
		return b.Name
	}
	return ""
}

// Clone returns a copy of n that shares no mutable state with it.
func (n Node) Clone() Node {
	if n.Tags != nil {
		n.Tags = append([]string(nil), n.Tags...)
	}
	if a, ok := n.Body.(Anchor); ok && a.ContentModified != nil {
		cm := *a.ContentModified
		a.ContentModified = &cm
		n.Body = a
	}
	return n
}

// nodeJSON is the flat wire shape of a node: common fields plus the fields of
// whichever variant "type" selects.
type nodeJSON struct {
	ID       string    `json:"id"`
	Type     NodeType  `json:"type"`
	Created  Timestamp `json:"created"`
	Modified Timestamp `json:"modified"`
	Tags     []string  `json:"tags,omitempty"`
	Index    int       `json:"index"`
	ParentID string    `json:"parentID,omitempty"`

	Content string `json:"content,omitempty"`

	FileID      string `json:"fileID,omitempty"`
	Description string `json:"description,omitempty"`

	ContentURL         string     `json:"contentURL,omitempty"`
	ContentType        string     `json:"contentType,omitempty"`
	Title              string     `json:"title,omitempty"`
	ContentImageFileID string     `json:"contentImageFileID,omitempty"`
	ContentModified    *Timestamp `json:"contentModified,omitempty"`
	ContentAccessed    *Timestamp `json:"contentAccessed,omitempty"`

	Name string `json:"name,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{
		ID:       n.ID,
		Created:  n.Created,
		Modified: n.Modified,
		Tags:     n.Tags,
		Index:    n.Index,
		ParentID: n.ParentID,
	}
	switch b := n.Body.(type) {
	case Text:
		out.Type = TypeText
		out.Content = b.Content
	case Image:
		out.Type = TypeImage
		out.FileID = b.FileID
		out.Description = b.Description
	case Anchor:
		out.Type = TypeAnchor
		out.ContentURL = b.ContentURL
		out.ContentType = b.ContentType
		out.Title = b.Title
		out.Description = b.Description
		out.ContentImageFileID = b.ContentImageFileID
		out.ContentModified = b.ContentModified
		accessed := b.ContentAccessed
		out.ContentAccessed = &accessed
	case Directory:
		out.Type = TypeDirectory
		out.Name = b.Name
	default:
		return nil, fmt.Errorf("node %s: %w", n.ID, ErrUnknownNodeType)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = Node{
		ID:       in.ID,
		Created:  in.Created,
		Modified: in.Modified,
		Tags:     in.Tags,
		Index:    in.Index,
		ParentID: in.ParentID,
	}
	switch in.Type {
	case TypeText:
		n.Body = Text{Content: in.Content}
	case TypeImage:
		n.Body = Image{FileID: in.FileID, Description: in.Description}
	case TypeAnchor:
		a := Anchor{
			ContentURL:         in.ContentURL,
			ContentType:        in.ContentType,
			Title:              in.Title,
			Description:        in.Description,
			ContentImageFileID: in.ContentImageFileID,
			ContentModified:    in.ContentModified,
		}
		if in.ContentAccessed != nil {
			a.ContentAccessed = *in.ContentAccessed
		}
		n.Body = a
	case TypeDirectory:
		n.Body = Directory{Name: in.Name}
	default:
		return fmt.Errorf("node %q: %w: %q", in.ID, ErrUnknownNodeType, in.Type)
	}
	return nil
}
