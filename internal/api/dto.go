package api

import (
	"github.com/starford/shelf/internal/nodeservice"
)

// Node kinds accepted by POST /nodes. Images are created through POST /files.
const (
	createText      = "text"
	createAnchor    = "anchor"
	createDirectory = "directory"
)

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	Type        string `json:"type" example:"text" validate:"required"`
	ParentID    string `json:"parentID,omitempty"`
	Content     string `json:"content,omitempty" example:"Buy milk"`
	Name        string `json:"name,omitempty" example:"Inbox"`
	URL         string `json:"url,omitempty" example:"https://example.org"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// EditTextRequest replaces the content of a text note.
type EditTextRequest struct {
	Content string `json:"content" validate:"required"`
}

// RenameRequest renames a directory.
type RenameRequest struct {
	Name string `json:"name" validate:"required"`
}

// MoveRequest reparents a node. An empty ParentID moves it to the root.
type MoveRequest struct {
	ParentID string `json:"parentID"`
}

// SetTagsRequest replaces a node's tags by name; unknown names are created.
type SetTagsRequest struct {
	Tags []string `json:"tags"`
}

// CreatePathRequest creates a slash-separated directory path.
type CreatePathRequest struct {
	Path string `json:"path" example:"projects/2025/q1" validate:"required"`
}

// CreateTagRequest finds or creates a tag.
type CreateTagRequest struct {
	Name string `json:"name" validate:"required"`
}

// NodeDetail is the full node response type (aliased from the domain layer).
type NodeDetail = nodeservice.NodeDetail

// NodeListItem is a lightweight item in a list response (aliased from the domain layer).
type NodeListItem = nodeservice.NodeListItem

// NodeListResponse wraps node listings.
type NodeListResponse struct {
	Nodes []NodeListItem `json:"nodes" validate:"required"`
	Total int            `json:"total" validate:"required"`
}

// PathResponse carries a resolved directory path.
type PathResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// RemoveResponse reports how many nodes a delete removed.
type RemoveResponse struct {
	Removed int `json:"removed"`
}
