package models

// SchemaVersion is written into every saved library document.
const SchemaVersion = 1

// Library is the persisted aggregate: one JSON document holding every node,
// file and tag.
type Library struct {
	Nodes   []Node `json:"nodes"`
	Files   []File `json:"files"`
	Tags    []Tag  `json:"tags"`
	Version int    `json:"version"`
}
