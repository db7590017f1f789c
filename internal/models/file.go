package models

// File is the metadata of a stored blob owned by an image or anchor node.
type File struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Name     string     `json:"name,omitempty"`
	URL      string     `json:"url,omitempty"`
	Modified *Timestamp `json:"modified,omitempty"`
	Accessed Timestamp  `json:"accessed"`
}

// Tag is a named label that nodes reference by id.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
