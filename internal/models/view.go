package models

import "time"

// View selects which nodes a client is looking at.
type View interface {
	isView()
}

// DirectoryView shows the children of ParentID ("" for the root).
type DirectoryView struct {
	ParentID string `json:"parentID,omitempty"`
}

// TagView shows every node carrying TagID.
type TagView struct {
	TagID string `json:"tagID"`
}

// DateView shows every node created on the calendar day of Date.
type DateView struct {
	Date time.Time `json:"date"`
}

func (DirectoryView) isView() {}
func (TagView) isView()       {}
func (DateView) isView()      {}
