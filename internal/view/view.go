// Package view holds what a client is currently looking at and filters node
// snapshots accordingly.
package view

import (
	"github.com/starford/shelf/internal/fold"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/observable"
)

// State is the observable view selection of one client.
type State struct {
	View        *observable.Value[models.View]
	SearchText  *observable.Value[string]
	ShowDetails *observable.Value[bool]
}

// New returns a State showing the root directory.
func New() *State {
	return &State{
		View:        observable.New[models.View](models.DirectoryView{}),
		SearchText:  observable.New(""),
		ShowDetails: observable.New(false),
	}
}

// Apply returns the nodes of the current view that match the search text,
// in input order.
func (s *State) Apply(nodes []models.Node) []models.Node {
	return Filter(nodes, s.View.Get(), s.SearchText.Get())
}

// Filter selects the nodes shown by v whose display text contains search,
// ignoring accents and case. A nil view shows the root directory.
func Filter(nodes []models.Node, v models.View, search string) []models.Node {
	out := make([]models.Node, 0)
	for _, n := range nodes {
		if !inView(n, v) {
			continue
		}
		if search != "" && !fold.Contains(n.DisplayText(), search) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func inView(n models.Node, v models.View) bool {
	switch v := v.(type) {
	case nil:
		return n.ParentID == ""
	case models.DirectoryView:
		return n.ParentID == v.ParentID
	case models.TagView:
		return n.HasTag(v.TagID)
	case models.DateView:
		return sameDay(n.Created, v)
	default:
		return false
	}
}

// sameDay compares calendar days in the location of the view's date.
func sameDay(ts models.Timestamp, v models.DateView) bool {
	if ts.IsZero() {
		return false
	}
	created := ts.Time().In(v.Date.Location())
	y1, m1, d1 := created.Date()
	y2, m2, d2 := v.Date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
