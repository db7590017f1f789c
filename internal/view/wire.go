package view

import (
	"fmt"
	"time"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
)

// View kinds on the wire.
const (
	KindDirectory = "directory"
	KindTag       = "tag"
	KindDate      = "date"
)

// Snapshot is the JSON shape of a State.
type Snapshot struct {
	Kind        string `json:"kind"`
	ParentID    string `json:"parentID,omitempty"`
	TagID       string `json:"tagID,omitempty"`
	Date        string `json:"date,omitempty"`
	SearchText  string `json:"searchText"`
	ShowDetails bool   `json:"showDetails"`
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	out := Snapshot{
		SearchText:  s.SearchText.Get(),
		ShowDetails: s.ShowDetails.Get(),
	}
	switch v := s.View.Get().(type) {
	case models.TagView:
		out.Kind, out.TagID = KindTag, v.TagID
	case models.DateView:
		out.Kind, out.Date = KindDate, v.Date.Format(time.DateOnly)
	case models.DirectoryView:
		out.Kind, out.ParentID = KindDirectory, v.ParentID
	default:
		out.Kind = KindDirectory
	}
	return out
}

// Restore replaces the state with snap. Each field is published only when
// it changes.
func (s *State) Restore(snap Snapshot) error {
	v, err := snap.View()
	if err != nil {
		return err
	}
	if s.View.Get() != v {
		s.View.Set(v)
	}
	if s.SearchText.Get() != snap.SearchText {
		s.SearchText.Set(snap.SearchText)
	}
	if s.ShowDetails.Get() != snap.ShowDetails {
		s.ShowDetails.Set(snap.ShowDetails)
	}
	return nil
}

// View converts the wire selection to a models.View.
func (snap Snapshot) View() (models.View, error) {
	switch snap.Kind {
	case KindDirectory, "":
		return models.DirectoryView{ParentID: snap.ParentID}, nil
	case KindTag:
		if snap.TagID == "" {
			return nil, fmt.Errorf("tag view without tag id: %w", apperr.ErrInvalid)
		}
		return models.TagView{TagID: snap.TagID}, nil
	case KindDate:
		d, err := time.Parse(time.DateOnly, snap.Date)
		if err != nil {
			return nil, fmt.Errorf("date view %q: %w", snap.Date, apperr.ErrInvalid)
		}
		return models.DateView{Date: d}, nil
	default:
		return nil, fmt.Errorf("view kind %q: %w", snap.Kind, apperr.ErrInvalid)
	}
}
