package index

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/parser"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after an index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

// TagNamer resolves a tag id to its name.
type TagNamer func(tagID string) (string, bool)

// Sync brings the index up to date with a node snapshot:
//   - new/changed nodes are converted and upserted
//   - nodes no longer in the snapshot are deleted from the index
func Sync(db *DB, nodes []models.Node, tags TagNamer, logger *slog.Logger, cb EventCallback) error {
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		live[n.ID] = struct{}{}

		row, err := RowFor(n, tags)
		if err != nil {
			logger.Warn("sync: convert failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		prev, known := checksums[n.ID]
		if known && prev == row.Checksum {
			continue
		}
		if err := db.UpsertNode(row); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		kind := EventUpdated
		if !known {
			kind = EventCreated
		}
		logger.Debug("sync: indexed", slog.String("id", n.ID), slog.String("op", kind))
		if cb != nil {
			cb(kind, n.ID)
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := live[id]; ok {
			continue
		}
		if err := db.DeleteNode(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("id", id))
		if cb != nil {
			cb(EventDeleted, id)
		}
	}
	return nil
}

// RowFor converts a node to its index row. Text notes contribute their
// parsed title and hashtags; attached tags contribute their names.
func RowFor(n models.Node, tags TagNamer) (NodeRow, error) {
	row := NodeRow{
		ID:        n.ID,
		Type:      string(n.Type()),
		ParentID:  n.ParentID,
		UpdatedAt: n.Modified.Time(),
	}
	if n.Modified.IsZero() {
		row.UpdatedAt = n.Created.Time()
	}

	var hashtags []string
	switch b := n.Body.(type) {
	case models.Text:
		res := parser.ParseText(b.Content)
		row.Title = res.Title
		row.Body = b.Content
		hashtags = res.Hashtags
	case models.Image:
		row.Title = b.Description
		row.Body = b.Description
	case models.Anchor:
		row.Title = b.Title
		if row.Title == "" {
			row.Title = b.ContentURL
		}
		row.Body = strings.TrimSpace(b.Description + "\n" + b.ContentURL)
	case models.Directory:
		row.Title = b.Name
	default:
		return NodeRow{}, fmt.Errorf("index node %q: %w", n.ID, models.ErrUnknownNodeType)
	}

	seen := make(map[string]struct{})
	row.Tags = []string{}
	for _, id := range n.Tags {
		name, ok := "", false
		if tags != nil {
			name, ok = tags(id)
		}
		if !ok {
			name = id
		}
		if _, dup := seen[name]; !dup {
			seen[name] = struct{}{}
			row.Tags = append(row.Tags, name)
		}
	}
	for _, h := range hashtags {
		if _, dup := seen[h]; !dup {
			seen[h] = struct{}{}
			row.Tags = append(row.Tags, h)
		}
	}

	row.Checksum = checksum.Fields(append([]string{row.Type, row.ParentID, row.Title, row.Body}, row.Tags...)...)
	return row, nil
}
