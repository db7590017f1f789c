//go:build sqlite_fts5

package index

import (
	"testing"
	"time"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM nodes_fts`).Scan(&count); err != nil {
		t.Fatalf("nodes_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := NodeRow{
		ID:        "n1",
		Type:      "text",
		Title:     "FTS Note",
		Checksum:  "f1",
		Tags:      []string{"search"},
		Body:      "Shelf provides powerful full-text search capabilities.",
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertNode(row); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "n1" || results[0].Type != "text" {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_QueryIsQuoted(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNode(NodeRow{ID: "q", Type: "text", Body: "plain words", UpdatedAt: time.Now()})
	if _, err := db.Search(`plain" OR body:*`, 10); err != nil {
		t.Fatalf("Search with FTS syntax: %v", err)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNode(NodeRow{ID: "gone", Type: "text", Body: "vanishing content", UpdatedAt: time.Now()})
	_ = db.DeleteNode("gone")

	results, _ := db.Search("vanishing", 10)
	for _, r := range results {
		if r.ID == "gone" {
			t.Error("deleted node still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertNode(NodeRow{ID: "evo", Type: "text", Title: "Old", Checksum: "1", Body: "original text", UpdatedAt: now})
	_ = db.UpsertNode(NodeRow{ID: "evo", Type: "text", Title: "New", Checksum: "2", Body: "replacement text", UpdatedAt: now})

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
