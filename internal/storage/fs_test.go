package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/shelf/internal/checksum"
)

func tempLibrary(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir, "")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestDocumentWriteAndRead(t *testing.T) {
	s := tempLibrary(t)
	ctx := context.Background()
	content := []byte(`{"nodes":[],"version":1}`)
	if err := s.WriteDocument(ctx, content); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	got, err := s.ReadDocument(ctx)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	if filepath.Base(s.DocumentPath()) != DefaultDocumentName {
		t.Errorf("document path = %q", s.DocumentPath())
	}
}

func TestWriteDocument_KnownOnlyAfterSuccess(t *testing.T) {
	s := tempLibrary(t)
	ctx := context.Background()

	// A directory in the document's place makes the final rename fail.
	if err := os.Mkdir(s.DocumentPath(), 0o755); err != nil {
		t.Fatal(err)
	}
	failed := []byte(`{"nodes":[],"version":1}`)
	if err := s.WriteDocument(ctx, failed); err == nil {
		t.Fatal("expected write over a directory to fail")
	}
	if s.isKnown(checksum.Sum(failed)) {
		t.Error("failed write marked its content as known")
	}

	if err := os.Remove(s.DocumentPath()); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteDocument(ctx, failed); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	if !s.isKnown(checksum.Sum(failed)) {
		t.Error("written content not known")
	}
}

func TestReadDocument_MissingIsNotExist(t *testing.T) {
	s := tempLibrary(t)
	_, err := s.ReadDocument(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want os.ErrNotExist", err)
	}
}

func TestBlobLifecycle(t *testing.T) {
	s := tempLibrary(t)
	ctx := context.Background()
	if err := s.WriteBlob(ctx, "f1", []byte("png bytes")); err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	got, err := s.ReadBlob(ctx, "f1")
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if string(got) != "png bytes" {
		t.Errorf("blob = %q", got)
	}
	if err := s.DeleteBlob(ctx, "f1"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if _, err := s.ReadBlob(ctx, "f1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist after delete, got %v", err)
	}
	if err := s.DeleteBlob(ctx, "f1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("second delete err = %v, want os.ErrNotExist", err)
	}
}

func TestBlobTraversalBlocked(t *testing.T) {
	s := tempLibrary(t)
	ctx := context.Background()

	cases := []string{
		"../../etc/passwd",
		"../outside",
		"/etc/shadow",
		"a/b",
		"..",
		"",
	}
	for _, id := range cases {
		if _, err := s.ReadBlob(ctx, id); err == nil {
			t.Errorf("expected error for blob id %q", id)
		}
		if err := s.WriteBlob(ctx, id, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", id)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	s := tempLibrary(t)
	ctx := context.Background()
	_ = s.WriteDocument(ctx, []byte("original content"))

	updated := []byte("updated content")
	if err := s.WriteDocument(ctx, updated); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	got, _ := s.ReadDocument(ctx)
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".shelf-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/shelf-does-not-exist-"+t.Name(), "")
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "shelf-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name(), "")
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestNewFS_DocumentNameMustBePlain(t *testing.T) {
	if _, err := NewFS(t.TempDir(), "sub/library.json"); err == nil {
		t.Error("expected error for nested document name")
	}
}

func TestMemory_DocumentAndBlobs(t *testing.T) {
	m := NewMemory(nil)
	ctx := context.Background()
	if _, err := m.ReadDocument(ctx); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("empty memory read err = %v", err)
	}
	_ = m.WriteDocument(ctx, []byte("doc"))
	got, err := m.ReadDocument(ctx)
	if err != nil || string(got) != "doc" {
		t.Fatalf("ReadDocument = %q, %v", got, err)
	}
	_ = m.WriteBlob(ctx, "b", []byte("x"))
	if !m.HasBlob("b") {
		t.Fatal("blob missing")
	}
	if err := m.DeleteBlob(ctx, "b"); err != nil {
		t.Fatalf("DeleteBlob: %v", err)
	}
	if m.HasBlob("b") {
		t.Error("blob still present")
	}
}
