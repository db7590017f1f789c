package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/shelf/internal/checksum"
)

// DefaultDocumentName is the file name of the library document under the
// library root.
const DefaultDocumentName = "library.json"

const blobDir = "files"

// FS implements Provider backed by the local file system.
type FS struct {
	root     string // absolute path to the library directory
	document string // file name of the library document

	mu    sync.Mutex
	known string // checksum of the document as last read or written here
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root, document string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if document == "" {
		document = DefaultDocumentName
	}
	if document != filepath.Base(document) {
		return nil, fmt.Errorf("storage: document name must be a plain file name: %s", document)
	}
	return &FS{root: abs, document: document}, nil
}

// Root returns the absolute library directory.
func (f *FS) Root() string { return f.root }

// DocumentPath returns the absolute path of the library document.
func (f *FS) DocumentPath() string { return filepath.Join(f.root, f.document) }

// blobPath resolves a blob id to a path under the blob directory and rejects
// ids that would escape it.
func (f *FS) blobPath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("storage: empty blob id")
	}
	cleaned := filepath.Clean(id)
	if cleaned != filepath.Base(cleaned) || cleaned == ".." || cleaned == "." {
		return "", fmt.Errorf("storage: invalid blob id: %s", id)
	}
	dir := filepath.Join(f.root, blobDir)
	abs := filepath.Join(dir, cleaned)
	if !strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: blob id escapes library root: %s", id)
	}
	return abs, nil
}

// ReadDocument returns the library document bytes.
func (f *FS) ReadDocument(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.DocumentPath())
	if err != nil {
		return nil, fmt.Errorf("storage: read document: %w", err)
	}
	f.remember(checksum.Sum(data))
	return data, nil
}

// WriteDocument atomically replaces the library document. The content is
// remembered as known only once it is in place.
func (f *FS) WriteDocument(_ context.Context, data []byte) error {
	if err := writeAtomic(f.DocumentPath(), data); err != nil {
		return err
	}
	f.remember(checksum.Sum(data))
	return nil
}

func (f *FS) remember(sum string) {
	f.mu.Lock()
	f.known = sum
	f.mu.Unlock()
}

// isKnown reports whether sum matches the document as last seen here.
func (f *FS) isKnown(sum string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.known == sum
}

// WriteBlob atomically writes the bytes of a file.
func (f *FS) WriteBlob(_ context.Context, id string, data []byte) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}
	return writeAtomic(abs, data)
}

// ReadBlob returns the bytes of a file.
func (f *FS) ReadBlob(_ context.Context, id string) ([]byte, error) {
	abs, err := f.blobPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read blob %s: %w", id, err)
	}
	return data, nil
}

// DeleteBlob removes the bytes of a file.
func (f *FS) DeleteBlob(_ context.Context, id string) error {
	abs, err := f.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete blob %s: %w", id, err)
	}
	return nil
}

// Now returns the wall-clock time.
func (f *FS) Now() time.Time { return time.Now() }

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".shelf-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
