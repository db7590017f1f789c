package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Memory is an in-memory Provider for tests and tooling that do not need
// durable storage. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	document []byte
	blobs    map[string][]byte
	now      func() time.Time
}

// NewMemory returns an empty Memory provider. A nil clock uses time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{blobs: make(map[string][]byte), now: now}
}

// ReadDocument returns a copy of the stored document.
func (m *Memory) ReadDocument(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.document == nil {
		return nil, fmt.Errorf("storage: read document: %w", os.ErrNotExist)
	}
	return append([]byte(nil), m.document...), nil
}

// WriteDocument replaces the stored document.
func (m *Memory) WriteDocument(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.document = append([]byte{}, data...)
	return nil
}

// WriteBlob stores a copy of data under id.
func (m *Memory) WriteBlob(_ context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("storage: empty blob id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = append([]byte{}, data...)
	return nil
}

// ReadBlob returns a copy of the blob stored under id.
func (m *Memory) ReadBlob(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("storage: read blob %s: %w", id, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// DeleteBlob removes the blob stored under id.
func (m *Memory) DeleteBlob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("storage: delete blob %s: %w", id, os.ErrNotExist)
	}
	delete(m.blobs, id)
	return nil
}

// HasBlob reports whether a blob is stored under id.
func (m *Memory) HasBlob(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok
}

// Now returns the configured clock reading.
func (m *Memory) Now() time.Time { return m.now() }

var (
	_ Provider = (*FS)(nil)
	_ Provider = (*Memory)(nil)
)
