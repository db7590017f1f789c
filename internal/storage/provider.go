// Package storage defines the host storage bridge: the library document,
// blob bytes, and the clock used to stamp new entries.
package storage

import (
	"context"
	"time"
)

// Provider is the host side of the library. Document and blob reads of a
// missing entry return an error that matches os.ErrNotExist.
type Provider interface {
	// ReadDocument returns the raw bytes of the library document.
	ReadDocument(ctx context.Context) ([]byte, error)
	// WriteDocument replaces the library document with data.
	WriteDocument(ctx context.Context, data []byte) error
	// WriteBlob stores the bytes of the file with the given id.
	WriteBlob(ctx context.Context, id string, data []byte) error
	// ReadBlob returns the bytes of the file with the given id.
	ReadBlob(ctx context.Context, id string) ([]byte, error)
	// DeleteBlob removes the bytes of the file with the given id.
	DeleteBlob(ctx context.Context, id string) error
	// Now is the time source for newly created entries.
	Now() time.Time
}
