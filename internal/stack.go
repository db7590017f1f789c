package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/shelf/internal/index"
	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/nodeservice"
	"github.com/starford/shelf/internal/persist"
	"github.com/starford/shelf/internal/storage"
)

// Stack is the wired library: storage bridge, stores, persistence and search
// index. The HTTP server, the MCP server and the CLI commands all run on one.
type Stack struct {
	FS          *storage.FS
	Library     *library.Library
	Coordinator *persist.Coordinator
	Index       *index.DB
	Service     *nodeservice.Service
}

// NewLogger builds the JSON logger used across the application.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// OpenStack creates the library directory if needed, loads the document and
// brings the search index up to date with it.
func OpenStack(ctx context.Context, cfg *Config, logger *slog.Logger) (*Stack, error) {
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	fs, err := storage.NewFS(cfg.Library.Path, cfg.Library.Document)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	lib := library.New(fs, library.WithLogger(logger))
	coord := persist.New(lib, fs,
		persist.WithLogger(logger),
		persist.WithClearDelay(cfg.Library.StatusClearDelay),
	)
	lib.SetSaver(coord)

	if err := coord.Load(ctx); err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, lib.Nodes.All(), lib.Tags.Name, logger, nil); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &Stack{
		FS:          fs,
		Library:     lib,
		Coordinator: coord,
		Index:       db,
		Service:     nodeservice.NewService(lib, db, coord),
	}, nil
}

// Close releases the search index.
func (s *Stack) Close() error {
	return s.Index.Close()
}

// reloadOnChange reloads the document whenever it is replaced on disk. A
// document that fails to load leaves the stores as they were.
func (s *Stack) reloadOnChange(ctx context.Context, logger *slog.Logger) error {
	return s.FS.WatchDocument(ctx, logger, func() {
		if err := s.Coordinator.Load(ctx); err != nil {
			logger.Warn("reload failed", slog.String("error", err.Error()))
		}
	})
}
