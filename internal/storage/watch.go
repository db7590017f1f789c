package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/shelf/internal/checksum"
)

// DocumentDebounce is how long WatchDocument waits for a burst of file
// events to settle.
const DocumentDebounce = 200 * time.Millisecond

// WatchDocument watches the library root and calls onChange when the
// document is replaced with content this FS has neither read nor written,
// such as a hand edit or a restored backup. It blocks until ctx is
// cancelled.
func (f *FS) WatchDocument(ctx context.Context, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// The directory is watched rather than the file: atomic saves replace
	// the file's inode.
	if err := w.Add(f.root); err != nil {
		return err
	}
	logger.Info("document watcher: started", slog.String("path", f.DocumentPath()))

	var settle *time.Timer
	var settleCh <-chan time.Time
	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(DocumentDebounce)
			settleCh = settle.C
		} else {
			settle.Reset(DocumentDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			logger.Info("document watcher: stopped")
			return nil

		case <-settleCh:
			data, readErr := os.ReadFile(f.DocumentPath())
			if readErr != nil {
				logger.Warn("document watcher: read failed", slog.String("error", readErr.Error()))
				continue
			}
			if f.isKnown(checksum.Sum(data)) {
				continue
			}
			logger.Info("document watcher: external change detected")
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != f.document {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("document watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
