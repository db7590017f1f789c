package internal

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/starford/shelf/internal/tree"
)

// withStack opens the library for a one-shot command, logging to stderr.
func withStack(ctx context.Context, opts []Option, fn func(*Stack) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	stack, err := OpenStack(ctx, app.config, app.logger(os.Stderr))
	if err != nil {
		return err
	}
	defer stack.Close()
	return fn(stack)
}

// PrintTree writes the directory tree below rootID to w. An empty rootID
// prints every top-level directory under "/".
func PrintTree(ctx context.Context, w io.Writer, rootID string, opts ...Option) error {
	return withStack(ctx, opts, func(s *Stack) error {
		trees, err := s.Service.Tree(ctx, rootID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, tree.Render(s.Service.TreeLabel(rootID), trees...))
		return err
	})
}

// MakeDirectory creates every missing directory along path and prints the
// id and resolved path of the last one.
func MakeDirectory(ctx context.Context, w io.Writer, path string, opts ...Option) error {
	return withStack(ctx, opts, func(s *Stack) error {
		id, err := s.Library.CreateDirectoryPath(ctx, path)
		if err != nil {
			return err
		}
		resolved, err := s.Library.Nodes.ResolvePath(id)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\t%s\n", id, resolved)
		return err
	})
}
