package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Event represents a change to the watched file.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors a single file through its parent directory, so the file
// may be created after the watcher starts.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	path   string
	logger *slog.Logger
}

// New creates a Watcher for path. The parent directory must exist.
func New(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("cannot watch %s: %w", filepath.Dir(abs), err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		path:   abs,
		logger: logger,
	}, nil
}

// Start forwards events for the watched file. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Drop the event if nobody is draining; the tailer polls anyway.
			select {
			case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}
