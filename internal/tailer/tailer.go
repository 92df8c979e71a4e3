package tailer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/atikulmunna/geotail/internal/model"
	"github.com/atikulmunna/geotail/internal/watcher"
)

// DefaultInterval is the wait between two scans of the log file.
const DefaultInterval = 5 * time.Second

// Tailer alternates between scanning the log for new lines and waiting.
// Lines are handed to the emit callback on the calling goroutine.
type Tailer struct {
	reader   Reader
	source   string
	interval time.Duration
	wake     <-chan watcher.Event
	logger   *slog.Logger
}

// Option configures a Tailer.
type Option func(*Tailer)

// WithInterval sets the wait between scans.
func WithInterval(d time.Duration) Option {
	return func(t *Tailer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithWatcher ends a wait early when the watcher reports a change.
func WithWatcher(w *watcher.Watcher) Option {
	return func(t *Tailer) { t.wake = w.Events }
}

// WithLogger sets the logger used for scan errors.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tailer) { t.logger = l }
}

// New creates a Tailer reading source through r.
func New(r Reader, source string, opts ...Option) *Tailer {
	t := &Tailer{
		reader:   r,
		source:   source,
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Poll runs a single scan and emits every new line. A missing file is
// reported as ErrLogNotFound.
func (t *Tailer) Poll(emit func(model.RawLine)) (int, error) {
	lines, err := t.reader.Scan()
	for _, l := range lines {
		emit(model.RawLine{Text: l, Source: t.source})
	}
	return len(lines), err
}

// Run scans and waits until the context is cancelled. Scan errors, including
// a missing file, are logged and retried on the next pass.
func (t *Tailer) Run(ctx context.Context, emit func(model.RawLine)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case _, ok := <-t.wake:
			if !ok {
				t.wake = nil
				continue
			}
			timer.Stop()
		}

		if _, err := t.Poll(emit); err != nil {
			if errors.Is(err, ErrLogNotFound) {
				t.logger.Error("log file not found, retrying", "path", t.source, "in", t.interval)
			} else {
				t.logger.Error("scan failed", "path", t.source, "err", err)
			}
		}

		timer.Reset(t.interval)
	}
}
