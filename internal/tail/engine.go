// Package tail implements the incremental tail engine: a registry of
// per-file read cursors and the state machine that applies change
// notifications to it.
package tail

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/clarabennett2626/logtail/internal/source"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// DefaultCooldown is the pause after each notification.
	DefaultCooldown = 100 * time.Millisecond
	// DefaultMaxReadFailures is how many consecutive failed reads drop an entry.
	DefaultMaxReadFailures = 3
)

// Options configures an Engine.
type Options struct {
	Filter Filter
	// Cooldown bounds CPU use under notification storms. Zero disables it.
	Cooldown time.Duration
	// MaxReadFailures drops an entry after that many consecutive read
	// errors. Zero keeps failing entries forever.
	MaxReadFailures int
	Logger          logrus.FieldLogger
}

// Engine applies notifications to a Registry and reports the outcome to a
// Sink. It runs on a single goroutine; nothing else may touch its registry.
type Engine struct {
	fs          afero.Fs
	registry    *Registry
	sink        Sink
	filter      Filter
	cooldown    time.Duration
	maxFailures int
	logger      logrus.FieldLogger
}

// New creates an engine that owns registry. The registry's filesystem is
// also used for the initial scan.
func New(registry *Registry, sink Sink, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.MaxReadFailures < 0 {
		opts.MaxReadFailures = 0
	}
	return &Engine{
		fs:          registry.fs,
		registry:    registry,
		sink:        sink,
		filter:      opts.Filter,
		cooldown:    opts.Cooldown,
		maxFailures: opts.MaxReadFailures,
		logger:      logger.WithField("component", "tail"),
	}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Scan registers every matching regular file directly inside root, with its
// cursor at end-of-file. Files that cannot be opened are skipped. It returns
// the number of files registered.
func (e *Engine) Scan(root string) (int, error) {
	entries, err := afero.ReadDir(e.fs, root)
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", root, err)
	}
	count := 0
	for _, info := range entries {
		if info.IsDir() {
			continue
		}
		path := filepath.Join(root, info.Name())
		if !e.filter.Match(path) {
			continue
		}
		if err := e.registry.Register(path); err != nil {
			e.logger.WithError(err).WithField("path", path).Warn("skipping file during scan")
			continue
		}
		count++
	}
	e.logger.WithField("root", root).WithField("files", count).Debug("initial scan complete")
	return count, nil
}

// Handle applies one notification. Every path in it is processed before
// Handle returns.
func (e *Engine) Handle(n source.Notification) {
	if n.Kind == source.Other {
		return
	}
	for _, raw := range n.Paths {
		path := filepath.Clean(raw)
		if !e.filter.Match(path) {
			continue
		}
		switch n.Kind {
		case source.Created:
			e.created(path)
		case source.Modified:
			e.modified(path)
		case source.Removed:
			e.removed(path)
		}
	}
}

func (e *Engine) created(path string) {
	if err := e.registry.Register(path); err != nil {
		// The file may already be gone again; a later event retries.
		e.logger.WithError(err).WithField("path", path).Debug("could not open new file")
		return
	}
	e.sink.OnAdded(path)
}

func (e *Engine) modified(path string) {
	tf, err := e.registry.Lookup(path)
	if errors.Is(err, ErrNotTracked) {
		return
	}
	data, err := e.registry.Advance(path)
	if err != nil {
		log := e.logger.WithError(err).WithField("path", path)
		if e.maxFailures > 0 && e.registry.Failures(path) >= e.maxFailures {
			log.Warn("dropping file after repeated read failures")
			if e.registry.Unregister(path) {
				e.sink.OnRemoved(path)
			}
			return
		}
		log.Debug("read failed")
		return
	}
	if len(data) > 0 {
		e.sink.OnContent(tf.Name, data)
	}
}

func (e *Engine) removed(path string) {
	if e.registry.Unregister(path) {
		e.sink.OnRemoved(path)
	}
}

// Run consumes notifications from src until ctx is cancelled or src closes
// its notification channel. Source errors are logged and skipped. Run does
// not call src.Watch or src.Close.
func (e *Engine) Run(ctx context.Context, src source.Source) error {
	notes := src.Notifications()
	errs := src.Errors()
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil

		case n, ok := <-notes:
			if !ok {
				return nil
			}
			e.Handle(n)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			e.logger.WithError(err).Warn("watch error")
		}

		if !e.pause(ctx) {
			return nil
		}
	}
}

// pause waits out the cooldown. It returns false if ctx ended first.
func (e *Engine) pause(ctx context.Context) bool {
	if e.cooldown <= 0 {
		return true
	}
	timer := time.NewTimer(e.cooldown)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close releases every tracked file.
func (e *Engine) Close() error {
	return e.registry.Close()
}
