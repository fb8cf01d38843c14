package source

import (
	"context"
	"errors"
	"sync"
)

// DefaultBufferSize is the default capacity for the notifications channel.
const DefaultBufferSize = 1000

// ErrClosed is returned when sending to a closed ManualSource.
var ErrClosed = errors.New("source closed")

// ManualOption configures a ManualSource.
type ManualOption func(*ManualSource)

// WithBufferSize sets the capacity of the notifications channel.
func WithBufferSize(n int) ManualOption {
	return func(s *ManualSource) { s.bufSize = n }
}

// ManualSource is a Source fed programmatically. It lets callers replay
// recorded or synthetic notifications without touching the filesystem:
//
//	src := source.NewManualSource()
//	src.Send(ctx, source.Notification{Kind: source.Modified, Paths: []string{"/var/log/app.log"}})
type ManualSource struct {
	notes     chan Notification
	errs      chan error
	bufSize   int
	mu        sync.RWMutex
	closed    bool
	root      string
	recursive bool
}

// NewManualSource creates a new ManualSource with the given options.
func NewManualSource(opts ...ManualOption) *ManualSource {
	s := &ManualSource{bufSize: DefaultBufferSize}
	for _, o := range opts {
		o(s)
	}
	s.notes = make(chan Notification, s.bufSize)
	s.errs = make(chan error, 1)
	return s
}

// Watch records the requested root; no OS resources are involved.
func (s *ManualSource) Watch(root string, recursive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.root = root
	s.recursive = recursive
	return nil
}

// Root returns the root passed to Watch.
func (s *ManualSource) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Notifications returns the channel of notifications.
func (s *ManualSource) Notifications() <-chan Notification { return s.notes }

// Errors returns the channel of errors.
func (s *ManualSource) Errors() <-chan error { return s.errs }

// Send queues a notification, blocking while the buffer is full.
func (s *ManualSource) Send(ctx context.Context, n Notification) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.notes <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendError queues a notifier error.
func (s *ManualSource) SendError(ctx context.Context, err error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.errs <- err:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes both channels. Queued notifications remain readable.
func (s *ManualSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.notes)
	close(s.errs)
	return nil
}
