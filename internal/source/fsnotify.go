package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// FSNotifyConfig holds configuration for an fsnotify-backed source.
type FSNotifyConfig struct {
	// BufferSize is the capacity of the notifications channel.
	BufferSize int
	// Logger receives debug output about watched directories.
	Logger logrus.FieldLogger
}

// FSNotifySource turns fsnotify events into notifications. Every
// notification carries a single path.
type FSNotifySource struct {
	config    FSNotifyConfig
	watcher   *fsnotify.Watcher
	notes     chan Notification
	errs      chan error
	done      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once
	recursive bool
	logger    logrus.FieldLogger
}

// NewFSNotifySource creates the underlying OS watcher. It fails when the
// platform watch facility cannot be initialised.
func NewFSNotifySource(cfg FSNotifyConfig) (*FSNotifySource, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	return &FSNotifySource{
		config:  cfg,
		watcher: w,
		notes:   make(chan Notification, cfg.BufferSize),
		errs:    make(chan error, 32),
		done:    make(chan struct{}),
		logger:  logger.WithField("component", "source"),
	}, nil
}

func (s *FSNotifySource) Notifications() <-chan Notification { return s.notes }
func (s *FSNotifySource) Errors() <-chan error               { return s.errs }

// Watch adds root (and, when recursive, every directory below it) and starts
// forwarding events.
func (s *FSNotifySource) Watch(root string, recursive bool) error {
	s.recursive = recursive
	if err := s.addDir(root, nil); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.forward()
	return nil
}

// addDir watches root, or the whole tree below it in recursive mode. Regular
// files met during the walk are appended to found when it is non-nil.
func (s *FSNotifySource) addDir(root string, found *[]string) error {
	if !s.recursive {
		if err := s.watcher.Add(root); err != nil {
			return fmt.Errorf("watching directory %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Subdirectories that vanish or deny access are skipped; the
			// root itself must be watchable.
			if path == root {
				return fmt.Errorf("walking %s: %w", root, err)
			}
			s.logger.WithError(err).WithField("path", path).Debug("skipping directory")
			return nil
		}
		if !d.IsDir() {
			if found != nil && d.Type().IsRegular() {
				*found = append(*found, path)
			}
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			if path == root {
				return fmt.Errorf("watching directory %s: %w", path, err)
			}
			s.logger.WithError(err).WithField("path", path).Warn("could not watch directory")
			return nil
		}
		s.logger.WithField("path", path).Trace("watching directory")
		return nil
	})
}

// forward relays fsnotify events until Close is called.
func (s *FSNotifySource) forward() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			n := translate(event)
			var found []string
			if s.recursive && n.Kind == Created {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addDir(event.Name, &found); err != nil {
						s.sendError(err)
					}
				}
			}
			if !s.send(n) {
				return
			}
			// Files written into a new directory before it was watched
			// produce no events of their own.
			for _, path := range found {
				if !s.send(Notification{Kind: Created, Paths: []string{filepath.Clean(path)}}) {
					return
				}
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendError(err)
		}
	}
}

// translate maps an fsnotify event onto a notification. When several ops
// are combined, removal wins over creation, which wins over a write.
func translate(event fsnotify.Event) Notification {
	n := Notification{Kind: Other, Paths: []string{filepath.Clean(event.Name)}}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		n.Kind = Removed
	case event.Has(fsnotify.Create):
		n.Kind = Created
	case event.Has(fsnotify.Write):
		n.Kind = Modified
	}
	return n
}

// Close stops forwarding and releases the OS watcher. Both channels are
// closed once the forwarder has exited.
func (s *FSNotifySource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
		close(s.notes)
		close(s.errs)
	})
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

// send queues n, giving up when the source is closed.
func (s *FSNotifySource) send(n Notification) bool {
	select {
	case s.notes <- n:
		return true
	case <-s.done:
		return false
	}
}

func (s *FSNotifySource) sendError(err error) {
	select {
	case s.errs <- err:
	default:
		s.logger.WithError(err).Warn("watch error dropped")
	}
}
