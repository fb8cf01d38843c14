package tail

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

var (
	// ErrNotTracked is returned for lookups on a path with no entry.
	ErrNotTracked = errors.New("path not tracked")
	// ErrIsDirectory is returned when Register is given a directory.
	ErrIsDirectory = errors.New("path is a directory")
)

const readChunkSize = 32 * 1024

// TrackedFile is a file the registry reads from. The cursor only moves
// forward, except when truncation detection rewinds it to zero.
type TrackedFile struct {
	Path string
	Name string

	file     afero.File
	offset   int64
	failures int
}

// Offset returns the position of the next unread byte.
func (f *TrackedFile) Offset() int64 { return f.offset }

// displayName returns the final path component, or "unknown" when there is
// no usable one.
func displayName(path string) string {
	name := filepath.Base(path)
	switch name {
	case "", ".", string(filepath.Separator):
		return "unknown"
	}
	return name
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithTruncationReset rewinds a cursor to zero when the file shrinks below
// it. Without it, reads past the new end return nothing until the file grows
// back past the old cursor.
func WithTruncationReset(enabled bool) RegistryOption {
	return func(r *Registry) { r.resetOnTruncate = enabled }
}

// Registry maps paths to tracked files. It is not safe for concurrent use;
// the engine is its only writer.
type Registry struct {
	fs              afero.Fs
	files           map[string]*TrackedFile
	resetOnTruncate bool
}

// NewRegistry creates an empty registry reading through fs.
func NewRegistry(fs afero.Fs, opts ...RegistryOption) *Registry {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	r := &Registry{
		fs:              fs,
		files:           make(map[string]*TrackedFile),
		resetOnTruncate: true,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register opens path and positions its cursor at end-of-file so existing
// content is never emitted. An existing entry for path is replaced.
func (r *Registry) Register(path string) error {
	f, err := r.fs.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return fmt.Errorf("registering %s: %w", path, ErrIsDirectory)
	}

	if old, ok := r.files[path]; ok {
		old.file.Close()
	}
	r.files[path] = &TrackedFile{
		Path:   path,
		Name:   displayName(path),
		file:   f,
		offset: info.Size(),
	}
	return nil
}

// Unregister drops the entry for path and closes its handle. It reports
// whether an entry existed.
func (r *Registry) Unregister(path string) bool {
	tf, ok := r.files[path]
	if !ok {
		return false
	}
	delete(r.files, path)
	tf.file.Close()
	return true
}

// Advance returns every byte written since the previous read and moves the
// cursor past them. An untracked path yields nil. On a read error the cursor
// is left where it was and the entry's failure count is incremented.
func (r *Registry) Advance(path string) ([]byte, error) {
	tf, ok := r.files[path]
	if !ok {
		return nil, nil
	}

	if r.resetOnTruncate {
		if info, err := tf.file.Stat(); err == nil && info.Size() < tf.offset {
			tf.offset = 0
		}
	}

	var data []byte
	chunk := make([]byte, readChunkSize)
	off := tf.offset
	for {
		n, err := tf.file.ReadAt(chunk, off)
		data = append(data, chunk[:n]...)
		off += int64(n)
		// Some filesystems report a cursor past the end as an unexpected EOF
		// rather than a plain one.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			tf.failures++
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}

	tf.offset = off
	tf.failures = 0
	return data, nil
}

// Lookup returns the entry for path.
func (r *Registry) Lookup(path string) (*TrackedFile, error) {
	tf, ok := r.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotTracked)
	}
	return tf, nil
}

// Failures returns the number of consecutive failed reads for path.
func (r *Registry) Failures(path string) int {
	if tf, ok := r.files[path]; ok {
		return tf.failures
	}
	return 0
}

// Tracked reports whether path has an entry.
func (r *Registry) Tracked(path string) bool {
	_, ok := r.files[path]
	return ok
}

// Len returns the number of tracked files.
func (r *Registry) Len() int { return len(r.files) }

// Paths returns the tracked paths in lexical order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Close releases every handle and empties the registry.
func (r *Registry) Close() error {
	var errs []error
	for p, tf := range r.files {
		if err := tf.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, fmt.Errorf("closing %s: %w", p, err))
		}
		delete(r.files, p)
	}
	return errors.Join(errs...)
}
