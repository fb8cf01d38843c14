package tail

import (
	"path/filepath"
	"strings"
)

// DefaultExtension is the suffix tracked when none is configured.
const DefaultExtension = ".log"

// Filter decides which paths are eligible for tracking.
type Filter struct {
	ext string
}

// NewFilter returns a filter matching ext. A missing leading dot is added,
// so "log" and ".log" are equivalent. Matching is case-sensitive.
func NewFilter(ext string) Filter {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Filter{ext: ext}
}

// Extension returns the normalised suffix, including the dot.
func (f Filter) Extension() string {
	if f.ext == "" {
		return DefaultExtension
	}
	return f.ext
}

// Match reports whether path ends in the configured extension.
func (f Filter) Match(path string) bool {
	return filepath.Ext(path) == f.Extension()
}
