package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// EventType names the kind of change observed.
type EventType string

const (
	EventCreate EventType = "create"
	EventWrite  EventType = "write"
	EventRemove EventType = "remove"
	EventRename EventType = "rename"
)

// FileEvent is a debounced change to one path.
type FileEvent struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Pushable reports whether the event leaves content worth sending.
func (e FileEvent) Pushable() bool {
	return e.Type == EventCreate || e.Type == EventWrite
}

// FilterConfig selects which paths produce events.
type FilterConfig struct {
	// AllowedExtensions limits events to these suffixes. Empty allows all.
	AllowedExtensions []string
	// IgnorePatterns drops paths ending in any of these suffixes.
	IgnorePatterns []string
	// IgnoreHidden drops paths whose base name starts with a dot.
	IgnoreHidden        bool
	WatchSubdirectories bool
}

// DefaultFilterConfig skips editor and OS scratch files.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		IgnorePatterns: []string{".tmp", ".swp", ".DS_Store", "~"},
		IgnoreHidden:   true,
	}
}

// ShouldProcess reports whether filePath passes the filter.
func (fc *FilterConfig) ShouldProcess(filePath string) bool {
	if fc.IgnoreHidden && strings.HasPrefix(filepath.Base(filePath), ".") {
		return false
	}

	if len(fc.AllowedExtensions) > 0 {
		matched := false
		for _, ext := range fc.AllowedExtensions {
			if strings.HasSuffix(filePath, ext) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, pattern := range fc.IgnorePatterns {
		if strings.HasSuffix(filePath, pattern) {
			return false
		}
	}
	return true
}
