package filter

import (
	"path/filepath"
	"strings"

	"github.com/watchexec/corewatch/internal/event"
)

// WatchRoot is one configured watch target.
type WatchRoot struct {
	Path      string
	Recursive bool
}

// WatchScope is stage 2: each Path tag on the event must lie within
// (recursively, or directly under for non-recursive mounts) at least one
// watched root (spec §4.4 stage 2).
type WatchScope struct {
	roots []WatchRoot
}

// NewWatchScope builds a WatchScope from the configured watch roots.
func NewWatchScope(roots ...WatchRoot) *WatchScope {
	cp := make([]WatchRoot, len(roots))
	copy(cp, roots)
	return &WatchScope{roots: cp}
}

func (*WatchScope) Name() string { return "watch-scope" }

// Accept passes events with no Path tags (signals, keyboard) unchanged;
// path-bearing events must have every path contained by some root.
func (w *WatchScope) Accept(e event.Event) (bool, error) {
	paths := e.Paths()
	if len(paths) == 0 {
		return true, nil
	}
	for _, p := range paths {
		if !w.containedByAny(p.Path) {
			return false, nil
		}
	}
	return true, nil
}

func (w *WatchScope) containedByAny(path string) bool {
	for _, r := range w.roots {
		if contains(r, path) {
			return true
		}
	}
	return false
}

func contains(root WatchRoot, path string) bool {
	rel, err := filepath.Rel(root.Path, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if strings.HasPrefix(rel, "..") {
		return false
	}
	if root.Recursive {
		return true
	}
	// Non-recursive: only directly under root, i.e. rel has no separator.
	return !strings.Contains(rel, string(filepath.Separator))
}
