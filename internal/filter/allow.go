package filter

import (
	"path/filepath"
	"strings"

	"github.com/watchexec/corewatch/internal/event"
)

// AllowFilters is stage 4: if any allow filters are configured, at least
// one path tag must match at least one of them; non-path events pass
// (spec §4.4 stage 4).
type AllowFilters struct {
	origin     string
	extensions map[string]bool
	globs      []string
}

// NewAllowFilters builds an AllowFilters stage. extensions are compared
// without a leading dot (e.g. "go", "rs"); globs are matched relative to
// origin the same way IgnoreSet matches.
func NewAllowFilters(origin string, extensions []string, globs []string) *AllowFilters {
	ext := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		ext[strings.TrimPrefix(e, ".")] = true
	}
	gl := make([]string, len(globs))
	copy(gl, globs)
	return &AllowFilters{origin: origin, extensions: ext, globs: gl}
}

func (*AllowFilters) Name() string { return "allow-filters" }

// Configured reports whether any allow filter was given; when false, this
// stage is a no-op pass-through (spec: "if any allow filters... are
// configured").
func (a *AllowFilters) Configured() bool {
	return len(a.extensions) > 0 || len(a.globs) > 0
}

func (a *AllowFilters) Accept(e event.Event) (bool, error) {
	if !a.Configured() {
		return true, nil
	}
	paths := e.Paths()
	if len(paths) == 0 {
		return true, nil
	}
	for _, p := range paths {
		if a.matches(p.Path) {
			return true, nil
		}
	}
	return false, nil
}

func (a *AllowFilters) matches(path string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext != "" && a.extensions[ext] {
		return true
	}
	rel, err := filepath.Rel(a.origin, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, g := range a.globs {
		if matchGlob(g, rel) || matchGlob(g, base) {
			return true
		}
	}
	return false
}
