package filter

import "github.com/watchexec/corewatch/internal/event"

// IgnoreSet is stage 3: reject events all of whose paths match any ignore
// rule, applying rules in file order so later `!`-negated rules can
// re-include a path excluded by an earlier rule within the same directory
// scope (spec §4.4 stage 3, §6 "leading `!` negates").
type IgnoreSet struct {
	globs []Rule // inline --ignore glob patterns, scoped to the origin dir
	files []Rule // rules loaded from ignore files, each scoped to its dir
}

// NewIgnoreSet builds an IgnoreSet from inline glob patterns (scoped to
// origin) and pre-parsed ignore-file rules.
func NewIgnoreSet(origin string, globPatterns []string, fileRules []Rule) *IgnoreSet {
	globs := make([]Rule, len(globPatterns))
	for i, p := range globPatterns {
		globs[i] = Rule{Pattern: p, Dir: origin}
	}
	return &IgnoreSet{globs: globs, files: fileRules}
}

func (*IgnoreSet) Name() string { return "ignore-set" }

// Accept rejects only if every Path tag on the event is ignored. An event
// touching multiple paths where at least one is not ignored still passes
// (conservative: only a uniformly-ignored event is dropped, matching spec
// wording "all of whose paths match any ignore rule").
func (s *IgnoreSet) Accept(e event.Event) (bool, error) {
	paths := e.Paths()
	if len(paths) == 0 {
		return true, nil
	}
	for _, p := range paths {
		if !s.ignored(p.Path) {
			return true, nil
		}
	}
	return false, nil
}

func (s *IgnoreSet) ignored(path string) bool {
	ignored := false
	for _, r := range s.globs {
		if r.matches(path) {
			ignored = !r.Negate
		}
	}
	for _, r := range s.files {
		if r.matches(path) {
			ignored = !r.Negate
		}
	}
	return ignored
}
