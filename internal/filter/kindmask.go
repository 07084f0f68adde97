package filter

import "github.com/watchexec/corewatch/internal/event"

// KindMask is stage 1: discard events whose FileSystem tag kind is not
// selected. Non-filesystem events (signals, completions — though those are
// Urgent and never reach the stack — keyboard events) always pass, since
// the mask only applies to FileSystem tags (spec §4.4 stage 1).
type KindMask struct {
	allowed map[event.FSKind]bool
}

// DefaultKindMask selects every kind except Access (access events are noisy
// and off by default). The --no-meta shorthand additionally drops Metadata.
func DefaultKindMask() *KindMask {
	return NewKindMask(event.FSCreate, event.FSRemove, event.FSRename, event.FSModify, event.FSMetadata)
}

// NewKindMask selects exactly the given kinds.
func NewKindMask(kinds ...event.FSKind) *KindMask {
	m := make(map[event.FSKind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return &KindMask{allowed: m}
}

func (*KindMask) Name() string { return "kind-mask" }

// Accept rejects only if the event carries FileSystem tags and none of
// them are in the allowed set. An event with no FileSystem tags (e.g. pure
// Path-only synthetic events in tests) passes through unaffected.
func (m *KindMask) Accept(e event.Event) (bool, error) {
	fsTags := e.FileSystemTags()
	if len(fsTags) == 0 {
		return true, nil
	}
	for _, t := range fsTags {
		if m.allowed[t.FSSimple] {
			return true, nil
		}
	}
	return false, nil
}
