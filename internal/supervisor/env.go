package supervisor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/watchexec/corewatch/internal/event"
)

// EmitMode selects how triggering events are communicated to the child, per
// spec §6 "Environment variables set for the child (when enabled)".
type EmitMode int

const (
	EmitNone EmitMode = iota
	EmitLegacyEnv
	EmitFile
	EmitStdioLegacy
	EmitStdioJSON
)

// pathSep is the platform path-list separator used to join legacy
// multi-path environment values (":" on Unix, ";" on Windows).
const pathSep = string(os.PathListSeparator)

// legacyKindEnv maps a FileSystem tag's simple kind to its environment
// variable name, per spec §6's legacy per-kind list.
var legacyKindEnv = map[event.FSKind]string{
	event.FSCreate:   "WATCHEXEC_CREATED_PATH",
	event.FSRemove:   "WATCHEXEC_REMOVED_PATH",
	event.FSRename:   "WATCHEXEC_RENAMED_PATH",
	event.FSModify:   "WATCHEXEC_WRITTEN_PATH",
	event.FSMetadata: "WATCHEXEC_META_CHANGED_PATH",
}

const legacyOtherwiseEnv = "WATCHEXEC_OTHERWISE_CHANGED_PATH"
const legacyCommonEnv = "WATCHEXEC_COMMON_PATH"

// LegacyEnv builds the WATCHEXEC_COMMON_PATH plus per-kind path-list
// environment variables for a batch of events. Per event, every path tag is
// filed under every FileSystem-kind variable present on that same event
// (spec §9, Open Question 1: "the path is emitted under every matching
// WATCHEXEC_*_PATH variable").
func LegacyEnv(events []event.Event) map[string]string {
	byVar := map[string]map[string]struct{}{}
	common := map[string]struct{}{}

	for _, e := range events {
		kinds := e.FileSystemTags()
		paths := e.Paths()
		if len(paths) == 0 {
			continue
		}
		vars := make([]string, 0, len(kinds))
		for _, k := range kinds {
			name, ok := legacyKindEnv[k.FSSimple]
			if !ok {
				name = legacyOtherwiseEnv
			}
			vars = append(vars, name)
		}
		if len(vars) == 0 {
			vars = []string{legacyOtherwiseEnv}
		}
		for _, p := range paths {
			common[p.Path] = struct{}{}
			for _, v := range vars {
				set, ok := byVar[v]
				if !ok {
					set = map[string]struct{}{}
					byVar[v] = set
				}
				set[p.Path] = struct{}{}
			}
		}
	}

	out := map[string]string{}
	if len(common) > 0 {
		out[legacyCommonEnv] = joinSorted(common)
	}
	for v, set := range byVar {
		out[v] = joinSorted(set)
	}
	return out
}

func joinSorted(set map[string]struct{}) string {
	paths := make([]string, 0, len(set))
	for p := range set {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += pathSep
		}
		out += p
	}
	return out
}

// JSONLines renders events as newline-delimited JSON, one object per event,
// the payload for EmitStdioJSON and EmitFile (spec §6's "JSON lines" format).
func JSONLines(events []event.Event) ([]byte, error) {
	var out []byte
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
		out = append(out, '\n')
	}
	return out, nil
}

// WriteEventsFile renders events as newline-delimited JSON (or, if asJSON is
// false, as the legacy KEY=value lines) into a fresh temp file and returns
// its path, for EmitFile mode (spec §6, "WATCHEXEC_EVENTS_FILE points to a
// temp file").
func WriteEventsFile(events []event.Event, asJSON bool) (string, error) {
	f, err := os.CreateTemp("", "watchexec-events-*.log")
	if err != nil {
		return "", err
	}
	defer f.Close()

	var payload []byte
	if asJSON {
		payload, err = JSONLines(events)
	} else {
		payload = []byte(LegacyLines(events))
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if _, err := f.Write(payload); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}

// LegacyLines renders events as sorted "KEY=value\n" lines, the legacy
// format written to the child's stdin in EmitStdioLegacy mode (spec §6).
// EmitFile mode always writes JSON lines ("file" and "json-file" both
// select it), so no events file is written in this legacy format.
func LegacyLines(events []event.Event) string {
	env := LegacyEnv(events)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for _, k := range keys {
		out += k + "=" + env[k] + "\n"
	}
	return out
}
