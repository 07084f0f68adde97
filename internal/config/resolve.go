package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/debounce"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/filter"
	"github.com/watchexec/corewatch/internal/queue"
	"github.com/watchexec/corewatch/internal/signame"
	"github.com/watchexec/corewatch/internal/source"
	"github.com/watchexec/corewatch/internal/supervisor"
	"github.com/watchexec/corewatch/internal/werrors"
)

// Resolve validates Options and builds the immutable Snapshot every
// component consumes, per spec §6/§7 ("Configuration errors... fatal
// before startup; reported with diagnostic context").
func Resolve(o Options) (*Snapshot, error) {
	origin := o.ProjectOrigin
	if origin == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, werrors.Wrap(werrors.Configuration, "determining project origin", err)
		}
		origin = wd
	}

	watch, err := resolveWatch(o, origin)
	if err != nil {
		return nil, err
	}

	stages, err := resolveFilterStack(o, origin)
	if err != nil {
		return nil, err
	}

	policy, err := resolvePolicy(o)
	if err != nil {
		return nil, err
	}

	cmd, err := resolveCommand(o)
	if err != nil {
		return nil, err
	}

	emit, err := parseEmitMode(o.EmitEventsTo)
	if err != nil {
		return nil, err
	}

	quietPeriod, quietZero := o.Debounce, false
	if o.Debounce == 0 {
		quietZero = true
	}

	return &Snapshot{
		Origin:   origin,
		Watch:    watch,
		Stages:   stages,
		Debounce: debounce.Options{QuietPeriod: quietPeriod, QuietPeriodZero: quietZero},
		Queue:    queue.Options{Capacity: queue.DefaultCapacity},
		Policy:   policy,
		Command:  cmd,
		EmitMode: emit,

		Interactive:    o.Interactive,
		StdinQuit:      o.StdinQuit,
		OnlyEmitEvents: o.OnlyEmitEvents,
		OneShot:        o.OneShot,

		ClearMode:   o.ClearMode,
		Color:       o.Color,
		Quiet:       o.Quiet,
		Bell:        o.Bell,
		Notify:      o.Notify,
		Timings:     o.Timings,
		PrintEvents: o.PrintEvents,
		LogFile:     o.LogFile,
		Verbose:     o.Verbose,
		StopTimeout: o.StopTimeout,
	}, nil
}

func resolveWatch(o Options, origin string) (source.WatchConfig, error) {
	var roots []source.WatchRoot
	for _, p := range o.Watch {
		roots = append(roots, source.WatchRoot{Path: absOrOrigin(p, origin), Recursive: true})
	}
	for _, p := range o.WatchNonRecursive {
		roots = append(roots, source.WatchRoot{Path: absOrOrigin(p, origin), Recursive: false})
	}
	if o.WatchFromFile != "" {
		extra, err := readWatchFromFile(o.WatchFromFile)
		if err != nil {
			return source.WatchConfig{}, werrors.Wrap(werrors.Configuration, "reading --watch-file", err)
		}
		for _, p := range extra {
			roots = append(roots, source.WatchRoot{Path: absOrOrigin(p, origin), Recursive: true})
		}
	}
	if len(roots) == 0 {
		roots = []source.WatchRoot{{Path: origin, Recursive: true}}
	}
	return source.WatchConfig{Roots: roots, PollInterval: o.PollInterval}, nil
}

func readWatchFromFile(path string) ([]string, error) {
	var r *os.File
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	rules, err := filter.ParseRules(r, "")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Pattern)
	}
	return out, nil
}

func absOrOrigin(path, origin string) string {
	if path == "" {
		return origin
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(origin, path))
}

// resolveFilterStack builds the ordered stage list of spec §4.4: kind mask,
// watch scope, ignore set, allow filters, program filters.
func resolveFilterStack(o Options, origin string) ([]filter.Stage, error) {
	kindMask, err := resolveKindMask(o)
	if err != nil {
		return nil, err
	}

	var scopeRoots []filter.WatchRoot
	for _, p := range o.Watch {
		scopeRoots = append(scopeRoots, filter.WatchRoot{Path: absOrOrigin(p, origin), Recursive: true})
	}
	for _, p := range o.WatchNonRecursive {
		scopeRoots = append(scopeRoots, filter.WatchRoot{Path: absOrOrigin(p, origin), Recursive: false})
	}
	if len(scopeRoots) == 0 {
		scopeRoots = []filter.WatchRoot{{Path: origin, Recursive: true}}
	}

	ignoreRules, err := resolveIgnoreRules(o, origin)
	if err != nil {
		return nil, err
	}

	allowGlobs := append([]string{}, o.Filters...)
	for _, path := range o.FilterFiles {
		patterns, err := patternsFromFile(path)
		if err != nil {
			return nil, werrors.Wrap(werrors.Configuration, "reading --filter-file "+path, err)
		}
		allowGlobs = append(allowGlobs, patterns...)
	}

	inlineIgnores := o.Ignores
	if o.IgnoreNothing {
		inlineIgnores = nil
	}

	stages := []filter.Stage{
		kindMask,
		filter.NewWatchScope(scopeRoots...),
		filter.NewIgnoreSet(origin, inlineIgnores, ignoreRules),
		filter.NewAllowFilters(origin, o.Extensions, allowGlobs),
	}

	if len(o.ProgramFilters) > 0 {
		pf, err := filter.NewProgramFilter(context.Background(), o.ProgramFilters)
		if err != nil {
			return nil, err
		}
		stages = append(stages, pf)
	}

	return stages, nil
}

func resolveKindMask(o Options) (*filter.KindMask, error) {
	if o.NoMeta && len(o.Kinds) > 0 {
		return nil, werrors.New(werrors.Configuration, "--no-meta and --kind are mutually exclusive")
	}
	if o.NoMeta {
		return filter.NewKindMask(event.FSCreate, event.FSRemove, event.FSRename, event.FSModify), nil
	}
	if len(o.Kinds) == 0 {
		return filter.DefaultKindMask(), nil
	}
	var kinds []event.FSKind
	for _, k := range o.Kinds {
		kind, ok := parseFSKind(k)
		if !ok {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --kind %q", k))
		}
		kinds = append(kinds, kind)
	}
	return filter.NewKindMask(kinds...), nil
}

func parseFSKind(s string) (event.FSKind, bool) {
	switch strings.ToLower(s) {
	case "access":
		return event.FSAccess, true
	case "create":
		return event.FSCreate, true
	case "remove":
		return event.FSRemove, true
	case "rename":
		return event.FSRename, true
	case "modify", "write":
		return event.FSModify, true
	case "metadata", "meta":
		return event.FSMetadata, true
	default:
		return "", false
	}
}

// resolveIgnoreRules gathers ignore-file rules from every enabled source:
// inline --ignore-file paths, the built-in default ignore list, a global
// ignore file, and project/VCS ignore files discovered under origin (spec
// §6 "no-default-ignore, no-global-ignore, no-project-ignore,
// no-vcs-ignore, ignore-nothing").
func resolveIgnoreRules(o Options, origin string) ([]filter.Rule, error) {
	if o.IgnoreNothing {
		return nil, nil
	}

	var rules []filter.Rule

	if !o.NoDefaultIgnore {
		for _, pattern := range defaultIgnorePatterns {
			rules = append(rules, filter.Rule{Pattern: pattern, Dir: origin})
		}
	}

	if !o.NoGlobalIgnore {
		if path := globalIgnoreFilePath(); path != "" {
			if fileRules, err := filter.ParseRulesFile(path); err == nil {
				rules = append(rules, fileRules...)
			}
		}
	}

	if !o.NoProjectIgnore {
		for _, name := range []string{".ignore"} {
			p := filepath.Join(origin, name)
			if fileRules, err := filter.ParseRulesFile(p); err == nil {
				rules = append(rules, fileRules...)
			}
		}
	}

	if !o.NoVCSIgnore {
		p := filepath.Join(origin, ".gitignore")
		if fileRules, err := filter.ParseRulesFile(p); err == nil {
			rules = append(rules, fileRules...)
		}
	}

	for _, path := range o.IgnoreFiles {
		fileRules, err := filter.ParseRulesFile(path)
		if err != nil {
			return nil, werrors.Wrap(werrors.Configuration, "reading --ignore-file "+path, err)
		}
		rules = append(rules, fileRules...)
	}

	return rules, nil
}

// patternsFromFile reads a filter file's glob patterns, discarding the
// ignore-file-only leading-"!" negation syntax (spec §6 "Filter/ignore
// files" share a format, but AllowFilters has no notion of negation).
func patternsFromFile(path string) ([]string, error) {
	rules, err := filter.ParseRulesFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.Pattern)
	}
	return out, nil
}

// defaultIgnorePatterns mirrors the common set of directories/files a
// watcher should ignore out of the box, matching widely used defaults in
// this ecosystem (.git, build/dependency caches).
var defaultIgnorePatterns = []string{
	".git/**",
	".hg/**",
	".svn/**",
	"node_modules/**",
	"target/**",
	".DS_Store",
	"*.swp",
	"*.tmp",
	"*~",
}

func globalIgnoreFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "watchexec", "ignore")
}

func resolvePolicy(o Options) (action.Policy, error) {
	onBusy := o.OnBusyUpdate
	if o.Restart {
		onBusy = "restart"
	}
	mode, err := parseBusyMode(onBusy)
	if err != nil {
		return action.Policy{}, err
	}

	var busySignal event.SignalName
	if mode == action.BusySignal {
		if o.Signal == "" {
			return action.Policy{}, werrors.New(werrors.Configuration, "--on-busy-update=signal requires --signal")
		}
		sig, ok := signame.Parse(o.Signal)
		if !ok {
			return action.Policy{}, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --signal %q", o.Signal))
		}
		busySignal = sig
	}

	signalMap, err := parseSignalMap(o.MapSignal)
	if err != nil {
		return action.Policy{}, err
	}

	return action.Policy{
		OnBusy:     mode,
		BusySignal: busySignal,
		SignalMap:  signalMap,
		Postpone:   o.Postpone,
		DelayRun:   o.DelayRun,
	}, nil
}

func parseBusyMode(s string) (action.BusyMode, error) {
	switch strings.ToLower(s) {
	case "", "queue":
		return action.BusyQueue, nil
	case "do-nothing", "donothing":
		return action.BusyDoNothing, nil
	case "restart":
		return action.BusyRestart, nil
	case "signal":
		return action.BusySignal, nil
	default:
		return 0, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --on-busy-update %q", s))
	}
}

// parseSignalMap parses repeated "SRC:DST" entries (spec §6 "map-signal
// (repeatable SRC:DST)"); DST empty means discard.
func parseSignalMap(entries []string) (map[event.SignalName]event.SignalName, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[event.SignalName]event.SignalName, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("--map-signal %q must be SRC:DST", entry))
		}
		src, ok := signame.Parse(parts[0])
		if !ok {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("--map-signal unknown source signal %q", parts[0]))
		}
		if parts[1] == "" {
			out[src] = ""
			continue
		}
		dst, ok := signame.Parse(parts[1])
		if !ok {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("--map-signal unknown destination signal %q", parts[1]))
		}
		out[src] = dst
	}
	return out, nil
}

func resolveCommand(o Options) (supervisor.Command, error) {
	if len(o.Command) == 0 && !o.OnlyEmitEvents {
		return supervisor.Command{}, werrors.New(werrors.Configuration, "no command given")
	}

	group, err := parseGroupMode(o)
	if err != nil {
		return supervisor.Command{}, err
	}

	stopSignal, ok := signame.Parse(o.StopSignal)
	if !ok {
		return supervisor.Command{}, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --stop-signal %q", o.StopSignal))
	}

	env, err := parseEnv(o.Env)
	if err != nil {
		return supervisor.Command{}, err
	}

	sockets, err := parseSockets(o.Sockets)
	if err != nil {
		return supervisor.Command{}, err
	}

	program, err := resolveProgram(o)
	if err != nil {
		return supervisor.Command{}, err
	}

	return supervisor.Command{
		Program: program,
		Options: supervisor.Options{
			WorkDir:     o.WorkDir,
			Env:         env,
			Group:       group,
			Sockets:     sockets,
			StopSignal:  stopSignal,
			StopTimeout: o.StopTimeout,
		},
	}, nil
}

func parseGroupMode(o Options) (supervisor.GroupMode, error) {
	if o.NoProcessGroup {
		return supervisor.GroupNone, nil
	}
	switch strings.ToLower(o.WrapProcess) {
	case "", "group":
		return supervisor.GroupProcessGroup, nil
	case "session":
		return supervisor.GroupSession, nil
	case "none":
		return supervisor.GroupNone, nil
	default:
		return 0, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --wrap-process %q", o.WrapProcess))
	}
}

func resolveProgram(o Options) (supervisor.Program, error) {
	if len(o.Command) == 0 {
		return supervisor.Program{}, nil
	}
	shell := o.Shell
	if o.NoShell {
		shell = "none"
	}
	if shell == "" || strings.EqualFold(shell, "none") {
		return supervisor.Program{Direct: &supervisor.DirectProgram{Path: o.Command[0], Args: o.Command[1:]}}, nil
	}
	return supervisor.Program{Shell: &supervisor.ShellProgram{
		Shell:   shell,
		Flags:   shellFlags(shell),
		Command: strings.Join(o.Command, " "),
	}}, nil
}

func shellFlags(shell string) []string {
	base := filepath.Base(shell)
	switch strings.ToLower(base) {
	case "cmd", "cmd.exe":
		return []string{"/C"}
	case "powershell", "powershell.exe", "pwsh", "pwsh.exe":
		return []string{"-Command"}
	default:
		return []string{"-c"}
	}
}

func parseEnv(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("--env %q must be KEY=VALUE", e))
		}
		out[k] = v
	}
	return out, nil
}

func parseSockets(entries []string) ([]supervisor.Socket, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make([]supervisor.Socket, 0, len(entries))
	for _, e := range entries {
		network, address, ok := strings.Cut(e, "/")
		if !ok {
			network, address = "tcp", e
		}
		if address == "" {
			return nil, werrors.New(werrors.Configuration, fmt.Sprintf("--socket %q missing an address", e))
		}
		if !strings.Contains(address, ":") && network != "unix" {
			address = ":" + address
		}
		out = append(out, supervisor.Socket{Network: network, Address: address})
	}
	return out, nil
}

func parseEmitMode(s string) (supervisor.EmitMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return supervisor.EmitNone, nil
	case "environment", "env":
		return supervisor.EmitLegacyEnv, nil
	case "file", "json-file":
		return supervisor.EmitFile, nil
	case "stdio":
		return supervisor.EmitStdioLegacy, nil
	case "json-stdio":
		return supervisor.EmitStdioJSON, nil
	default:
		return 0, werrors.New(werrors.Configuration, fmt.Sprintf("unknown --emit-events-to %q", s))
	}
}
