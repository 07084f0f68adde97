// Package config resolves the CLI surface of spec §6 into the concrete,
// validated configuration each pipeline component consumes, and keeps it
// live: Resolve builds an immutable Snapshot, and Live fans out updates to
// subscribers through the observer pattern spec §4.7 and §9 call for
// ("represent the configuration as an atomically swappable value read
// through an observer; components subscribe rather than hold
// back-references").
package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Options is the exhaustive flag surface of spec §6, bound onto a
// cobra.Command via BindFlags and layered with viper so project-file and
// environment defaults can pre-seed flags the user didn't pass explicitly.
type Options struct {
	// Watching
	Watch             []string
	WatchNonRecursive []string
	WatchFromFile     string
	PollInterval      time.Duration
	ProjectOrigin     string

	// Filtering
	Extensions      []string
	Filters         []string
	Ignores         []string
	FilterFiles     []string
	IgnoreFiles     []string
	ProgramFilters  []string
	Kinds           []string
	NoMeta          bool
	NoDefaultIgnore bool
	NoGlobalIgnore  bool
	NoProjectIgnore bool
	NoVCSIgnore     bool
	IgnoreNothing   bool

	// Action
	OnBusyUpdate   string
	Restart        bool
	Signal         string
	StopSignal     string
	StopTimeout    time.Duration
	MapSignal      []string
	Debounce       time.Duration
	DelayRun       time.Duration
	Postpone       bool
	Interactive    bool
	StdinQuit      bool
	OnlyEmitEvents bool
	OneShot        bool

	// Command
	Shell          string
	NoShell        bool
	Env            []string
	WorkDir        string
	Sockets        []string
	WrapProcess    string
	NoProcessGroup bool // deprecated alias for --wrap-process=none

	// Output
	ClearMode    string
	Color        string
	Quiet        bool
	Bell         bool
	Notify       bool
	Timings      bool
	PrintEvents  bool
	EmitEventsTo string
	LogFile      string
	Verbose      int

	// Command is the positional program + arguments, everything after a
	// literal "--" or the first non-flag token.
	Command []string
}

// Default returns the documented defaults, pre-flag-parse.
func Default() Options {
	return Options{
		Watch:        []string{"."},
		OnBusyUpdate: "queue",
		StopSignal:   "SIGTERM",
		StopTimeout:  10 * time.Second,
		Debounce:     50 * time.Millisecond,
		Shell:        "none",
		WrapProcess:  "group",
		ClearMode:    "none",
		Color:        "auto",
		EmitEventsTo: "none",
	}
}

// BindFlags registers every Options field as a pflag on cmd and binds it
// into v so environment-variable overrides (viper's automatic env lookup,
// enabled by the caller) can supply values cobra's own flag defaults can't
// express per-source (see cmd/watchexec/root.go).
func BindFlags(cmd *cobra.Command, v *viper.Viper, o *Options) {
	fs := cmd.Flags()

	fs.StringArrayVarP(&o.Watch, "watch", "w", o.Watch, "watch a path recursively (repeatable)")
	fs.StringArrayVarP(&o.WatchNonRecursive, "watch-non-recursive", "W", nil, "watch a path non-recursively (repeatable)")
	fs.StringVar(&o.WatchFromFile, "watch-file", "", "read watch roots from a file, one per line (\"-\" for stdin)")
	fs.DurationVar(&o.PollInterval, "poll", 0, "poll for changes every interval instead of using a native watcher")
	fs.StringVar(&o.ProjectOrigin, "project-origin", "", "override the detected project origin used to anchor ignore files")

	fs.StringArrayVarP(&o.Extensions, "exts", "e", nil, "only allow events for paths with this extension (repeatable)")
	fs.StringArrayVarP(&o.Filters, "filter", "f", nil, "only allow events for paths matching this glob (repeatable)")
	fs.StringArrayVarP(&o.Ignores, "ignore", "i", nil, "ignore events for paths matching this glob (repeatable)")
	fs.StringArrayVar(&o.FilterFiles, "filter-file", nil, "load allow-glob patterns from a file (repeatable)")
	fs.StringArrayVar(&o.IgnoreFiles, "ignore-file", nil, "load ignore-glob patterns from a file (repeatable)")
	fs.StringArrayVar(&o.ProgramFilters, "filter-prog", nil, "evaluate a wasm program filter module (repeatable)")
	fs.StringArrayVar(&o.Kinds, "kind", nil, "only allow these filesystem event kinds (default: all but access)")
	fs.BoolVar(&o.NoMeta, "no-meta", false, "shorthand: exclude access and metadata-change events")
	fs.BoolVar(&o.NoDefaultIgnore, "no-default-ignore", false, "disable watchexec's built-in default ignores")
	fs.BoolVar(&o.NoGlobalIgnore, "no-global-ignore", false, "disable the user's global ignore file")
	fs.BoolVar(&o.NoProjectIgnore, "no-project-ignore", false, "disable project .ignore/.gitignore files")
	fs.BoolVar(&o.NoVCSIgnore, "no-vcs-ignore", false, "disable VCS ignore files specifically")
	fs.BoolVar(&o.IgnoreNothing, "ignore-nothing", false, "disable every ignore source, including --ignore")

	fs.StringVar(&o.OnBusyUpdate, "on-busy-update", o.OnBusyUpdate, "what to do when a batch arrives while the command is running: queue|do-nothing|restart|signal")
	fs.BoolVarP(&o.Restart, "restart", "r", false, "shorthand for --on-busy-update=restart")
	fs.StringVarP(&o.Signal, "signal", "s", "", "signal to deliver in --on-busy-update=signal mode")
	fs.StringVar(&o.StopSignal, "stop-signal", o.StopSignal, "signal used to ask the command to stop")
	fs.DurationVar(&o.StopTimeout, "stop-timeout", o.StopTimeout, "grace period before a force-kill")
	fs.StringArrayVar(&o.MapSignal, "map-signal", nil, "remap a received signal, SRC:DST (DST empty discards, repeatable)")
	fs.DurationVarP(&o.Debounce, "debounce", "d", o.Debounce, "quiet period the debouncer waits for before releasing a batch")
	fs.DurationVar(&o.DelayRun, "delay-run", 0, "sleep this long before every Start")
	fs.BoolVar(&o.Postpone, "postpone", false, "wait for the first change before running the command")
	fs.BoolVar(&o.Interactive, "interactive", false, "enable interactive r/p/q keypress controls")
	fs.BoolVar(&o.StdinQuit, "stdin-quit", false, "quit cleanly when stdin closes")
	fs.BoolVar(&o.OnlyEmitEvents, "only-emit-events", false, "never run the command; only print/emit matching events")
	fs.BoolVarP(&o.OneShot, "one-shot", "1", false, "run the command once and exit with its exit code, instead of watching")

	fs.StringVar(&o.Shell, "shell", o.Shell, "shell used to run the command (\"none\" for direct exec)")
	fs.BoolVarP(&o.NoShell, "no-shell", "n", false, "shorthand for --shell=none")
	fs.StringArrayVar(&o.Env, "env", nil, "set an environment variable for the command, KEY=VALUE (repeatable)")
	fs.StringVar(&o.WorkDir, "workdir", "", "working directory for the command")
	fs.StringArrayVar(&o.Sockets, "socket", nil, "pre-bind a listening socket and pass it to the command (repeatable)")
	fs.StringVar(&o.WrapProcess, "wrap-process", o.WrapProcess, "process grouping: group|session|none")
	fs.BoolVar(&o.NoProcessGroup, "no-process-group", false, "deprecated alias for --wrap-process=none")

	fs.StringVar(&o.ClearMode, "clear", o.ClearMode, "clear the screen before each run: none|clear|reset")
	fs.StringVar(&o.Color, "color", o.Color, "colour mode: auto|always|never")
	fs.BoolVarP(&o.Quiet, "quiet", "q", false, "suppress watchexec's own status output")
	fs.BoolVar(&o.Bell, "bell", false, "ring the terminal bell after each run")
	fs.BoolVar(&o.Notify, "notify", false, "send a desktop notification after each run")
	fs.BoolVar(&o.Timings, "timings", false, "print how long each run took")
	fs.BoolVar(&o.PrintEvents, "print-events", false, "print the events that triggered each run")
	fs.StringVar(&o.EmitEventsTo, "emit-events-to", o.EmitEventsTo, "how to tell the command about triggering events: none|environment|file|json-file|stdio|json-stdio")
	fs.StringVar(&o.LogFile, "log-file", "", "write watchexec's own logs to this file instead of stderr")
	fs.CountVarP(&o.Verbose, "verbose", "v", "increase log verbosity (repeatable)")

	if v != nil {
		_ = v.BindPFlags(fs)
	}
}
