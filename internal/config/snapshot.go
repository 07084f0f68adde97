package config

import (
	"time"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/debounce"
	"github.com/watchexec/corewatch/internal/filter"
	"github.com/watchexec/corewatch/internal/queue"
	"github.com/watchexec/corewatch/internal/source"
	"github.com/watchexec/corewatch/internal/supervisor"
)

// Snapshot is the fully resolved, validated configuration handed to every
// pipeline component. It is immutable once built by Resolve; a changed
// configuration produces a new Snapshot rather than mutating this one
// (spec §9, "represent the configuration as an atomically swappable
// value").
type Snapshot struct {
	// Origin anchors ignore-file scoping (spec §3 glossary "Origin").
	Origin string

	Watch     source.WatchConfig
	Stages    []filter.Stage
	Debounce  debounce.Options
	Queue     queue.Options
	Policy    action.Policy
	Command   supervisor.Command
	EmitMode  supervisor.EmitMode

	Interactive    bool
	StdinQuit      bool
	OnlyEmitEvents bool
	OneShot        bool

	ClearMode   string
	Color       string
	Quiet       bool
	Bell        bool
	Notify      bool
	Timings     bool
	PrintEvents bool
	LogFile     string
	Verbose     int

	// StopTimeout duplicated here (also on Command.Options) for dump/display
	// convenience.
	StopTimeout time.Duration
}
