package config

import (
	"gopkg.in/yaml.v3"
)

// dumpView is a flattened, display-friendly projection of a Snapshot for
// `watchexec config` (SPEC_FULL.md §6 expansion: "prints the resolved
// config.Live snapshot as YAML for diagnostics"). Filter stages and
// compiled program filters have no stable YAML shape, so this reports
// their names instead of trying to round-trip them.
type dumpView struct {
	Origin         string   `yaml:"origin"`
	WatchRoots     []string `yaml:"watch_roots"`
	PollInterval   string   `yaml:"poll_interval,omitempty"`
	FilterStages   []string `yaml:"filter_stages"`
	Debounce       string   `yaml:"debounce"`
	OnBusyUpdate   int      `yaml:"on_busy_update_mode"`
	StopTimeout    string   `yaml:"stop_timeout"`
	EmitEventsTo   int      `yaml:"emit_events_to_mode"`
	Interactive    bool     `yaml:"interactive"`
	StdinQuit      bool     `yaml:"stdin_quit"`
	OnlyEmitEvents bool     `yaml:"only_emit_events"`
	OneShot        bool     `yaml:"one_shot"`
	ClearMode      string   `yaml:"clear"`
	Color          string   `yaml:"color"`
	Verbose        int      `yaml:"verbose"`
}

// DumpYAML renders snap as YAML for the `watchexec config` subcommand.
func DumpYAML(snap *Snapshot) ([]byte, error) {
	view := dumpView{
		Origin:       snap.Origin,
		PollInterval: snap.Watch.PollInterval.String(),
		Debounce:     snap.Debounce.QuietPeriod.String(),
		OnBusyUpdate: int(snap.Policy.OnBusy),
		StopTimeout:  snap.StopTimeout.String(),
		EmitEventsTo: int(snap.EmitMode),
		Interactive:  snap.Interactive,
		StdinQuit:    snap.StdinQuit,
		OnlyEmitEvents: snap.OnlyEmitEvents,
		OneShot:        snap.OneShot,
		ClearMode:    snap.ClearMode,
		Color:        snap.Color,
		Verbose:      snap.Verbose,
	}
	for _, r := range snap.Watch.Roots {
		root := r.Path
		if r.Recursive {
			root += " (recursive)"
		}
		view.WatchRoots = append(view.WatchRoots, root)
	}
	for _, s := range snap.Stages {
		view.FilterStages = append(view.FilterStages, s.Name())
	}
	return yaml.Marshal(view)
}
