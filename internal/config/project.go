package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/watchexec/corewatch/internal/werrors"
)

// ProjectFile is the optional `.watchexec.toml` ambient config layer
// (SPEC_FULL.md §6 expansion): "pre-seeds flags not given on the command
// line; explicit CLI flags always win". Only a subset of Options that make
// sense as durable, per-project defaults are exposed here.
type ProjectFile struct {
	Watch        []string      `toml:"watch"`
	Ignores      []string      `toml:"ignore"`
	Extensions   []string      `toml:"exts"`
	Debounce     time.Duration `toml:"debounce"`
	OnBusyUpdate string        `toml:"on_busy_update"`
	Shell        string        `toml:"shell"`
	StopSignal   string        `toml:"stop_signal"`
	StopTimeout  time.Duration `toml:"stop_timeout"`
	ClearMode    string        `toml:"clear"`
	Color        string        `toml:"color"`
	Env          []string      `toml:"env"`
}

// LoadProjectFile reads and parses a .watchexec.toml file. A missing file
// is reported as the underlying open error; callers can check
// os.IsNotExist on it and treat it as "no project file".
func LoadProjectFile(path string) (*ProjectFile, error) {
	var pf ProjectFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

// FindProjectFile looks for ".watchexec.toml" directly under origin,
// returning "" if none exists.
func FindProjectFile(origin string) string {
	path := origin + string(os.PathSeparator) + ".watchexec.toml"
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// ApplyProjectDefaults fills fields of o from pf wherever the corresponding
// flag was not explicitly set on cmd, per the documented "explicit CLI
// flags always win" precedence.
func ApplyProjectDefaults(cmd *cobra.Command, o *Options, pf *ProjectFile) {
	changed := cmd.Flags().Changed

	if !changed("watch") && len(pf.Watch) > 0 {
		o.Watch = pf.Watch
	}
	if !changed("ignore") && len(pf.Ignores) > 0 {
		o.Ignores = pf.Ignores
	}
	if !changed("exts") && len(pf.Extensions) > 0 {
		o.Extensions = pf.Extensions
	}
	if !changed("debounce") && pf.Debounce > 0 {
		o.Debounce = pf.Debounce
	}
	if !changed("on-busy-update") && pf.OnBusyUpdate != "" {
		o.OnBusyUpdate = pf.OnBusyUpdate
	}
	if !changed("shell") && pf.Shell != "" {
		o.Shell = pf.Shell
	}
	if !changed("stop-signal") && pf.StopSignal != "" {
		o.StopSignal = pf.StopSignal
	}
	if !changed("stop-timeout") && pf.StopTimeout > 0 {
		o.StopTimeout = pf.StopTimeout
	}
	if !changed("clear") && pf.ClearMode != "" {
		o.ClearMode = pf.ClearMode
	}
	if !changed("color") && pf.Color != "" {
		o.Color = pf.Color
	}
	if !changed("env") && len(pf.Env) > 0 {
		o.Env = append(o.Env, pf.Env...)
	}
}

// LoadAndApplyProjectFile is the convenience entry point root.go and
// config_dump.go call: find
// and decode .watchexec.toml under origin, if present, and apply it.
func LoadAndApplyProjectFile(cmd *cobra.Command, o *Options, origin string) error {
	path := FindProjectFile(origin)
	if path == "" {
		return nil
	}
	pf, err := LoadProjectFile(path)
	if err != nil {
		return werrors.Wrap(werrors.Configuration, "parsing "+path, err)
	}
	ApplyProjectDefaults(cmd, o, pf)
	return nil
}
