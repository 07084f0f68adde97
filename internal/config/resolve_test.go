package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/supervisor"
)

func baseOptions(t *testing.T) Options {
	t.Helper()
	o := Default()
	o.Watch = []string{t.TempDir()}
	o.Command = []string{"echo", "hi"}
	return o
}

func TestResolveBuildsDirectProgramByDefault(t *testing.T) {
	o := baseOptions(t)
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Command.Program.Direct == nil {
		t.Fatalf("expected a direct program, got %+v", snap.Command.Program)
	}
	if snap.Command.Program.Direct.Path != "echo" {
		t.Fatalf("Path = %q, want echo", snap.Command.Program.Direct.Path)
	}
}

func TestResolveOneShotFlagCarriesToSnapshot(t *testing.T) {
	o := baseOptions(t)
	o.OneShot = true
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !snap.OneShot {
		t.Fatal("Snapshot.OneShot = false, want true")
	}
}

func TestResolveWrapsInShellWhenRequested(t *testing.T) {
	o := baseOptions(t)
	o.Shell = "sh"
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Command.Program.Shell == nil {
		t.Fatalf("expected a shell program")
	}
	if snap.Command.Program.Shell.Command != "echo hi" {
		t.Fatalf("Command = %q", snap.Command.Program.Shell.Command)
	}
}

func TestResolveRestartShorthandSetsBusyMode(t *testing.T) {
	o := baseOptions(t)
	o.Restart = true
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Policy.OnBusy != action.BusyRestart {
		t.Fatalf("OnBusy = %v, want BusyRestart", snap.Policy.OnBusy)
	}
}

func TestResolveMultiArgCommandPreservesOrder(t *testing.T) {
	o := baseOptions(t)
	o.Command = []string{"npm", "run", "test", "--", "--watch"}
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"run", "test", "--", "--watch"}
	if diff := cmp.Diff(want, snap.Command.Program.Direct.Args); diff != "" {
		t.Fatalf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSocketsDefaultToTCP(t *testing.T) {
	o := baseOptions(t)
	o.Sockets = []string{"18080", "unix//run/app.sock", "udp/127.0.0.1:9000"}
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []supervisor.Socket{
		{Network: "tcp", Address: ":18080"},
		{Network: "unix", Address: "/run/app.sock"},
		{Network: "udp", Address: "127.0.0.1:9000"},
	}
	if diff := cmp.Diff(want, snap.Command.Options.Sockets); diff != "" {
		t.Fatalf("Sockets mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveSignalModeRequiresSignal(t *testing.T) {
	o := baseOptions(t)
	o.OnBusyUpdate = "signal"
	if _, err := Resolve(o); err == nil {
		t.Fatalf("expected an error when --on-busy-update=signal lacks --signal")
	}
}

func TestResolveMapSignalDiscard(t *testing.T) {
	o := baseOptions(t)
	o.MapSignal = []string{"INT:"}
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	dst, present := snap.Policy.SignalMap[event.SigInterrupt]
	if !present || dst != "" {
		t.Fatalf("SignalMap[interrupt] = (%q, %v), want (\"\", true)", dst, present)
	}
}

func TestResolveRejectsUnknownStopSignal(t *testing.T) {
	o := baseOptions(t)
	o.StopSignal = "NOTASIGNAL"
	if _, err := Resolve(o); err == nil {
		t.Fatalf("expected an error for an unknown --stop-signal")
	}
}

func TestResolveNoCommandWithoutOnlyEmitEventsErrors(t *testing.T) {
	o := Default()
	o.Watch = []string{t.TempDir()}
	if _, err := Resolve(o); err == nil {
		t.Fatalf("expected an error when no command and --only-emit-events is unset")
	}
}

func TestResolveIgnoreNothingSkipsDefaultIgnores(t *testing.T) {
	o := baseOptions(t)
	o.IgnoreNothing = true
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, s := range snap.Stages {
		if s.Name() == "ignore-set" {
			gitConfig := event.New(event.PathTag(filepath.Join(snap.Origin, ".git", "config"), event.FileTypeFile))
			if ok, err := s.Accept(gitConfig); err != nil || !ok {
				t.Fatalf("ignore-set rejected .git/config under --ignore-nothing: ok=%v err=%v", ok, err)
			}
			return
		}
	}
	t.Fatalf("expected an ignore-set stage even with --ignore-nothing (it should just carry no rules)")
}

func TestResolveSocketParsesBareAddressAsTCP(t *testing.T) {
	o := baseOptions(t)
	o.Sockets = []string{"18080"}
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(snap.Command.Options.Sockets) != 1 {
		t.Fatalf("Sockets = %+v, want 1 entry", snap.Command.Options.Sockets)
	}
	got := snap.Command.Options.Sockets[0]
	if got.Network != "tcp" || got.Address != ":18080" {
		t.Fatalf("Socket = %+v, want {tcp, :18080}", got)
	}
}

func TestResolveGroupModeNoneViaDeprecatedAlias(t *testing.T) {
	o := baseOptions(t)
	o.NoProcessGroup = true
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Command.Options.Group != supervisor.GroupNone {
		t.Fatalf("Group = %v, want GroupNone", snap.Command.Options.Group)
	}
}

func TestResolvePollIntervalCarriesThrough(t *testing.T) {
	o := baseOptions(t)
	o.PollInterval = 250 * time.Millisecond
	snap, err := Resolve(o)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if snap.Watch.PollInterval != 250*time.Millisecond {
		t.Fatalf("PollInterval = %v", snap.Watch.PollInterval)
	}
}
