package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/watchexec/corewatch/internal/config"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/orchestrator"
	"github.com/watchexec/corewatch/internal/queue"
	"github.com/watchexec/corewatch/internal/supervisor"
)

// fakeSource feeds a fixed slice of events into the pipeline once, then
// blocks until ctx is cancelled, mirroring how a real Source never returns
// early on its own (same shape as orchestrator's own fakeSource test
// double, duplicated here since it isn't exported).
type fakeSource struct {
	events []event.Event
}

func (f *fakeSource) Run(ctx context.Context, out queue.Producer) error {
	for _, e := range f.events {
		if err := out.Send(ctx, e); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

// resolveScenario runs mutate over the documented defaults and resolves
// them the same way cmd/watchexec's own RunE does, so each scenario
// exercises the real flag-to-Snapshot path rather than a hand-built one.
func resolveScenario(t *testing.T, mutate func(*config.Options)) *config.Snapshot {
	t.Helper()
	o := config.Default()
	mutate(&o)
	snap, err := config.Resolve(o)
	if err != nil {
		t.Fatalf("config.Resolve: %v", err)
	}
	return snap
}

// runOrchestrator drives a real orchestrator.Orchestrator against snap and
// src to completion, failing the test if Run does not return within the
// deadline — this is both the scenario assertion and a standing regression
// test for the shutdown path (supervisor.Supervisor.Close/Wait): Run must
// return once the pipeline reaches its configured exit, never block.
func runOrchestrator(t *testing.T, snap *config.Snapshot, src orchestrator.Source) orchestrator.Summary {
	t.Helper()
	live := config.NewLive(snap)
	orch := orchestrator.New(live, nil)
	return runWiredOrchestrator(t, orch, src)
}

// runWiredOrchestrator drives an already-constructed Orchestrator (one that
// may need extra wiring, like PrebindSockets, before Run starts) to
// completion, failing the test if Run does not return within the deadline.
func runWiredOrchestrator(t *testing.T, orch *orchestrator.Orchestrator, src orchestrator.Source) orchestrator.Summary {
	t.Helper()
	if src != nil {
		orch.AddSource(src)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	var summary orchestrator.Summary
	var runErr error
	go func() {
		defer close(done)
		summary, runErr = orch.Run(ctx)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Run did not return before the deadline (shutdown deadlock?)")
	}
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	return summary
}

// TestJSONStdioEmissionScenario exercises the "JSON stdio emission"
// scenario end-to-end: a real child (`cat`) is spawned, the triggering
// event is rendered as a newline-delimited JSON payload on its stdin, and
// one-shot mode shuts the orchestrator down cleanly once the child's exit
// is observed, asserting on what the child actually wrote (spec §6).
func TestJSONStdioEmissionScenario(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.txt")
	changed := filepath.Join(dir, "main.go")

	snap := resolveScenario(t, func(o *config.Options) {
		o.ProjectOrigin = dir
		o.Watch = []string{dir}
		o.Postpone = true
		o.OneShot = true
		o.EmitEventsTo = "json-stdio"
		o.Command = []string{"/bin/sh", "-c", "cat > " + outFile}
	})

	src := &fakeSource{events: []event.Event{
		event.New(
			event.PathTag(changed, event.FileTypeFile),
			event.FSTag(event.FSModify, "modify"),
		),
	}}

	summary := runOrchestrator(t, snap, src)
	if summary.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", summary.ExitCode)
	}

	got, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("reading child output: %v", err)
	}
	if !strings.Contains(string(got), `"kind":"path"`) {
		t.Fatalf("child stdin payload missing path tag: %s", got)
	}
	if !strings.Contains(string(got), "main.go") {
		t.Fatalf("child stdin payload missing triggering path: %s", got)
	}
}

// TestSocketPassingScenario exercises the "socket passing" scenario
// end-to-end: a real TCP socket is pre-bound and handed to the child via
// supervisor.OpenSockets/Orchestrator.PrebindSockets, the child validates
// LISTEN_FDS and exits 0, and the orchestrator shuts down cleanly in
// one-shot mode with that exit code (spec.md's §6/Scenario 6 "-1 one-shot
// mode with the child's exit code").
func TestSocketPassingScenario(t *testing.T) {
	dir := t.TempDir()
	changed := filepath.Join(dir, "trigger")

	snap := resolveScenario(t, func(o *config.Options) {
		o.ProjectOrigin = dir
		o.Watch = []string{dir}
		o.Postpone = true
		o.OneShot = true
		o.Sockets = []string{"tcp/127.0.0.1:0"}
		o.Command = []string{"/bin/sh", "-c", `[ "$LISTEN_FDS" = "1" ] && exit 0 || exit 9`}
	})

	listeners, err := supervisor.OpenSockets(snap.Command.Options.Sockets)
	if err != nil {
		t.Fatalf("OpenSockets: %v", err)
	}
	defer func() {
		for _, l := range listeners {
			_ = l.Close()
		}
	}()

	live := config.NewLive(snap)
	orch := orchestrator.New(live, nil)
	orch.PrebindSockets(listeners)

	src := &fakeSource{events: []event.Event{
		event.New(
			event.PathTag(changed, event.FileTypeFile),
			event.FSTag(event.FSModify, "modify"),
		),
	}}

	summary := runWiredOrchestrator(t, orch, src)
	if summary.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (child did not see LISTEN_FDS=1)", summary.ExitCode)
	}
}
