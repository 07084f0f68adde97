package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/config"
	"github.com/watchexec/corewatch/internal/debounce"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/filter"
	"github.com/watchexec/corewatch/internal/queue"
	"github.com/watchexec/corewatch/internal/source"
	"github.com/watchexec/corewatch/internal/supervisor"
)

// fakeSource sends a fixed slice of events into the pipeline, in order,
// then blocks until ctx is cancelled, mirroring how a real Source never
// returns early on its own.
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

func baseSnapshot(t *testing.T, cmd supervisor.Command) *config.Snapshot {
	t.Helper()
	return &config.Snapshot{
		Origin: t.TempDir(),
		Watch: source.WatchConfig{
			Roots: []source.WatchRoot{{Path: t.TempDir(), Recursive: true}},
		},
		Debounce: debounce.Options{QuietPeriod: 10 * time.Millisecond},
		Queue:    queue.Options{Capacity: 64},
		Policy:   action.Policy{OnBusy: action.BusyQueue},
		Command:  cmd,
		EmitMode: supervisor.EmitNone,
	}
}

func directCommand(path string, args ...string) supervisor.Command {
	return supervisor.Command{
		Program: supervisor.Program{Direct: &supervisor.DirectProgram{Path: path, Args: args}},
		Options: supervisor.Options{StopSignal: event.SigTerminate, StopTimeout: 200 * time.Millisecond},
	}
}

// TestRunStartsInitialCommandAndShutsDownCleanly exercises the implicit
// initial Start (no --postpone) and the five-step shutdown sequence when
// the run context is cancelled.
func TestRunStartsInitialCommandAndShutsDownCleanly(t *testing.T) {
	snap := baseSnapshot(t, directCommand("/bin/sh", "-c", "sleep 5"))
	live := config.NewLive(snap)
	o := New(live, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	var summary Summary
	go func() {
		defer close(done)
		s, err := o.Run(ctx)
		if err != nil {
			t.Errorf("Run: %v", err)
		}
		summary = s
	}()

	deadline := time.After(1 * time.Second)
	for {
		if o.supervisor.Job(jobName) != nil && o.supervisor.Job(jobName).Running() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("command never reached Running")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after context cancellation (stop/escalation stuck)")
	}
	_ = summary
}

// TestRunAppliesLegacyEnvEmissionOnTriggeringBatch verifies that an
// event delivered through a Source reaches the spawned child as the legacy
// WATCHEXEC_* environment variables (spec §6).
func TestRunAppliesLegacyEnvEmissionOnTriggeringBatch(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.txt")
	changed := filepath.Join(dir, "changed.txt")

	snap := baseSnapshot(t, directCommand("/bin/sh", "-c", "echo $WATCHEXEC_COMMON_PATH > "+outFile))
	snap.Policy.Postpone = true // suppress the implicit initial Start
	snap.EmitMode = supervisor.EmitLegacyEnv
	live := config.NewLive(snap)
	o := New(live, nil)

	triggering := event.New(
		event.PathTag(changed, event.FileTypeFile),
		event.FSTag(event.FSModify, "modify"),
		event.SourceTag(event.SourceFilesystem),
	)
	o.AddSource(&fakeSource{events: []event.Event{triggering}})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	deadline := time.After(1500 * time.Millisecond)
waitFile:
	for {
		if b, err := os.ReadFile(outFile); err == nil {
			if got := strings.TrimSpace(string(b)); got != changed {
				t.Fatalf("WATCHEXEC_COMMON_PATH = %q, want %q", got, changed)
			}
			break waitFile
		}
		select {
		case <-deadline:
			t.Fatal("child never wrote its env-derived output file")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

// TestReconfigureSwapsFilterStack checks that Reconfigure installs a new
// Stack whose Accept decisions reflect the new Snapshot's Stages.
func TestReconfigureSwapsFilterStack(t *testing.T) {
	snap := baseSnapshot(t, directCommand("/bin/true"))
	snap.Policy.Postpone = true
	live := config.NewLive(snap)
	o := New(live, nil)

	before := o.currentStack()

	next := *snap
	next.Stages = []filter.Stage{rejectAllStage{}}
	o.Reconfigure(&next)
	after := o.currentStack()

	if before == after {
		t.Fatal("Reconfigure did not install a new Stack")
	}
	ev := event.New(event.PathTag("/tmp/whatever", event.FileTypeFile))
	if after.Accept(ev) {
		t.Fatal("new Stack should reject every event via rejectAllStage")
	}
}

// rejectAllStage is a minimal filter.Stage test double that rejects every
// event, used to confirm Reconfigure actually swaps the active Stack.
type rejectAllStage struct{}

func (rejectAllStage) Name() string                       { return "reject-all" }
func (rejectAllStage) Accept(e event.Event) (bool, error) { return false, nil }
