package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/config"
	"github.com/watchexec/corewatch/internal/debounce"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/filter"
	"github.com/watchexec/corewatch/internal/supervisor"
)

// ansiClearScreen and ansiClearScrollback implement SPEC_FULL.md's
// `--clear` output option; the exact escape sequences match what
// terminals in this ecosystem (and watchexec's own documented behaviour)
// use for "clear visible screen" vs "clear screen and scrollback".
const (
	ansiClearScreen     = "\x1b[H\x1b[2J"
	ansiClearScrollback = "\x1b[H\x1b[2J\x1b[3J"
)

// Run starts every source, drives the pipeline until ctx is cancelled or
// the Action Engine produces an Exit outcome, then performs the five-step
// shutdown of spec §4.7: (i) close the queue, (ii) Stop every Job, (iii)
// await termination, (iv) abort source tasks, (v) return the Summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sctx, cancelSources := context.WithCancel(ctx)
	defer cancelSources()

	var wg sync.WaitGroup
	runSource := func(s Source) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(sctx, o.q); err != nil {
				o.log.Printf("orchestrator: source error: %v", err)
			}
		}()
	}
	runSource(o.filesystemSrc)
	o.sourcesMu.Lock()
	extra := append([]Source{}, o.extraSources...)
	o.sourcesMu.Unlock()
	for _, s := range extra {
		runSource(s)
	}

	go o.debouncer.Run(sctx)

	var summary Summary
	snap := o.live.Current()

	exited := false
	if !snap.OnlyEmitEvents {
		steps := o.engine.InitialOutcome().Reduce(false)
		exited = o.applySteps(ctx, snap, steps, nil, &summary)
	}

loop:
	for !exited {
		select {
		case batch, ok := <-o.debouncer.Batches():
			if !ok {
				break loop
			}
			snap = o.live.Current()
			filtered := o.filterBatch(batch)
			if len(filtered.Events) == 0 {
				continue
			}
			if snap.PrintEvents {
				printEvents(filtered.Events)
			}
			if snap.OnlyEmitEvents {
				continue
			}
			running := anyRunning(o.supervisor.Views())
			outcome := o.engine.Decide(filtered, o.supervisor.Views())
			steps := outcome.Reduce(running)
			if o.applySteps(ctx, snap, steps, filtered.Events, &summary) {
				break loop
			}

		case newSnap := <-o.subscription():
			o.Reconfigure(newSnap)
			snap = newSnap

		case <-ctx.Done():
			break loop
		}
	}

	o.q.Close()
	o.supervisor.StopAll()
	// Close cancels every Job's order-loop context now that StopAll has
	// already asked each one to stop gracefully; Wait would otherwise block
	// forever; see Supervisor.Close.
	o.supervisor.Close()
	o.supervisor.Wait()
	cancelSources()
	wg.Wait()
	return summary, nil
}

// subscription lazily creates and caches the Live subscription channel, so
// Run can select on it without plumbing an extra constructor parameter.
func (o *Orchestrator) subscription() <-chan *config.Snapshot {
	o.stackMu.Lock()
	defer o.stackMu.Unlock()
	if o.liveSub == nil {
		o.liveSub = o.live.Subscribe()
	}
	return o.liveSub
}

// filterBatch runs every event in batch through the current filter stack,
// keeping only the accepted ones (Urgent events always pass, per
// filter.Stack.Accept).
func (o *Orchestrator) filterBatch(batch debounce.Batch) debounce.Batch {
	stack := o.currentStack()
	kept := make([]event.Event, 0, len(batch.Events))
	for _, e := range batch.Events {
		if stack.Accept(e) {
			kept = append(kept, e)
		}
	}
	return debounce.Batch{Events: kept, Urgent: batch.Urgent}
}

// applySteps stages any configured event emission for an imminent Start,
// prints a clear sequence if configured, and forwards steps to the
// Supervisor. It reports whether an Exit step was encountered.
func (o *Orchestrator) applySteps(ctx context.Context, snap *config.Snapshot, steps []action.Step, triggering []event.Event, summary *Summary) bool {
	startsChild := false
	for _, s := range steps {
		if s.Kind == action.KindStart {
			startsChild = true
		}
	}

	if startsChild {
		if snap.ClearMode == "clear" {
			fmt.Fprint(os.Stdout, ansiClearScreen)
		} else if snap.ClearMode == "reset" {
			fmt.Fprint(os.Stdout, ansiClearScrollback)
		}
		if len(triggering) > 0 && snap.EmitMode != supervisor.EmitNone {
			job := o.supervisor.Ensure(jobName, snap.Command)
			env, stdin := buildEmission(snap.EmitMode, triggering)
			job.SetEmission(env, stdin)
		}
		o.runStarted = time.Now()
	}

	exit := o.supervisor.Apply(ctx, jobName, snap.Command, steps)
	if exit {
		summary.ExitCode = 0
	}
	for _, ev := range triggering {
		if completions := ev.CompletionTags(); len(completions) > 0 {
			evCopy := ev
			summary.LastCompletion = &evCopy
			if completions[0].Disposition != event.DispositionSuccess {
				summary.ExitCode = completions[0].Code
			}
			var elapsed time.Duration
			if !o.runStarted.IsZero() {
				elapsed = time.Since(o.runStarted)
			}
			printRunStatus(statusSnapshot{
				Color:   snap.Color,
				Bell:    snap.Bell,
				Notify:  snap.Notify,
				Timings: snap.Timings,
			}, string(completions[0].Disposition), completions[0].Code, elapsed)
			if snap.OneShot {
				// One-shot mode (spec §6 "-1") shuts down cleanly after the
				// first completion, exiting with that child's code rather
				// than waiting for another triggering batch.
				summary.ExitCode = completions[0].Code
				exit = true
			}
		}
	}
	return exit
}

// buildEmission renders the triggering events into the environment
// variables and/or stdin payload appropriate for mode (spec §6
// "Environment variables set for the child").
func buildEmission(mode supervisor.EmitMode, events []event.Event) (env map[string]string, stdin []byte) {
	switch mode {
	case supervisor.EmitLegacyEnv:
		return supervisor.LegacyEnv(events), nil
	case supervisor.EmitFile:
		path, err := supervisor.WriteEventsFile(events, true)
		if err != nil {
			return nil, nil
		}
		return map[string]string{"WATCHEXEC_EVENTS_FILE": path}, nil
	case supervisor.EmitStdioLegacy:
		return nil, legacyStdioPayload(events)
	case supervisor.EmitStdioJSON:
		return nil, jsonStdioPayload(events)
	default:
		return nil, nil
	}
}

// legacyStdioPayload and jsonStdioPayload render the same two payload
// shapes WriteEventsFile does, but for writing straight to the child's
// stdin (spec §6 "Stdio modes: the same payload is written to the child's
// stdin, which is then closed").
func legacyStdioPayload(events []event.Event) []byte {
	return []byte(supervisor.LegacyLines(events))
}

func jsonStdioPayload(events []event.Event) []byte {
	payload, err := supervisor.JSONLines(events)
	if err != nil {
		return nil
	}
	return payload
}

func anyRunning(jobs []action.JobView) bool {
	for _, j := range jobs {
		if j != nil && j.Running() {
			return true
		}
	}
	return false
}

func printEvents(events []event.Event) {
	for _, e := range events {
		proj, err := filter.Project(e)
		if err != nil {
			continue
		}
		fmt.Fprintln(os.Stdout, proj.Raw)
	}
}
