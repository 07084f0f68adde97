package action

import (
	"sync/atomic"
	"time"

	"github.com/watchexec/corewatch/internal/debounce"
	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/signame"
)

// BusyMode selects what happens to a filesystem/keyboard-derived batch when
// its Job is already Running (spec §4.5 "on-busy-update").
type BusyMode int

const (
	BusyQueue BusyMode = iota
	BusyDoNothing
	BusyRestart
	BusySignal
)

// JobView is the read-only view of a supervised Job the Engine needs to
// make a decision. supervisor.Job satisfies this interface; Engine does not
// import package supervisor to avoid a dependency cycle (supervisor in turn
// consumes action.Outcome).
type JobView interface {
	Running() bool
}

// Policy is the subset of the live configuration the Action Engine
// consults. The Orchestrator calls Engine.UpdatePolicy whenever the
// observed configuration changes (spec §4.7, the observer pattern).
type Policy struct {
	OnBusy     BusyMode
	BusySignal event.SignalName

	// SignalMap re-routes a received watcher signal to a different signal
	// delivered to Jobs. A name present in the map with a zero value means
	// "discard" (spec §4.5, "supporting discard (map to none)").
	SignalMap map[event.SignalName]event.SignalName

	// Postpone suppresses the implicit initial Start until the first
	// accepted batch (spec §4.5).
	Postpone bool

	// DelayRun is prepended as Sleep(DelayRun) to any Start outcome.
	DelayRun time.Duration
}

// mappedSignal resolves sig through the policy's SignalMap. ok is false
// when the signal was explicitly mapped to discard.
func (p Policy) mappedSignal(sig event.SignalName) (event.SignalName, bool) {
	if p.SignalMap == nil {
		return sig, true
	}
	mapped, present := p.SignalMap[sig]
	if !present {
		return sig, true
	}
	if mapped == "" {
		return "", false
	}
	return mapped, true
}

// Engine implements the default decision policy of spec §4.5. It is safe
// for concurrent use: the only mutable state is the paused flag, flipped by
// interactive 'p' keypresses, and the initial-start-seen flag used to
// implement --postpone.
type Engine struct {
	policy atomic.Pointer[Policy]
	paused atomic.Bool
	seen   atomic.Bool // an accepted batch has been observed (for --postpone)
}

// NewEngine creates an Engine with the given initial Policy.
func NewEngine(p Policy) *Engine {
	e := &Engine{}
	e.UpdatePolicy(p)
	return e
}

// UpdatePolicy swaps in a new Policy, read by subsequent Decide calls.
func (e *Engine) UpdatePolicy(p Policy) {
	cp := p
	e.policy.Store(&cp)
}

// Paused reports whether the Engine is currently paused.
func (e *Engine) Paused() bool { return e.paused.Load() }

// SetPaused sets the paused state directly (used by tests and by the 'p'
// keypress handling in Decide).
func (e *Engine) SetPaused(v bool) { e.paused.Store(v) }

// InitialOutcome returns the Outcome for the implicit initial Start that
// the Orchestrator applies at startup, honouring --postpone (spec §4.5:
// "suppress the implicit initial Start until the first accepted batch").
func (e *Engine) InitialOutcome() Outcome {
	p := e.currentPolicy()
	if p.Postpone {
		return DoNothing()
	}
	return e.withDelay(Start())
}

func (e *Engine) currentPolicy() Policy {
	if p := e.policy.Load(); p != nil {
		return *p
	}
	return Policy{}
}

func (e *Engine) withDelay(start Outcome) Outcome {
	p := e.currentPolicy()
	if p.DelayRun <= 0 {
		return start
	}
	return Sequence(Sleep(p.DelayRun), start)
}

// Decide evaluates one released debounce.Batch against the current set of
// Jobs and returns the Outcome to apply, per spec §4.5's default policy.
// jobs holds one JobView per Job the batch's events are directed at; for
// the single-command case this is the one configured Job.
func (e *Engine) Decide(batch debounce.Batch, jobs []JobView) Outcome {
	e.seen.Store(true)

	if len(batch.Events) == 1 {
		if o, ok := e.decideSingle(batch.Events[0], jobs); ok {
			return o
		}
	} else {
		for _, ev := range batch.Events {
			if o, ok := e.decideSingle(ev, jobs); ok {
				// A signal or keypress anywhere in a coalesced batch takes
				// precedence over the filesystem-change outcome, since it
				// carries explicit operator/watcher intent.
				return o
			}
		}
	}

	if e.paused.Load() {
		return DoNothing()
	}
	return e.onBusyOutcome(anyRunning(jobs))
}

// decideSingle handles the non-filesystem event kinds that have a fixed
// outcome regardless of on-busy-update policy: watcher signals, completion
// events, and interactive keypresses. ok is false when ev carries none of
// these and the caller should fall through to the default filesystem
// on-busy-update handling.
func (e *Engine) decideSingle(ev event.Event, jobs []JobView) (Outcome, bool) {
	if sigs := ev.Signals(); len(sigs) > 0 {
		return e.decideSignal(sigs[0].Signal, jobs), true
	}
	if completions := ev.CompletionTags(); len(completions) > 0 {
		// Publish-only: no auto-restart (spec §4.5).
		return DoNothing(), true
	}
	if keys := ev.KeyboardTags(); len(keys) > 0 {
		return e.decideKeypress(keys[0].Key, jobs), true
	}
	return Outcome{}, false
}

func (e *Engine) decideSignal(sig event.SignalName, jobs []JobView) Outcome {
	p := e.currentPolicy()
	mapped, deliver := p.mappedSignal(sig)
	if !deliver {
		if signame.IsTerminating(sig) {
			return Exit()
		}
		return DoNothing()
	}
	if signame.IsTerminating(sig) && mapped == sig {
		// Unmapped interrupt/terminate: forward, then request graceful exit.
		return Sequence(Signal(mapped), Exit())
	}
	return Signal(mapped)
}

func (e *Engine) decideKeypress(key event.Keycode, jobs []JobView) Outcome {
	switch key {
	case event.KeyRestart:
		return IfRunning(Sequence(Stop(), e.withDelay(Start())), e.withDelay(Start()))
	case event.KeyPause:
		e.paused.Store(!e.paused.Load())
		return DoNothing()
	case event.KeyQuit, event.KeyEOF:
		return Exit()
	default:
		return DoNothing()
	}
}

// onBusyOutcome realises the four on-busy-update modes of spec §4.5 over
// the aggregate running state of the targeted Jobs.
func (e *Engine) onBusyOutcome(running bool) Outcome {
	p := e.currentPolicy()
	switch p.OnBusy {
	case BusyDoNothing:
		return IfRunning(DoNothing(), e.withDelay(Start()))
	case BusyRestart:
		return IfRunning(Sequence(Stop(), e.withDelay(Start())), e.withDelay(Start()))
	case BusySignal:
		return IfRunning(Signal(p.BusySignal), e.withDelay(Start()))
	case BusyQueue:
		fallthrough
	default:
		// queue: if Running, Wait for it to finish, then Start; else Start.
		return IfRunning(Sequence(Wait(), e.withDelay(Start())), e.withDelay(Start()))
	}
}

func anyRunning(jobs []JobView) bool {
	for _, j := range jobs {
		if j != nil && j.Running() {
			return true
		}
	}
	return false
}
