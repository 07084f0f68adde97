// Package action implements the Outcome tree and the Action Engine's
// default decision policy, per spec §3 "Action Outcome" and §4.5.
package action

import (
	"time"

	"github.com/watchexec/corewatch/internal/event"
)

// Kind discriminates the Outcome variants.
type Kind int

const (
	KindDoNothing Kind = iota
	KindStart
	KindStop
	KindSignal
	KindWait
	KindSleep
	KindClear
	KindExit
	KindIfRunning
	KindBoth
	KindSequence
)

// ClearMode is the argument to Clear.
type ClearMode int

const (
	ClearScreen ClearMode = iota
	ClearScrollback
)

// Outcome is the composable decision tree described in spec §3. It is
// built with the constructor functions below and reduced to a flat list of
// Steps by Reduce, which always terminates (spec §3, "Composition is
// total: any Outcome applied to any Job state yields a well-defined
// sequence of primitive steps").
type Outcome struct {
	kind     Kind
	signal   event.SignalName
	duration time.Duration
	clear    ClearMode
	then     *Outcome
	els      *Outcome // only used by IfRunning
	a, b     *Outcome // Both/Sequence operands
}

func DoNothing() Outcome { return Outcome{kind: KindDoNothing} }
func Start() Outcome      { return Outcome{kind: KindStart} }
func Stop() Outcome       { return Outcome{kind: KindStop} }
func Wait() Outcome       { return Outcome{kind: KindWait} }
func Exit() Outcome       { return Outcome{kind: KindExit} }

func Signal(sig event.SignalName) Outcome {
	return Outcome{kind: KindSignal, signal: sig}
}

func Sleep(d time.Duration) Outcome {
	return Outcome{kind: KindSleep, duration: d}
}

func Clear(mode ClearMode) Outcome {
	return Outcome{kind: KindClear, clear: mode}
}

func IfRunning(then, els Outcome) Outcome {
	return Outcome{kind: KindIfRunning, then: &then, els: &els}
}

func Both(a, b Outcome) Outcome {
	return Outcome{kind: KindBoth, a: &a, b: &b}
}

func Sequence(a, b Outcome) Outcome {
	return Outcome{kind: KindSequence, a: &a, b: &b}
}

// Prepend returns Sequence(first, o) — a small convenience used to prepend
// a Sleep before a Start outcome for --delay-run (spec §4.5).
func (o Outcome) Prepend(first Outcome) Outcome {
	return Sequence(first, o)
}

func (o Outcome) Kind() Kind { return o.kind }

// Step is one primitive instruction produced by Reduce, consumed by the
// Orchestrator to drive the Supervisor and process control flow (Wait,
// Sleep, Exit are handled by the Orchestrator itself; Start/Stop/Signal
// are forwarded to the Supervisor).
type Step struct {
	Kind     Kind
	Signal   event.SignalName
	Duration time.Duration
	Clear    ClearMode
}

// Reduce flattens the Outcome tree into an ordered []Step given whether the
// Job in question is currently running. It never recurses unboundedly: the
// tree has no cycles by construction (Outcome values are immutable and
// built bottom-up), so reduction always terminates.
func (o Outcome) Reduce(running bool) []Step {
	var steps []Step
	o.reduceInto(&steps, running)
	return steps
}

func (o Outcome) reduceInto(steps *[]Step, running bool) {
	switch o.kind {
	case KindDoNothing:
		// no step emitted
	case KindIfRunning:
		if running {
			o.then.reduceInto(steps, running)
		} else {
			o.els.reduceInto(steps, running)
		}
	case KindBoth:
		o.a.reduceInto(steps, running)
		o.b.reduceInto(steps, running)
	case KindSequence:
		o.a.reduceInto(steps, running)
		o.b.reduceInto(steps, running)
	case KindSignal:
		*steps = append(*steps, Step{Kind: KindSignal, Signal: o.signal})
	case KindSleep:
		*steps = append(*steps, Step{Kind: KindSleep, Duration: o.duration})
	case KindClear:
		*steps = append(*steps, Step{Kind: KindClear, Clear: o.clear})
	default: // Start, Stop, Wait, Exit
		*steps = append(*steps, Step{Kind: o.kind})
	}
}
