// Package orchestrator wires the independent pieces of the pipeline —
// sources, the priority queue, the debouncer, the filter stack, the action
// engine, and the supervisor — into the single running system described by
// spec §4.7, and implements its shutdown sequence.
package orchestrator

import (
	"context"
	"log"
	"net"
	"sync"
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

// jobName is the single Job identity used while the Supervisor only ever
// manages one configured command (spec §3 glossary, one (origin, command)
// per invocation). A future multi-command mode would derive this from the
// command's own identity instead.
const jobName = "default"

// Source is the narrow interface every event producer satisfies: the
// Filesystem, Signal, and Keyboard sources, plus any test double.
type Source interface {
	Run(ctx context.Context, out queue.Producer) error
}

// Summary is the outcome of one orchestrator run, consumed by
// cmd/watchexec to set the process exit code (spec §6 "Exit codes").
type Summary struct {
	ExitCode       int
	LastCompletion *event.Event
}

// Orchestrator owns the queue, the live configuration, and drives the
// Debounce → Filter → Action → Supervisor chain in its own goroutine.
type Orchestrator struct {
	live *config.Live
	log  *log.Logger

	q          *queue.Queue
	debouncer  *debounce.Debouncer
	engine     *action.Engine
	supervisor *supervisor.Supervisor

	stackMu sync.Mutex
	stack   *filter.Stack
	liveSub <-chan *config.Snapshot

	sourcesMu     sync.Mutex
	filesystemSrc *source.Filesystem
	extraSources  []Source

	// runStarted is the time of the most recent Start step applied, read
	// only from the Run goroutine, used to compute --timings output.
	runStarted time.Time
}

// New creates an Orchestrator from the initial Snapshot. Additional
// sources (Signal, Keyboard) are supplied by the caller, since whether
// Keyboard runs at all depends on Snapshot.Interactive.
func New(live *config.Live, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	snap := live.Current()
	q := queue.New(snap.Queue)
	o := &Orchestrator{
		live: live,
		log:  logger,
		q:    q,
	}
	o.supervisor = supervisor.New(q)
	o.debouncer = debounce.New(q, snap.Debounce)
	o.engine = action.NewEngine(snap.Policy)
	o.filesystemSrc = source.NewFilesystem(snap.Watch)
	o.stack = filter.New(logger, snap.Stages...)
	return o
}

func (o *Orchestrator) currentStack() *filter.Stack {
	o.stackMu.Lock()
	defer o.stackMu.Unlock()
	return o.stack
}

// AddSource registers an additional Source (Signal, Keyboard) to be
// started alongside the Filesystem source when Run is called.
func (o *Orchestrator) AddSource(s Source) {
	o.sourcesMu.Lock()
	o.extraSources = append(o.extraSources, s)
	o.sourcesMu.Unlock()
}

// Engine exposes the Action Engine, for cmd/watchexec to toggle paused
// state from outside the run loop (e.g. a signal handler for tests).
func (o *Orchestrator) Engine() *action.Engine { return o.engine }

// Queue exposes the underlying queue.Queue, chiefly so tests and
// diagnostics can inspect Dropped().
func (o *Orchestrator) Queue() *queue.Queue { return o.q }

// PrebindSockets attaches already-bound listeners (from supervisor.OpenSockets,
// called by cmd/watchexec before Run so a bind failure surfaces before any
// source starts) to the one Job this Orchestrator supervises, so every
// spawn and restart inherits the same descriptors (spec §4.6, §6
// "Socket-passing").
func (o *Orchestrator) PrebindSockets(listeners []net.Listener) {
	if len(listeners) == 0 {
		return
	}
	job := o.supervisor.Ensure(jobName, o.live.Current().Command)
	job.SetSockets(listeners)
}

// Reconfigure applies a changed Snapshot: the Filesystem source is torn
// down and rebuilt against the new watch roots, and the Action Engine's
// Policy is swapped, without losing in-flight events (spec §4.7, §9).
func (o *Orchestrator) Reconfigure(snap *config.Snapshot) {
	o.filesystemSrc.Reconfigure(snap.Watch)
	o.engine.UpdatePolicy(snap.Policy)
	o.stackMu.Lock()
	o.stack = filter.New(o.log, snap.Stages...)
	o.stackMu.Unlock()
}
