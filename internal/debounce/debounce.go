// Package debounce coalesces bursts of queued events into batches, per
// spec §4.3. It is the direct descendant of the teacher's
// internal/turso/daemon change-queue/ticker pattern, generalised from a
// fixed-tick flush to a quiet-period timer and from a single-kind change
// queue to the full Urgent/Completion/Signal bypass rules of the spec.
package debounce

import (
	"context"
	"time"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/queue"
)

// DefaultQuietPeriod is the default debounce window (spec §4.3).
const DefaultQuietPeriod = 50 * time.Millisecond

// DefaultSoftLimit bounds how large an in-flight batch may grow before it
// is released early, guaranteeing no event is held indefinitely even under
// a sustained, never-quiet burst (spec §4.3, "must not lose events").
const DefaultSoftLimit = 4096

// Batch is a set of events released together. Urgent is true when the
// batch bypassed quiet-period batching (a lone Urgent/Completion/Signal event).
type Batch struct {
	Events []event.Event
	Urgent bool
}

// Options configures a Debouncer.
type Options struct {
	// QuietPeriod is how long the batch waits for silence before closing.
	// Zero means DefaultQuietPeriod unless QuietPeriodZero is set, in which
	// case it means a literal zero window: batches contain a single event
	// (spec §4.3).
	QuietPeriod     time.Duration
	QuietPeriodZero bool
	SoftLimit       int
}

// Debouncer consumes a queue.Queue and releases Batches on Batches().
// All state is confined to the single goroutine running Run, so no locks
// are needed (spec §5: "The Debouncer suspends on queue receive and on a
// sleep until quiet").
type Debouncer struct {
	q           *queue.Queue
	quietPeriod time.Duration
	softLimit   int
	out         chan Batch
}

// New creates a Debouncer reading from q.
func New(q *queue.Queue, opts Options) *Debouncer {
	qp := opts.QuietPeriod
	if qp == 0 && !opts.QuietPeriodZero {
		qp = DefaultQuietPeriod
	}
	sl := opts.SoftLimit
	if sl <= 0 {
		sl = DefaultSoftLimit
	}
	return &Debouncer{
		q:           q,
		quietPeriod: qp,
		softLimit:   sl,
		out:         make(chan Batch, 16),
	}
}

// Batches returns the channel of released batches. It is closed once Run
// returns, after the queue has drained (spec §5, "Closing the Priority
// Queue causes the Debouncer to drain and terminate").
func (d *Debouncer) Batches() <-chan Batch { return d.out }

// Run consumes the queue until it is closed and drained, or ctx is
// cancelled. It releases Urgent/Completion/Signal events immediately as singleton
// batches (without extending an in-flight quiet period), and coalesces
// everything else into quiet-period batches. Run must be called from
// exactly one goroutine and blocks until the queue is drained.
func (d *Debouncer) Run(ctx context.Context) {
	defer close(d.out)

	events := make(chan event.Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		for {
			e, ok := d.q.Dequeue(ctx)
			if !ok {
				return
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	var pending []event.Event
	var timerC <-chan time.Time
	var timer *time.Timer

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	armTimer := func() {
		stopTimer()
		if d.quietPeriod <= 0 {
			return // released synchronously below, no timer needed
		}
		timer = time.NewTimer(d.quietPeriod)
		timerC = timer.C
	}
	flush := func() {
		if len(pending) == 0 {
			return
		}
		b := Batch{Events: pending}
		pending = nil
		stopTimer()
		select {
		case d.out <- b:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				flush()
				return
			}
			if bypasses(e) {
				select {
				case d.out <- Batch{Events: []event.Event{e}, Urgent: true}:
				case <-ctx.Done():
					return
				}
				continue
			}
			pending = append(pending, e)
			if len(pending) > d.softLimit {
				flush()
				continue
			}
			if d.quietPeriod <= 0 {
				flush()
				continue
			}
			armTimer()

		case <-timerC:
			flush()

		case <-ctx.Done():
			return
		}
	}
}

// bypasses reports whether e should skip batching entirely: Urgent events
// always do (they bypass the filter stack too), and Completion and Signal
// events are released promptly per spec §4.3 even when not Urgent priority.
func bypasses(e event.Event) bool {
	if e.IsUrgent() {
		return true
	}
	return len(e.CompletionTags()) > 0 || len(e.Signals()) > 0
}
