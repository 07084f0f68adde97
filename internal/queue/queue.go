// Package queue implements the bounded, multi-producer single-consumer
// priority queue described in spec §4.2: four per-priority FIFO lanes,
// dequeued highest-priority-first, with an observable Close.
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/watchexec/corewatch/internal/event"
)

// ErrClosed is returned by Send once the queue has been closed.
var ErrClosed = errors.New("queue: closed")

// Options configures a Queue.
type Options struct {
	// Capacity is the per-priority-lane channel buffer size. A producer
	// whose lane is full and whose event is Source=internal drops the event
	// and increments Dropped rather than blocking forever (spec §9, "Replace
	// with a bounded priority queue... producers drop events for
	// Source=internal when full").
	Capacity int
}

// DefaultCapacity is used when Options.Capacity is zero.
const DefaultCapacity = 1024

// Producer is the narrow interface sources use to publish events; it hides
// the consumer-only Dequeue/Close methods from source code.
type Producer interface {
	Send(ctx context.Context, e event.Event) error
}

// Queue is the bounded MPSC priority queue.
type Queue struct {
	lanes    [4]chan event.Event // indexed by event.Priority
	closed   atomic.Bool
	closeMu  sync.Mutex
	closedCh chan struct{}

	dropped atomic.Int64
}

// New creates a Queue with the given Options (zero value uses defaults).
func New(opts Options) *Queue {
	cap := opts.Capacity
	if cap <= 0 {
		cap = DefaultCapacity
	}
	q := &Queue{closedCh: make(chan struct{})}
	for i := range q.lanes {
		q.lanes[i] = make(chan event.Event, cap)
	}
	return q
}

// Send publishes an event into its priority lane. It blocks if the lane is
// full, unless the event originates from Source=internal, in which case a
// full lane causes the event to be dropped (counted in Dropped()) rather
// than blocking — internal diagnostic events must never be able to wedge
// the pipeline. Send returns ErrClosed if the queue has already been
// closed; it never sends on a closed channel.
func (q *Queue) Send(ctx context.Context, e event.Event) error {
	if q.closed.Load() {
		return ErrClosed
	}
	lane := q.lanes[e.Priority()]

	if e.HasSource(event.SourceInternal) {
		select {
		case lane <- e:
			return nil
		default:
			q.dropped.Add(1)
			return nil
		}
	}

	select {
	case lane <- e:
		return nil
	case <-q.closedCh:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of internal-source events dropped because
// their lane was full.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Dequeue returns the highest-priority pending event, preserving FIFO order
// within a priority class. It polls Urgent, then High, then Normal, then Low
// with non-blocking receives before falling back to a blocking multi-way
// select, so that a burst of Urgent events can never be starved behind a
// single blocking receive on a lower lane. Returns ok=false once the queue
// is closed and fully drained.
func (q *Queue) Dequeue(ctx context.Context) (e event.Event, ok bool) {
	for {
		for p := len(q.lanes) - 1; p >= 0; p-- {
			select {
			case ev, open := <-q.lanes[p]:
				if open {
					return ev, true
				}
			default:
			}
		}

		select {
		case ev, open := <-q.lanes[event.Urgent]:
			if open {
				return ev, true
			}
		case ev, open := <-q.lanes[event.High]:
			if open {
				return ev, true
			}
		case ev, open := <-q.lanes[event.Normal]:
			if open {
				return ev, true
			}
		case ev, open := <-q.lanes[event.Low]:
			if open {
				return ev, true
			}
		case <-ctx.Done():
			return event.Event{}, false
		}

		if q.allDrained() {
			return event.Event{}, false
		}
	}
}

func (q *Queue) allDrained() bool {
	if !q.closed.Load() {
		return false
	}
	for _, lane := range q.lanes {
		if len(lane) > 0 {
			return false
		}
	}
	return true
}

// Close marks the queue closed: further Send calls return ErrClosed, and
// Dequeue returns ok=false once every lane has been drained. Close is safe
// to call more than once. Per spec §4.2, Close must be invoked before
// source tasks are aborted so the pipeline can drain deterministically.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed.Swap(true) {
		return
	}
	close(q.closedCh)
	for _, lane := range q.lanes {
		close(lane)
	}
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool { return q.closed.Load() }
