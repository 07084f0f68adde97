package queue

import (
	"context"
	"testing"
	"time"

	"github.com/watchexec/corewatch/internal/event"
)

func send(t *testing.T, q *Queue, e event.Event) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Send(ctx, e); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := New(Options{Capacity: 8})
	a := event.New(event.PathTag("/a", event.FileTypeFile))
	b := event.New(event.PathTag("/b", event.FileTypeFile))
	c := event.New(event.PathTag("/c", event.FileTypeFile))

	send(t, q, a)
	send(t, q, b)
	send(t, q, c)

	ctx := context.Background()
	for _, want := range []event.Event{a, b, c} {
		got, ok := q.Dequeue(ctx)
		if !ok {
			t.Fatalf("Dequeue: ok=false")
		}
		if got.Paths()[0].Path != want.Paths()[0].Path {
			t.Fatalf("Dequeue order mismatch: got %+v want %+v", got.Paths(), want.Paths())
		}
	}
}

func TestQueueUrgentPrecedesNormal(t *testing.T) {
	q := New(Options{Capacity: 8})
	normal := event.New(event.PathTag("/normal", event.FileTypeFile))
	urgent := event.NewWithPriority(event.Urgent, event.SignalTag(event.SigInterrupt))

	send(t, q, normal)
	send(t, q, urgent)

	ctx := context.Background()
	got, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatalf("Dequeue: ok=false")
	}
	if !got.IsUrgent() {
		t.Fatalf("first dequeued event should be urgent, got %+v", got.Tags())
	}

	got2, ok := q.Dequeue(ctx)
	if !ok || got2.IsUrgent() {
		t.Fatalf("second dequeued event should be the normal one")
	}
}

func TestQueueCloseDrainsThenStops(t *testing.T) {
	q := New(Options{Capacity: 8})
	send(t, q, event.New(event.PathTag("/a", event.FileTypeFile)))
	q.Close()

	ctx := context.Background()
	if _, ok := q.Dequeue(ctx); !ok {
		t.Fatalf("expected to drain buffered event after close")
	}
	if _, ok := q.Dequeue(ctx); ok {
		t.Fatalf("expected ok=false once drained and closed")
	}
}

func TestQueueSendAfterCloseFails(t *testing.T) {
	q := New(Options{Capacity: 8})
	q.Close()
	err := q.Send(context.Background(), event.New(event.PathTag("/a", event.FileTypeFile)))
	if err != ErrClosed {
		t.Fatalf("Send after close: err = %v, want ErrClosed", err)
	}
}

func TestQueueInternalSourceDropsWhenFull(t *testing.T) {
	q := New(Options{Capacity: 1})
	internal := func() event.Event {
		return event.New(event.PathTag("/x", event.FileTypeFile), event.SourceTag(event.SourceInternal))
	}
	send(t, q, internal())
	// Lane is now full; a second internal-source send must not block.
	done := make(chan struct{})
	go func() {
		_ = q.Send(context.Background(), internal())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("internal-source Send blocked on a full lane")
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}
}
