//go:build !windows

package source

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/watchexec/corewatch/internal/queue"
)

func TestSignalRunPublishesUrgentEventOnSIGUSR1(t *testing.T) {
	q := queue.New(queue.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSignal()
	go s.Run(ctx, q)
	time.Sleep(20 * time.Millisecond) // let signal.Notify register

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	e, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatalf("expected an event after SIGUSR1")
	}
	if !e.IsUrgent() {
		t.Fatalf("signal events must be Urgent")
	}
	sigs := e.Signals()
	if len(sigs) != 1 || sigs[0].Signal != "user1" {
		t.Fatalf("signals = %+v, want user1", sigs)
	}
}
