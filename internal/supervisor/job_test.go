package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/queue"
)

func directCommand(path string, args ...string) Command {
	return Command{Program: Program{Direct: &DirectProgram{Path: path, Args: args}}}
}

func newTestJob(t *testing.T, command Command) (*Job, *queue.Queue, context.Context, context.CancelFunc) {
	t.Helper()
	q := queue.New(queue.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	j := NewJob("test", command, q)
	go j.Run(ctx)
	return j, q, ctx, cancel
}

func TestJobStartReachesRunningThenFinished(t *testing.T) {
	j, q, ctx, cancel := newTestJob(t, directCommand("/bin/true"))
	defer cancel()

	done := make(chan struct{})
	j.Send(Order{Kind: OrderStart, Done: done})
	<-done

	deadline := time.After(2 * time.Second)
	for j.State() != Finished {
		select {
		case <-deadline:
			t.Fatalf("job did not reach Finished, state=%s", j.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	ev, ok := q.Dequeue(ctx)
	if !ok {
		t.Fatalf("expected a Completion event on the queue")
	}
	completions := ev.CompletionTags()
	if len(completions) != 1 || completions[0].Disposition != event.DispositionSuccess {
		t.Fatalf("completion = %+v, want a single success disposition", completions)
	}
}

func TestJobStartWhileRunningIsNoOp(t *testing.T) {
	j, _, _, cancel := newTestJob(t, directCommand("/bin/sleep", "1"))
	defer cancel()

	done1 := make(chan struct{})
	j.Send(Order{Kind: OrderStart, Done: done1})
	<-done1
	if j.State() != Running {
		t.Fatalf("expected Running, got %s", j.State())
	}
	firstPID := j.pid

	done2 := make(chan struct{})
	j.Send(Order{Kind: OrderStart, Done: done2})
	<-done2
	if j.pid != firstPID {
		t.Fatalf("a second Start while Running must not spawn a new process")
	}

	j.Send(Order{Kind: OrderKill})
}

func TestJobStopEscalatesToForceKillAfterGrace(t *testing.T) {
	// A shell loop that ignores TERM, forcing the grace-timeout escalation.
	cmd := Command{Program: Program{Shell: &ShellProgram{
		Shell:   "/bin/sh",
		Flags:   []string{"-c"},
		Command: "trap '' TERM; sleep 5",
	}}}
	j, _, _, cancel := newTestJob(t, cmd)
	defer cancel()

	startDone := make(chan struct{})
	j.Send(Order{Kind: OrderStart, Done: startDone})
	<-startDone

	start := time.Now()
	stopDone := make(chan struct{})
	j.Send(Order{Kind: OrderStop, Signal: event.SigTerminate, Grace: 200 * time.Millisecond, Done: stopDone})
	<-stopDone
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond {
		t.Fatalf("stop returned before the grace period elapsed: %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("force-kill escalation took too long: %v", elapsed)
	}

	deadline := time.After(2 * time.Second)
	for j.State() != Finished {
		select {
		case <-deadline:
			t.Fatalf("job never reached Finished after force-kill")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestJobStopWhilePendingIsNoOp(t *testing.T) {
	j, _, _, cancel := newTestJob(t, directCommand("/bin/true"))
	defer cancel()

	done := make(chan struct{})
	j.Send(Order{Kind: OrderStop, Done: done})
	<-done
	if j.State() != Pending {
		t.Fatalf("Stop while Pending must be a no-op, got %s", j.State())
	}
}
