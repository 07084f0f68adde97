package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/watchexec/corewatch/internal/action"
	"github.com/watchexec/corewatch/internal/queue"
)

// waitPollInterval bounds how often Supervisor.Apply re-checks a Job's
// Running state while reducing a Wait step.
const waitPollInterval = 10 * time.Millisecond

func sleepChan(d time.Duration) <-chan time.Time {
	if d <= 0 {
		d = waitPollInterval
	}
	return time.After(d)
}

// Supervisor owns a set of Jobs keyed by command identity (spec §4.6
// "Operates over zero or more Jobs"). Each Job runs its own order-processing
// goroutine; Supervisor itself only routes orders and exposes views.
//
// Each Job's goroutine runs under jobCtx, a context Supervisor owns and
// cancels itself (via Close) rather than one supplied by whatever caller
// happens to invoke Ensure first. Orders are the only input that ends a
// Job's life gracefully (OrderStop); jobCtx cancellation is the backstop
// that guarantees Wait returns once every Job has been told to stop, even
// though the orders channel itself is never closed.
type Supervisor struct {
	producer queue.Producer

	mu   sync.Mutex
	jobs map[string]*Job
	wg   sync.WaitGroup

	jobCtx     context.Context
	cancelJobs context.CancelFunc
}

// New creates a Supervisor publishing Completion events into producer.
func New(producer queue.Producer) *Supervisor {
	jobCtx, cancel := context.WithCancel(context.Background())
	return &Supervisor{producer: producer, jobs: map[string]*Job{}, jobCtx: jobCtx, cancelJobs: cancel}
}

// Ensure returns the Job for name, creating and starting its order-loop
// goroutine the first time it is requested.
func (s *Supervisor) Ensure(name string, command Command) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		return j
	}
	j := NewJob(name, command, s.producer)
	s.jobs[name] = j
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		j.Run(s.jobCtx)
	}()
	return j
}

// Job returns the named Job, or nil if it has not been created.
func (s *Supervisor) Job(name string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[name]
}

// Views returns an action.JobView for every known Job, for
// action.Engine.Decide.
func (s *Supervisor) Views() []action.JobView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]action.JobView, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// Apply sends every step of an already-reduced action.Step sequence to the
// named Job's inbox, in order, blocking on Wait/Sleep steps itself (they
// belong to the Orchestrator's control flow, not the Job's). It reports
// whether an Exit step was encountered.
func (s *Supervisor) Apply(ctx context.Context, name string, command Command, steps []action.Step) (exit bool) {
	j := s.Ensure(name, command)
	for _, step := range steps {
		switch step.Kind {
		case action.KindStart:
			done := make(chan struct{})
			j.Send(Order{Kind: OrderStart, Done: done})
			<-done
		case action.KindStop:
			done := make(chan struct{})
			j.Send(Order{Kind: OrderStop, Signal: command.Options.StopSignal, Grace: command.Options.StopTimeout, Done: done})
			<-done
		case action.KindSignal:
			done := make(chan struct{})
			j.Send(Order{Kind: OrderSignal, Signal: step.Signal, Done: done})
			<-done
		case action.KindWait:
			s.waitForFinish(ctx, j)
		case action.KindSleep:
			select {
			case <-ctx.Done():
			case <-sleepChan(step.Duration):
			}
		case action.KindExit:
			exit = true
		}
	}
	return exit
}

func (s *Supervisor) waitForFinish(ctx context.Context, j *Job) {
	for j.Running() {
		select {
		case <-ctx.Done():
			return
		case <-sleepChan(waitPollInterval):
		}
	}
}

// StopAll issues a blocking Stop to every known Job, for orchestrator
// shutdown (spec §4.7 shutdown step "(ii) sends Stop(force-after-timeout) to
// every Job"). Each Job's own grace-timeout escalation (job.go) bounds how
// long this can block; StopAll needs no context of its own.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j *Job) {
			defer wg.Done()
			done := make(chan struct{})
			j.Send(Order{Kind: OrderStop, Done: done})
			<-done
		}(j)
	}
	wg.Wait()
}

// Close cancels jobCtx, the context every Job's order-processing goroutine
// runs under, causing Run (job.go) to return for any Job not already
// stopped. Callers must call StopAll first: Close is the backstop that
// unblocks Wait, not a substitute for the graceful Stop sequence — a Job
// whose goroutine is cancelled mid-Stop force-kills its child instead of
// waiting out the configured grace timeout.
func (s *Supervisor) Close() { s.cancelJobs() }

// Wait blocks until every Job's order-processing goroutine has returned.
// Call Close first, after StopAll, or Wait blocks forever.
func (s *Supervisor) Wait() { s.wg.Wait() }
