//go:build !windows

package source

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/queue"
)

// unixSignals is the fixed set the Signal source registers for, per spec
// §4.1 "Registers handlers for {interrupt, hangup, quit, terminate, user1,
// user2}".
var unixSignals = []os.Signal{
	syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM,
	syscall.SIGUSR1, syscall.SIGUSR2,
}

var unixSignalNames = map[os.Signal]event.SignalName{
	syscall.SIGHUP:  event.SigHangup,
	syscall.SIGINT:  event.SigInterrupt,
	syscall.SIGQUIT: event.SigQuit,
	syscall.SIGTERM: event.SigTerminate,
	syscall.SIGUSR1: event.SigUser1,
	syscall.SIGUSR2: event.SigUser2,
}

// Signal is the Source of spec §4.1 "Signal source". Each delivery produces
// one Urgent Event with Source=os, Signal=name.
type Signal struct{}

// NewSignal creates a Signal source.
func NewSignal() *Signal { return &Signal{} }

// Run registers for the configured signals and publishes one Event per
// delivery until ctx is cancelled.
func (s *Signal) Run(ctx context.Context, out queue.Producer) error {
	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, unixSignals...)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			name, ok := unixSignalNames[sig]
			if !ok {
				continue
			}
			e := event.NewWithPriority(event.Urgent,
				event.SourceTag(event.SourceOS),
				event.SignalTag(name),
			)
			if err := out.Send(ctx, e); err != nil {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}
