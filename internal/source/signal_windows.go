//go:build windows

package source

import (
	"context"
	"os"
	"os/signal"

	"github.com/watchexec/corewatch/internal/event"
	"github.com/watchexec/corewatch/internal/queue"
)

// Signal on Windows listens for the Console Control events os/signal
// translates to os.Interrupt; the richer set (hangup/quit/user1/user2) has
// no Windows equivalent and is not delivered on this platform (spec §4.1,
// "equivalent Console Control events on Windows").
type Signal struct{}

func NewSignal() *Signal { return &Signal{} }

func (s *Signal) Run(ctx context.Context, out queue.Producer) error {
	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			e := event.NewWithPriority(event.Urgent,
				event.SourceTag(event.SourceOS),
				event.SignalTag(event.SigInterrupt),
			)
			if err := out.Send(ctx, e); err != nil {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}
