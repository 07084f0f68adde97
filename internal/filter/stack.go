// Package filter implements the ordered filter stack of spec §4.4: kind
// mask, watch restriction, ignore set, allow filters, and program filters.
// Each stage only sees the Event, never another stage's decision (spec §9,
// "do not allow stages to see each other").
package filter

import (
	"log"

	"github.com/watchexec/corewatch/internal/event"
)

// Stage is one ordered filter stage. Accept returns false to reject the
// event; an error is reported but, per spec §7, never aborts the pipeline
// — the caller treats an error as a rejection.
type Stage interface {
	Name() string
	Accept(e event.Event) (bool, error)
}

// Stack runs an ordered list of Stages. Urgent events bypass every stage
// (spec §4.4, "Urgent events bypass all stages").
type Stack struct {
	stages []Stage
	logger *log.Logger
}

// New builds a Stack from the given stages, in the order they must run.
func New(logger *log.Logger, stages ...Stage) *Stack {
	if logger == nil {
		logger = log.Default()
	}
	return &Stack{stages: stages, logger: logger}
}

// Accept runs the event through every stage in order, short-circuiting on
// the first rejection (spec §3, "a reject at stage N stops the pipeline").
func (s *Stack) Accept(e event.Event) bool {
	if e.IsUrgent() {
		return true
	}
	for _, stage := range s.stages {
		ok, err := stage.Accept(e)
		if err != nil {
			s.logger.Printf("filter: stage %s error (treating as reject): %v", stage.Name(), err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// Stages returns the configured stages, in order (for diagnostics/tests).
func (s *Stack) Stages() []Stage {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out
}
