// Package saga runs a multi-step operation in which every committed step can
// be undone by a compensating action.
//
// Steps run in order. When a step's Forward succeeds its Compensate (if any)
// is pushed onto a stack. When a later step fails the stack is unwound in
// reverse order of commission. Compensation failures are logged and counted
// but never replace the original error returned to the caller.
package saga

import (
	"context"
	"fmt"
	"log/slog"
)

// Step pairs a forward action with the action that undoes it.
// Compensate may be nil for read-only or validating steps.
type Step struct {
	Name       string
	Forward    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Recorder receives the outcome of runs and compensations.
// *metrics.Metrics satisfies it; pass nil to skip recording.
type Recorder interface {
	SagaRun(saga string, ok bool)
	SagaCompensation(saga, step string, ok bool)
}

// Saga is a named sequence of steps. It is not safe for concurrent use and is
// meant to be built and run once per request.
type Saga struct {
	name  string
	log   *slog.Logger
	rec   Recorder
	steps []Step
}

// New returns an empty Saga. log must not be nil.
func New(name string, log *slog.Logger, rec Recorder) *Saga {
	return &Saga{name: name, log: log, rec: rec}
}

// Add appends a step and returns the saga for chaining.
func (s *Saga) Add(step Step) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Run executes every step in order. On the first failing step it runs the
// compensators of all previously committed steps, newest first, and returns
// the failing step's error wrapped with the saga and step names.
func (s *Saga) Run(ctx context.Context) error {
	var done []Step
	for _, step := range s.steps {
		if err := step.Forward(ctx); err != nil {
			s.unwind(ctx, done)
			s.record(false)
			return fmt.Errorf("saga %s: %s: %w", s.name, step.Name, err)
		}
		if step.Compensate != nil {
			done = append(done, step)
		}
	}
	s.record(true)
	return nil
}

// unwind calls compensators in reverse order. Compensations run on a context
// detached from the caller's cancellation so a client disconnect does not
// leave half-undone state behind.
func (s *Saga) unwind(ctx context.Context, done []Step) {
	cctx := context.WithoutCancel(ctx)
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		err := step.Compensate(cctx)
		if s.rec != nil {
			s.rec.SagaCompensation(s.name, step.Name, err == nil)
		}
		if err != nil {
			s.log.WarnContext(ctx, "compensation failed",
				"saga", s.name,
				"step", step.Name,
				"error", err,
			)
			continue
		}
		s.log.InfoContext(ctx, "compensation applied",
			"saga", s.name,
			"step", step.Name,
		)
	}
}

func (s *Saga) record(ok bool) {
	if s.rec != nil {
		s.rec.SagaRun(s.name, ok)
	}
}
