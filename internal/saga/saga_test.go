package saga_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/dumper-shop/backend/internal/saga"
)

// spyRecorder captures every outcome reported by a saga.
type spyRecorder struct {
	runs          []bool
	compensations []string
}

func (r *spyRecorder) SagaRun(_ string, ok bool) { r.runs = append(r.runs, ok) }
func (r *spyRecorder) SagaCompensation(_, step string, ok bool) {
	state := "ok"
	if !ok {
		state = "failed"
	}
	r.compensations = append(r.compensations, step+":"+state)
}

var _ saga.Recorder = (*spyRecorder)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// step builds a Step that appends its name to trace on forward and
// "undo-"+name on compensate.
func step(name string, trace *[]string, fail error) saga.Step {
	return saga.Step{
		Name: name,
		Forward: func(context.Context) error {
			if fail != nil {
				return fail
			}
			*trace = append(*trace, name)
			return nil
		},
		Compensate: func(context.Context) error {
			*trace = append(*trace, "undo-"+name)
			return nil
		},
	}
}

func TestSaga_Run_AllStepsSucceed(t *testing.T) {
	var trace []string
	rec := &spyRecorder{}

	err := saga.New("test", discardLogger(), rec).
		Add(step("a", &trace, nil)).
		Add(step("b", &trace, nil)).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, trace)
	assert.Equal(t, []bool{true}, rec.runs)
	assert.Empty(t, rec.compensations)
}

func TestSaga_Run_CompensatesInReverseOrder(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	rec := &spyRecorder{}

	err := saga.New("test", discardLogger(), rec).
		Add(step("a", &trace, nil)).
		Add(step("b", &trace, nil)).
		Add(step("c", &trace, boom)).
		Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "saga test: c:")
	assert.Equal(t, []string{"a", "b", "undo-b", "undo-a"}, trace)
	assert.Equal(t, []bool{false}, rec.runs)
	assert.Equal(t, []string{"b:ok", "a:ok"}, rec.compensations)
}

func TestSaga_Run_FailingStepIsNotCompensated(t *testing.T) {
	var trace []string
	boom := errors.New("boom")

	err := saga.New("test", discardLogger(), nil).
		Add(step("only", &trace, boom)).
		Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Empty(t, trace, "a step that never committed must not be undone")
}

func TestSaga_Run_NilCompensateIsSkipped(t *testing.T) {
	var trace []string
	boom := errors.New("boom")

	check := saga.Step{
		Name:    "check",
		Forward: func(context.Context) error { trace = append(trace, "check"); return nil },
	}

	err := saga.New("test", discardLogger(), nil).
		Add(check).
		Add(step("a", &trace, nil)).
		Add(step("b", &trace, boom)).
		Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"check", "a", "undo-a"}, trace)
}

func TestSaga_Run_CompensationFailureKeepsOriginalError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	boom := errors.New("boom")
	cleanup := errors.New("cleanup failed")
	rec := &spyRecorder{}
	var secondUndone bool

	err := saga.New("test", log, rec).
		Add(saga.Step{
			Name:       "first",
			Forward:    func(context.Context) error { return nil },
			Compensate: func(context.Context) error { secondUndone = true; return nil },
		}).
		Add(saga.Step{
			Name:       "second",
			Forward:    func(context.Context) error { return nil },
			Compensate: func(context.Context) error { return cleanup },
		}).
		Add(saga.Step{
			Name:    "third",
			Forward: func(context.Context) error { return boom },
		}).
		Run(context.Background())

	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, cleanup)
	assert.True(t, secondUndone, "unwinding must continue past a failed compensator")
	assert.Equal(t, []string{"second:failed", "first:ok"}, rec.compensations)
	assert.Contains(t, buf.String(), "compensation failed")
	assert.Contains(t, buf.String(), "cleanup failed")
}

func TestSaga_Run_CompensatesAfterCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensateErr error

	err := saga.New("test", discardLogger(), nil).
		Add(saga.Step{
			Name:    "a",
			Forward: func(context.Context) error { return nil },
			Compensate: func(c context.Context) error {
				compensateErr = c.Err()
				return nil
			},
		}).
		Add(saga.Step{
			Name: "b",
			Forward: func(context.Context) error {
				cancel()
				return context.Canceled
			},
		}).
		Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, compensateErr, "compensation context must not inherit cancellation")
}
