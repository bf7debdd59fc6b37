package service

import (
	"context"

	"go.uber.org/zap"
)

// sagaStep is one forward action with an optional compensating action.
// Compensation runs only for steps that already succeeded when a later
// step fails, in reverse order. A failed compensation is logged and never
// retried; there is no transaction spanning the blob store and the record
// store, so this is best-effort forward recovery, not rollback.
type sagaStep struct {
	name       string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

type saga struct {
	steps  []sagaStep
	logger *zap.Logger
}

func newSaga(logger *zap.Logger) *saga {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &saga{logger: logger}
}

func (s *saga) add(step sagaStep) {
	s.steps = append(s.steps, step)
}

// execute runs the steps in order. On failure it compensates the completed
// prefix and returns the failing step's name with the error.
func (s *saga) execute(ctx context.Context) (string, error) {
	for i, step := range s.steps {
		if err := step.run(ctx); err != nil {
			s.unwind(ctx, i-1)
			return step.name, err
		}
	}
	return "", nil
}

func (s *saga) unwind(ctx context.Context, from int) {
	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			s.logger.Error("saga compensation failed",
				zap.String("step", step.name), zap.Error(err))
		}
	}
}
