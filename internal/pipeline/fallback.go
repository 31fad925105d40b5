package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Tier names the backend that produced a result.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
	TierMock      Tier = "mock"
)

// LabelMock marks output that was returned untransformed.
const LabelMock = "mock-passthrough"

var ErrBackendUnavailable = errors.New("processing backend unavailable")

// Stage is one backend's attempt at a transform. A nil Stage is treated as an
// unavailable backend.
type Stage[T any] func(ctx context.Context) (T, error)

// Outcome is the value produced by the first tier that succeeded, with the
// failures of the tiers tried before it.
type Outcome[T any] struct {
	Value  T
	Tier   Tier
	Errors map[Tier]error
}

// Degraded reports whether the terminal passthrough tier produced the value.
func (o Outcome[T]) Degraded() bool {
	return o.Tier == TierMock
}

// WithFallback runs primary, then secondary, then mock. It never fails:
// mock is terminal and always produces a value. There is no retry.
func WithFallback[T any](ctx context.Context, primary, secondary Stage[T], mock func() T) Outcome[T] {
	out := Outcome[T]{Errors: make(map[Tier]error, 2)}

	for _, attempt := range []struct {
		tier  Tier
		stage Stage[T]
	}{
		{TierPrimary, primary},
		{TierSecondary, secondary},
	} {
		value, err := runStage(ctx, attempt.stage)
		if err == nil {
			out.Value = value
			out.Tier = attempt.tier
			return out
		}
		out.Errors[attempt.tier] = err
	}

	out.Value = mock()
	out.Tier = TierMock
	return out
}

func runStage[T any](ctx context.Context, stage Stage[T]) (value T, err error) {
	if stage == nil {
		return value, ErrBackendUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return stage(ctx)
}
