package forge

import (
	"context"

	"parsegen/internal/dataset"
	"parsegen/internal/target"
	"parsegen/internal/types"
)

// --- MockGenerator ---

type MockGenerator struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// State for verification
	Prompts []string
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Responses returns a generator that replies with each response in turn,
// repeating the last one.
func Responses(responses ...string) *MockGenerator {
	m := &MockGenerator{}
	m.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		i := len(m.Prompts) - 1
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return responses[i], nil
	}
	return m
}

// --- MockRunner ---

type MockRunner struct {
	ExecuteFunc func(ctx context.Context, source string, tgt target.Target) (*dataset.Table, *types.Failure)
	RunFunc     func(ctx context.Context, tgt target.Target) (*dataset.Table, *types.Failure)

	// State for verification
	Sources []string
	Runs    int
}

func (m *MockRunner) Execute(ctx context.Context, source string, tgt target.Target) (*dataset.Table, *types.Failure) {
	m.Sources = append(m.Sources, source)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, source, tgt)
	}
	return nil, types.NewFailure(types.ExecutionError, "")
}

func (m *MockRunner) Run(ctx context.Context, tgt target.Target) (*dataset.Table, *types.Failure) {
	m.Runs++
	if m.RunFunc != nil {
		return m.RunFunc(ctx, tgt)
	}
	return nil, types.NewFailure(types.ExecutionError, "")
}

// --- recordingObserver ---

type recordingObserver struct {
	states   []State
	attempts []Attempt
}

func (o *recordingObserver) OnState(s State, _ int)     { o.states = append(o.states, s) }
func (o *recordingObserver) OnAttempt(a Attempt, _ int) { o.attempts = append(o.attempts, a) }
