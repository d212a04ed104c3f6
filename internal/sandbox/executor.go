// Package sandbox loads generated Go source into an interpreter and invokes
// its Parse entry point with panic capture, output capture and a deadline.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"parsegen/internal/dataset"
	"parsegen/internal/logging"
	"parsegen/internal/target"
	"parsegen/internal/types"
)

// DefaultTimeout bounds one invocation of a generated Parse.
const DefaultTimeout = 60 * time.Second

// maxOutput caps how much captured output is appended to a failure message.
const maxOutput = 4096

// Executor writes, loads and runs generated units.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout sets the invocation deadline. Zero or negative disables it.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithRegistry shares a registry between executors.
func WithRegistry(r *Registry) ExecutorOption {
	return func(e *Executor) { e.registry = r }
}

// NewExecutor creates an executor with its own registry.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Registry returns the executor's unit registry.
func (e *Executor) Registry() *Registry { return e.registry }

// Execute writes source to tgt.SourcePath, replacing the previous attempt,
// then loads and runs it against tgt.InputPath.
func (e *Executor) Execute(ctx context.Context, source string, tgt target.Target) (*dataset.Table, *types.Failure) {
	if err := writeSource(tgt.SourcePath, source); err != nil {
		return nil, types.WrapFailure(types.ExecutionError, err, fmt.Sprintf("failed to write generated source: %v", err))
	}
	logging.SandboxDebug("Code written to %s", tgt.SourcePath)
	return e.Run(ctx, tgt)
}

// Run loads whatever source is currently at tgt.SourcePath and runs it.
func (e *Executor) Run(ctx context.Context, tgt target.Target) (*dataset.Table, *types.Failure) {
	loadCtx, cancel := e.bounded(ctx)
	unit, err := e.registry.Reload(loadCtx, tgt.UnitName, tgt.SourcePath)
	cancel()
	if err != nil {
		var f *types.Failure
		if errors.As(err, &f) {
			return nil, f
		}
		return nil, types.WrapFailure(types.ExecutionError, err, "")
	}
	return e.Invoke(ctx, unit, tgt.InputPath)
}

// Invoke calls unit's Parse on input. Panics, returned errors and deadline
// expiry are ExecutionError; an empty header or zero rows is EmptyResult.
func (e *Executor) Invoke(ctx context.Context, unit *Unit, input string) (*dataset.Table, *types.Failure) {
	ctx, cancel := e.bounded(ctx)
	defer cancel()

	type result struct {
		header []string
		rows   [][]any
		err    error
	}
	done := make(chan result, 1)
	unit.output.Reset()

	timer := logging.StartTimer(logging.CategorySandbox, "Invoke "+unit.Name)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: &panicError{value: rec, stack: debug.Stack()}}
			}
		}()
		header, rows, err := unit.parse(input)
		done <- result{header: header, rows: rows, err: err}
	}()

	var res result
	select {
	case res = <-done:
		timer.Stop()
	case <-ctx.Done():
		timer.Stop()
		// The interpreted goroutine cannot be stopped; it is abandoned.
		logging.SandboxWarn("Unit %s abandoned after deadline: %v", unit.Name, ctx.Err())
		return nil, types.WrapFailure(types.ExecutionError, ctx.Err(),
			withOutput(fmt.Sprintf("parser execution timed out: %v", ctx.Err()), unit.Output()))
	}

	if res.err != nil {
		var p *panicError
		if errors.As(res.err, &p) {
			logging.SandboxWarn("Unit %s panicked: %v", unit.Name, p.value)
			return nil, types.WrapFailure(types.ExecutionError, res.err,
				withOutput("An exception occurred during parser execution: "+p.Error(), unit.Output()))
		}
		return nil, types.WrapFailure(types.ExecutionError, res.err,
			withOutput(fmt.Sprintf("parser returned an error: %v", res.err), unit.Output()))
	}

	if len(res.header) == 0 || len(res.rows) == 0 {
		return nil, types.NewFailure(types.EmptyResult,
			fmt.Sprintf("Parser returned an empty table (%d columns, %d rows)", len(res.header), len(res.rows)))
	}

	if out := unit.Output(); out != "" {
		logging.SandboxDebug("Unit %s output:\n%s", unit.Name, out)
	}
	return dataset.FromRecords(res.header, res.rows), nil
}

// bounded applies the executor's deadline to ctx. Loading and invoking each
// get the full timeout.
func (e *Executor) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func writeSource(path, source string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(source), 0644)
}

func withOutput(msg, output string) string {
	output = strings.TrimSpace(output)
	if output == "" {
		return msg
	}
	if len(output) > maxOutput {
		output = output[len(output)-maxOutput:]
	}
	return msg + "\nCaptured output:\n" + output
}

type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v\n%s", p.value, p.stack)
}
