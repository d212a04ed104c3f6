package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"parsegen/internal/logging"
	"parsegen/internal/types"
)

// EntryPoint is the function every generated unit must define.
const EntryPoint = "Parse"

// ParseFunc is the generated-unit contract.
type ParseFunc func(path string) ([]string, [][]any, error)

// Unit is one interpreted load of a generated source file.
type Unit struct {
	Name       string
	Path       string
	Package    string
	Generation uint64

	parse  ParseFunc
	output *lockedBuffer
}

// Parse returns the unit's entry point.
func (u *Unit) Parse() ParseFunc { return u.parse }

// Output returns what the unit has written to stdout/stderr so far.
func (u *Unit) Output() string { return u.output.String() }

// Registry maps logical unit names to their current load. Every Reload
// builds a fresh interpreter, so a replaced definition can never run again.
type Registry struct {
	mu      sync.Mutex
	units   map[string]*Unit
	gen     uint64
	checker *SafetyChecker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units:   make(map[string]*Unit),
		checker: NewSafetyChecker(),
	}
}

// Lookup returns the current unit for name.
func (r *Registry) Lookup(name string) (*Unit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[name]
	return u, ok
}

// Invalidate drops the unit registered under name.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.units[name]; ok {
		logging.SandboxDebug("Invalidated unit %s (generation %d)", name, u.Generation)
		delete(r.units, name)
	}
}

// Len returns the number of loaded units.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.units)
}

// Reload invalidates name and loads the file at path in a new interpreter.
// Package-level evaluation (var initializers, init) stops waiting when ctx
// is done. Failures are *types.Failure values: ExecutionError for
// unreadable, unparsable, rejected, faulting or timed-out source,
// ContractViolation when the entry point is missing or mistyped.
func (r *Registry) Reload(ctx context.Context, name, path string) (*Unit, error) {
	r.Invalidate(name)

	timer := logging.StartTimer(logging.CategorySandbox, "Reload "+name)
	defer timer.Stop()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapFailure(types.ExecutionError, err, fmt.Sprintf("failed to read generated source: %v", err))
	}

	report := r.checker.Check(path, string(src))
	if !report.Safe() {
		logging.SandboxWarn("Rejected %s: %s", path, report)
		return nil, types.Failuref(types.ExecutionError, "generated code rejected: %s", report)
	}

	out := &lockedBuffer{}
	i := interp.New(interp.Options{Stdout: out, Stderr: out})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, types.WrapFailure(types.ExecutionError, err, fmt.Sprintf("failed to load stdlib: %v", err))
	}
	if err := i.Use(HostSymbols); err != nil {
		return nil, types.WrapFailure(types.ExecutionError, err, fmt.Sprintf("failed to load host package: %v", err))
	}

	if err := evalSource(ctx, i, string(src)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			logging.SandboxWarn("Load of %s abandoned after deadline: %v", name, err)
			return nil, types.WrapFailure(types.ExecutionError, err,
				withOutput(fmt.Sprintf("load timed out: %v", err), out.String()))
		}
		return nil, types.WrapFailure(types.ExecutionError, err, fmt.Sprintf("code evaluation failed: %v", err))
	}

	v, err := i.Eval(report.Package + "." + EntryPoint)
	if err != nil {
		return nil, types.WrapFailure(types.ContractViolation, err,
			fmt.Sprintf("generated code does not define %s: %v", EntryPoint, err))
	}
	if !v.IsValid() || !v.CanInterface() {
		return nil, types.Failuref(types.ContractViolation, "generated code does not define %s", EntryPoint)
	}
	fn, ok := v.Interface().(func(string) ([]string, [][]any, error))
	if !ok {
		return nil, types.Failuref(types.ContractViolation,
			"%s has incorrect signature %s (expected: func(string) ([]string, [][]any, error))", EntryPoint, v.Type())
	}

	r.mu.Lock()
	r.gen++
	u := &Unit{
		Name:       name,
		Path:       path,
		Package:    report.Package,
		Generation: r.gen,
		parse:      fn,
		output:     out,
	}
	r.units[name] = u
	r.mu.Unlock()

	logging.Sandbox("Loaded unit %s from %s (generation %d)", name, path, u.Generation)
	return u, nil
}

// evalSource runs package-level evaluation on its own goroutine, turning
// interpreter panics into errors. When ctx is done first the evaluation is
// abandoned and ctx.Err() is returned.
func evalSource(ctx context.Context, i *interp.Interpreter, src string) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("panic during load: %v\n%s", rec, debug.Stack())
			}
		}()
		_, err := i.Eval(src)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lockedBuffer collects interpreter output. An abandoned invocation may
// still be writing after its caller has returned.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
