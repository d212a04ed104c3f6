// Package forge drives the generate, execute, validate and feed-back loop
// that synthesizes a parser for one target.
package forge

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"parsegen/internal/dataset"
	"parsegen/internal/llm"
	"parsegen/internal/logging"
	"parsegen/internal/prompt"
	"parsegen/internal/target"
	"parsegen/internal/types"
	"parsegen/internal/validation"
)

// DefaultMaxAttempts bounds the loop when no limit is configured.
const DefaultMaxAttempts = 3

// Runner writes, loads and runs generated source. *sandbox.Executor
// implements it.
type Runner interface {
	Execute(ctx context.Context, source string, tgt target.Target) (*dataset.Table, *types.Failure)
	Run(ctx context.Context, tgt target.Target) (*dataset.Table, *types.Failure)
}

// Attempt is one generate-execute-validate cycle. Immutable once appended
// to a Report.
type Attempt struct {
	Index    int
	Strategy prompt.Strategy
	Source   string
	Failure  *types.Failure // nil on success
	Duration time.Duration
}

// Passed reports whether the attempt validated.
func (a Attempt) Passed() bool { return a.Failure == nil }

// Report is the outcome of one run.
type Report struct {
	RunID    string
	Target   target.Target
	Success  bool
	Final    State
	Attempts []Attempt
}

// Last returns the most recent attempt, if any.
func (r *Report) Last() (Attempt, bool) {
	if len(r.Attempts) == 0 {
		return Attempt{}, false
	}
	return r.Attempts[len(r.Attempts)-1], true
}

// Observer receives progress as the loop runs.
type Observer interface {
	OnState(state State, attemptIndex int)
	OnAttempt(a Attempt, maxAttempts int)
}

// NopObserver ignores all progress.
type NopObserver struct{}

func (NopObserver) OnState(State, int)     {}
func (NopObserver) OnAttempt(Attempt, int) {}

// Config holds controller settings.
type Config struct {
	MaxAttempts int
}

// Controller owns the attempt loop.
type Controller struct {
	cfg       Config
	generator llm.Generator
	runner    Runner
	builder   *prompt.Builder
	observer  Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver installs a progress observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithBuilder replaces the default prompt builder.
func WithBuilder(b *prompt.Builder) Option {
	return func(c *Controller) { c.builder = b }
}

// NewController creates a controller.
func NewController(cfg Config, generator llm.Generator, runner Runner, opts ...Option) (*Controller, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	c := &Controller{
		cfg:       cfg,
		generator: generator,
		runner:    runner,
		observer:  NopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		b, err := prompt.NewBuilder()
		if err != nil {
			return nil, fmt.Errorf("failed to load prompt templates: %w", err)
		}
		c.builder = b
	}
	return c, nil
}

// Run synthesizes a parser for tgt. The returned error is non-nil only for a
// FatalSetupError (missing inputs, bad reference or an unrenderable prompt,
// always before any attempt) or context cancellation; exhausting
// the attempts is reported through Report.Success.
func (c *Controller) Run(ctx context.Context, tgt target.Target) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Target: tgt, Final: StateInit}
	log := logging.Get(logging.CategoryForge).With("run", report.RunID, "target", tgt.ID)

	c.observer.OnState(StateInit, 0)
	log.Info("Starting run for '%s' (max %d attempts)", tgt.ID, c.cfg.MaxAttempts)

	reference, err := c.setup(tgt)
	if err != nil {
		log.Error("%v", err)
		return report, err
	}
	summary := dataset.Summarize(reference)
	if err := c.preflight(prompt.Request{Target: tgt, Summary: summary, Reference: reference}); err != nil {
		log.Error("%v", err)
		return report, err
	}

	feedback := ""
	for i := 0; i < c.cfg.MaxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("Run cancelled before attempt %d: %v", i+1, err)
			return report, err
		}

		attempt, err := c.attempt(ctx, log, tgt, prompt.Request{
			Target:       tgt,
			Summary:      summary,
			Reference:    reference,
			PriorFailure: feedback,
			AttemptIndex: i,
		})
		if err != nil {
			return report, err
		}
		report.Attempts = append(report.Attempts, attempt)
		c.observer.OnAttempt(attempt, c.cfg.MaxAttempts)

		if attempt.Passed() {
			report.Success = true
			report.Final = StateSuccess
			c.observer.OnState(StateSuccess, i)
			log.Info("Success: the generated parser passed validation on attempt %d", i+1)
			return report, nil
		}

		feedback = attempt.Failure.Message
		c.observer.OnState(StateRetry, i)
		log.Info("Attempt %d failed (%s). Preparing feedback for the next attempt.", i+1, attempt.Failure.Kind)
	}

	report.Final = StateExhausted
	c.observer.OnState(StateExhausted, c.cfg.MaxAttempts-1)
	log.Warn("Failed to create a working parser for '%s' after %d attempts", tgt.ID, c.cfg.MaxAttempts)
	return report, nil
}

// setup checks the inputs exist and loads the reference table.
func (c *Controller) setup(tgt target.Target) (*dataset.Table, error) {
	if missing := tgt.MissingInputs(); len(missing) > 0 {
		return nil, types.Failuref(types.FatalSetupError,
			"Missing required files for %s: %s", tgt.ID, strings.Join(missing, ", "))
	}
	reference, err := dataset.Load(tgt.ReferencePath)
	if err != nil {
		return nil, types.WrapFailure(types.FatalSetupError, err, "")
	}
	return reference, nil
}

// preflight renders every strategy the run can reach, so a broken template
// aborts the run before attempt 0.
func (c *Controller) preflight(req prompt.Request) error {
	seen := make(map[prompt.Strategy]bool)
	for i := 0; i < c.cfg.MaxAttempts; i++ {
		s := prompt.SelectStrategy(i)
		if seen[s] {
			break
		}
		seen[s] = true
		req.AttemptIndex = i
		if _, err := c.builder.Build(req); err != nil {
			return types.WrapFailure(types.FatalSetupError, err, fmt.Sprintf("failed to build %s prompt: %v", s, err))
		}
	}
	return nil
}

// attempt runs one cycle. The error is reserved for faults that make further
// attempts pointless, such as an unrenderable prompt.
func (c *Controller) attempt(ctx context.Context, log *logging.Logger, tgt target.Target, req prompt.Request) (Attempt, error) {
	start := time.Now()
	i := req.AttemptIndex
	a := Attempt{Index: i, Strategy: prompt.SelectStrategy(i)}
	log = log.With("attempt", i+1)

	log.Info("--- Attempt %d of %d --- Strategy: %s", i+1, c.cfg.MaxAttempts, a.Strategy.Description())

	c.observer.OnState(StateGenerate, i)
	p, err := c.builder.Build(req)
	if err != nil {
		return a, types.WrapFailure(types.FatalSetupError, err, fmt.Sprintf("failed to build prompt: %v", err))
	}
	raw, err := c.generator.Generate(ctx, p.Text)
	if err != nil {
		log.Warn("Generation failed: %v", err)
		a.Failure = types.WrapFailure(types.EmptyGeneration, err,
			fmt.Sprintf("The model returned empty code (generation failed: %v)", err))
		a.Duration = time.Since(start)
		return a, nil
	}

	c.observer.OnState(StateExtract, i)
	a.Source = ExtractCode(raw)
	if a.Source == "" {
		log.Warn("Code generation failed, the model returned no code")
		a.Failure = types.NewFailure(types.EmptyGeneration, "")
		a.Duration = time.Since(start)
		return a, nil
	}

	// Execute writes, reloads and invokes in one step.
	c.observer.OnState(StateWriteAndLoad, i)
	c.observer.OnState(StateExecute, i)
	actual, failure := c.runner.Execute(ctx, a.Source, tgt)
	if failure != nil {
		log.Info("Execution failed: %s", failure.Kind)
		log.Debug("%s", failure.Message)
		a.Failure = failure
		a.Duration = time.Since(start)
		return a, nil
	}

	c.observer.OnState(StateValidate, i)
	verdict := validation.Validate(req.Reference, actual)
	if !verdict.Pass {
		log.Info("Test failed: %s", verdict.Reason)
		a.Failure = verdict.Failure
	}
	a.Duration = time.Since(start)
	return a, nil
}

// Check validates the source already at tgt.SourcePath without generating.
func (c *Controller) Check(ctx context.Context, tgt target.Target) (types.Verdict, error) {
	reference, err := c.setup(tgt)
	if err != nil {
		return types.Verdict{}, err
	}
	if info, err := os.Stat(tgt.SourcePath); err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", tgt.SourcePath)
		}
		return types.Verdict{}, types.WrapFailure(types.FatalSetupError, err,
			fmt.Sprintf("no generated parser at %s", tgt.SourcePath))
	}

	actual, failure := c.runner.Run(ctx, tgt)
	if failure != nil {
		logging.Forge("Check of %s failed: %s", tgt.ID, failure.Kind)
		return types.FailVerdict(failure), nil
	}
	verdict := validation.Validate(reference, actual)
	logging.Forge("Check of %s: %s", tgt.ID, verdict.Reason)
	return verdict, nil
}
