package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parsegen/internal/config"
	"parsegen/internal/forge"
	"parsegen/internal/llm"
	"parsegen/internal/logging"
	"parsegen/internal/sandbox"
	"parsegen/internal/target"
	"parsegen/internal/types"
)

// newGenerator builds the generation client. Tests replace it.
var newGenerator = func(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	var opts []llm.GenAIOption
	if cfg.LLM.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*cfg.LLM.Temperature))
	}
	client, err := llm.NewGenAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, opts...)
	if err != nil {
		return nil, err
	}
	return llm.NewLoggingGenerator(client, client.Model()), nil
}

// targetFlags are shared by run and check.
type targetFlags struct {
	target      string
	dataDir     string
	parsersDir  string
	maxAttempts int
	model       string
}

func (f *targetFlags) register(cmd *cobra.Command, withGeneration bool) {
	cmd.Flags().StringVarP(&f.target, "target", "t", "", "Target identifier (e.g. icici)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "Directory holding <target>/ inputs (default from config)")
	cmd.Flags().StringVar(&f.parsersDir, "parsers-dir", "", "Directory for generated parsers (default from config)")
	if withGeneration {
		cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "Maximum generate-and-test attempts (default from config)")
		cmd.Flags().StringVar(&f.model, "model", "", "Generation model (default from config)")
	}
}

// apply overlays explicitly set flags onto cfg and resolves the target.
func (f *targetFlags) apply(cmd *cobra.Command, args []string, cfg *config.Config) (target.Target, error) {
	id := f.target
	if id == "" && len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return target.Target{}, setupError("a target is required (--target <id>)")
	}
	if f.target != "" && len(args) > 0 && args[0] != f.target {
		return target.Target{}, setupError("conflicting targets %q and %q", f.target, args[0])
	}

	if cmd.Flags().Changed("data-dir") {
		cfg.Agent.DataDir = f.dataDir
	}
	if cmd.Flags().Changed("parsers-dir") {
		cfg.Agent.ParsersDir = f.parsersDir
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg.Agent.MaxAttempts = f.maxAttempts
	}
	if cmd.Flags().Changed("model") {
		cfg.LLM.Model = f.model
	}

	tgt, err := target.Resolve(id, cfg.Agent.DataDir, cfg.Agent.ParsersDir)
	if err != nil {
		return target.Target{}, setupError("%v", err)
	}
	return tgt, nil
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	flags := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "run [target]",
		Short: "Generate a parser for a target and validate it",
		Long: `Runs up to max-attempts generate, execute and validate cycles.
Attempt 1 uses a detailed task prompt, attempt 2 feeds back the previous
failure, later attempts ask for the reference data to be reproduced.

Example:
  parsegen run --target icici`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTarget(cmd, args, opts.cfg, flags)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func runTarget(cmd *cobra.Command, args []string, cfg *config.Config, flags *targetFlags) error {
	tgt, err := flags.apply(cmd, args, cfg)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return setupError("%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return setupError("%v", err)
	}

	out := newPrinter(cmd.OutOrStdout())
	controller, err := forge.NewController(
		forge.Config{MaxAttempts: cfg.Agent.MaxAttempts},
		gen,
		sandbox.NewExecutor(sandbox.WithTimeout(cfg.GetExecutionTimeout())),
		forge.WithObserver(out),
	)
	if err != nil {
		return setupError("%v", err)
	}

	out.start(tgt, cfg.Agent.MaxAttempts)
	report, err := controller.Run(ctx, tgt)
	if err != nil {
		if types.IsKind(err, types.FatalSetupError) {
			return &exitError{code: exitSetup, err: err}
		}
		return &exitError{code: exitFailed, err: err}
	}

	logging.Boot("Run %s finished: success=%v attempts=%d", report.RunID, report.Success, len(report.Attempts))
	out.finish(report)
	if !report.Success {
		return &exitError{code: exitFailed, err: fmt.Errorf(
			"failed to create a working parser for '%s' after %d attempts", tgt.ID, cfg.Agent.MaxAttempts)}
	}
	return nil
}
