package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"parsegen/internal/config"
	"parsegen/internal/forge"
	"parsegen/internal/llm"
	"parsegen/internal/sandbox"
	"parsegen/internal/types"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	flags := &targetFlags{}
	cmd := &cobra.Command{
		Use:   "check [target]",
		Short: "Validate the existing generated parser for a target",
		Long: `Loads <parsers_dir>/<target>_parser.go, runs it against the sample
document and compares the result with the reference CSV. No model is called.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkTarget(cmd, args, opts.cfg, flags)
		},
	}
	flags.register(cmd, false)
	return cmd
}

// noGeneration satisfies the controller in check mode, which never generates.
var noGeneration = llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("generation is disabled in check mode")
})

func checkTarget(cmd *cobra.Command, args []string, cfg *config.Config, flags *targetFlags) error {
	tgt, err := flags.apply(cmd, args, cfg)
	if err != nil {
		return err
	}

	controller, err := forge.NewController(
		forge.Config{MaxAttempts: 1},
		noGeneration,
		sandbox.NewExecutor(sandbox.WithTimeout(cfg.GetExecutionTimeout())),
	)
	if err != nil {
		return setupError("%v", err)
	}

	verdict, err := controller.Check(cmd.Context(), tgt)
	if err != nil {
		if types.IsKind(err, types.FatalSetupError) {
			return &exitError{code: exitSetup, err: err}
		}
		return &exitError{code: exitFailed, err: err}
	}

	out := newPrinter(cmd.OutOrStdout())
	out.verdict(tgt, verdict)
	if !verdict.Pass {
		return &exitError{code: exitFailed, err: errors.New(verdict.Reason)}
	}
	return nil
}
