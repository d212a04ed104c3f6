// Command parsegen synthesizes a document parser for a target by prompting a
// code-generation model, running what it writes and validating the output
// against a reference table.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parsegen/internal/config"
	"parsegen/internal/logging"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1 // attempts exhausted or validation failed
	exitSetup  = 2 // missing inputs, credential or bad configuration
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func setupError(format string, args ...interface{}) error {
	return &exitError{code: exitSetup, err: fmt.Errorf(format, args...)}
}

// globalOptions are the persistent flags plus the loaded configuration.
type globalOptions struct {
	configPath string
	envFile    string
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "parsegen",
		Short: "Generate and validate document parsers with an LLM",
		Long: `parsegen writes a Go parser for a document format by asking a
code-generation model for one, running it against a sample document and
comparing the result with a known-correct CSV. Failures are fed back into
the next prompt until the parser validates or attempts run out.

Layout for a target <id>:
  <data_dir>/<id>/<id> sample.pdf   input document
  <data_dir>/<id>/result.csv        expected table
  <parsers_dir>/<id>_parser.go      generated parser`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))
	return rootCmd
}

func (o *globalOptions) load() error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return setupError("%v", err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return setupError("%v", err)
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging.Options()); err != nil {
		return setupError("failed to initialize logger: %v", err)
	}
	logging.BootDebug("Loaded config from %s", o.configPath)
	o.cfg = cfg
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag and argument errors from cobra.
	return exitSetup
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
