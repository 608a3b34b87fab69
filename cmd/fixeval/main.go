package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/version"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version
)

// Exit codes
const (
	ExitSuccess   = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitTimedOut  = 3
	ExitCancelled = 4
)

// ExitError carries the process exit code for a failed command
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// newExitError maps a pipeline error onto its exit code
func newExitError(err error) *ExitError {
	return &ExitError{Code: exitCodeFor(err), Err: err}
}

func exitCodeFor(err error) int {
	var exitErr *ExitError
	var cfgErr *domain.ConfigurationError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.Is(err, domain.ErrWatchTimedOut):
		return ExitTimedOut
	case errors.Is(err, domain.ErrWatchCancelled):
		return ExitCancelled
	default:
		return ExitFailure
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fixeval",
		Short: "fixeval - bug fix evaluation reports",
		Long: `fixeval waits for an external judge to score a bug fix, validates the scores
against the configured metrics, computes the weighted overall score and renders
the evaluation report as HTML, JSON, Markdown or plain text.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (overrides config)")
	rootCmd.PersistentFlags().Bool("trace", false, "Print trace spans to stderr")

	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(waitCmd())
	rootCmd.AddCommand(prepareCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			asJSON, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return writeJSON(out, version.GetInfo())
			case verbose:
				fmt.Fprintln(out, version.GetFullVersion())
			default:
				fmt.Fprintf(out, "fixeval version %s\n", version.GetVersion())
			}
			return nil
		},
	}

	cmd.Flags().BoolP("verbose", "v", false, "Show detailed version information")
	cmd.Flags().Bool("json", false, "Print version information as JSON")
	return cmd
}
