package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludo-technologies/fixeval/app"
	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/diffsource"
	"github.com/ludo-technologies/fixeval/service"
	"github.com/spf13/cobra"
)

type evaluateOptions struct {
	configPath    string
	outputDir     string
	formats       []string
	timeout       time.Duration
	interval      time.Duration
	settle        time.Duration
	repo          string
	pr            string
	prURL         string
	referenceDiff string
	candidateDiff string
	noWait        bool
	noProgress    bool
	jsonOutput    bool
}

func evaluateCmd() *cobra.Command {
	opts := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate <artifact>",
		Short: "Wait for the judge's artifact and render the evaluation report",
		Long: `Wait for the evaluation artifact written by an external judge, validate it
against the configured metrics, compute the overall score and render the report.

Exit codes:
  0 - Report rendered
  1 - Invalid artifact or render failure
  2 - Configuration error
  3 - Timed out waiting for the artifact
  4 - Cancelled

Examples:
  # Wait up to 10 minutes, write HTML and JSON to ./reports
  fixeval evaluate results/project_42_results.json --repo owner/project --pr 42

  # Every format, custom directory
  fixeval evaluate out.json -f html,json,markdown,text -o build/reports

  # Compare the candidate fix with the reference fix file by file
  fixeval evaluate out.json --reference-diff engineer.diff --candidate-diff ai.diff`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, args[0], opts)
		},
	}
	addEvaluateFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Read the artifact immediately instead of waiting for it")
	return cmd
}

func reportCmd() *cobra.Command {
	opts := &evaluateOptions{noWait: true}
	cmd := &cobra.Command{
		Use:   "report <artifact>",
		Short: "Render the report for an artifact that already exists",
		Long: `Render the evaluation report for an existing artifact without waiting.

Examples:
  fixeval report results/project_42_results.json -f markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, args[0], opts)
		},
	}
	addEvaluateFlags(cmd, opts)
	return cmd
}

func addEvaluateFlags(cmd *cobra.Command, opts *evaluateOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Output directory for reports (default from config)")
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", nil, "Report formats: html,json,markdown,text (default from config)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Maximum time to wait for the artifact (default from config)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Poll interval (default from config)")
	cmd.Flags().DurationVar(&opts.settle, "settle", 0, "Delay before reading a newly appeared artifact (default from config)")
	cmd.Flags().StringVar(&opts.repo, "repo", "", "Repository (owner/name); overrides the artifact")
	cmd.Flags().StringVar(&opts.pr, "pr", "", "Pull request number; overrides the artifact")
	cmd.Flags().StringVar(&opts.prURL, "pr-url", "", "Pull request URL; overrides the artifact")
	cmd.Flags().StringVar(&opts.referenceDiff, "reference-diff", "", "Unified diff of the reference fix")
	cmd.Flags().StringVar(&opts.candidateDiff, "candidate-diff", "", "Unified diff of the evaluated fix")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
}

func runEvaluate(cmd *cobra.Command, artifactPath string, opts *evaluateOptions) error {
	env, err := setupRuntime(cmd, opts.configPath, artifactPath)
	if err != nil {
		return err
	}
	defer env.close()
	cfg := env.cfg

	formatNames := cfg.Output.Formats
	if cmd.Flags().Changed("format") {
		formatNames = opts.formats
	}
	formats, err := domain.ParseOutputFormats(formatNames)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: err}
	}
	if len(formats) == 0 {
		return &ExitError{Code: ExitConfig, Message: "no output formats selected"}
	}

	outputDir := cfg.Output.Directory
	if opts.outputDir != "" {
		outputDir = opts.outputDir
	}

	differences, err := loadDifferences(opts, cfg.Output.IgnorePaths)
	if err != nil {
		return &ExitError{Code: ExitFailure, Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pm := service.NewProgressManager(!opts.noProgress && !opts.jsonOutput && progressEnabled(cmd))
	defer pm.Close()

	builder := app.NewEvaluateUseCaseBuilder().
		WithSchema(env.schema).
		WithLogger(env.logger).
		WithWatcher(service.NewResultsWatcher(&service.ResultsWatcherOptions{
			UseFSNotify: cfg.Watch.UseFSNotify,
			Progress:    pm,
			Logger:      env.logger,
		})).
		WithWriter(service.NewReportWriter(service.NewOutputFormatter(), env.logger).WithProgress(pm))

	if cfg.History.Enabled {
		store, err := service.OpenHistoryStore(ctx, cfg.History.Path)
		if err != nil {
			return &ExitError{Code: ExitConfig, Err: domain.NewConfigError("failed to open run history", err)}
		}
		defer store.Close()
		builder = builder.WithHistory(store)
	}
	if cfg.Publish.Enabled {
		publisher, err := service.NewS3Publisher(ctx, cfg.Publish, env.logger)
		if err != nil {
			return &ExitError{Code: ExitConfig, Err: err}
		}
		builder = builder.WithPublisher(publisher)
	}

	uc, err := builder.Build()
	if err != nil {
		return err
	}

	req := app.EvaluateRequest{
		ArtifactPath: artifactPath,
		Wait:         !opts.noWait,
		Timeout:      durationOr(cmd, "timeout", opts.timeout, cfg.Watch.Timeout()),
		PollInterval: durationOr(cmd, "interval", opts.interval, cfg.Watch.PollInterval()),
		SettleDelay:  durationOr(cmd, "settle", opts.settle, cfg.Watch.SettleDelay()),
		OutputDir:    outputDir,
		Formats:      formats,
		Context: domain.ReportContext{
			Repository:  opts.repo,
			PRNumber:    opts.pr,
			PRURL:       opts.prURL,
			Differences: differences,
		},
	}

	result, runErr := uc.Execute(ctx, req)
	pm.Close()

	if opts.jsonOutput {
		if err := writeJSON(cmd.OutOrStdout(), newRunSummary(result, runErr)); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), result, runErr)
	}

	if runErr != nil {
		return newExitError(runErr)
	}
	return nil
}

func loadDifferences(opts *evaluateOptions, ignorePaths []string) ([]domain.DifferenceNote, error) {
	if opts.referenceDiff == "" && opts.candidateDiff == "" {
		return nil, nil
	}
	notes, err := diffsource.NewComparer(ignorePaths).CompareFiles(opts.referenceDiff, opts.candidateDiff)
	if err != nil {
		return nil, fmt.Errorf("failed to compare diffs: %w", err)
	}
	return notes, nil
}

// durationOr returns the flag value when it was set on the command line
func durationOr(cmd *cobra.Command, name string, flagValue, configValue time.Duration) time.Duration {
	if cmd.Flags().Changed(name) {
		return flagValue
	}
	return configValue
}

