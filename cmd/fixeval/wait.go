package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludo-technologies/fixeval/app"
	"github.com/ludo-technologies/fixeval/service"
	"github.com/spf13/cobra"
)

func waitCmd() *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
		interval   time.Duration
		settle     time.Duration
		noProgress bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "wait <artifact>",
		Short: "Wait for the judge's artifact and validate it",
		Long: `Wait for the evaluation artifact and check it against the configured metrics
without rendering a report. Exit codes match 'fixeval evaluate'.

Examples:
  fixeval wait results/project_42_results.json --timeout 15m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setupRuntime(cmd, configPath, args[0])
			if err != nil {
				return err
			}
			defer env.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pm := service.NewProgressManager(!noProgress && !jsonOutput && progressEnabled(cmd))
			defer pm.Close()

			uc, err := app.NewEvaluateUseCaseBuilder().
				WithSchema(env.schema).
				WithLogger(env.logger).
				WithWatcher(service.NewResultsWatcher(&service.ResultsWatcherOptions{
					UseFSNotify: env.cfg.Watch.UseFSNotify,
					Progress:    pm,
					Logger:      env.logger,
				})).
				Build()
			if err != nil {
				return err
			}

			result, runErr := uc.Wait(ctx, app.EvaluateRequest{
				ArtifactPath: args[0],
				Timeout:      durationOr(cmd, "timeout", timeout, env.cfg.Watch.Timeout()),
				PollInterval: durationOr(cmd, "interval", interval, env.cfg.Watch.PollInterval()),
				SettleDelay:  durationOr(cmd, "settle", settle, env.cfg.Watch.SettleDelay()),
			})
			pm.Close()

			if jsonOutput {
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
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Maximum time to wait (default from config)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Poll interval (default from config)")
	cmd.Flags().DurationVar(&settle, "settle", 0, "Delay before reading a newly appeared artifact (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}
