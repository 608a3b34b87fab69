package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/config"
	"github.com/ludo-technologies/fixeval/internal/logging"
	"github.com/ludo-technologies/fixeval/internal/telemetry"
	"github.com/ludo-technologies/fixeval/service"
	"github.com/spf13/cobra"
)

// runtimeEnv is what every pipeline command needs before it starts
type runtimeEnv struct {
	cfg      *config.Config
	schema   *domain.MetricSchema
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

func (r *runtimeEnv) close() {
	if r.shutdown != nil {
		if err := r.shutdown(context.Background()); err != nil {
			r.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}
}

// setupRuntime loads the configuration, builds the metric schema and sets up
// logging and tracing. Every failure here is a configuration error.
func setupRuntime(cmd *cobra.Command, configPath, targetPath string) (*runtimeEnv, error) {
	cfg, err := config.LoadConfigWithTarget(configPath, targetPath)
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: domain.NewConfigError("failed to load configuration", err)}
	}

	level := cfg.Logging.Level
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	format := cfg.Logging.Format
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		format = v
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: domain.NewConfigError("invalid logging flags", err)}
	}

	schema, err := service.NewMetricSchema(cfg.Metrics)
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: err}
	}

	exporter := cfg.Telemetry.TraceExporter
	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		exporter = telemetry.ExporterStdout
	}
	shutdown, err := telemetry.Setup(cmd.Context(), exporter, cmd.ErrOrStderr())
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: domain.NewConfigError("failed to set up tracing", err)}
	}

	return &runtimeEnv{cfg: cfg, schema: schema, logger: logger, shutdown: shutdown}, nil
}

// writeJSON writes data as indented JSON
func writeJSON(w io.Writer, data any) error {
	return service.WriteJSON(w, data)
}

// progressEnabled reports whether spinners should be drawn on stderr
func progressEnabled(cmd *cobra.Command) bool {
	if noProgress, _ := cmd.Flags().GetBool("no-progress"); noProgress {
		return false
	}
	return cmd.ErrOrStderr() == os.Stderr
}
