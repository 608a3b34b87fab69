package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/internal/telemetry"
	"github.com/ludo-technologies/fixeval/service"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names one step of the evaluation pipeline
type Stage string

const (
	StageWatch     Stage = "watch"
	StageValidate  Stage = "validate"
	StageAggregate Stage = "aggregate"
	StageBuild     Stage = "build"
	StageRender    Stage = "render"
	StagePublish   Stage = "publish"
)

// StageError reports which pipeline stage failed
type StageError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// HistoryRecorder stores the outcome of a run
type HistoryRecorder interface {
	Record(ctx context.Context, rec domain.RunRecord) error
}

// ReportUploader publishes written report files
type ReportUploader interface {
	Publish(ctx context.Context, model *domain.ReportModel, paths []string) ([]string, error)
}

// ArtifactWatcher waits for the artifact file
type ArtifactWatcher interface {
	Watch(ctx context.Context, req service.WatchRequest) (*domain.WatchSession, error)
}

// EvaluateRequest describes one evaluation run
type EvaluateRequest struct {
	ArtifactPath string

	// Wait polls for the artifact. Without it the artifact must already exist.
	Wait         bool
	Timeout      time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration

	OutputDir string
	Formats   []domain.OutputFormat
	Context   domain.ReportContext
}

// EvaluateResult carries everything produced up to the last successful stage
type EvaluateResult struct {
	Session   *domain.WatchSession
	Artifact  *domain.RawEvaluationArtifact
	Validated *domain.ValidatedResult
	Score     domain.AggregatedScore
	Report    *domain.ReportModel
	Paths     []string
	Published []string
}

// EvaluateUseCase runs watch, validate, aggregate, build and render in order
type EvaluateUseCase struct {
	schema    *domain.MetricSchema
	watcher   ArtifactWatcher
	builder   *service.ReportBuilder
	writer    *service.ReportWriter
	history   HistoryRecorder
	publisher ReportUploader
	logger    *slog.Logger
	now       func() time.Time
}

// Execute runs the pipeline. The result is returned even on failure and holds the
// output of every stage that completed; the error is a *StageError.
func (uc *EvaluateUseCase) Execute(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "evaluate",
		trace.WithAttributes(attribute.String("artifact.path", req.ArtifactPath)))
	defer span.End()

	started := uc.now()
	result := &EvaluateResult{}
	err := uc.run(ctx, req, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Float64("report.overall_score", result.Report.OverallScore))
	}

	uc.record(ctx, req, result, err, started)
	return result, err
}

// Wait waits for the artifact and validates it without building a report
func (uc *EvaluateUseCase) Wait(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	req.Wait = true
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}
	result := &EvaluateResult{}
	artifact, err := uc.acquire(ctx, req, result)
	if err != nil {
		return result, err
	}
	result.Artifact = artifact
	validated, err := service.Validate(artifact, uc.schema)
	if err != nil {
		return result, &StageError{Stage: StageValidate, Err: err}
	}
	result.Validated = validated
	result.Score = service.Aggregate(validated, uc.schema)
	return result, nil
}

func (uc *EvaluateUseCase) run(ctx context.Context, req EvaluateRequest, result *EvaluateResult) error {
	artifact, err := uc.acquire(ctx, req, result)
	if err != nil {
		return err
	}
	result.Artifact = artifact

	err = uc.stage(ctx, StageValidate, func(context.Context) error {
		validated, err := service.Validate(artifact, uc.schema)
		result.Validated = validated
		return err
	})
	if err != nil {
		return err
	}

	_, span := telemetry.Tracer().Start(ctx, string(StageAggregate))
	result.Score = service.Aggregate(result.Validated, uc.schema)
	span.End()

	err = uc.stage(ctx, StageBuild, func(context.Context) error {
		model, err := uc.builder.Build(result.Validated, result.Score, req.Context)
		result.Report = model
		return err
	})
	if err != nil {
		return err
	}

	err = uc.stage(ctx, StageRender, func(ctx context.Context) error {
		targets := service.DefaultTargets(result.Report, req.OutputDir, req.Formats)
		paths, err := uc.writer.Write(ctx, result.Report, targets)
		result.Paths = paths
		return err
	})
	if err != nil {
		return err
	}

	if uc.publisher != nil && len(result.Paths) > 0 {
		err = uc.stage(ctx, StagePublish, func(ctx context.Context) error {
			refs, err := uc.publisher.Publish(ctx, result.Report, result.Paths)
			result.Published = refs
			return err
		})
		if err != nil {
			return err
		}
	}

	uc.logger.Info("evaluation complete",
		"repository", result.Report.Repository,
		"overall_score", result.Report.OverallScore,
		"grade", result.Report.Grade,
		"reports", len(result.Paths))
	return nil
}

// acquire returns the parsed artifact, waiting for it when requested
func (uc *EvaluateUseCase) acquire(ctx context.Context, req EvaluateRequest, result *EvaluateResult) (*domain.RawEvaluationArtifact, error) {
	var artifact *domain.RawEvaluationArtifact
	err := uc.stage(ctx, StageWatch, func(ctx context.Context) error {
		if !req.Wait {
			parsed, err := service.ParseArtifactFile(req.ArtifactPath)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrArtifactUnreadable, err)
			}
			artifact = parsed
			return nil
		}

		session, err := uc.watcher.Watch(ctx, service.WatchRequest{
			TargetPath:   req.ArtifactPath,
			Timeout:      req.Timeout,
			PollInterval: req.PollInterval,
			SettleDelay:  req.SettleDelay,
		})
		if err != nil {
			return err
		}
		result.Session = session
		if session.Status != domain.WatchSucceeded {
			return session.Err
		}
		artifact = session.Artifact
		return nil
	})
	return artifact, err
}

// stage runs fn in its own span and wraps its error in a StageError
func (uc *EvaluateUseCase) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, string(stage))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.Error("evaluation stage failed", "stage", stage, "error", err)
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (uc *EvaluateUseCase) record(ctx context.Context, req EvaluateRequest, result *EvaluateResult, runErr error, started time.Time) {
	if uc.history == nil {
		return
	}

	rec := domain.RunRecord{
		RunID:        req.Context.RunID,
		Repository:   req.Context.Repository,
		PRNumber:     req.Context.PRNumber,
		ArtifactPath: req.ArtifactPath,
		Outcome:      OutcomeFor(runErr),
		StartedAt:    started,
		FinishedAt:   uc.now(),
		ReportPaths:  service.JoinReportPaths(result.Paths),
	}
	if result.Artifact != nil {
		if rec.Repository == "" {
			rec.Repository = result.Artifact.Repository
		}
		if rec.PRNumber == "" {
			rec.PRNumber = result.Artifact.PRNumber
		}
	}
	if result.Report != nil {
		rec.RunID = result.Report.RunID
		rec.Repository = result.Report.Repository
		rec.PRNumber = result.Report.PRNumber
		score := result.Report.OverallScore
		rec.OverallScore = &score
		rec.Grade = result.Report.Grade
	}
	if rec.RunID == "" {
		rec.RunID = newRunID()
	}
	if runErr != nil {
		rec.ErrorMessage = runErr.Error()
		var stageErr *StageError
		if errors.As(runErr, &stageErr) {
			rec.Stage = string(stageErr.Stage)
		}
	}

	if err := uc.history.Record(ctx, rec); err != nil {
		uc.logger.Warn("failed to record run history", "run_id", rec.RunID, "error", err)
	}
}

// OutcomeFor classifies a pipeline error for the run history
func OutcomeFor(err error) domain.RunOutcome {
	var renderErrs *domain.RenderErrors
	switch {
	case err == nil:
		return domain.RunRendered
	case errors.Is(err, domain.ErrWatchTimedOut):
		return domain.RunTimedOut
	case errors.Is(err, domain.ErrWatchCancelled):
		return domain.RunCancelled
	case errors.Is(err, domain.ErrMalformedArtifact), errors.Is(err, domain.ErrArtifactUnreadable):
		return domain.RunInvalid
	case errors.As(err, &renderErrs):
		return domain.RunPartialRendered
	default:
		return domain.RunFailed
	}
}

// validateRequest validates the evaluation request
func (uc *EvaluateUseCase) validateRequest(req EvaluateRequest) error {
	if strings.TrimSpace(req.ArtifactPath) == "" {
		return fmt.Errorf("artifact path is required")
	}
	if !NewFileHelper().IsArtifactFile(req.ArtifactPath) {
		return fmt.Errorf("artifact must be a .json, .yaml or .yml file: %s", req.ArtifactPath)
	}
	if req.Wait {
		if req.Timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		if req.PollInterval <= 0 {
			return fmt.Errorf("poll interval must be positive")
		}
		if req.SettleDelay < 0 {
			return fmt.Errorf("settle delay cannot be negative")
		}
	}
	return nil
}

// EvaluateUseCaseBuilder provides a builder pattern for creating EvaluateUseCase
type EvaluateUseCaseBuilder struct {
	schema    *domain.MetricSchema
	watcher   ArtifactWatcher
	builder   *service.ReportBuilder
	writer    *service.ReportWriter
	history   HistoryRecorder
	publisher ReportUploader
	logger    *slog.Logger
	now       func() time.Time
}

// NewEvaluateUseCaseBuilder creates a new builder
func NewEvaluateUseCaseBuilder() *EvaluateUseCaseBuilder {
	return &EvaluateUseCaseBuilder{}
}

// WithSchema sets the active metric schema
func (b *EvaluateUseCaseBuilder) WithSchema(schema *domain.MetricSchema) *EvaluateUseCaseBuilder {
	b.schema = schema
	return b
}

// WithWatcher sets the artifact watcher
func (b *EvaluateUseCaseBuilder) WithWatcher(watcher ArtifactWatcher) *EvaluateUseCaseBuilder {
	b.watcher = watcher
	return b
}

// WithReportBuilder sets the report model builder
func (b *EvaluateUseCaseBuilder) WithReportBuilder(builder *service.ReportBuilder) *EvaluateUseCaseBuilder {
	b.builder = builder
	return b
}

// WithWriter sets the report writer
func (b *EvaluateUseCaseBuilder) WithWriter(writer *service.ReportWriter) *EvaluateUseCaseBuilder {
	b.writer = writer
	return b
}

// WithHistory sets the run history store
func (b *EvaluateUseCaseBuilder) WithHistory(history HistoryRecorder) *EvaluateUseCaseBuilder {
	b.history = history
	return b
}

// WithPublisher sets the report publisher
func (b *EvaluateUseCaseBuilder) WithPublisher(publisher ReportUploader) *EvaluateUseCaseBuilder {
	b.publisher = publisher
	return b
}

// WithLogger sets the logger
func (b *EvaluateUseCaseBuilder) WithLogger(logger *slog.Logger) *EvaluateUseCaseBuilder {
	b.logger = logger
	return b
}

// WithClock sets the time source used for run timestamps
func (b *EvaluateUseCaseBuilder) WithClock(now func() time.Time) *EvaluateUseCaseBuilder {
	b.now = now
	return b
}

// Build creates the EvaluateUseCase with the configured dependencies
func (b *EvaluateUseCaseBuilder) Build() (*EvaluateUseCase, error) {
	if b.schema == nil {
		return nil, fmt.Errorf("metric schema is required")
	}

	uc := &EvaluateUseCase{
		schema:    b.schema,
		watcher:   b.watcher,
		builder:   b.builder,
		writer:    b.writer,
		history:   b.history,
		publisher: b.publisher,
		logger:    b.logger,
		now:       b.now,
	}

	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.watcher == nil {
		uc.watcher = service.NewResultsWatcher(&service.ResultsWatcherOptions{
			UseFSNotify: true,
			Logger:      uc.logger,
		})
	}
	if uc.builder == nil {
		uc.builder = service.NewReportBuilder(uc.schema).WithClock(uc.now)
	}
	if uc.writer == nil {
		uc.writer = service.NewReportWriter(service.NewOutputFormatter(), uc.logger)
	}

	return uc, nil
}
