package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/ludo-technologies/fixeval/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrency is used when the writer is built with a non-positive limit
const DefaultMaxConcurrency = 4

// ReportTarget is one format written to one destination
type ReportTarget struct {
	Format domain.OutputFormat
	Path   string

	// Dir, when set, is the directory Path must stay inside
	Dir string
}

// DefaultTargets derives one target per format inside dir, named after the model
func DefaultTargets(model *domain.ReportModel, dir string, formats []domain.OutputFormat) []ReportTarget {
	base := model.BaseFileName()
	targets := make([]ReportTarget, 0, len(formats))
	for _, format := range formats {
		targets = append(targets, ReportTarget{
			Format: format,
			Path:   filepath.Join(dir, base+format.Extension()),
			Dir:    dir,
		})
	}
	return targets
}

// ReportWriter renders one model to several destinations
type ReportWriter struct {
	formatter      *OutputFormatterImpl
	maxConcurrency int
	progress       domain.ProgressManager
	logger         *slog.Logger
}

// NewReportWriter creates a writer using one goroutine per CPU
func NewReportWriter(formatter *OutputFormatterImpl, logger *slog.Logger) *ReportWriter {
	if formatter == nil {
		formatter = NewOutputFormatter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{
		formatter:      formatter,
		maxConcurrency: runtime.NumCPU(),
		logger:         logger,
	}
}

// WithProgress sets the progress manager used while writing
func (w *ReportWriter) WithProgress(pm domain.ProgressManager) *ReportWriter {
	w.progress = pm
	return w
}

// SetMaxConcurrency limits how many formats are rendered at once
func (w *ReportWriter) SetMaxConcurrency(max int) {
	if max <= 0 {
		max = DefaultMaxConcurrency
	}
	w.maxConcurrency = max
}

// Write renders every target. A failing target never stops the others and is never
// replaced by another format. The returned paths are the ones written, in target
// order; the error, when set, is a *domain.RenderErrors listing every failure.
func (w *ReportWriter) Write(ctx context.Context, model *domain.ReportModel, targets []ReportTarget) ([]string, error) {
	if model == nil {
		return nil, domain.NewInvalidInputError("report model is nil", nil)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	var task domain.TaskProgress = &NoOpTaskProgress{}
	if w.progress != nil {
		task = w.progress.StartTask("Writing reports", len(targets))
	}
	defer task.Complete()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrency)

	written := make([]bool, len(targets))
	var errMu sync.Mutex
	failures := make(map[int]*domain.RenderError)

	for i, target := range targets {
		g.Go(func() error {
			err := w.writeTarget(gCtx, model, target)
			task.Increment(1)
			if err != nil {
				errMu.Lock()
				failures[i] = &domain.RenderError{Format: target.Format, Path: target.Path, Err: err}
				errMu.Unlock()
				w.logger.Error("failed to write report", "format", target.Format, "path", target.Path, "error", err)
				return nil
			}
			written[i] = true
			w.logger.Debug("report written", "format", target.Format, "path", target.Path)
			return nil
		})
	}

	// Goroutines return nil so every target runs; failures are collected above.
	_ = g.Wait()

	paths := make([]string, 0, len(targets))
	for i, ok := range written {
		if ok {
			paths = append(paths, targets[i].Path)
		}
	}

	if len(failures) == 0 {
		return paths, nil
	}
	indexes := make([]int, 0, len(failures))
	for i := range failures {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	errs := &domain.RenderErrors{Errors: make([]*domain.RenderError, 0, len(indexes))}
	for _, i := range indexes {
		errs.Errors = append(errs.Errors, failures[i])
	}
	return paths, errs
}

func (w *ReportWriter) writeTarget(ctx context.Context, model *domain.ReportModel, target ReportTarget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if target.Path == "" {
		return domain.NewInvalidInputError("report path is empty", nil)
	}
	if target.Dir != "" && !withinDir(target.Dir, target.Path) {
		return domain.NewInvalidInputError(
			fmt.Sprintf("report path %s is outside the output directory %s", target.Path, target.Dir), nil)
	}
	data, err := w.formatter.Render(model, target.Format)
	if err != nil {
		return err
	}
	return writeFileAtomic(target.Path, data)
}

// withinDir reports whether path, once cleaned, is below dir
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// writeFileAtomic writes data to a temp file next to path and renames it into place
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
