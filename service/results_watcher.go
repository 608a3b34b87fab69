package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ludo-technologies/fixeval/domain"
)

// WatchRequest describes one wait for one artifact
type WatchRequest struct {
	TargetPath   string
	Timeout      time.Duration
	PollInterval time.Duration

	// SettleDelay is waited after the file first looks complete. The file is then
	// stat'ed again and only read if its size and mtime did not change.
	SettleDelay time.Duration
}

// Validate checks the request parameters
func (r WatchRequest) Validate() error {
	if r.TargetPath == "" {
		return domain.NewInvalidInputError("watch target path is empty", nil)
	}
	if r.Timeout <= 0 {
		return domain.NewInvalidInputError(fmt.Sprintf("watch timeout must be positive, got %s", r.Timeout), nil)
	}
	if r.PollInterval <= 0 {
		return domain.NewInvalidInputError(fmt.Sprintf("poll interval must be positive, got %s", r.PollInterval), nil)
	}
	if r.SettleDelay < 0 {
		return domain.NewInvalidInputError(fmt.Sprintf("settle delay cannot be negative, got %s", r.SettleDelay), nil)
	}
	return nil
}

// ArtifactParser reads an artifact file
type ArtifactParser func(path string) (*domain.RawEvaluationArtifact, error)

// ResultsWatcherOptions configures a ResultsWatcher
type ResultsWatcherOptions struct {
	// UseFSNotify wakes the poll loop on events in the target's directory
	UseFSNotify bool

	// Progress draws a spinner while pending. Nil means no progress output.
	Progress domain.ProgressManager

	// Logger receives state transitions. Nil means slog.Default().
	Logger *slog.Logger

	// Parse reads the artifact. Nil means ParseArtifactFile.
	Parse ArtifactParser
}

// DefaultResultsWatcherOptions returns the default watcher options
func DefaultResultsWatcherOptions() ResultsWatcherOptions {
	return ResultsWatcherOptions{
		UseFSNotify: true,
	}
}

// ResultsWatcher waits for an externally written artifact. Each Watch call runs
// its own session; a watcher holds no per-session state.
type ResultsWatcher struct {
	useFSNotify bool
	progress    domain.ProgressManager
	logger      *slog.Logger
	parse       ArtifactParser
}

// NewResultsWatcher creates a watcher. Nil options mean the defaults.
func NewResultsWatcher(opts *ResultsWatcherOptions) *ResultsWatcher {
	if opts == nil {
		defaults := DefaultResultsWatcherOptions()
		opts = &defaults
	}
	w := &ResultsWatcher{
		useFSNotify: opts.UseFSNotify,
		progress:    opts.Progress,
		logger:      opts.Logger,
		parse:       opts.Parse,
	}
	if w.progress == nil {
		w.progress = &NoOpProgressManager{}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.parse == nil {
		w.parse = ParseArtifactFile
	}
	return w
}

// Watch blocks until the session resolves and returns it. The error is only set
// for an invalid request; timeouts, cancellation and unreadable artifacts are
// reported through the session status.
//
// Cancellation of ctx is observed before every check and while sleeping, so it
// takes effect by the next poll tick at the latest. A read that has started is
// finished and resolves the session as Succeeded or Failed.
func (w *ResultsWatcher) Watch(ctx context.Context, req WatchRequest) (*domain.WatchSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session := &domain.WatchSession{
		TargetPath:   req.TargetPath,
		StartedAt:    time.Now(),
		Timeout:      req.Timeout,
		PollInterval: req.PollInterval,
		SettleDelay:  req.SettleDelay,
		Status:       domain.WatchPending,
	}
	logger := w.logger.With("target", req.TargetPath)
	logger.Info("waiting for evaluation artifact",
		"timeout", req.Timeout, "poll_interval", req.PollInterval)

	deadline := time.NewTimer(req.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(req.PollInterval)
	defer ticker.Stop()

	wake, stopNotify := w.notifyChanges(req.TargetPath, logger)
	defer stopNotify()

	task := w.progress.StartTask(fmt.Sprintf("Waiting for %s", filepath.Base(req.TargetPath)), -1)
	defer task.Complete()

	for {
		select {
		case <-ctx.Done():
			return w.cancelled(session, logger), nil
		case <-deadline.C:
			return w.timedOut(session, logger), nil
		default:
		}

		session.Polls++
		if w.check(ctx, deadline.C, session, req, logger) {
			return session, nil
		}

		task.Increment(1)
		task.Describe(fmt.Sprintf("Waiting for %s (%s)",
			filepath.Base(req.TargetPath), session.Elapsed().Truncate(time.Second)))

		select {
		case <-ctx.Done():
			return w.cancelled(session, logger), nil
		case <-deadline.C:
			return w.timedOut(session, logger), nil
		case <-ticker.C:
		case <-wake:
			logger.Debug("file system event on target")
		}
	}
}

// check inspects the target once and reports whether the session resolved. The
// settle wait is still pending, so the deadline and ctx apply to it.
func (w *ResultsWatcher) check(ctx context.Context, deadline <-chan time.Time, session *domain.WatchSession, req WatchRequest, logger *slog.Logger) bool {
	first, ok := statArtifact(req.TargetPath)
	if !ok {
		return false
	}

	if req.SettleDelay > 0 {
		settle := time.NewTimer(req.SettleDelay)
		select {
		case <-ctx.Done():
			settle.Stop()
			w.cancelled(session, logger)
			return true
		case <-deadline:
			settle.Stop()
			w.timedOut(session, logger)
			return true
		case <-settle.C:
		}
	}

	second, ok := statArtifact(req.TargetPath)
	if !ok || second.Size() != first.Size() || !second.ModTime().Equal(first.ModTime()) {
		logger.Debug("artifact is still being written", "size", first.Size())
		return false
	}

	artifact, err := w.parse(req.TargetPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Replaced between stat and read; look again on the next tick
			return false
		}
		session.Resolve(domain.WatchFailed, nil, fmt.Errorf("%w: %w", domain.ErrArtifactUnreadable, err))
		logger.Error("evaluation artifact is malformed", "error", err, "polls", session.Polls)
		return true
	}

	session.Resolve(domain.WatchSucceeded, artifact, nil)
	logger.Info("evaluation artifact received",
		"elapsed", session.Elapsed().Round(time.Millisecond), "polls", session.Polls)
	return true
}

func (w *ResultsWatcher) cancelled(session *domain.WatchSession, logger *slog.Logger) *domain.WatchSession {
	session.Resolve(domain.WatchCancelled, nil, domain.ErrWatchCancelled)
	logger.Warn("wait for evaluation artifact cancelled", "elapsed", session.Elapsed().Round(time.Millisecond))
	return session
}

func (w *ResultsWatcher) timedOut(session *domain.WatchSession, logger *slog.Logger) *domain.WatchSession {
	session.Resolve(domain.WatchTimedOut, nil,
		fmt.Errorf("%w after %s", domain.ErrWatchTimedOut, session.Timeout))
	logger.Warn("timed out waiting for evaluation artifact",
		"timeout", session.Timeout, "polls", session.Polls)
	return session
}

// notifyChanges signals on events touching the target. Polling still runs when
// the watcher cannot be set up, e.g. because the directory does not exist yet.
func (w *ResultsWatcher) notifyChanges(target string, logger *slog.Logger) (<-chan struct{}, func()) {
	noop := func() {}
	if !w.useFSNotify {
		return nil, noop
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("fsnotify unavailable, polling only", "error", err)
		return nil, noop
	}
	dir := filepath.Dir(target)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		logger.Debug("cannot watch artifact directory, polling only", "dir", dir, "error", err)
		return nil, noop
	}

	want := filepath.Clean(target)
	wake := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != want {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Debug("fsnotify error", "error", err)
			}
		}
	}()

	return wake, func() {
		close(done)
		_ = fw.Close()
	}
}

// statArtifact returns the file info when the target is a non-empty regular file
func statArtifact(path string) (os.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, false
	}
	return info, true
}
