package domain

import (
	"fmt"
	"time"
)

// WatchStatus is the state of a results watch
type WatchStatus int

const (
	WatchPending WatchStatus = iota
	WatchSucceeded
	WatchTimedOut
	WatchFailed
	WatchCancelled
)

// String returns the status name
func (s WatchStatus) String() string {
	switch s {
	case WatchPending:
		return "pending"
	case WatchSucceeded:
		return "succeeded"
	case WatchTimedOut:
		return "timed_out"
	case WatchFailed:
		return "failed"
	case WatchCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalText encodes the status by name
func (s WatchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the session has resolved
func (s WatchStatus) IsTerminal() bool {
	return s != WatchPending
}

// WatchSession is the transient state of one wait for one artifact. A session
// resolves exactly once and is not reused.
type WatchSession struct {
	TargetPath   string        `json:"target_path"`
	StartedAt    time.Time     `json:"started_at"`
	Timeout      time.Duration `json:"timeout"`
	PollInterval time.Duration `json:"poll_interval"`
	SettleDelay  time.Duration `json:"settle_delay"`
	Status       WatchStatus   `json:"status"`
	ResolvedAt   time.Time     `json:"resolved_at,omitempty"`
	Polls        int           `json:"polls"`

	// Artifact is set when Status is WatchSucceeded
	Artifact *RawEvaluationArtifact `json:"-"`

	// Err explains a Failed, TimedOut or Cancelled resolution
	Err error `json:"-"`
}

// Elapsed returns how long the session has been (or was) pending
func (s *WatchSession) Elapsed() time.Duration {
	if s.ResolvedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.ResolvedAt.Sub(s.StartedAt)
}

// Resolve moves the session to a terminal state. Later calls are ignored.
func (s *WatchSession) Resolve(status WatchStatus, artifact *RawEvaluationArtifact, err error) {
	if s.Status.IsTerminal() {
		return
	}
	s.Status = status
	s.Artifact = artifact
	s.Err = err
	s.ResolvedAt = time.Now()
}
