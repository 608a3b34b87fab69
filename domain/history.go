package domain

import "time"

// RunOutcome is the final state of an evaluation run
type RunOutcome string

const (
	RunRendered        RunOutcome = "rendered"
	RunPartialRendered RunOutcome = "partially_rendered"
	RunTimedOut        RunOutcome = "timed_out"
	RunCancelled       RunOutcome = "cancelled"
	RunInvalid         RunOutcome = "invalid"
	RunFailed          RunOutcome = "failed"
)

// RunRecord is one evaluation run as kept in the history store
type RunRecord struct {
	RunID        string     `db:"run_id" json:"run_id"`
	Repository   string     `db:"repository" json:"repository"`
	PRNumber     string     `db:"pr_number" json:"pr_number,omitempty"`
	ArtifactPath string     `db:"artifact_path" json:"artifact_path"`
	Outcome      RunOutcome `db:"outcome" json:"outcome"`
	Stage        string     `db:"stage" json:"stage,omitempty"`
	OverallScore *float64   `db:"overall_score" json:"overall_score,omitempty"`
	Grade        string     `db:"grade" json:"grade,omitempty"`
	ErrorMessage string     `db:"error_message" json:"error,omitempty"`
	ReportPaths  string     `db:"report_paths" json:"-"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	FinishedAt   time.Time  `db:"finished_at" json:"finished_at"`
}
