package domain

// ProgressManager creates progress indicators for long-running tasks
type ProgressManager interface {
	// StartTask starts a task. A total of -1 shows an indeterminate spinner.
	StartTask(description string, total int) TaskProgress
	IsInteractive() bool
	Close()
}

// TaskProgress reports progress of a single task
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}
