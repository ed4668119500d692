package history

import (
	"context"
	"time"
)

// Status is the outcome of a pipeline run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded invocation of the pipeline
type Run struct {
	ID          string
	SourceURL   string
	Title       string
	RawPath     string
	CleanedPath string
	ShareURL    string
	Status      Status
	FailedStage string
	Error       string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns how long the run took, or zero if it has not finished
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Recorder persists pipeline runs
type Recorder interface {
	Start(ctx context.Context, run Run) error
	Finish(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// NopRecorder discards all runs; used when history is disabled
type NopRecorder struct{}

func (NopRecorder) Start(context.Context, Run) error           { return nil }
func (NopRecorder) Finish(context.Context, Run) error          { return nil }
func (NopRecorder) Recent(context.Context, int) ([]Run, error) { return nil, nil }

var _ Recorder = NopRecorder{}
