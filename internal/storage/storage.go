package storage

import (
	"context"

	"github.com/slok/sbxsmoke/internal/model"
)

// ListRunsOpts filters the listed runs.
type ListRunsOpts struct {
	// Flow filters by flow when set.
	Flow model.Flow
	// Status filters by status when set.
	Status model.RunStatus
	// Limit is the maximum number of runs returned, 0 means no limit.
	Limit int
}

// RunRepository is the interface for run history persistence.
type RunRepository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// GetRunBySandbox returns the latest run that used the sandbox.
	GetRunBySandbox(ctx context.Context, sandboxID string) (*model.Run, error)
	// ListRuns returns the runs, newest first.
	ListRuns(ctx context.Context, opts ListRunsOpts) ([]model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
}

// TaskRepository is the interface for run phase tracking.
type TaskRepository interface {
	AddTask(ctx context.Context, runID, operation, name string) error
	AddTasks(ctx context.Context, runID, operation string, names []string) error
	// NextTask returns the next pending task of an operation, or nil if all are done.
	NextTask(ctx context.Context, runID, operation string) (*model.Task, error)
	CompleteTask(ctx context.Context, taskID string) error
	FailTask(ctx context.Context, taskID string, taskErr error) error
	Progress(ctx context.Context, runID, operation string) (*model.TaskProgress, error)
	// ListTasks returns the tasks of an operation in order.
	ListTasks(ctx context.Context, runID, operation string) ([]model.Task, error)
}
