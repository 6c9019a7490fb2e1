package model

import (
	"time"
)

// TaskStatus represents the state of a task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// Task names of the phases a run goes through.
const (
	TaskBuildImage       = "build_image"
	TaskCreateSandbox    = "create_sandbox"
	TaskBootstrap        = "bootstrap"
	TaskUpload           = "upload"
	TaskChoreography     = "choreography"
	TaskRetrieveArtifact = "retrieve_artifact"
	TaskSetup            = "setup"
	TaskStartApp         = "start_app"
)

// Task represents a single phase of a run.
type Task struct {
	ID        string
	RunID     string
	Operation string
	Sequence  int
	Name      string
	Status    TaskStatus
	Error     string
	CreatedAt time.Time
}

// TaskProgress represents the completion state of an operation.
type TaskProgress struct {
	Done  int
	Total int
}
