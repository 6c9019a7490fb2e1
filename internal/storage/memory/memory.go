package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.RunRepository and storage.TaskRepository.
type Repository struct {
	runs   map[string]model.Run
	tasks  []model.Task
	mu     sync.RWMutex
	logger log.Logger
}

var (
	_ storage.RunRepository  = &Repository{}
	_ storage.TaskRepository = &Repository{}
)

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:   make(map[string]model.Run),
		logger: cfg.Logger,
	}, nil
}

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if run.ID == "" || !run.Flow.Valid() {
		return fmt.Errorf("run id and a valid flow are required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run with id %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = copyRun(run)
	r.logger.Debugf("Created run in repository: %s", run.ID)

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	c := copyRun(run)
	return &c, nil
}

// GetRunBySandbox retrieves the latest run of a sandbox.
func (r *Repository) GetRunBySandbox(ctx context.Context, sandboxID string) (*model.Run, error) {
	runs, err := r.ListRuns(ctx, storage.ListRunsOpts{})
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.SandboxID == sandboxID {
			return &run, nil
		}
	}

	return nil, fmt.Errorf("run with sandbox %s: %w", sandboxID, model.ErrNotFound)
}

// ListRuns returns the runs matching the options, newest first.
func (r *Repository) ListRuns(ctx context.Context, opts storage.ListRunsOpts) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := []model.Run{}
	for _, run := range r.runs {
		if opts.Flow != "" && run.Flow != opts.Flow {
			continue
		}
		if opts.Status != "" && run.Status != opts.Status {
			continue
		}
		runs = append(runs, copyRun(run))
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})

	if opts.Limit > 0 && len(runs) > opts.Limit {
		runs = runs[:opts.Limit]
	}

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}

	r.runs[run.ID] = copyRun(run)
	r.logger.Debugf("Updated run in repository: %s", run.ID)

	return nil
}

// AddTask adds a single task to an operation.
func (r *Repository) AddTask(ctx context.Context, runID, operation, name string) error {
	return r.AddTasks(ctx, runID, operation, []string{name})
}

// AddTasks adds multiple tasks to an operation in order.
func (r *Repository) AddTasks(ctx context.Context, runID, operation string, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxSeq := 0
	for _, t := range r.tasks {
		if t.RunID == runID && t.Operation == operation {
			maxSeq = max(maxSeq, t.Sequence)
		}
	}

	now := time.Now().UTC()
	for i, name := range names {
		r.tasks = append(r.tasks, model.Task{
			ID:        ulid.Make().String(),
			RunID:     runID,
			Operation: operation,
			Sequence:  maxSeq + i + 1,
			Name:      name,
			Status:    model.TaskStatusPending,
			CreatedAt: now,
		})
	}

	return nil
}

// NextTask returns the next pending task for an operation, or nil if all done.
func (r *Repository) NextTask(ctx context.Context, runID, operation string) (*model.Task, error) {
	tasks, err := r.ListTasks(ctx, runID, operation)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.Status == model.TaskStatusPending {
			return &t, nil
		}
	}

	return nil, nil
}

// CompleteTask marks a task as completed.
func (r *Repository) CompleteTask(ctx context.Context, taskID string) error {
	return r.setTaskStatus(taskID, model.TaskStatusDone, "")
}

// FailTask marks a task as failed with an error message.
func (r *Repository) FailTask(ctx context.Context, taskID string, taskErr error) error {
	msg := ""
	if taskErr != nil {
		msg = taskErr.Error()
	}
	return r.setTaskStatus(taskID, model.TaskStatusFailed, msg)
}

// Progress returns the completion progress for an operation.
func (r *Repository) Progress(ctx context.Context, runID, operation string) (*model.TaskProgress, error) {
	tasks, err := r.ListTasks(ctx, runID, operation)
	if err != nil {
		return nil, err
	}

	p := &model.TaskProgress{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == model.TaskStatusDone {
			p.Done++
		}
	}

	return p, nil
}

// ListTasks returns the tasks of an operation in order.
func (r *Repository) ListTasks(ctx context.Context, runID, operation string) ([]model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := []model.Task{}
	for _, t := range r.tasks {
		if t.RunID == runID && t.Operation == operation {
			tasks = append(tasks, t)
		}
	}
	slices.SortFunc(tasks, func(a, b model.Task) int { return a.Sequence - b.Sequence })

	return tasks, nil
}

func (r *Repository) setTaskStatus(taskID string, status model.TaskStatus, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tasks {
		if r.tasks[i].ID == taskID {
			r.tasks[i].Status = status
			r.tasks[i].Error = msg
			return nil
		}
	}

	return fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
}

func copyRun(run model.Run) model.Run {
	if run.Artifact != nil {
		a := *run.Artifact
		run.Artifact = &a
	}
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		run.FinishedAt = &t
	}
	return run
}
