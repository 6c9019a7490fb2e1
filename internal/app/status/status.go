package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
)

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	RunRepository  storage.RunRepository
	TaskRepository storage.TaskRepository
	Logger         log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.RunRepository == nil {
		return fmt.Errorf("run repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service retrieves a run with its phases.
type Service struct {
	runRepo  storage.RunRepository
	taskRepo storage.TaskRepository
	logger   log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runRepo:  cfg.RunRepository,
		taskRepo: cfg.TaskRepository,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	// RunOrSandboxID is the run ID or the ID of the sandbox the run used.
	RunOrSandboxID string
}

// Result is a run with its ordered phases.
type Result struct {
	Run   model.Run
	Tasks []model.Task
}

// Run retrieves a run by ID or by sandbox ID.
// It tries the run ID lookup first when the input looks like a ULID.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	s.logger.Debugf("getting status for run: %s", req.RunOrSandboxID)

	run, err := s.getRun(ctx, req.RunOrSandboxID)
	if err != nil {
		return nil, err
	}

	res := &Result{Run: *run, Tasks: []model.Task{}}
	if s.taskRepo == nil {
		return res, nil
	}

	tasks, err := s.taskRepo.ListTasks(ctx, run.ID, string(run.Flow))
	if err != nil {
		return nil, fmt.Errorf("could not list run tasks: %w", err)
	}
	res.Tasks = tasks

	return res, nil
}

func (s *Service) getRun(ctx context.Context, id string) (*model.Run, error) {
	err := model.ErrNotFound
	if looksLikeULID(id) {
		var run *model.Run
		run, err = s.runRepo.GetRun(ctx, id)
		if err == nil {
			return run, nil
		}
	}

	if errors.Is(err, model.ErrNotFound) {
		s.logger.Debugf("run ID lookup failed, trying sandbox ID lookup")
		run, err := s.runRepo.GetRunBySandbox(ctx, id)
		if err == nil {
			return run, nil
		}
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("run not found: %s: %w", id, model.ErrNotFound)
		}
	}

	return nil, fmt.Errorf("could not get run: %w", err)
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
