package stop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/storage"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
)

// ServiceConfig is the configuration for the stop service.
type ServiceConfig struct {
	Platform      sandbox.Platform
	RunRepository storage.RunRepository
	LastUp        *storageio.LastUpRepository
	Now           func() time.Time
	Logger        log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Platform == nil {
		return fmt.Errorf("platform is required")
	}

	if c.RunRepository == nil {
		return fmt.Errorf("run repository is required")
	}

	if c.LastUp == nil {
		return fmt.Errorf("last up repository is required")
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Stop"})

	return nil
}

// Service terminates a sandbox left running by `up`.
type Service struct {
	platform sandbox.Platform
	runRepo  storage.RunRepository
	lastUp   *storageio.LastUpRepository
	now      func() time.Time
	logger   log.Logger
}

// NewService creates a new stop service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		platform: cfg.Platform,
		runRepo:  cfg.RunRepository,
		lastUp:   cfg.LastUp,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the stop request parameters.
type Request struct {
	// SandboxID is the sandbox to stop, when empty the last `up` sandbox is used.
	SandboxID string
}

// Result is the outcome of a stop.
type Result struct {
	SandboxID string
	// Run is the run that created the sandbox, nil when it's not in the history.
	Run *model.Run
	// ClearedLastUp is true when the saved last `up` sandbox ID was removed.
	ClearedLastUp bool
}

// Run terminates the sandbox and marks its run as stopped.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	id := strings.TrimSpace(req.SandboxID)
	if id == "" {
		saved, err := s.lastUp.Get()
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("no sandbox id provided and no saved id file at %s: %w", s.lastUp.Path(), model.ErrNotFound)
			}
			return nil, err
		}
		id = saved
	}
	s.logger.Debugf("stopping sandbox: %s", id)

	sb, err := s.platform.Lookup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not get sandbox %s: %w", id, err)
	}

	if err := sb.Terminate(ctx); err != nil {
		return nil, fmt.Errorf("could not terminate sandbox: %w", err)
	}
	s.logger.Infof("Terminated sandbox: %s", id)

	res := &Result{SandboxID: id}

	run, err := s.runRepo.GetRunBySandbox(ctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.logger.Debugf("sandbox %s has no run in history", id)
	case err != nil:
		return nil, fmt.Errorf("could not get sandbox run: %w", err)
	default:
		if run.Status == model.RunStatusRunning {
			now := s.now().UTC()
			run.Status = model.RunStatusStopped
			run.FinishedAt = &now
			if err := s.runRepo.UpdateRun(ctx, *run); err != nil {
				return nil, fmt.Errorf("could not update run: %w", err)
			}
		}
		res.Run = run
	}

	cleared, err := s.lastUp.ClearIf(id)
	if err != nil {
		return nil, fmt.Errorf("could not clear saved sandbox id: %w", err)
	}
	res.ClearedLastUp = cleared

	return res, nil
}
