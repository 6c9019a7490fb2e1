package list

import (
	"context"
	"fmt"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
)

// ServiceConfig is the configuration for the list service.
type ServiceConfig struct {
	Repository storage.RunRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the run history with optional filtering.
type Service struct {
	repo   storage.RunRepository
	logger log.Logger
}

// NewService creates a new list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the list request parameters.
type Request struct {
	// FlowFilter is an optional filter to only show runs of this flow.
	FlowFilter *model.Flow
	// StatusFilter is an optional filter to only show runs with this status.
	StatusFilter *model.RunStatus
	// Limit is the maximum number of runs, 0 means all.
	Limit int
}

// Run lists the runs newest first, optionally filtered.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	s.logger.Debugf("listing runs with flow filter: %v, status filter: %v", req.FlowFilter, req.StatusFilter)

	if req.Limit < 0 {
		return nil, fmt.Errorf("limit can't be negative: %w", model.ErrNotValid)
	}

	opts := storage.ListRunsOpts{Limit: req.Limit}
	if req.FlowFilter != nil {
		if !req.FlowFilter.Valid() {
			return nil, fmt.Errorf("unknown flow %q: %w", *req.FlowFilter, model.ErrNotValid)
		}
		opts.Flow = *req.FlowFilter
	}
	if req.StatusFilter != nil {
		opts.Status = *req.StatusFilter
	}

	runs, err := s.repo.ListRuns(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}
