package io

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"github.com/slok/sbxsmoke/internal/model"
)

// InputPaths are the paths of the local documents an app run starts from.
type InputPaths struct {
	APIEnv    string
	WebEnv    string
	RunConfig string
}

// Inputs are the loaded and validated local documents of an app run.
type Inputs struct {
	// APIEnv is the raw backend env file, uploaded as is.
	APIEnv string
	// WebEnv is the raw frontend env file, uploaded as is.
	WebEnv       string
	RunConfig    model.RunConfig
	RunConfigRaw string
}

// InputsRepository loads the run inputs from a filesystem.
type InputsRepository struct {
	fs fs.FS
}

// NewInputsRepository creates a new inputs repository.
func NewInputsRepository(filesystem fs.FS) *InputsRepository {
	return &InputsRepository{fs: filesystem}
}

// GetInputs reads the three documents concurrently and validates the run config, any failure is
// returned before anything remote is created. Env files are sourced by bash remotely so they are
// kept raw.
func (r *InputsRepository) GetInputs(ctx context.Context, paths InputPaths) (*Inputs, error) {
	files := []string{paths.APIEnv, paths.WebEnv, paths.RunConfig}
	names := []string{"api env", "web env", "run config"}
	data := make([][]byte, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data[i], errs[i] = r.read(path)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("reading %s file: %w", names[i], err)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cfg, err := model.ParseRunConfig(data[2])
	if err != nil {
		return nil, fmt.Errorf("invalid run config %q: %w", paths.RunConfig, err)
	}

	return &Inputs{
		APIEnv:       string(data[0]),
		WebEnv:       string(data[1]),
		RunConfig:    cfg,
		RunConfigRaw: string(data[2]),
	}, nil
}

// GetRunConfig only loads the run configuration.
func (r *InputsRepository) GetRunConfig(ctx context.Context, path string) (model.RunConfig, error) {
	data, err := r.read(path)
	if err != nil {
		return model.RunConfig{}, fmt.Errorf("reading run config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.RunConfig{}, ctx.Err()
	}

	return model.ParseRunConfig(data)
}

func (r *InputsRepository) read(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required: %w", model.ErrNotValid)
	}
	return fs.ReadFile(r.fs, path)
}
