package io

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slok/sbxsmoke/internal/model"
)

// LastUpRepository stores the ID of the sandbox left running by the last `up`.
type LastUpRepository struct {
	path string
}

// NewLastUpRepository creates a new last up repository backed by a file.
func NewLastUpRepository(path string) (*LastUpRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &LastUpRepository{path: path}, nil
}

// Path returns the backing file path.
func (r *LastUpRepository) Path() string { return r.path }

// Save replaces the stored sandbox ID.
func (r *LastUpRepository) Save(sandboxID string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("could not create %s dir: %w", r.path, err)
	}
	if err := os.WriteFile(r.path, []byte(sandboxID+"\n"), 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", r.path, err)
	}
	return nil
}

// Get returns the stored sandbox ID.
func (r *LastUpRepository) Get() (string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no saved sandbox id at %s: %w", r.path, model.ErrNotFound)
		}
		return "", fmt.Errorf("could not read %s: %w", r.path, err)
	}

	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", fmt.Errorf("no saved sandbox id at %s: %w", r.path, model.ErrNotFound)
	}
	return id, nil
}

// ClearIf removes the stored sandbox ID only when it's the given one, returns true if removed.
func (r *LastUpRepository) ClearIf(sandboxID string) (bool, error) {
	id, err := r.Get()
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if id != sandboxID {
		return false, nil
	}

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("could not remove %s: %w", r.path, err)
	}
	return true, nil
}
