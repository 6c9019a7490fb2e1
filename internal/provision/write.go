package provision

import (
	"context"
	"fmt"

	"github.com/slok/sbxsmoke/internal/log"
)

// WriteTextConfig is the configuration for creating a WriteText provisioner.
type WriteTextConfig struct {
	// Accessor provides sandbox operations. Required.
	Accessor SandboxAccessor
	// Content is the file content, empty content creates an empty file.
	Content string
	// DstRemote is the sandbox path to write to. Required.
	DstRemote string
	// Logger is optional, defaults to log.Noop.
	Logger log.Logger
}

func (c *WriteTextConfig) defaults() error {
	if c.Accessor == nil {
		return fmt.Errorf("accessor is required")
	}
	if c.DstRemote == "" {
		return fmt.Errorf("dst remote path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// NewWriteText creates a provisioner that writes a text file in the sandbox.
// This provisioner is idempotent - it overwrites existing files.
func NewWriteText(cfg WriteTextConfig) (Provisioner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid write text config: %w", err)
	}

	return ProvisionerFunc(func(ctx context.Context) error {
		cfg.Logger.Debugf("Uploading %d bytes to %q...", len(cfg.Content), cfg.DstRemote)

		if err := cfg.Accessor.WriteText(ctx, cfg.DstRemote, cfg.Content); err != nil {
			return fmt.Errorf("uploading %q: %w", cfg.DstRemote, err)
		}

		cfg.Logger.Debugf("Uploaded %q", cfg.DstRemote)
		return nil
	}), nil
}
