package provision

import (
	"context"
	"fmt"
	"time"
)

// ShellConfig is the configuration for creating a Shell provisioner.
type ShellConfig struct {
	// Accessor provides sandbox operations. Required.
	Accessor SandboxAccessor
	// Script is the shell script to run, it must be idempotent. Required.
	Script string
	// Timeout of the script, 0 uses the accessor default.
	Timeout time.Duration
}

func (c *ShellConfig) defaults() error {
	if c.Accessor == nil {
		return fmt.Errorf("accessor is required")
	}
	if c.Script == "" {
		return fmt.Errorf("script is required")
	}
	return nil
}

// NewShell creates a provisioner that runs a shell script in the sandbox.
func NewShell(cfg ShellConfig) (Provisioner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid shell config: %w", err)
	}

	return ProvisionerFunc(func(ctx context.Context) error {
		_, err := cfg.Accessor.Run(ctx, cfg.Script, cfg.Timeout)
		return err
	}), nil
}
