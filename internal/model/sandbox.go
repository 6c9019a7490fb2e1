package model

import (
	"fmt"
	"time"
)

// SandboxOptions are the lifetime settings of a sandbox.
type SandboxOptions struct {
	// AppName groups the sandboxes created by the same harness.
	AppName string
	// Timeout is the hard lifetime of the sandbox, it's terminated after it regardless of activity.
	Timeout time.Duration
	// IdleTimeout terminates the sandbox when no command has been executed in this time.
	IdleTimeout time.Duration
	// Ports are the sandbox ports exposed to the host as preview tunnels.
	Ports []int
}

// Validate checks the sandbox options are usable.
func (o SandboxOptions) Validate() error {
	if o.Timeout <= 0 {
		return errorf("sandbox timeout must be positive")
	}
	if o.IdleTimeout <= 0 {
		return errorf("sandbox idle timeout must be positive")
	}
	if o.IdleTimeout > o.Timeout {
		return errorf("sandbox idle timeout can't be greater than the timeout")
	}
	return nil
}

// Tunnel is a sandbox port reachable from the host.
type Tunnel struct {
	Port int
	URL  string
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotValid)...)
}
