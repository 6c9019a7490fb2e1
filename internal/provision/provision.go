package provision

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
)

// Provisioner is the interface that all provisioners must implement.
// Implementations MUST be idempotent - calling Provision N times must produce the same result.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// ProvisionerFunc is a convenience adapter to allow the use of ordinary functions as Provisioners.
type ProvisionerFunc func(ctx context.Context) error

func (f ProvisionerFunc) Provision(ctx context.Context) error { return f(ctx) }

// SandboxAccessor provides provisioners access to sandbox operations.
// This is a minimal interface so provisioners don't have access to lifecycle operations (create/terminate).
type SandboxAccessor interface {
	Run(ctx context.Context, script string, timeout time.Duration) (*model.CommandResult, error)
	WriteText(ctx context.Context, path, content string) error
}

// NewProvisionerChain returns a Provisioner that runs all provisioners sequentially.
// If any provisioner fails, the chain stops and returns the error.
// An empty chain succeeds immediately.
func NewProvisionerChain(provisioners ...Provisioner) Provisioner {
	return ProvisionerFunc(func(ctx context.Context) error {
		for i, p := range provisioners {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("provisioner chain cancelled at step %d: %w", i, err)
			}

			if err := p.Provision(ctx); err != nil {
				return fmt.Errorf("provisioner chain failed at step %d: %w", i, err)
			}
		}
		return nil
	})
}

// NewNoopProvisioner returns a provisioner that does nothing.
func NewNoopProvisioner() Provisioner {
	return ProvisionerFunc(func(_ context.Context) error { return nil })
}

// NewLogProvisioner wraps a provisioner with debug logging before and after execution.
func NewLogProvisioner(name string, logger log.Logger, p Provisioner) Provisioner {
	return ProvisionerFunc(func(ctx context.Context) error {
		logger.Debugf("Provisioning %q...", name)

		if err := p.Provision(ctx); err != nil {
			return err
		}

		logger.Debugf("Provisioned %q", name)
		return nil
	})
}

// NewTimedProvisioner wraps a provisioner printing its start (with the timeout it runs with) and
// its duration to out.
func NewTimedProvisioner(name string, timeout time.Duration, out io.Writer, p Provisioner) Provisioner {
	return ProvisionerFunc(func(ctx context.Context) error {
		fmt.Fprintf(out, "==> %s (timeout %ds)\n", name, int(timeout.Seconds()))
		start := time.Now()

		if err := p.Provision(ctx); err != nil {
			fmt.Fprintf(out, "<== %s failed after %.1fs\n", name, time.Since(start).Seconds())
			return err
		}

		fmt.Fprintf(out, "<== %s done in %.1fs\n", name, time.Since(start).Seconds())
		return nil
	})
}
