package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
)

// DefaultTimeout is the timeout of commands executed without an explicit one.
const DefaultTimeout = 30 * time.Minute

// ExecutorConfig is the configuration of Executor.
type ExecutorConfig struct {
	Sandbox sandbox.Sandbox
	// Out receives the echo of the command outputs, by default stdout.
	Out    io.Writer
	Logger log.Logger
}

func (c *ExecutorConfig) defaults() error {
	if c.Sandbox == nil {
		return fmt.Errorf("sandbox is required")
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "remote.Executor", "sandbox-id": c.Sandbox.ID()})
	return nil
}

// Executor runs shell scripts inside a sandbox.
type Executor struct {
	sb     sandbox.Sandbox
	out    io.Writer
	logger log.Logger
}

// NewExecutor returns a new Executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Executor{
		sb:     cfg.Sandbox,
		out:    cfg.Out,
		logger: cfg.Logger,
	}, nil
}

// Run runs the script with a login bash shell. The outputs are echoed before deciding the result,
// so failures keep their diagnostics. A non-zero exit code is returned as a CommandFailedError.
func (e *Executor) Run(ctx context.Context, script string, timeout time.Duration) (*model.CommandResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res, err := e.sb.Exec(ctx, []string{"bash", "-lc", script}, timeout)
	if err != nil {
		return nil, fmt.Errorf("could not execute sandbox command: %w", err)
	}

	if out := strings.TrimSpace(res.Stdout); out != "" {
		fmt.Fprintf(e.out, "\n--- sandbox stdout ---\n%s\n", out)
	}
	if out := strings.TrimSpace(res.Stderr); out != "" {
		fmt.Fprintf(e.out, "\n--- sandbox stderr ---\n%s\n", out)
	}

	if res.ExitCode != 0 {
		return res, &model.CommandFailedError{ExitCode: res.ExitCode}
	}

	return res, nil
}

// WriteText writes a text file inside the sandbox creating its parent directory. Every step must
// succeed, a failed step aborts the write.
func (e *Executor) WriteText(ctx context.Context, filePath, content string) error {
	if _, err := e.Run(ctx, "mkdir -p "+shellquote.Join(path.Dir(filePath)), 0); err != nil {
		return fmt.Errorf("could not create %s parent dir: %w", filePath, err)
	}

	h, err := e.sb.Open(ctx, filePath, sandbox.FileModeWrite)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", filePath, err)
	}
	if err := h.Write(ctx, []byte(content)); err != nil {
		return fmt.Errorf("could not write %s: %w", filePath, err)
	}
	if err := h.Flush(ctx); err != nil {
		return fmt.Errorf("could not flush %s: %w", filePath, err)
	}
	if err := h.Close(ctx); err != nil {
		return fmt.Errorf("could not close %s: %w", filePath, err)
	}

	e.logger.Debugf("Wrote %d bytes to %s", len(content), filePath)
	return nil
}

// NonFatal runs a best effort operation, its failure is logged and swallowed.
func NonFatal(logger log.Logger, name string, op func() error) {
	if err := op(); err != nil {
		logger.Warningf("Ignoring %s failure: %s", name, err)
	}
}
