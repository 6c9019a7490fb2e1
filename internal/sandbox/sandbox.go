package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/slok/sbxsmoke/internal/model"
)

// FileMode is the mode a sandbox file is opened with.
type FileMode string

const (
	FileModeRead  FileMode = "r"
	FileModeWrite FileMode = "w"
)

// Handle is an open file inside a sandbox.
type Handle interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	// Flush makes the written data visible inside the sandbox.
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// Sandbox is a short lived remote execution environment.
type Sandbox interface {
	ID() string
	// Exec runs the command and waits for it until the timeout. A non-zero exit code is not an error,
	// errors are only returned when the command could not be executed.
	Exec(ctx context.Context, command []string, timeout time.Duration) (*model.CommandResult, error)
	Open(ctx context.Context, path string, mode FileMode) (Handle, error)
	// Tunnels returns the host reachable URLs of the exposed sandbox ports.
	Tunnels(ctx context.Context) ([]model.Tunnel, error)
	// Terminate destroys the sandbox and everything running inside. Terminating an already
	// terminated sandbox is not an error.
	Terminate(ctx context.Context) error
}

// Platform creates sandboxes.
type Platform interface {
	// Check performs preflight checks and returns the results.
	Check(ctx context.Context) []model.CheckResult
	BuildImage(ctx context.Context, spec model.ImageSpec) (*model.Image, error)
	Create(ctx context.Context, img model.Image, opts model.SandboxOptions) (Sandbox, error)
	// Lookup returns an already created sandbox by its ID.
	Lookup(ctx context.Context, id string) (Sandbox, error)
}

// OnceTerminator wraps a sandbox so it's only terminated once, following calls
// return the result of the first one.
type OnceTerminator struct {
	Sandbox

	once sync.Once
	err  error
}

// NewOnceTerminator returns a new OnceTerminator.
func NewOnceTerminator(sb Sandbox) *OnceTerminator {
	return &OnceTerminator{Sandbox: sb}
}

func (o *OnceTerminator) Terminate(ctx context.Context) error {
	o.once.Do(func() {
		o.err = o.Sandbox.Terminate(ctx)
	})
	return o.err
}
