package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
)

// ExecHandler simulates the execution of a command inside a fake sandbox. It can mutate the sandbox
// files to simulate the side effects of the command.
type ExecHandler func(sb *Sandbox, command []string) *model.CommandResult

// PlatformConfig is the configuration for the fake platform.
type PlatformConfig struct {
	// ExecHandler is used for every command, by default commands succeed without output.
	ExecHandler ExecHandler
	// BuildErrors are returned in order by the image builds, once consumed builds succeed.
	BuildErrors []error
	// Tunnels are returned by every sandbox.
	Tunnels []model.Tunnel
	Logger  log.Logger
}

func (c *PlatformConfig) defaults() error {
	if c.ExecHandler == nil {
		c.ExecHandler = func(*Sandbox, []string) *model.CommandResult { return &model.CommandResult{} }
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sandbox.Fake"})
	return nil
}

// Platform is a fake implementation of the sandbox.Platform interface.
// It simulates sandboxes in memory without running anything.
type Platform struct {
	execHandler ExecHandler
	buildErrors []error
	tunnels     []model.Tunnel
	sandboxes   map[string]*Sandbox
	builds      int
	mu          sync.Mutex
	logger      log.Logger
}

// NewPlatform creates a new fake platform.
func NewPlatform(cfg PlatformConfig) (*Platform, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Platform{
		execHandler: cfg.ExecHandler,
		buildErrors: cfg.BuildErrors,
		tunnels:     cfg.Tunnels,
		sandboxes:   map[string]*Sandbox{},
		logger:      cfg.Logger,
	}, nil
}

// Check always passes.
func (p *Platform) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{{ID: "fake_platform", Message: "Fake platform is always ready", Status: model.CheckStatusOK}}
}

// BuildImage returns the next configured build error or a successful image.
func (p *Platform) BuildImage(ctx context.Context, spec model.ImageSpec) (*model.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.builds++
	if len(p.buildErrors) > 0 {
		err := p.buildErrors[0]
		p.buildErrors = p.buildErrors[1:]
		return nil, err
	}

	return &model.Image{Ref: "fake/" + spec.Fingerprint()}, nil
}

// Builds returns the number of image builds attempted.
func (p *Platform) Builds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.builds
}

// Create creates a new fake sandbox.
func (p *Platform) Create(ctx context.Context, img model.Image, opts model.SandboxOptions) (sandbox.Sandbox, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := "fake-" + strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())
	sb := &Sandbox{
		id:          id,
		Image:       img,
		Options:     opts,
		files:       map[string][]byte{},
		execHandler: p.execHandler,
		tunnels:     p.tunnels,
	}
	p.sandboxes[id] = sb
	p.logger.Infof("Created fake sandbox: %s", id)

	return sb, nil
}

// Lookup returns a sandbox created by this platform.
func (p *Platform) Lookup(ctx context.Context, id string) (sandbox.Sandbox, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sb, ok := p.sandboxes[id]
	if !ok {
		return nil, fmt.Errorf("sandbox %s: %w", id, model.ErrNotFound)
	}
	return sb, nil
}

// Sandboxes returns every sandbox created by this platform.
func (p *Platform) Sandboxes() []*Sandbox {
	p.mu.Lock()
	defer p.mu.Unlock()

	sbs := make([]*Sandbox, 0, len(p.sandboxes))
	for _, sb := range p.sandboxes {
		sbs = append(sbs, sb)
	}
	return sbs
}

// Sandbox is a fake in memory sandbox.
type Sandbox struct {
	id          string
	Image       model.Image
	Options     model.SandboxOptions
	files       map[string][]byte
	commands    [][]string
	terminated  int
	execHandler ExecHandler
	tunnels     []model.Tunnel
	mu          sync.Mutex
}

func (s *Sandbox) ID() string { return s.id }

// Exec records the command and delegates on the exec handler.
func (s *Sandbox) Exec(ctx context.Context, command []string, timeout time.Duration) (*model.CommandResult, error) {
	s.mu.Lock()
	if s.terminated > 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("sandbox %s is terminated: %w", s.id, model.ErrNotValid)
	}
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	return s.execHandler(s, command), nil
}

// Open opens a fake file.
func (s *Sandbox) Open(ctx context.Context, path string, mode sandbox.FileMode) (sandbox.Handle, error) {
	switch mode {
	case sandbox.FileModeRead:
		s.mu.Lock()
		_, ok := s.files[path]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("file %s: %w", path, model.ErrNotFound)
		}
	case sandbox.FileModeWrite:
	default:
		return nil, fmt.Errorf("unknown file mode %q: %w", mode, model.ErrNotValid)
	}

	return &handle{sb: s, path: path, mode: mode}, nil
}

// Tunnels returns the configured tunnels.
func (s *Sandbox) Tunnels(ctx context.Context) ([]model.Tunnel, error) {
	return s.tunnels, nil
}

// Terminate marks the sandbox as terminated.
func (s *Sandbox) Terminate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminated++
	return nil
}

// Terminated returns how many times the sandbox has been terminated.
func (s *Sandbox) Terminated() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// Commands returns the executed commands.
func (s *Sandbox) Commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string{}, s.commands...)
}

// SetFile sets the content of a file, used by exec handlers to simulate command side effects.
func (s *Sandbox) SetFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

// File returns the content of a file.
func (s *Sandbox) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	return data, ok
}

type handle struct {
	sb     *Sandbox
	path   string
	mode   sandbox.FileMode
	buf    []byte
	closed bool
}

func (h *handle) Read(ctx context.Context) ([]byte, error) {
	if h.closed || h.mode != sandbox.FileModeRead {
		return nil, fmt.Errorf("file %s not readable", h.path)
	}
	data, _ := h.sb.File(h.path)
	return data, nil
}

func (h *handle) Write(ctx context.Context, data []byte) error {
	if h.closed || h.mode != sandbox.FileModeWrite {
		return fmt.Errorf("file %s not writable", h.path)
	}
	h.buf = append(h.buf, data...)
	return nil
}

func (h *handle) Flush(ctx context.Context) error {
	if h.closed || h.mode != sandbox.FileModeWrite {
		return fmt.Errorf("file %s not writable", h.path)
	}
	h.sb.SetFile(h.path, append([]byte{}, h.buf...))
	return nil
}

func (h *handle) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	if h.mode == sandbox.FileModeWrite {
		h.sb.SetFile(h.path, append([]byte{}, h.buf...))
	}
	h.closed = true
	return nil
}
