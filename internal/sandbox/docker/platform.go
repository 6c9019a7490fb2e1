package docker

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/oklog/ulid/v2"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/sandbox"
)

const (
	labelApp         = "sbxsmoke.app"
	labelIdleTimeout = "sbxsmoke.idle-timeout"
	namePrefix       = "sbxsmoke-"
)

// DockerClient is the interface for Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
}

// PlatformConfig is the configuration for the Docker platform.
type PlatformConfig struct {
	Client DockerClient
	// DockerBinary is the docker CLI used for image builds and command execution.
	DockerBinary string
	// ImageRepository is the repository built images are tagged with.
	ImageRepository string
	// RunningPolicy is how a freshly started container is polled until it's running.
	RunningPolicy readiness.Policy
	Logger        log.Logger
}

func (c *PlatformConfig) defaults() error {
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.DockerBinary == "" {
		c.DockerBinary = "docker"
	}
	if c.ImageRepository == "" {
		c.ImageRepository = "sbxsmoke/sandbox"
	}
	if c.RunningPolicy.Attempts == 0 {
		c.RunningPolicy = readiness.Policy{Attempts: 30, Interval: 500 * time.Millisecond}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "sandbox.Docker"})
	return nil
}

// Platform is the Docker implementation of the sandbox.Platform interface.
// Every sandbox is a container kept alive by a sleep of the hard timeout duration.
type Platform struct {
	client          DockerClient
	dockerBinary    string
	imageRepository string
	runningPolicy   readiness.Policy
	logger          log.Logger
}

// NewPlatform creates a new Docker platform.
func NewPlatform(cfg PlatformConfig) (*Platform, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Platform{
		client:          cfg.Client,
		dockerBinary:    cfg.DockerBinary,
		imageRepository: cfg.ImageRepository,
		runningPolicy:   cfg.RunningPolicy,
		logger:          cfg.Logger,
	}, nil
}

// Check performs the preflight checks of the Docker platform.
func (p *Platform) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{
		p.checkDaemon(ctx),
		p.checkCLI(),
	}
}

func (p *Platform) checkDaemon(ctx context.Context) model.CheckResult {
	ping, err := p.client.Ping(ctx)
	if err != nil {
		return model.CheckResult{
			ID:      "docker_daemon",
			Message: fmt.Sprintf("Docker daemon is not reachable: %v", err),
			Status:  model.CheckStatusError,
		}
	}
	return model.CheckResult{
		ID:      "docker_daemon",
		Message: fmt.Sprintf("Docker daemon reachable (API %s, %s)", ping.APIVersion, ping.OSType),
		Status:  model.CheckStatusOK,
	}
}

func (p *Platform) checkCLI() model.CheckResult {
	path, err := exec.LookPath(p.dockerBinary)
	if err != nil {
		return model.CheckResult{
			ID:      "docker_cli",
			Message: fmt.Sprintf("%s binary not found in PATH", p.dockerBinary),
			Status:  model.CheckStatusError,
		}
	}
	return model.CheckResult{
		ID:      "docker_cli",
		Message: fmt.Sprintf("Docker CLI found at %s", path),
		Status:  model.CheckStatusOK,
	}
}

// Create creates and starts a new container sandbox.
func (p *Platform) Create(ctx context.Context, img model.Image, opts model.SandboxOptions) (sandbox.Sandbox, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	id := namePrefix + strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String())

	exposed, bindings, err := portBindings(opts.Ports)
	if err != nil {
		return nil, err
	}

	// The hard timeout is enforced by the container main process, so it's honored
	// even when the sandbox outlives this process.
	containerConfig := &container.Config{
		Image:        img.Ref,
		Cmd:          []string{"sleep", strconv.Itoa(int(opts.Timeout.Seconds()))},
		ExposedPorts: exposed,
		Labels: map[string]string{
			labelApp:         opts.AppName,
			labelIdleTimeout: opts.IdleTimeout.String(),
		},
	}
	hostConfig := &container.HostConfig{
		AutoRemove:   true,
		PortBindings: bindings,
	}

	p.logger.Infof("Creating container %s from image %s", id, img.Ref)
	resp, err := p.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = p.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	sb := p.newSandbox(id, opts.IdleTimeout)
	if err := p.awaitRunning(ctx, id); err != nil {
		_ = sb.Terminate(context.WithoutCancel(ctx))
		return nil, err
	}

	p.logger.Infof("Created Docker sandbox: %s", id)

	return sb, nil
}

// Lookup returns an already created sandbox.
func (p *Platform) Lookup(ctx context.Context, id string) (sandbox.Sandbox, error) {
	info, err := p.client.ContainerInspect(ctx, id)
	if err != nil {
		if strings.Contains(err.Error(), "No such container") {
			return nil, fmt.Errorf("sandbox %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}

	var idle time.Duration
	if info.Config != nil {
		idle, _ = time.ParseDuration(info.Config.Labels[labelIdleTimeout])
	}

	return p.newSandbox(strings.TrimPrefix(info.Name, "/"), idle), nil
}

func (p *Platform) newSandbox(id string, idle time.Duration) *Sandbox {
	sb := &Sandbox{
		id:           id,
		client:       p.client,
		dockerBinary: p.dockerBinary,
		logger:       p.logger.WithValues(log.Kv{"sandbox-id": id}),
	}
	sb.idle = newIdleWatchdog(idle, func() {
		sb.logger.Warningf("Sandbox idle for %s, terminating", idle)
		if err := sb.Terminate(context.Background()); err != nil {
			sb.logger.Errorf("Could not terminate idle sandbox: %s", err)
		}
	})
	return sb
}

func (p *Platform) awaitRunning(ctx context.Context, id string) error {
	poller, err := readiness.NewPoller(readiness.PollerConfig{Policy: p.runningPolicy, Logger: p.logger})
	if err != nil {
		return err
	}

	err = poller.Require(ctx, "container "+id, func(ctx context.Context) bool {
		info, err := p.client.ContainerInspect(ctx, id)
		if err != nil || info.State == nil {
			return false
		}
		return info.State.Running
	})
	if err != nil {
		return fmt.Errorf("sandbox did not start: %w", err)
	}

	return nil
}

func portBindings(ports []int) (nat.PortSet, nat.PortMap, error) {
	if len(ports) == 0 {
		return nil, nil, nil
	}

	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, port := range ports {
		np, err := nat.NewPort("tcp", strconv.Itoa(port))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid port %d: %w", port, model.ErrNotValid)
		}
		exposed[np] = struct{}{}
		// Empty host port lets docker pick a free one.
		bindings[np] = []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: ""}}
	}

	return exposed, bindings, nil
}
