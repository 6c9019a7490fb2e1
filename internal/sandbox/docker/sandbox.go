package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
)

// Sandbox is a Docker container sandbox.
type Sandbox struct {
	id           string
	client       DockerClient
	dockerBinary string
	idle         *idleWatchdog
	logger       log.Logger
}

// ID returns the sandbox ID, it's also the container name.
func (s *Sandbox) ID() string { return s.id }

// Exec executes a command inside the container using the docker CLI.
func (s *Sandbox) Exec(ctx context.Context, command []string, timeout time.Duration) (*model.CommandResult, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("command cannot be empty: %w", model.ErrNotValid)
	}

	s.idle.Busy()
	defer s.idle.Idle()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	args := append([]string{"exec", s.id}, command...)
	s.logger.Debugf("Executing command in container %s: %s %v", s.id, s.dockerBinary, args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.dockerBinary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("command did not finish in %s: %w", timeout, ctxErr)
		}

		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}

		// The CLI reports daemon errors on stderr, everything else is the command's own output.
		daemonErr := strings.TrimSpace(stderr.String())
		if strings.HasPrefix(daemonErr, "Error response from daemon:") {
			if strings.Contains(daemonErr, "No such container") {
				return nil, fmt.Errorf("container %s: %w", s.id, model.ErrNotFound)
			}
			if strings.Contains(daemonErr, "is not running") {
				return nil, fmt.Errorf("container %s is not running: %w", s.id, model.ErrNotValid)
			}
		}

		exitCode = exitErr.ExitCode()
		s.logger.Debugf("Command exited with code %d", exitCode)
	}

	return &model.CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

// Open opens a file inside the container.
func (s *Sandbox) Open(ctx context.Context, path string, mode sandbox.FileMode) (sandbox.Handle, error) {
	switch mode {
	case sandbox.FileModeRead:
		return &readHandle{client: s.client, containerID: s.id, path: path}, nil
	case sandbox.FileModeWrite:
		return &writeHandle{client: s.client, containerID: s.id, path: path}, nil
	}
	return nil, fmt.Errorf("unknown file mode %q: %w", mode, model.ErrNotValid)
}

// Tunnels returns the published ports of the container.
func (s *Sandbox) Tunnels(ctx context.Context) ([]model.Tunnel, error) {
	info, err := s.client.ContainerInspect(ctx, s.id)
	if err != nil {
		if strings.Contains(err.Error(), "No such container") {
			return nil, fmt.Errorf("container %s: %w", s.id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to inspect container %s: %w", s.id, err)
	}

	if info.NetworkSettings == nil {
		return nil, nil
	}

	var tunnels []model.Tunnel
	for port, bindings := range info.NetworkSettings.Ports {
		if len(bindings) == 0 || bindings[0].HostPort == "" {
			continue
		}
		host := bindings[0].HostIP
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		tunnels = append(tunnels, model.Tunnel{
			Port: port.Int(),
			URL:  fmt.Sprintf("http://%s:%s", host, bindings[0].HostPort),
		})
	}
	sort.Slice(tunnels, func(i, j int) bool { return tunnels[i].Port < tunnels[j].Port })

	return tunnels, nil
}

// Terminate removes the container.
func (s *Sandbox) Terminate(ctx context.Context) error {
	s.idle.Stop()

	s.logger.Infof("Removing container: %s", s.id)
	err := s.client.ContainerRemove(ctx, s.id, container.RemoveOptions{Force: true})
	if err != nil {
		// Already removed, or being removed by the auto remove of an exited container.
		if strings.Contains(err.Error(), "No such container") || strings.Contains(err.Error(), "is already in progress") {
			s.logger.Debugf("Container %s already removed", s.id)
			return nil
		}
		return fmt.Errorf("failed to remove container %s: %w", s.id, err)
	}

	return nil
}
