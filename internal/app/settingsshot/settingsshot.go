// Package settingsshot signs in to an app left running by `up` and takes a screenshot of its
// settings page.
package settingsshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slok/sbxsmoke/internal/artifact"
	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/signin"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
	"github.com/slok/sbxsmoke/internal/utils/env"
)

// SettingsHeading is the heading that tells the settings page is rendered.
const SettingsHeading = "Settings"

// Page is a browser tab that can sign in, navigate and take screenshots.
type Page interface {
	signin.Page
	Goto(ctx context.Context, url string) error
	WaitHeading(ctx context.Context, name string) error
	// Screenshot returns a full page PNG screenshot.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// OpenPageFunc opens a browser tab on the URL.
type OpenPageFunc func(ctx context.Context, url string) (Page, error)

// ServiceConfig is the configuration for the settings screenshot service.
type ServiceConfig struct {
	// Platform and LastUp resolve the preview URL, they are not needed when the request sets it.
	Platform    sandbox.Platform
	LastUp      *storageio.LastUpRepository
	OpenPage    OpenPageFunc
	ArtifactDir string
	Retriever   *artifact.Retriever
	Timings     signin.Timings
	Sleep       readiness.SleepFunc
	Logger      log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.OpenPage == nil {
		return fmt.Errorf("open page func is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.SettingsShot"})

	if c.Retriever == nil {
		if c.ArtifactDir == "" {
			c.ArtifactDir = conventions.DefaultArtifactDir
		}
		r, err := artifact.NewRetriever(artifact.RetrieverConfig{Dir: c.ArtifactDir, Logger: c.Logger})
		if err != nil {
			return fmt.Errorf("could not create artifact retriever: %w", err)
		}
		c.Retriever = r
	}

	return nil
}

// Service takes the settings page screenshot.
type Service struct {
	platform  sandbox.Platform
	lastUp    *storageio.LastUpRepository
	openPage  OpenPageFunc
	retriever *artifact.Retriever
	timings   signin.Timings
	sleep     readiness.SleepFunc
	logger    log.Logger
}

// NewService creates a new settings screenshot service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		platform:  cfg.Platform,
		lastUp:    cfg.LastUp,
		openPage:  cfg.OpenPage,
		retriever: cfg.Retriever,
		timings:   cfg.Timings,
		sleep:     cfg.Sleep,
		logger:    cfg.Logger,
	}, nil
}

// Request represents the settings screenshot request parameters.
type Request struct {
	// SandboxID is the `up` sandbox, when empty the last `up` sandbox is used.
	SandboxID string
	// WebURL overrides the web preview URL and skips the sandbox lookup.
	WebURL      string
	Credentials model.Credentials
}

// Result is the outcome of a settings screenshot.
type Result struct {
	WebOrigin string
	SignIn    *signin.Result
	Artifact  *model.Artifact
}

// Run signs in on the web preview, opens the settings page and stores its screenshot.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Credentials.Validate(); err != nil {
		return nil, err
	}

	webURL := strings.TrimRight(strings.TrimSpace(req.WebURL), "/")
	if webURL == "" {
		u, err := s.resolveWebURL(ctx, req.SandboxID)
		if err != nil {
			return nil, err
		}
		webURL = u
	}
	origin, err := env.Origin(webURL)
	if err != nil {
		return nil, fmt.Errorf("invalid web url: %s: %w", err, model.ErrNotValid)
	}
	s.logger.Infof("Using web origin: %s", origin)

	page, err := s.openPage(ctx, origin+conventions.SignInPath)
	if err != nil {
		return nil, fmt.Errorf("could not open browser page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warningf("Could not close page: %s", err)
		}
	}()

	machine, err := signin.NewMachine(signin.MachineConfig{
		Page:        page,
		Credentials: req.Credentials,
		Timings:     s.timings,
		Sleep:       s.sleep,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create sign-in machine: %w", err)
	}
	signed, err := machine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	settingsURL := origin + conventions.SettingsPath
	if err := page.Goto(ctx, settingsURL); err != nil {
		return nil, err
	}
	if err := page.WaitHeading(ctx, SettingsHeading); err != nil {
		return nil, fmt.Errorf("settings page did not render: %w", err)
	}

	data, err := page.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.retriever.Save(artifact.Request{
		Kind:       model.ArtifactKindScreenshot,
		RemotePath: settingsURL,
		Prefix:     conventions.PrefixSettings,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("could not save screenshot: %w", err)
	}

	return &Result{WebOrigin: origin, SignIn: signed, Artifact: a}, nil
}

// resolveWebURL returns the frontend preview URL of an `up` sandbox.
func (s *Service) resolveWebURL(ctx context.Context, sandboxID string) (string, error) {
	if s.platform == nil || s.lastUp == nil {
		return "", fmt.Errorf("a web url is required without a sandbox platform: %w", model.ErrNotValid)
	}

	id := strings.TrimSpace(sandboxID)
	if id == "" {
		saved, err := s.lastUp.Get()
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return "", fmt.Errorf("no sandbox id or web url provided and no saved id file at %s: %w", s.lastUp.Path(), model.ErrNotFound)
			}
			return "", err
		}
		id = saved
	}

	sb, err := s.platform.Lookup(ctx, id)
	if err != nil {
		return "", fmt.Errorf("could not get sandbox %s: %w", id, err)
	}
	tunnels, err := sb.Tunnels(ctx)
	if err != nil {
		return "", fmt.Errorf("could not get sandbox tunnels: %w", err)
	}
	for _, t := range tunnels {
		if t.Port == conventions.FrontendPort {
			return strings.TrimRight(t.URL, "/"), nil
		}
	}

	return "", fmt.Errorf("sandbox %s has no tunnel for port %d: %w", id, conventions.FrontendPort, model.ErrNotFound)
}
