package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/settingsshot"
	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/signin/rodpage"
)

type SettingsScreenshotCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	credentials *credentialFlags
	sandboxID   string
	webURL      string
	cdpURL      string
	artifactDir string
}

// NewSettingsScreenshotCommand returns the settings screenshot command.
func NewSettingsScreenshotCommand(rootCmd *RootCommand, app *kingpin.Application) *SettingsScreenshotCommand {
	c := &SettingsScreenshotCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("settings-screenshot", "Sign in on an up sandbox web preview and take a screenshot of the settings page.")
	c.credentials = registerCredentialFlags(c.Cmd)
	c.Cmd.Flag("sandbox-id", "Sandbox ID (default: the last up sandbox).").StringVar(&c.sandboxID)
	c.Cmd.Flag("web-url", "Web preview URL, skips the sandbox lookup.").StringVar(&c.webURL)
	c.Cmd.Flag("cdp-url", "Browser debug endpoint.").Default("http://127.0.0.1:9222").StringVar(&c.cdpURL)
	c.Cmd.Flag("artifact-dir", "Local directory of the artifacts.").Short('o').StringVar(&c.artifactDir)

	return c
}

func (c SettingsScreenshotCommand) Name() string { return c.Cmd.FullCommand() }

func (c SettingsScreenshotCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	creds := model.NewCredentials(c.credentials.email, c.credentials.code)
	if err := creds.Validate(); err != nil {
		return err
	}

	cfg := settingsshot.ServiceConfig{
		ArtifactDir: orDefault(c.artifactDir, conventions.DefaultArtifactDir),
		Logger:      logger,
		OpenPage: func(ctx context.Context, url string) (settingsshot.Page, error) {
			return rodpage.Connect(ctx, rodpage.Config{CDPURL: c.cdpURL, URL: url, Logger: logger})
		},
	}
	if strings.TrimSpace(c.webURL) == "" {
		platform, err := c.rootCmd.platform()
		if err != nil {
			return err
		}
		lastUp, err := c.rootCmd.lastUp()
		if err != nil {
			return err
		}
		cfg.Platform = platform
		cfg.LastUp = lastUp
	}

	// Wait for the browser debug endpoint.
	poller, err := readiness.NewPoller(readiness.PollerConfig{
		Policy: readiness.DebugEndpointPolicy,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	versionURL := strings.TrimRight(c.cdpURL, "/") + "/json/version"
	check := readiness.HTTPCheck(readiness.NewHTTPClient(5*time.Second), versionURL)
	if err := poller.Require(ctx, "browser debug endpoint", check); err != nil {
		return err
	}

	svc, err := settingsshot.NewService(cfg)
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, settingsshot.Request{
		SandboxID:   c.sandboxID,
		WebURL:      c.webURL,
		Credentials: creds,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Using web origin: %s\n", res.WebOrigin)
	fmt.Fprintf(c.rootCmd.Stdout, "Saved screenshot: %s (%d bytes)\n", res.Artifact.LocalPath, res.Artifact.Bytes)
	return nil
}
