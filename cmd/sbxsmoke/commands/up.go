package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/up"
	"github.com/slok/sbxsmoke/internal/utils/env"
)

type UpCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	inputs  *appInputFlags
	apiEnvs []string
	webEnvs []string
}

// NewUpCommand returns the up command.
func NewUpCommand(rootCmd *RootCommand, app *kingpin.Application) *UpCommand {
	c := &UpCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("up", "Boot the app in a sandbox and leave it running with preview URLs.")
	c.inputs = registerAppInputFlags(c.Cmd)
	c.Cmd.Flag("api-env-var", "Extra backend env var (KEY=VALUE or KEY to inherit from host), repeatable.").StringsVar(&c.apiEnvs)
	c.Cmd.Flag("web-env-var", "Extra frontend env var (KEY=VALUE or KEY to inherit from host), repeatable.").StringsVar(&c.webEnvs)

	return c
}

func (c UpCommand) Name() string { return c.Cmd.FullCommand() }

func (c UpCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	extraAPI, err := env.ParseSpecs(c.apiEnvs)
	if err != nil {
		return fmt.Errorf("invalid api env var: %w", err)
	}
	extraWeb, err := env.ParseSpecs(c.webEnvs)
	if err != nil {
		return fmt.Errorf("invalid web env var: %w", err)
	}

	inputs, paths, err := c.inputs.load(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.rootCmd.Stdout, "Using API sandbox env: %s\n", paths.APIEnv)
	fmt.Fprintf(c.rootCmd.Stdout, "Using web sandbox env: %s\n", paths.WebEnv)

	platform, err := c.rootCmd.platform()
	if err != nil {
		return err
	}

	repo, taskRepo, err := c.rootCmd.repositories(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	lastUp, err := c.rootCmd.lastUp()
	if err != nil {
		return err
	}

	svc, err := up.NewService(up.ServiceConfig{
		Platform:       platform,
		RunRepository:  repo,
		TaskRepository: taskRepo,
		LastUp:         lastUp,
		Out:            c.rootCmd.Stdout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	_, err = svc.Run(ctx, up.Request{
		AppName:     c.rootCmd.AppName,
		ImageBase:   c.rootCmd.ImageBase,
		RepoURL:     c.inputs.repoURL,
		Inputs:      inputs,
		ExtraAPIEnv: extraAPI,
		ExtraWebEnv: extraWeb,
	})
	return err
}
