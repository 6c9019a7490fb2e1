package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/run"
	"github.com/slok/sbxsmoke/internal/model"
)

type VideoCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	inputs      *appInputFlags
	artifactDir string
}

// NewVideoCommand returns the video command.
func NewVideoCommand(rootCmd *RootCommand, app *kingpin.Application) *VideoCommand {
	c := &VideoCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("video", "Boot the app in a sandbox and record a browser session video.")
	c.inputs = registerAppInputFlags(c.Cmd)
	c.Cmd.Flag("artifact-dir", "Local directory of the artifacts.").Short('o').StringVar(&c.artifactDir)

	return c
}

func (c VideoCommand) Name() string { return c.Cmd.FullCommand() }

func (c VideoCommand) Run(ctx context.Context) error {
	inputs, paths, err := c.inputs.load(ctx)
	if err != nil {
		return err
	}
	c.rootCmd.Logger.Infof("Using API sandbox env: %s", paths.APIEnv)
	c.rootCmd.Logger.Infof("Using web sandbox env: %s", paths.WebEnv)
	c.rootCmd.Logger.Infof("Using run config: %s", paths.RunConfig)

	return runFlow(ctx, c.rootCmd, c.artifactDir, run.Request{
		Flow:    model.FlowVideo,
		RepoURL: c.inputs.repoURL,
		Inputs:  inputs,
	})
}
