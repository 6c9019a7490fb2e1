package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/run"
	"github.com/slok/sbxsmoke/internal/model"
)

type SmokeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	url         string
	artifactDir string
}

// NewSmokeCommand returns the smoke command.
func NewSmokeCommand(rootCmd *RootCommand, app *kingpin.Application) *SmokeCommand {
	c := &SmokeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("smoke", "Record a browser session against a public URL in a bare sandbox.")
	c.Cmd.Arg("url", "URL to record.").Default(defaultSmokeURL).StringVar(&c.url)
	c.Cmd.Flag("artifact-dir", "Local directory of the artifacts.").Short('o').StringVar(&c.artifactDir)

	return c
}

func (c SmokeCommand) Name() string { return c.Cmd.FullCommand() }

func (c SmokeCommand) Run(ctx context.Context) error {
	return runFlow(ctx, c.rootCmd, c.artifactDir, run.Request{
		Flow: model.FlowSmoke,
		URL:  c.url,
	})
}
