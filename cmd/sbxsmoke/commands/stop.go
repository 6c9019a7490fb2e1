package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/stop"
)

type StopCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	sandboxID string
}

// NewStopCommand returns the stop command.
func NewStopCommand(rootCmd *RootCommand, app *kingpin.Application) *StopCommand {
	c := &StopCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("stop", "Terminate a sandbox left running by up.")
	c.Cmd.Arg("sandbox-id", "Sandbox ID to stop (default: the last up sandbox).").StringVar(&c.sandboxID)

	return c
}

func (c StopCommand) Name() string { return c.Cmd.FullCommand() }

func (c StopCommand) Run(ctx context.Context) error {
	platform, err := c.rootCmd.platform()
	if err != nil {
		return err
	}

	repo, _, err := c.rootCmd.repositories(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	lastUp, err := c.rootCmd.lastUp()
	if err != nil {
		return err
	}

	svc, err := stop.NewService(stop.ServiceConfig{
		Platform:      platform,
		RunRepository: repo,
		LastUp:        lastUp,
		Logger:        c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, stop.Request{SandboxID: c.sandboxID})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Terminated sandbox: %s\n", res.SandboxID)
	return nil
}
