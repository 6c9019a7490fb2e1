package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/list"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/printer"
)

type RunsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	flowFilter   string
	statusFilter string
	limit        int
	format       string
}

// NewRunsCommand returns the runs command.
func NewRunsCommand(rootCmd *RootCommand, app *kingpin.Application) *RunsCommand {
	c := &RunsCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("runs", "List the run history.")
	c.Cmd.Flag("flow", "Filter by flow (video, screenshot, smoke, up).").StringVar(&c.flowFilter)
	c.Cmd.Flag("status", "Filter by status (running, succeeded, failed, stopped).").StringVar(&c.statusFilter)
	c.Cmd.Flag("limit", "Maximum number of runs, 0 means all.").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c RunsCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunsCommand) Run(ctx context.Context) error {
	req := list.Request{Limit: c.limit}

	if c.flowFilter != "" {
		flow, err := model.ParseFlow(strings.ToLower(c.flowFilter))
		if err != nil {
			return fmt.Errorf("invalid flow filter: %w", err)
		}
		req.FlowFilter = &flow
	}

	if c.statusFilter != "" {
		status := model.RunStatus(strings.ToLower(c.statusFilter))
		switch status {
		case model.RunStatusRunning, model.RunStatusSucceeded, model.RunStatusFailed, model.RunStatusStopped:
			req.StatusFilter = &status
		default:
			return fmt.Errorf("invalid status filter: %s (must be: running, succeeded, failed, stopped)", c.statusFilter)
		}
	}

	repo, _, err := c.rootCmd.repositories(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := list.NewService(list.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd).PrintRuns(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}

func newPrinter(format string, root *RootCommand) printer.Printer {
	switch format {
	case "json":
		return printer.NewJSONPrinter(root.Stdout)
	default: // table
		return printer.NewTablePrinter(root.Stdout)
	}
}
