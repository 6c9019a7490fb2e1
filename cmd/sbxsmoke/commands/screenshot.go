package commands

import (
	"context"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/app/run"
	"github.com/slok/sbxsmoke/internal/choreography"
	"github.com/slok/sbxsmoke/internal/model"
)

type ScreenshotCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	inputs       *appInputFlags
	credentials  *credentialFlags
	artifactDir  string
	signInPolicy string
}

// NewScreenshotCommand returns the screenshot command.
func NewScreenshotCommand(rootCmd *RootCommand, app *kingpin.Application) *ScreenshotCommand {
	c := &ScreenshotCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("screenshot", "Boot the app in a sandbox, sign in and take a full page screenshot of the home page.")
	c.inputs = registerAppInputFlags(c.Cmd)
	c.credentials = registerCredentialFlags(c.Cmd)
	c.Cmd.Flag("artifact-dir", "Local directory of the artifacts.").Short('o').StringVar(&c.artifactDir)
	c.Cmd.Flag("sign-in-policy", "How a failed sign-in script affects the flow (strict, url-only).").
		Default(string(choreography.SignInPolicyStrict)).
		EnumVar(&c.signInPolicy, string(choreography.SignInPolicyStrict), string(choreography.SignInPolicyURLOnly))

	return c
}

func (c ScreenshotCommand) Name() string { return c.Cmd.FullCommand() }

func (c ScreenshotCommand) Run(ctx context.Context) error {
	// Credentials are checked before anything is read or provisioned.
	creds := model.NewCredentials(c.credentials.email, c.credentials.code)
	if err := creds.Validate(); err != nil {
		return err
	}

	inputs, _, err := c.inputs.load(ctx)
	if err != nil {
		return err
	}

	return runFlow(ctx, c.rootCmd, c.artifactDir, run.Request{
		Flow:         model.FlowScreenshot,
		RepoURL:      c.inputs.repoURL,
		Inputs:       inputs,
		Credentials:  creds,
		SignInPolicy: choreography.SignInPolicy(c.signInPolicy),
	})
}
