package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/signin"
	"github.com/slok/sbxsmoke/internal/signin/rodpage"
)

type SignInCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	credentials *credentialFlags
	cdpURL      string
	url         string
}

// NewSignInCommand returns the sign-in command.
func NewSignInCommand(rootCmd *RootCommand, app *kingpin.Application) *SignInCommand {
	c := &SignInCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("sign-in", "Sign in with the test account on a browser reachable over its debug endpoint.")
	c.credentials = registerCredentialFlags(c.Cmd)
	c.Cmd.Flag("cdp-url", "Browser debug endpoint.").Default("http://127.0.0.1:9222").StringVar(&c.cdpURL)
	c.Cmd.Flag("url", "Sign-in page opened in a new tab, when empty the current tab is used.").StringVar(&c.url)

	return c
}

func (c SignInCommand) Name() string { return c.Cmd.FullCommand() }

func (c SignInCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	creds := model.NewCredentials(c.credentials.email, c.credentials.code)
	if err := creds.Validate(); err != nil {
		return err
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

	page, err := rodpage.Connect(ctx, rodpage.Config{
		CDPURL: c.cdpURL,
		URL:    c.url,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warningf("Could not close page: %s", err)
		}
	}()

	machine, err := signin.NewMachine(signin.MachineConfig{
		Page:        page,
		Credentials: creds,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create sign-in machine: %w", err)
	}

	res, err := machine.Run(ctx)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Signed in, current URL: %s\n", res.URL)
	return nil
}
