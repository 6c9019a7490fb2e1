package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/signin"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
	"github.com/slok/sbxsmoke/internal/utils/env"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	inputs      *appInputFlags
	credentials *credentialFlags
	skipDocker  bool
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the sandbox platform and the app inputs.")
	c.inputs = registerAppInputFlags(c.Cmd)
	c.credentials = registerCredentialFlags(c.Cmd)
	c.Cmd.Flag("skip-docker", "Don't check the Docker sandbox platform.").BoolVar(&c.skipDocker)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	out := c.rootCmd.Stdout

	var allResults []checkGroupResults

	// Check sandbox platform.
	if !c.skipDocker {
		platform, err := c.rootCmd.platform()
		if err != nil {
			allResults = append(allResults, checkGroupResults{
				name:    "docker platform",
				results: []model.CheckResult{{ID: "docker_client", Message: err.Error(), Status: model.CheckStatusError}},
			})
		} else {
			allResults = append(allResults, checkGroupResults{name: "docker platform", results: platform.Check(ctx)})
		}
	}

	// Check app inputs.
	paths, err := c.inputs.paths()
	if err != nil {
		return err
	}
	allResults = append(allResults, checkGroupResults{name: "app inputs", results: checkInputs(ctx, paths)})

	// Check sign-in.
	creds := model.NewCredentials(c.credentials.email, c.credentials.code)
	allResults = append(allResults, checkGroupResults{name: "sign-in", results: checkSignIn(creds)})

	// Print results
	totalErrors := 0
	totalWarnings := 0

	for _, gr := range allResults {
		fmt.Fprintf(out, "\nChecking %s...\n", gr.name)
		for _, r := range gr.results {
			icon := getStatusIcon(r.Status)
			fmt.Fprintf(out, "  %s %-20s %s\n", icon, r.ID, r.Message)
		}
		_, warnings, errors := model.CountByStatus(gr.results)
		totalErrors += errors
		totalWarnings += warnings
	}

	// Summary
	fmt.Fprintln(out)
	if totalErrors == 0 && totalWarnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if totalErrors > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", totalErrors))
		}
		if totalWarnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", totalWarnings))
		}
		fmt.Fprintf(out, "%s\n", strings.Join(summary, ", "))
	}

	// Return error if there are any errors
	if totalErrors > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", totalErrors)
	}

	return nil
}

type checkGroupResults struct {
	name    string
	results []model.CheckResult
}

// checkInputs checks the env files are readable and the run configuration is valid. Env files
// that don't parse as dotenv only warn, bash may still source them.
func checkInputs(ctx context.Context, paths storageio.InputPaths) []model.CheckResult {
	results := []model.CheckResult{}

	for _, f := range []struct{ id, path string }{
		{id: "api_env", path: paths.APIEnv},
		{id: "web_env", path: paths.WebEnv},
	} {
		data, err := os.ReadFile(f.path)
		if err != nil {
			results = append(results, model.CheckResult{ID: f.id, Message: fmt.Sprintf("Could not read %s: %s", f.path, err), Status: model.CheckStatusError})
			continue
		}
		vars, err := env.Parse(string(data))
		if err != nil {
			results = append(results, model.CheckResult{ID: f.id, Message: fmt.Sprintf("%s: %s, uploaded as is", f.path, err), Status: model.CheckStatusWarning})
			continue
		}
		results = append(results, model.CheckResult{ID: f.id, Message: fmt.Sprintf("%s (%d vars)", f.path, len(vars)), Status: model.CheckStatusOK})
	}

	repo := storageio.NewInputsRepository(os.DirFS("/"))
	cfg, err := repo.GetRunConfig(ctx, rootFSPath(paths.RunConfig))
	if err != nil {
		results = append(results, model.CheckResult{ID: "run_config", Message: fmt.Sprintf("%s: %s", paths.RunConfig, err), Status: model.CheckStatusError})
	} else {
		results = append(results, model.CheckResult{
			ID:      "run_config",
			Message: fmt.Sprintf("%s (open %s, record %dms, scroll %dpx)", paths.RunConfig, cfg.OpenURL, cfg.RecordWaitMs, cfg.ScrollPx),
			Status:  model.CheckStatusOK,
		})
	}

	return results
}

// checkSignIn checks the credentials and the generated in-page sign-in program.
func checkSignIn(creds model.Credentials) []model.CheckResult {
	results := []model.CheckResult{}

	if err := creds.Validate(); err != nil {
		results = append(results, model.CheckResult{ID: "test_email", Message: "Missing test email, only needed by the screenshot flow", Status: model.CheckStatusWarning})
		// The program is still checked with a placeholder account.
		creds = model.NewCredentials("doctor@example.com", creds.Code)
	} else {
		results = append(results, model.CheckResult{ID: "test_email", Message: creds.Email, Status: model.CheckStatusOK})
	}

	program, err := signin.Script(creds, signin.DefaultTimings)
	if err == nil {
		err = signin.CheckScript(program)
	}
	if err != nil {
		results = append(results, model.CheckResult{ID: "signin_script", Message: err.Error(), Status: model.CheckStatusError})
	} else {
		results = append(results, model.CheckResult{ID: "signin_script", Message: fmt.Sprintf("Generated program is valid (%d bytes)", len(program)), Status: model.CheckStatusOK})
	}

	return results
}

func getStatusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}
