package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/sandbox/docker"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
	"github.com/slok/sbxsmoke/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	defaultAppName   = "rlx-video-smoke"
	defaultImageBase = "node:20-bookworm"
	defaultRepoURL   = "https://github.com/13point5/rlx.git"
	defaultLocalDir  = "../rlx"
	defaultSmokeURL  = "https://example.com"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	DBPath     string
	AppName    string
	ImageBase  string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory of the run history and the last up sandbox.").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite database file (default: <data-dir>/"+conventions.DBFile+").").StringVar(&c.DBPath)
	app.Flag("app-name", "Name grouping the created sandboxes.").Default(envOr(defaultAppName, "MODAL_APP_NAME")).StringVar(&c.AppName)
	app.Flag("image", "Base image of the sandboxes.").Envar("SBXSMOKE_IMAGE").Default(envOr(defaultImageBase, "MODAL_BASE_IMAGE")).StringVar(&c.ImageBase)

	return c
}

func (c *RootCommand) dbPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return conventions.DBPath(c.DataDir)
}

// repositories opens the run history, close the returned repository when done.
func (c *RootCommand) repositories(ctx context.Context) (*sqlite.Repository, *sqlite.TaskRepository, error) {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.dbPath(),
		Logger: c.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	taskRepo, err := sqlite.NewTaskRepository(sqlite.TaskRepositoryConfig{
		DB:     repo.DB(),
		Logger: c.Logger,
	})
	if err != nil {
		repo.Close()
		return nil, nil, fmt.Errorf("could not create task repository: %w", err)
	}

	return repo, taskRepo, nil
}

func (c *RootCommand) lastUp() (*storageio.LastUpRepository, error) {
	return storageio.NewLastUpRepository(conventions.LastUpPath(c.DataDir))
}

func (c *RootCommand) platform() (*docker.Platform, error) {
	p, err := docker.NewPlatform(docker.PlatformConfig{Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create sandbox platform: %w", err)
	}
	return p, nil
}

// appInputFlags are the flags locating the app under test and its local inputs.
type appInputFlags struct {
	repoURL       string
	localDir      string
	apiEnvPath    string
	webEnvPath    string
	runConfigPath string
}

func registerAppInputFlags(cmd *kingpin.CmdClause) *appInputFlags {
	f := &appInputFlags{}
	cmd.Flag("repo-url", "Repository of the app under test.").Envar("SBXSMOKE_REPO_URL").Default(envOr(defaultRepoURL, "RLX_REPO_URL")).StringVar(&f.repoURL)
	cmd.Flag("local-dir", "Local checkout of the app, used to locate the default input files.").Envar("SBXSMOKE_LOCAL_DIR").Default(defaultLocalDir).StringVar(&f.localDir)
	cmd.Flag("api-env", "Backend env file (default: <local-dir>/apps/api/"+conventions.SandboxEnvFile+").").Envar("SBXSMOKE_API_ENV_PATH").StringVar(&f.apiEnvPath)
	cmd.Flag("web-env", "Frontend env file (default: <local-dir>/apps/web/"+conventions.SandboxEnvFile+").").Envar("SBXSMOKE_WEB_ENV_PATH").StringVar(&f.webEnvPath)
	cmd.Flag("run-config", "Run configuration file (default: <local-dir>/"+conventions.RunConfigFile+").").Envar("SBXSMOKE_RUN_CONFIG_PATH").StringVar(&f.runConfigPath)
	return f
}

// paths returns the absolute input paths, explicit paths win over the local dir defaults.
func (f appInputFlags) paths() (storageio.InputPaths, error) {
	paths := storageio.InputPaths{
		APIEnv:    orDefault(f.apiEnvPath, conventions.LocalAppEnvPath(f.localDir, "api")),
		WebEnv:    orDefault(f.webEnvPath, conventions.LocalAppEnvPath(f.localDir, "web")),
		RunConfig: orDefault(f.runConfigPath, conventions.LocalRunConfigPath(f.localDir)),
	}

	for _, p := range []*string{&paths.APIEnv, &paths.WebEnv, &paths.RunConfig} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return storageio.InputPaths{}, fmt.Errorf("invalid path %q: %w", *p, err)
		}
		*p = abs
	}

	return paths, nil
}

// load reads and validates the inputs. Paths are resolved against the root filesystem.
func (f appInputFlags) load(ctx context.Context) (*storageio.Inputs, storageio.InputPaths, error) {
	paths, err := f.paths()
	if err != nil {
		return nil, paths, err
	}

	repo := storageio.NewInputsRepository(os.DirFS("/"))
	inputs, err := repo.GetInputs(ctx, rootFSPaths(paths))
	if err != nil {
		return nil, paths, fmt.Errorf("could not load app inputs: %w", err)
	}

	return inputs, paths, nil
}

// rootFSPaths converts absolute paths into paths of the root filesystem.
func rootFSPaths(p storageio.InputPaths) storageio.InputPaths {
	return storageio.InputPaths{
		APIEnv:    rootFSPath(p.APIEnv),
		WebEnv:    rootFSPath(p.WebEnv),
		RunConfig: rootFSPath(p.RunConfig),
	}
}

func rootFSPath(abs string) string {
	return strings.TrimPrefix(filepath.ToSlash(abs), "/")
}

// credentialFlags are the test account used to sign in.
type credentialFlags struct {
	email string
	code  string
}

func registerCredentialFlags(cmd *kingpin.CmdClause) *credentialFlags {
	f := &credentialFlags{}
	cmd.Flag("test-email", "Email of the test account.").Envar("SBXSMOKE_TEST_EMAIL").Default(os.Getenv("CLERK_TEST_EMAIL")).StringVar(&f.email)
	cmd.Flag("test-code", "Verification code of the test account.").Envar("SBXSMOKE_TEST_CODE").StringVar(&f.code)
	return f
}

// envOr returns the first non empty environment variable, or the fallback.
func envOr(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return fallback
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
