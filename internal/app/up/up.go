package up

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/sbxsmoke/internal/choreography"
	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/image"
	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/provision"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/remote"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/storage"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
	"github.com/slok/sbxsmoke/internal/utils/env"
)

const (
	SandboxTimeout     = 90 * time.Minute
	SandboxIdleTimeout = 10 * time.Minute

	CloneTimeout   = 300 * time.Second
	SetupTimeout   = 1800 * time.Second
	StartTimeout   = 120 * time.Second
	LogTailTimeout = 60 * time.Second

	// TerminateTimeout bounds the teardown of a failed up.
	TerminateTimeout = 2 * time.Minute

	// localFrontendOrigin is kept as an allowed CORS origin next to the preview one.
	localFrontendOrigin = "http://localhost:3000"
)

// Tasks are the ordered phases of an up run.
var Tasks = []string{
	model.TaskBuildImage,
	model.TaskCreateSandbox,
	model.TaskBootstrap,
	model.TaskUpload,
	model.TaskSetup,
	model.TaskStartApp,
}

// ServiceConfig is the configuration for the up service.
type ServiceConfig struct {
	Platform       sandbox.Platform
	RunRepository  storage.RunRepository
	TaskRepository storage.TaskRepository
	LastUp         *storageio.LastUpRepository
	// Out receives the phase progress and the sandbox command outputs, by default stdout.
	Out    io.Writer
	Sleep  readiness.SleepFunc
	Now    func() time.Time
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Platform == nil {
		return fmt.Errorf("platform is required")
	}

	if c.RunRepository == nil {
		return fmt.Errorf("run repository is required")
	}

	if c.LastUp == nil {
		return fmt.Errorf("last up repository is required")
	}

	if c.Out == nil {
		c.Out = os.Stdout
	}

	if c.Sleep == nil {
		c.Sleep = readiness.Sleep
	}

	if c.Now == nil {
		c.Now = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Up"})

	return nil
}

// Service boots the app in a sandbox and leaves it running with its ports exposed.
type Service struct {
	platform sandbox.Platform
	runRepo  storage.RunRepository
	taskRepo storage.TaskRepository
	lastUp   *storageio.LastUpRepository
	builder  *image.RetryBuilder
	out      io.Writer
	now      func() time.Time
	logger   log.Logger
}

// NewService creates a new up service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	builder, err := image.NewRetryBuilder(image.RetryBuilderConfig{
		Builder: cfg.Platform,
		Sleep:   cfg.Sleep,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create image builder: %w", err)
	}

	return &Service{
		platform: cfg.Platform,
		runRepo:  cfg.RunRepository,
		taskRepo: cfg.TaskRepository,
		lastUp:   cfg.LastUp,
		builder:  builder,
		out:      cfg.Out,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the up request parameters.
type Request struct {
	AppName   string
	ImageBase string
	RepoURL   string
	Inputs    *storageio.Inputs
	// ExtraAPIEnv and ExtraWebEnv are upserted in the env files after the preview overrides.
	ExtraAPIEnv map[string]string
	ExtraWebEnv map[string]string
}

func (r *Request) defaults() error {
	if r.ImageBase == "" {
		return fmt.Errorf("image base is required: %w", model.ErrNotValid)
	}
	if r.RepoURL == "" {
		return fmt.Errorf("repository URL is required: %w", model.ErrNotValid)
	}
	if r.Inputs == nil {
		return fmt.Errorf("app inputs are required: %w", model.ErrNotValid)
	}
	return r.Inputs.RunConfig.Validate()
}

// Result is the outcome of a successful up.
type Result struct {
	Run *model.Run
	// Tunnels are the preview URLs sorted by port.
	Tunnels []model.Tunnel
}

// Run boots the app. On success the sandbox is left running and its ID saved, on failure the
// app log tail is printed and the sandbox terminated.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.defaults(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	run := model.Run{
		ID:        ulid.Make().String(),
		Flow:      model.FlowUp,
		Status:    model.RunStatusRunning,
		CreatedAt: s.now().UTC(),
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}
	if s.taskRepo != nil {
		if err := s.taskRepo.AddTasks(ctx, run.ID, string(model.FlowUp), Tasks); err != nil {
			return nil, fmt.Errorf("could not create run tasks: %w", err)
		}
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID})
	ctx = logger.SetValuesOnCtx(ctx, log.Kv{"run-id": run.ID})

	tunnels, sandboxID, runErr := s.execute(ctx, logger, run.ID, req)
	run.SandboxID = sandboxID

	// A successful up keeps the run open until the sandbox is stopped.
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
		finishedAt := s.now().UTC()
		run.FinishedAt = &finishedAt
	}
	if err := s.runRepo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Errorf("Could not record run result: %s", err)
	}

	if runErr != nil {
		return nil, runErr
	}

	return &Result{Run: &run, Tunnels: tunnels}, nil
}

func (s *Service) execute(ctx context.Context, logger log.Logger, runID string, req Request) (tunnels []model.Tunnel, sandboxID string, err error) {
	operation := string(model.FlowUp)

	var img *model.Image
	err = s.executeTask(ctx, runID, operation, model.TaskBuildImage, func() error {
		logger.Infof("Building/reusing app image...")
		built, err := s.builder.BuildImage(ctx, image.AppSpec(req.ImageBase))
		if err != nil {
			return fmt.Errorf("could not build image: %w", err)
		}
		img = built
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	var sb sandbox.Sandbox
	err = s.executeTask(ctx, runID, operation, model.TaskCreateSandbox, func() error {
		created, err := s.platform.Create(ctx, *img, model.SandboxOptions{
			AppName:     req.AppName,
			Timeout:     SandboxTimeout,
			IdleTimeout: SandboxIdleTimeout,
			Ports:       []int{conventions.FrontendPort, conventions.BackendPort},
		})
		if err != nil {
			return fmt.Errorf("could not create sandbox: %w", err)
		}
		sb = created
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	sandboxID = sb.ID()
	fmt.Fprintf(s.out, "Sandbox id: %s\n", sandboxID)

	exec, err := remote.NewExecutor(remote.ExecutorConfig{Sandbox: sb, Out: s.out, Logger: logger})
	if err != nil {
		return nil, sandboxID, err
	}

	tunnels, err = s.boot(ctx, logger, runID, exec, sb, req)
	if err != nil {
		remote.NonFatal(logger, "app log tail", func() error {
			_, err := exec.Run(context.WithoutCancel(ctx), choreography.AppLogTail().String(), LogTailTimeout)
			return err
		})

		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), TerminateTimeout)
		defer cancel()
		if terr := sb.Terminate(tctx); terr != nil {
			logger.Errorf("Could not terminate sandbox %s: %s", sandboxID, terr)
		} else {
			fmt.Fprintln(s.out, "Sandbox terminated due to failure.")
		}
		return nil, sandboxID, err
	}

	fmt.Fprintln(s.out, "\nPreview URLs:")
	for _, t := range tunnels {
		fmt.Fprintf(s.out, "- %d: %s\n", t.Port, t.URL)
	}

	if err := s.lastUp.Save(sandboxID); err != nil {
		logger.Warningf("Could not save sandbox id: %s", err)
	} else {
		fmt.Fprintf(s.out, "\nSaved sandbox id to %s\n", s.lastUp.Path())
	}
	fmt.Fprintln(s.out, "Sandbox left running. Stop it with: sbxsmoke stop")

	return tunnels, sandboxID, nil
}

func (s *Service) boot(ctx context.Context, logger log.Logger, runID string, exec *remote.Executor, sb sandbox.Sandbox, req Request) ([]model.Tunnel, error) {
	operation := string(model.FlowUp)

	tunnels, err := sb.Tunnels(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get sandbox tunnels: %w", err)
	}
	sort.Slice(tunnels, func(i, j int) bool { return tunnels[i].Port < tunnels[j].Port })

	apiEnv, webEnv, err := s.envFiles(tunnels, req)
	if err != nil {
		return nil, err
	}

	err = s.executeTask(ctx, runID, operation, model.TaskBootstrap, func() error {
		return s.phase(ctx, "clone", CloneTimeout, exec, choreography.Bootstrap(req.RepoURL).String())
	})
	if err != nil {
		return nil, err
	}

	err = s.executeTask(ctx, runID, operation, model.TaskUpload, func() error {
		files := [][2]string{
			{conventions.AppEnvPath("api"), apiEnv},
			{conventions.AppEnvPath("web"), webEnv},
		}
		ps := []provision.Provisioner{}
		for _, f := range files {
			p, err := provision.NewWriteText(provision.WriteTextConfig{Accessor: exec, Content: f[1], DstRemote: f[0], Logger: logger})
			if err != nil {
				return err
			}
			ps = append(ps, provision.NewLogProvisioner(f[0], logger, p))
		}
		return provision.NewProvisionerChain(ps...).Provision(ctx)
	})
	if err != nil {
		return nil, err
	}

	err = s.executeTask(ctx, runID, operation, model.TaskSetup, func() error {
		return s.phase(ctx, "setup", SetupTimeout, exec, choreography.UpSetupScript(req.Inputs.RunConfig).String())
	})
	if err != nil {
		return nil, err
	}

	err = s.executeTask(ctx, runID, operation, model.TaskStartApp, func() error {
		return s.phase(ctx, "run", StartTimeout, exec, choreography.UpRunScript(req.Inputs.RunConfig).String())
	})
	if err != nil {
		return nil, err
	}

	return tunnels, nil
}

// envFiles returns the env files pointed to the preview URLs when both are known.
func (s *Service) envFiles(tunnels []model.Tunnel, req Request) (apiEnv, webEnv string, err error) {
	apiEnv, webEnv = req.Inputs.APIEnv, req.Inputs.WebEnv

	urls := map[int]string{}
	for _, t := range tunnels {
		urls[t.Port] = t.URL
	}

	overrides, ok, err := env.NewPreviewOverrides(urls[conventions.BackendPort], urls[conventions.FrontendPort], localFrontendOrigin)
	if err != nil {
		return "", "", fmt.Errorf("invalid preview url: %w", err)
	}
	if ok {
		fmt.Fprintf(s.out, "Derived web preview URL: %s\n", urls[conventions.FrontendPort])
		fmt.Fprintf(s.out, "Derived api preview URL: %s\n", urls[conventions.BackendPort])
		apiEnv = env.Upsert(apiEnv, env.MergeMaps(overrides.API, req.ExtraAPIEnv))
		webEnv = env.Upsert(webEnv, env.MergeMaps(overrides.Web, req.ExtraWebEnv))
		return apiEnv, webEnv, nil
	}

	fmt.Fprintln(s.out, "Warning: could not resolve both web/api preview URLs before startup; using env files as-is.")
	if len(req.ExtraAPIEnv) > 0 {
		apiEnv = env.Upsert(apiEnv, req.ExtraAPIEnv)
	}
	if len(req.ExtraWebEnv) > 0 {
		webEnv = env.Upsert(webEnv, req.ExtraWebEnv)
	}
	return apiEnv, webEnv, nil
}

// phase runs a timed script, a failed script reports the phase it failed in.
func (s *Service) phase(ctx context.Context, name string, timeout time.Duration, exec *remote.Executor, script string) error {
	sh, err := provision.NewShell(provision.ShellConfig{Accessor: exec, Script: script, Timeout: timeout})
	if err != nil {
		return err
	}

	err = provision.NewTimedProvisioner(name, timeout, s.out, sh).Provision(ctx)
	var cmdErr *model.CommandFailedError
	if errors.As(err, &cmdErr) {
		cmdErr.Phase = name
	}
	return err
}

// executeTask runs fn tracking it as the next pending task of the operation.
func (s *Service) executeTask(ctx context.Context, runID, operation, taskName string, fn func() error) error {
	if s.taskRepo == nil {
		return fn()
	}

	tsk, err := s.taskRepo.NextTask(ctx, runID, operation)
	if err != nil {
		return fmt.Errorf("failed to get next task: %w", err)
	}
	if tsk == nil {
		return fmt.Errorf("no pending task found for operation %s", operation)
	}
	if tsk.Name != taskName {
		return fmt.Errorf("expected task %s, got %s", taskName, tsk.Name)
	}

	if err := fn(); err != nil {
		if failErr := s.taskRepo.FailTask(context.WithoutCancel(ctx), tsk.ID, err); failErr != nil {
			s.logger.Errorf("Failed to mark task as failed: %v", failErr)
		}
		return err
	}

	if err := s.taskRepo.CompleteTask(ctx, tsk.ID); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	return nil
}
