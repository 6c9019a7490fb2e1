package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/sbxsmoke/internal/artifact"
	"github.com/slok/sbxsmoke/internal/choreography"
	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/image"
	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/provision"
	"github.com/slok/sbxsmoke/internal/readiness"
	"github.com/slok/sbxsmoke/internal/remote"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/signin"
	"github.com/slok/sbxsmoke/internal/storage"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
)

const (
	// DiagnosticsTimeout is the timeout of the diagnostics captured after a choreography failure.
	DiagnosticsTimeout = 5 * time.Minute
	// TerminateTimeout bounds the sandbox teardown, it runs even when the run context is cancelled.
	TerminateTimeout = 2 * time.Minute
)

// flowProfile are the fixed settings of each flow.
type flowProfile struct {
	imageSpec     func(base string) model.ImageSpec
	timeout       time.Duration
	idleTimeout   time.Duration
	scriptTimeout time.Duration
	needsApp      bool
	artifact      artifact.Request
}

var profiles = map[model.Flow]flowProfile{
	model.FlowVideo: {
		imageSpec:     image.AppSpec,
		timeout:       90 * time.Minute,
		idleTimeout:   10 * time.Minute,
		scriptTimeout: 90 * time.Minute,
		needsApp:      true,
		artifact: artifact.Request{
			Kind:       model.ArtifactKindVideo,
			RemotePath: conventions.VideoArtifactPath,
			Prefix:     conventions.PrefixVideo,
		},
	},
	model.FlowScreenshot: {
		imageSpec:     image.AppSpec,
		timeout:       90 * time.Minute,
		idleTimeout:   10 * time.Minute,
		scriptTimeout: 90 * time.Minute,
		needsApp:      true,
		artifact: artifact.Request{
			Kind:       model.ArtifactKindScreenshot,
			RemotePath: conventions.ScreenshotArtifactPath,
			Prefix:     conventions.PrefixScreenshot,
		},
	},
	model.FlowSmoke: {
		imageSpec:     image.BrowserSpec,
		timeout:       30 * time.Minute,
		idleTimeout:   5 * time.Minute,
		scriptTimeout: 30 * time.Minute,
		artifact: artifact.Request{
			Kind:       model.ArtifactKindVideo,
			RemotePath: conventions.SmokeArtifactPath,
			Prefix:     conventions.PrefixSmoke,
		},
	},
}

// Tasks returns the ordered phases a flow goes through.
func Tasks(flow model.Flow) []string {
	if !profiles[flow].needsApp {
		return []string{model.TaskBuildImage, model.TaskCreateSandbox, model.TaskChoreography, model.TaskRetrieveArtifact}
	}
	return []string{model.TaskBuildImage, model.TaskCreateSandbox, model.TaskBootstrap, model.TaskUpload, model.TaskChoreography, model.TaskRetrieveArtifact}
}

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Platform       sandbox.Platform
	RunRepository  storage.RunRepository
	TaskRepository storage.TaskRepository
	// ArtifactDir is the local directory where artifacts are stored.
	ArtifactDir string
	// Out receives the sandbox command outputs, by default stdout.
	Out io.Writer
	// Sleep is used by the image build backoff.
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

	if c.ArtifactDir == "" {
		c.ArtifactDir = conventions.DefaultArtifactDir
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})

	return nil
}

// Service runs the end to end flows: it provisions a sandbox, drives the browser inside it and
// retrieves the produced artifact.
type Service struct {
	platform  sandbox.Platform
	runRepo   storage.RunRepository
	taskRepo  storage.TaskRepository
	builder   *image.RetryBuilder
	retriever *artifact.Retriever
	out       io.Writer
	now       func() time.Time
	logger    log.Logger
}

// NewService creates a new run service.
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

	retriever, err := artifact.NewRetriever(artifact.RetrieverConfig{
		Dir:    cfg.ArtifactDir,
		Now:    cfg.Now,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create artifact retriever: %w", err)
	}

	return &Service{
		platform:  cfg.Platform,
		runRepo:   cfg.RunRepository,
		taskRepo:  cfg.TaskRepository,
		builder:   builder,
		retriever: retriever,
		out:       cfg.Out,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}, nil
}

// Request represents the run request parameters.
type Request struct {
	Flow model.Flow
	// AppName groups the created sandboxes.
	AppName string
	// ImageBase is the base image of the sandbox.
	ImageBase string
	// RepoURL is the application repository cloned in the sandbox, required by app flows.
	RepoURL string
	// Inputs are the app env files and run configuration, required by app flows.
	Inputs *storageio.Inputs
	// Credentials are used by the screenshot flow to sign in.
	Credentials model.Credentials
	// SignInPolicy decides if a sign-in script failure aborts the screenshot flow.
	SignInPolicy choreography.SignInPolicy
	// URL is the page recorded by the smoke flow.
	URL string
}

func (r *Request) defaults() error {
	profile, ok := profiles[r.Flow]
	if !ok {
		return fmt.Errorf("flow %q can't be run: %w", r.Flow, model.ErrNotValid)
	}

	if r.ImageBase == "" {
		return fmt.Errorf("image base is required: %w", model.ErrNotValid)
	}

	if profile.needsApp {
		if r.RepoURL == "" {
			return fmt.Errorf("repository URL is required: %w", model.ErrNotValid)
		}
		if r.Inputs == nil {
			return fmt.Errorf("app inputs are required: %w", model.ErrNotValid)
		}
		if err := r.Inputs.RunConfig.Validate(); err != nil {
			return err
		}
	}

	switch r.Flow {
	case model.FlowScreenshot:
		if r.SignInPolicy == "" {
			r.SignInPolicy = choreography.SignInPolicyStrict
		}
		if !r.SignInPolicy.Valid() {
			return fmt.Errorf("unknown sign-in policy %q: %w", r.SignInPolicy, model.ErrNotValid)
		}
		if err := r.Credentials.Validate(); err != nil {
			return err
		}
	case model.FlowSmoke:
		if r.URL == "" {
			return fmt.Errorf("url is required: %w", model.ErrNotValid)
		}
	}

	return nil
}

// Run executes the flow. The sandbox is terminated on every path once created, and the run is
// recorded with its final status.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	// Preconditions are checked before anything is provisioned.
	if err := req.defaults(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	script, err := s.script(req)
	if err != nil {
		return nil, err
	}
	profile := profiles[req.Flow]

	run := model.Run{
		ID:        ulid.Make().String(),
		Flow:      req.Flow,
		Status:    model.RunStatusRunning,
		CreatedAt: s.now().UTC(),
	}
	if err := s.runRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not create run: %w", err)
	}
	if s.taskRepo != nil {
		if err := s.taskRepo.AddTasks(ctx, run.ID, string(req.Flow), Tasks(req.Flow)); err != nil {
			return nil, fmt.Errorf("could not create run tasks: %w", err)
		}
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID, "flow": req.Flow})
	ctx = logger.SetValuesOnCtx(ctx, log.Kv{"run-id": run.ID})

	a, sandboxID, runErr := s.execute(ctx, logger, run.ID, req, profile, script)

	run.SandboxID = sandboxID
	run.Artifact = a
	run.Status = model.RunStatusSucceeded
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}
	finishedAt := s.now().UTC()
	run.FinishedAt = &finishedAt

	if err := s.runRepo.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Errorf("Could not record run result: %s", err)
	}

	if runErr != nil {
		return &run, runErr
	}

	logger.Infof("Run %s succeeded, artifact: %s (%d bytes)", run.ID, a.LocalPath, a.Bytes)
	return &run, nil
}

func (s *Service) execute(ctx context.Context, logger log.Logger, runID string, req Request, profile flowProfile, script string) (a *model.Artifact, sandboxID string, err error) {
	operation := string(req.Flow)

	var img *model.Image
	err = s.executeTask(ctx, runID, operation, model.TaskBuildImage, func() error {
		logger.Infof("Building/reusing %s image...", req.Flow)
		built, err := s.builder.BuildImage(ctx, profile.imageSpec(req.ImageBase))
		if err != nil {
			return fmt.Errorf("could not build image: %w", err)
		}
		img = built
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	var sb *sandbox.OnceTerminator
	err = s.executeTask(ctx, runID, operation, model.TaskCreateSandbox, func() error {
		logger.Infof("Creating sandbox in app %q with image %q...", req.AppName, img.Ref)
		created, err := s.platform.Create(ctx, *img, model.SandboxOptions{
			AppName:     req.AppName,
			Timeout:     profile.timeout,
			IdleTimeout: profile.idleTimeout,
		})
		if err != nil {
			return fmt.Errorf("could not create sandbox: %w", err)
		}
		sb = sandbox.NewOnceTerminator(created)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), TerminateTimeout)
		defer cancel()
		if err := sb.Terminate(tctx); err != nil {
			logger.Errorf("Could not terminate sandbox %s: %s", sb.ID(), err)
			return
		}
		logger.Infof("Sandbox %s terminated", sb.ID())
	}()
	sandboxID = sb.ID()
	logger.Infof("Sandbox ready: %s", sandboxID)

	exec, err := remote.NewExecutor(remote.ExecutorConfig{Sandbox: sb, Out: s.out, Logger: logger})
	if err != nil {
		return nil, sandboxID, err
	}

	if profile.needsApp {
		err = s.executeTask(ctx, runID, operation, model.TaskBootstrap, func() error {
			_, err := exec.Run(ctx, choreography.Bootstrap(req.RepoURL).String(), 0)
			if err != nil {
				return fmt.Errorf("could not bootstrap sandbox: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, sandboxID, err
		}

		err = s.executeTask(ctx, runID, operation, model.TaskUpload, func() error {
			upload, err := uploadInputs(exec, logger, req.Inputs.APIEnv, req.Inputs.WebEnv, req.Inputs.RunConfigRaw)
			if err != nil {
				return err
			}
			return upload.Provision(ctx)
		})
		if err != nil {
			return nil, sandboxID, err
		}
	}

	err = s.executeTask(ctx, runID, operation, model.TaskChoreography, func() error {
		_, err := exec.Run(ctx, script, profile.scriptTimeout)
		if err == nil {
			return nil
		}

		// Diagnostics are best effort and never replace the choreography error.
		remote.NonFatal(logger, "diagnostics", func() error {
			_, err := exec.Run(context.WithoutCancel(ctx), choreography.Diagnostics().String(), DiagnosticsTimeout)
			return err
		})
		return fmt.Errorf("%s choreography failed: %w", req.Flow, err)
	})
	if err != nil {
		return nil, sandboxID, err
	}

	err = s.executeTask(ctx, runID, operation, model.TaskRetrieveArtifact, func() error {
		retrieved, err := s.retriever.Retrieve(ctx, sb, profile.artifact)
		if err != nil {
			return fmt.Errorf("could not retrieve artifact: %w", err)
		}
		a = retrieved
		return nil
	})
	if err != nil {
		return nil, sandboxID, err
	}

	return a, sandboxID, nil
}

// script renders the flow choreography, failing before anything remote is created.
func (s *Service) script(req Request) (string, error) {
	switch req.Flow {
	case model.FlowVideo:
		return choreography.VideoScript(req.Inputs.RunConfig).String(), nil
	case model.FlowScreenshot:
		js, err := signin.Script(req.Credentials, signin.DefaultTimings)
		if err != nil {
			return "", fmt.Errorf("could not render sign-in script: %w", err)
		}
		return choreography.ScreenshotScript(req.Inputs.RunConfig, js, req.SignInPolicy).String(), nil
	case model.FlowSmoke:
		return choreography.SmokeScript(req.URL).String(), nil
	}
	return "", fmt.Errorf("flow %q can't be run: %w", req.Flow, model.ErrNotValid)
}

// uploadInputs returns the provisioner that writes the app env files and run configuration in
// the sandbox checkout.
func uploadInputs(acc provision.SandboxAccessor, logger log.Logger, apiEnv, webEnv, runConfig string) (provision.Provisioner, error) {
	files := []struct {
		dst     string
		content string
	}{
		{dst: conventions.AppEnvPath("api"), content: apiEnv},
		{dst: conventions.AppEnvPath("web"), content: webEnv},
		{dst: conventions.RemoteRunConfigPath(), content: runConfig},
	}

	ps := make([]provision.Provisioner, 0, len(files))
	for _, f := range files {
		p, err := provision.NewWriteText(provision.WriteTextConfig{
			Accessor:  acc,
			Content:   f.content,
			DstRemote: f.dst,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		ps = append(ps, provision.NewLogProvisioner(f.dst, logger, p))
	}

	return provision.NewProvisionerChain(ps...), nil
}

// executeTask runs fn tracking it as the next pending task of the operation.
func (s *Service) executeTask(ctx context.Context, runID, operation, taskName string, fn func() error) error {
	// If no task repository, just execute the function.
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
