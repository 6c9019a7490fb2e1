package commands

import (
	"context"
	"fmt"

	"github.com/slok/sbxsmoke/internal/app/run"
	"github.com/slok/sbxsmoke/internal/conventions"
)

// runFlow runs a flow against the Docker platform recording it in the run history.
func runFlow(ctx context.Context, root *RootCommand, artifactDir string, req run.Request) error {
	logger := root.Logger

	platform, err := root.platform()
	if err != nil {
		return err
	}

	repo, taskRepo, err := root.repositories(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := run.NewService(run.ServiceConfig{
		Platform:       platform,
		RunRepository:  repo,
		TaskRepository: taskRepo,
		ArtifactDir:    orDefault(artifactDir, conventions.DefaultArtifactDir),
		Out:            root.Stdout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	req.AppName = root.AppName
	req.ImageBase = root.ImageBase
	r, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(root.Stdout, "Saved artifact: %s (%d bytes)\n", r.Artifact.LocalPath, r.Artifact.Bytes)
	return nil
}
