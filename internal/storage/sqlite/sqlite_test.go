package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
	"github.com/slok/sbxsmoke/internal/storage/sqlite"
)

func runFixture(id string, flow model.Flow, createdAt time.Time) model.Run {
	return model.Run{
		ID:        id,
		Flow:      flow,
		Status:    model.RunStatusRunning,
		SandboxID: "sb-" + id,
		CreatedAt: createdAt.UTC().Truncate(time.Second),
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "nested", "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	now := time.Now()

	run := runFixture("run-1", model.FlowVideo, now)
	require.NoError(t, repo.CreateRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, *got)
	assert.Nil(t, got.Artifact)

	finished := now.Add(time.Minute).UTC().Truncate(time.Second)
	run.Status = model.RunStatusSucceeded
	run.FinishedAt = &finished
	run.Artifact = &model.Artifact{
		Kind:       model.ArtifactKindVideo,
		RemotePath: "/tmp/rlx-cdp.webm",
		LocalPath:  "artifacts/rlx-cdp-x.webm",
		Bytes:      42,
		MIME:       "video/webm",
	}
	require.NoError(t, repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, *got)

	gotBySandbox, err := repo.GetRunBySandbox(ctx, "sb-run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", gotBySandbox.ID)
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	run := runFixture("run-1", model.FlowVideo, time.Now())
	require.NoError(t, repo.CreateRun(ctx, run))

	err := repo.CreateRun(ctx, run)
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	err = repo.CreateRun(ctx, runFixture("run-2", model.Flow("unknown"), time.Now()))
	assert.ErrorIs(t, err, model.ErrNotValid)

	_, err = repo.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.GetRunBySandbox(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.UpdateRun(ctx, runFixture("missing", model.FlowVideo, time.Now()))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryListRuns(t *testing.T) {
	base := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		opts   storage.ListRunsOpts
		expIDs []string
	}{
		"Listing without filters should return all the runs newest first.": {
			opts:   storage.ListRunsOpts{},
			expIDs: []string{"run-4", "run-3", "run-2", "run-1"},
		},
		"Listing by flow should only return the runs of the flow.": {
			opts:   storage.ListRunsOpts{Flow: model.FlowVideo},
			expIDs: []string{"run-3", "run-1"},
		},
		"Listing by status should only return the runs with the status.": {
			opts:   storage.ListRunsOpts{Status: model.RunStatusFailed},
			expIDs: []string{"run-2"},
		},
		"Listing with limit should return the newest runs.": {
			opts:   storage.ListRunsOpts{Limit: 2},
			expIDs: []string{"run-4", "run-3"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			ctx := context.Background()
			repo := newRepo(t)

			runs := []model.Run{
				runFixture("run-1", model.FlowVideo, base),
				runFixture("run-2", model.FlowScreenshot, base.Add(time.Minute)),
				runFixture("run-3", model.FlowVideo, base.Add(2*time.Minute)),
				runFixture("run-4", model.FlowUp, base.Add(3*time.Minute)),
			}
			runs[1].Status = model.RunStatusFailed
			for _, r := range runs {
				require.NoError(repo.CreateRun(ctx, r))
			}

			got, err := repo.ListRuns(ctx, test.opts)
			require.NoError(err)

			ids := []string{}
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(test.expIDs, ids)
		})
	}
}
