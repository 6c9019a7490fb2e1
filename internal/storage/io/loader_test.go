package io

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/model"
)

func TestInputsRepository_GetInputs(t *testing.T) {
	const runConfigDoc = `{"setup": "make setup", "run": "make run", "open_url": "http://127.0.0.1:3000/home", "recordWaitMs": "2000"}`
	paths := InputPaths{
		APIEnv:    "rlx/apps/api/.env.sandbox",
		WebEnv:    "rlx/apps/web/.env.sandbox",
		RunConfig: "rlx/codeflix.json",
	}

	tests := map[string]struct {
		fs        fstest.MapFS
		expInputs *Inputs
		expErr    bool
		expErrIs  error
	}{
		"Valid inputs should load successfully.": {
			fs: fstest.MapFS{
				"rlx/apps/api/.env.sandbox": &fstest.MapFile{Data: []byte("DATABASE_URL=sqlite:///tmp/db\n")},
				"rlx/apps/web/.env.sandbox": &fstest.MapFile{Data: []byte("API_BASE_URL=http://127.0.0.1:8000\n")},
				"rlx/codeflix.json":         &fstest.MapFile{Data: []byte(runConfigDoc)},
			},
			expInputs: &Inputs{
				APIEnv:       "DATABASE_URL=sqlite:///tmp/db\n",
				WebEnv:       "API_BASE_URL=http://127.0.0.1:8000\n",
				RunConfigRaw: runConfigDoc,
				RunConfig: model.RunConfig{
					Setup:        "make setup",
					Run:          "make run",
					OpenURL:      "http://127.0.0.1:3000/home",
					RecordWaitMs: 2000,
					ScrollPx:     500,
				},
			},
		},

		"A missing env file should fail.": {
			fs: fstest.MapFS{
				"rlx/apps/api/.env.sandbox": &fstest.MapFile{Data: []byte("A=1\n")},
				"rlx/codeflix.json":         &fstest.MapFile{Data: []byte(`{"setup": "true", "run": "true"}`)},
			},
			expErr:   true,
			expErrIs: fs.ErrNotExist,
		},

		"A run config without run command should fail.": {
			fs: fstest.MapFS{
				"rlx/apps/api/.env.sandbox": &fstest.MapFile{Data: []byte("A=1\n")},
				"rlx/apps/web/.env.sandbox": &fstest.MapFile{Data: []byte("B=1\n")},
				"rlx/codeflix.json":         &fstest.MapFile{Data: []byte(`{"setup": "true"}`)},
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"Env files only valid for bash should be loaded raw.": {
			fs: fstest.MapFS{
				"rlx/apps/api/.env.sandbox": &fstest.MapFile{Data: []byte("export PATH=\"$HOME/bin:$PATH\"\nA=\"unterminated\n")},
				"rlx/apps/web/.env.sandbox": &fstest.MapFile{Data: []byte("B=1\n")},
				"rlx/codeflix.json":         &fstest.MapFile{Data: []byte(`{"setup": "true", "run": "true"}`)},
			},
			expInputs: &Inputs{
				APIEnv:       "export PATH=\"$HOME/bin:$PATH\"\nA=\"unterminated\n",
				WebEnv:       "B=1\n",
				RunConfigRaw: `{"setup": "true", "run": "true"}`,
				RunConfig: model.RunConfig{
					Setup:        "true",
					Run:          "true",
					OpenURL:      model.DefaultOpenURL,
					RecordWaitMs: model.DefaultRecordWaitMs,
					ScrollPx:     model.DefaultScrollPx,
				},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := NewInputsRepository(test.fs)
			got, err := repo.GetInputs(context.Background(), paths)

			if test.expErr {
				require.Error(err)
				if test.expErrIs != nil {
					assert.ErrorIs(err, test.expErrIs)
				}
				return
			}
			require.NoError(err)
			assert.Equal(test.expInputs, got)
		})
	}
}

func TestInputsRepository_GetRunConfig(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	repo := NewInputsRepository(fstest.MapFS{
		"codeflix.yaml": &fstest.MapFile{Data: []byte("setup: 'true'\nrun: 'true'\nscroll_px: -3\n")},
	})

	cfg, err := repo.GetRunConfig(context.Background(), "codeflix.yaml")
	require.NoError(err)
	assert.Equal(model.DefaultScrollPx, cfg.ScrollPx)
	assert.Equal(model.DefaultRecordWaitMs, cfg.RecordWaitMs)

	_, err = repo.GetRunConfig(context.Background(), "missing.json")
	assert.ErrorIs(err, fs.ErrNotExist)
}
