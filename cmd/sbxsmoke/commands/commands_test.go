package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/model"
	storageio "github.com/slok/sbxsmoke/internal/storage/io"
)

func TestAppInputFlagsPaths(t *testing.T) {
	tests := map[string]struct {
		flags    appInputFlags
		expPaths storageio.InputPaths
	}{
		"Without explicit paths, the local dir defaults should be used": {
			flags: appInputFlags{localDir: "/src/rlx"},
			expPaths: storageio.InputPaths{
				APIEnv:    "/src/rlx/apps/api/.env.sandbox",
				WebEnv:    "/src/rlx/apps/web/.env.sandbox",
				RunConfig: "/src/rlx/codeflix.json",
			},
		},
		"Explicit paths should win over the local dir defaults": {
			flags: appInputFlags{
				localDir:      "/src/rlx",
				apiEnvPath:    "/tmp/api.env",
				runConfigPath: "/tmp/run.yaml",
			},
			expPaths: storageio.InputPaths{
				APIEnv:    "/tmp/api.env",
				WebEnv:    "/src/rlx/apps/web/.env.sandbox",
				RunConfig: "/tmp/run.yaml",
			},
		},
		"Blank explicit paths should be ignored": {
			flags: appInputFlags{localDir: "/src/rlx", webEnvPath: "  "},
			expPaths: storageio.InputPaths{
				APIEnv:    "/src/rlx/apps/api/.env.sandbox",
				WebEnv:    "/src/rlx/apps/web/.env.sandbox",
				RunConfig: "/src/rlx/codeflix.json",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			paths, err := test.flags.paths()
			require.NoError(err)
			assert.Equal(test.expPaths, paths)
			assert.Equal("src/rlx/codeflix.json", rootFSPath("/src/rlx/codeflix.json"))
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SBXSMOKE_TEST_EMPTY", " ")
	t.Setenv("SBXSMOKE_TEST_SET", "value")

	assert.Equal(t, "fallback", envOr("fallback"))
	assert.Equal(t, "fallback", envOr("fallback", "SBXSMOKE_TEST_EMPTY", "SBXSMOKE_TEST_MISSING"))
	assert.Equal(t, "value", envOr("fallback", "SBXSMOKE_TEST_EMPTY", "SBXSMOKE_TEST_SET"))
}

func TestCheckInputs(t *testing.T) {
	tests := map[string]struct {
		files       map[string]string
		expStatuses map[string]model.CheckStatus
	}{
		"Valid inputs should pass every check": {
			files: map[string]string{
				"api.env":  "DATABASE_URL=postgres://db\n",
				"web.env":  "# empty\n",
				"run.json": `{"setup": "pnpm install", "run": "pnpm dev"}`,
			},
			expStatuses: map[string]model.CheckStatus{
				"api_env":    model.CheckStatusOK,
				"web_env":    model.CheckStatusOK,
				"run_config": model.CheckStatusOK,
			},
		},
		"Missing files should fail their checks": {
			files: map[string]string{
				"api.env": "A=1\n",
			},
			expStatuses: map[string]model.CheckStatus{
				"api_env":    model.CheckStatusOK,
				"web_env":    model.CheckStatusError,
				"run_config": model.CheckStatusError,
			},
		},
		"An env file that is not valid dotenv should only warn": {
			files: map[string]string{
				"api.env":  "A=\"unterminated\n",
				"web.env":  "B=2\n",
				"run.json": `{"setup": "pnpm install", "run": "pnpm dev"}`,
			},
			expStatuses: map[string]model.CheckStatus{
				"api_env":    model.CheckStatusWarning,
				"web_env":    model.CheckStatusOK,
				"run_config": model.CheckStatusOK,
			},
		},
		"A run config without run command should fail": {
			files: map[string]string{
				"api.env":  "A=1\n",
				"web.env":  "B=2\n",
				"run.json": `{"setup": "pnpm install"}`,
			},
			expStatuses: map[string]model.CheckStatus{
				"api_env":    model.CheckStatusOK,
				"web_env":    model.CheckStatusOK,
				"run_config": model.CheckStatusError,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dir := t.TempDir()
			for f, content := range test.files {
				require.NoError(os.WriteFile(filepath.Join(dir, f), []byte(content), 0o644))
			}

			results := checkInputs(context.Background(), storageio.InputPaths{
				APIEnv:    filepath.Join(dir, "api.env"),
				WebEnv:    filepath.Join(dir, "web.env"),
				RunConfig: filepath.Join(dir, "run.json"),
			})

			gotStatuses := map[string]model.CheckStatus{}
			for _, r := range results {
				gotStatuses[r.ID] = r.Status
			}
			assert.Equal(test.expStatuses, gotStatuses)
		})
	}
}

func TestCheckSignIn(t *testing.T) {
	tests := map[string]struct {
		creds       model.Credentials
		expStatuses map[string]model.CheckStatus
	}{
		"With credentials the checks should pass": {
			creds: model.NewCredentials("qa@example.com", ""),
			expStatuses: map[string]model.CheckStatus{
				"test_email":    model.CheckStatusOK,
				"signin_script": model.CheckStatusOK,
			},
		},
		"Without email it should warn and still check the program": {
			creds: model.NewCredentials("", ""),
			expStatuses: map[string]model.CheckStatus{
				"test_email":    model.CheckStatusWarning,
				"signin_script": model.CheckStatusOK,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			gotStatuses := map[string]model.CheckStatus{}
			for _, r := range checkSignIn(test.creds) {
				gotStatuses[r.ID] = r.Status
			}
			assert.Equal(t, test.expStatuses, gotStatuses)
		})
	}
}
