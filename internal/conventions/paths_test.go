package conventions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/sbxsmoke/internal/conventions"
)

func TestRemotePaths(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("/workspace/rlx/apps/api/.env.sandbox", conventions.AppEnvPath("api"))
	assert.Equal("/workspace/rlx/apps/web/.env.sandbox", conventions.AppEnvPath("web"))
	assert.Equal("/workspace/rlx/codeflix.json", conventions.RemoteRunConfigPath())
	assert.Equal("/tmp/codeflix-logs/run.log", conventions.AppLogFile)
	assert.Equal("http://127.0.0.1:9222/json/version", conventions.CDPVersionURL())
	assert.Equal("http://127.0.0.1:8000/", conventions.LocalURL(conventions.BackendPort, "/"))
}

func TestLocalPaths(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("/src/rlx/apps/api/.env.sandbox", conventions.LocalAppEnvPath("/src/rlx", "api"))
	assert.Equal("/src/rlx/codeflix.json", conventions.LocalRunConfigPath("/src/rlx"))
	assert.Equal("/home/u/.sbxsmoke/sbxsmoke.db", conventions.DBPath("/home/u/.sbxsmoke"))
}
