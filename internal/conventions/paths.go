package conventions

import (
	"path"
	"path/filepath"
	"strconv"
)

const (
	// DefaultDataDir is the default sbxsmoke data directory name (relative to home).
	DefaultDataDir = ".sbxsmoke"
	// DBFile is the run history database filename inside the data directory.
	DBFile = "sbxsmoke.db"
	// LastUpFile stores the sandbox ID of the last `up` run inside the data directory.
	LastUpFile = "last-up-sandbox"
	// DefaultArtifactDir is the local directory where artifacts are stored.
	DefaultArtifactDir = "artifacts"

	// Remote checkout.

	// RepoDir is where the application under test is cloned inside the sandbox.
	RepoDir = "/workspace/rlx"
	// RunConfigFile is the run configuration filename uploaded next to the checkout.
	RunConfigFile = "codeflix.json"
	// SandboxEnvFile is the env filename of every app inside the checkout.
	SandboxEnvFile = ".env.sandbox"

	// Remote app process.

	// AppLogDir holds the app process logs inside the sandbox.
	AppLogDir = "/tmp/codeflix-logs"
	// AppLogFile is the app process combined output.
	AppLogFile = AppLogDir + "/run.log"
	// AppPIDFile is the app process PID file.
	AppPIDFile = AppLogDir + "/run.pid"

	// Remote browser.

	// CDPPort is the remote debugging port of the headless browser.
	CDPPort = 9222
	// ChromeProfileDir is the fresh browser profile directory.
	ChromeProfileDir = "/tmp/chrome-cdp-profile"
	// ChromeLogFile is the browser process combined output.
	ChromeLogFile = "/tmp/chrome-cdp.log"

	// App pages.

	// SignInPath is the sign-in page, the browser leaves it once signed in.
	SignInPath = "/sign-in"
	// HomePath is the page shown after signing in.
	HomePath = "/home"
	// SettingsPath is the account settings page.
	SettingsPath = "/settings"

	// App ports.

	// BackendPort is the port of the API backend.
	BackendPort = 8000
	// FrontendPort is the port of the web frontend.
	FrontendPort = 3000

	// Remote artifacts.

	// VideoArtifactPath is where the app flow records its video.
	VideoArtifactPath = "/tmp/rlx-cdp.webm"
	// ScreenshotArtifactPath is where the screenshot flow stores the home screenshot.
	ScreenshotArtifactPath = "/tmp/rlx-home.png"
	// SmokeArtifactPath is where the smoke flow records its video.
	SmokeArtifactPath = "/tmp/cdp-smoke.webm"

	// Browser session names.

	SessionVideo      = "modal-rlx-cdp"
	SessionScreenshot = "modal-rlx-home-screenshot"
	SessionSmoke      = "modal-cdp-smoke"

	// Local artifact prefixes.

	PrefixVideo      = "rlx-cdp"
	PrefixScreenshot = "rlx-home"
	PrefixSmoke      = "cdp-smoke"
	PrefixSettings   = "settings"
)

// AppEnvPath returns the path of an app env file inside the remote checkout (e.g. "api", "web").
func AppEnvPath(app string) string {
	return path.Join(RepoDir, "apps", app, SandboxEnvFile)
}

// RemoteRunConfigPath returns the path of the uploaded run configuration.
func RemoteRunConfigPath() string {
	return path.Join(RepoDir, RunConfigFile)
}

// LocalAppEnvPath returns the default local env file path of an app inside a local checkout.
func LocalAppEnvPath(localDir, app string) string {
	return filepath.Join(localDir, "apps", app, SandboxEnvFile)
}

// LocalRunConfigPath returns the default local run configuration path inside a local checkout.
func LocalRunConfigPath(localDir string) string {
	return filepath.Join(localDir, RunConfigFile)
}

// DBPath returns the run history database path.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// LastUpPath returns the path of the file storing the last `up` sandbox ID.
func LastUpPath(dataDir string) string {
	return filepath.Join(dataDir, LastUpFile)
}

// LocalURL returns the in-sandbox loopback URL of a port.
func LocalURL(port int, p string) string {
	return "http://127.0.0.1:" + strconv.Itoa(port) + p
}

// CDPVersionURL returns the in-sandbox browser debug endpoint probe URL.
func CDPVersionURL() string {
	return LocalURL(CDPPort, "/json/version")
}
