package choreography

import (
	"fmt"
	"strconv"

	"github.com/kballard/go-shellquote"

	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
)

// SignInPolicy decides how the in-page sign-in result affects the screenshot flow.
type SignInPolicy string

const (
	// SignInPolicyStrict fails the flow when the sign-in program fails, then gates on the URL.
	SignInPolicyStrict SignInPolicy = "strict"
	// SignInPolicyURLOnly ignores the sign-in program result and only gates on the URL.
	SignInPolicyURLOnly SignInPolicy = "url-only"
)

// Valid returns true if the policy is known.
func (p SignInPolicy) Valid() bool {
	return p == SignInPolicyStrict || p == SignInPolicyURLOnly
}

// minTailWaitMs is the minimum wait after scrolling, before stopping the recording.
const minTailWaitMs = 800

// AppEnv wraps app commands so they run in the checkout with the app env files exported.
type AppEnv struct {
	RepoDir  string
	EnvFiles []string
	// Exports are extra `export` statements (e.g. "PIP_BREAK_SYSTEM_PACKAGES=1").
	Exports []string
}

// DefaultAppEnv returns the env of the application under test.
func DefaultAppEnv() AppEnv {
	return AppEnv{
		RepoDir:  conventions.RepoDir,
		EnvFiles: []string{conventions.AppEnvPath("api"), conventions.AppEnvPath("web")},
	}
}

// Wrap returns the script that runs the command inside the app env. A missing env file aborts it.
func (e AppEnv) Wrap(command string) *Script {
	s := NewStrictScript(Raw("set -a"))
	for _, f := range e.EnvFiles {
		s.Add(Cmd("source", f))
	}
	s.Add(Raw("set +a"))
	for _, exp := range e.Exports {
		s.Add(Raw("export " + exp))
	}
	return s.Add(Cmd("cd", e.RepoDir), Raw(command))
}

// Bootstrap returns the idempotent script that clones the app and prepares the log dir.
func Bootstrap(repoURL string) *Script {
	return NewStrictScript(
		Cmd("rm", "-rf", conventions.RepoDir),
		Cmd("git", "clone", "--depth", "1", "--single-branch", repoURL, conventions.RepoDir),
		Cmd("mkdir", "-p", conventions.AppLogDir),
	)
}

// AppBoot returns the statements that set up and start the app in background, then wait until
// both the backend and frontend answer.
func AppBoot(env AppEnv, cfg model.RunConfig, frontendOrigin string) []Statement {
	backend := readiness.CurlProbe(conventions.LocalURL(conventions.BackendPort, "/"))
	frontend := readiness.CurlProbe(frontendOrigin + "/")

	return []Statement{
		env.Wrap(cfg.Setup).Subshell(),
		Background(env.Wrap(cfg.Run).Subshell(), conventions.AppLogFile, conventions.AppPIDFile),
		Raw(readiness.AppPolicy.ShellPoll(backend)),
		Raw(readiness.AppPolicy.ShellPoll(frontend)),
		Raw(readiness.ShellAssert(backend)),
		Raw(readiness.ShellAssert(frontend)),
	}
}

// LaunchBrowser returns the statements that start a detached headless browser with a fresh profile
// and wait for its remote debugging endpoint.
func LaunchBrowser(policy readiness.Policy) []Statement {
	probe := readiness.CurlProbe(conventions.CDPVersionURL())
	chromium := Cmd(
		"chromium",
		"--headless=new",
		"--remote-debugging-address=127.0.0.1",
		"--remote-debugging-port="+strconv.Itoa(conventions.CDPPort),
		"--user-data-dir="+conventions.ChromeProfileDir,
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"about:blank",
	)

	return []Statement{
		Cmd("mkdir", "-p", conventions.ChromeProfileDir),
		Background(chromium, conventions.ChromeLogFile, ""),
		Raw(policy.ShellPoll(probe)),
		Raw(readiness.ShellAssert(probe)),
	}
}

// Recording records a browser session video: open, settle, record, scroll and stop.
type Recording struct {
	Session      Session
	OpenURL      string
	SettleMs     int
	RecordWaitMs int
	ScrollPx     int
	ArtifactPath string
}

// TailWaitMs is the wait after scrolling, half the record wait with a minimum.
func (r Recording) TailWaitMs() int {
	return max(minTailWaitMs, r.RecordWaitMs/2)
}

func (r Recording) Statements() []Statement {
	stmts := []Statement{r.Session.Open(r.OpenURL)}
	if r.SettleMs > 0 {
		stmts = append(stmts, r.Session.Wait(r.SettleMs))
	}
	stmts = append(stmts,
		r.Session.RecordStart(r.ArtifactPath),
		r.Session.Wait(r.RecordWaitMs),
		r.Session.ScrollDown(r.ScrollPx),
		r.Session.Wait(r.TailWaitMs()),
		r.Session.RecordStop(),
	)
	return append(stmts, VerifyArtifact(r.ArtifactPath)...)
}

// HomeScreenshot signs in and takes a full page screenshot of the home page.
type HomeScreenshot struct {
	Session      Session
	SignInURL    string
	HomeURL      string
	SignInJS     string
	Policy       SignInPolicy
	ArtifactPath string
}

const currentURLVar = "CURRENT_URL"

func (h HomeScreenshot) Statements() []Statement {
	eval := h.Session.Eval(h.SignInJS)
	if h.Policy != SignInPolicyStrict {
		eval = Optional(eval)
	}

	gate := fmt.Sprintf(`if [[ "$%s" == *"%s"* ]]; then echo "Sign-in did not complete; still on sign-in page." >&2; exit 1; fi`, currentURLVar, conventions.SignInPath)

	stmts := []Statement{
		h.Session.Open(h.SignInURL),
		h.Session.Wait(1000),
		eval,
		h.Session.Wait(800),
		h.Session.Open(h.HomeURL),
		h.Session.Wait(1200),
		h.Session.CaptureURL(currentURLVar),
		Raw(gate),
		h.Session.FullScreenshot(h.ArtifactPath),
	}
	return append(stmts, VerifyArtifact(h.ArtifactPath)...)
}

// VerifyArtifact fails when the artifact is missing or empty.
func VerifyArtifact(path string) []Statement {
	return []Statement{
		Cmd("test", "-s", path),
		Cmd("ls", "-lh", path),
	}
}

// Diagnostics returns the best effort script that dumps the app and browser logs.
func Diagnostics() *Script {
	logDir := shellquote.Join(conventions.AppLogDir)
	logFile := shellquote.Join(conventions.AppLogFile)
	return NewScript(
		Raw("set +e"),
		Raw("if [ -d "+logDir+" ]; then"),
		Raw("  ls -lah "+logDir+" || true"),
		Raw("  if [ -f "+logFile+" ]; then echo '--- "+conventions.AppLogFile+" ---'; tail -n 300 "+logFile+"; fi"),
		Raw("fi"),
		Raw("echo '--- chrome-cdp.log ---'"),
		Raw("tail -n 200 "+shellquote.Join(conventions.ChromeLogFile)+" || true"),
	)
}

// AppLogTail returns the best effort script that prints the last lines of the app log.
func AppLogTail() *Script {
	return NewScript(Optional(Cmd("tail", "-n", "200", conventions.AppLogFile)))
}
