package choreography

import (
	"strconv"
)

// Session drives a named browser session attached to the remote debugging port.
type Session struct {
	Name    string
	CDPPort int
}

func (s Session) cmd(args ...string) Command {
	base := []string{"agent-browser", "--session", s.Name, "--cdp", strconv.Itoa(s.CDPPort)}
	return Cmd(append(base, args...)...)
}

// Version prints the browser CLI version.
func (s Session) Version() Statement { return Cmd("agent-browser", "--version") }

func (s Session) Open(url string) Statement { return s.cmd("open", url) }

func (s Session) Wait(ms int) Statement { return s.cmd("wait", strconv.Itoa(ms)) }

// ScrollDown scrolls the page, pages without room to scroll make it fail so it's never fatal.
func (s Session) ScrollDown(px int) Statement { return Optional(s.cmd("scroll", "down", strconv.Itoa(px))) }

func (s Session) Eval(js string) Statement { return s.cmd("eval", js) }

func (s Session) RecordStart(path string) Statement { return s.cmd("record", "start", path) }

func (s Session) RecordStop() Statement { return s.cmd("record", "stop") }

// FullScreenshot takes a full page screenshot.
func (s Session) FullScreenshot(path string) Statement {
	base := []string{"agent-browser", "--session", s.Name, "--cdp", strconv.Itoa(s.CDPPort), "--full", "screenshot", path}
	return Cmd(base...)
}

// CaptureURL stores the current page URL in a shell variable.
func (s Session) CaptureURL(variable string) Statement {
	return Raw(variable + "=$(" + s.cmd("get", "url").Render() + ` | tr -d '\r')`)
}
