package choreography

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Statement is a shell statement of a script.
type Statement interface {
	Render() string
}

// Raw is a statement rendered as is, it's not quoted.
type Raw string

func (r Raw) Render() string { return string(r) }

// Command is a statement whose arguments are shell quoted.
type Command []string

// Cmd returns a new command statement.
func Cmd(args ...string) Command { return Command(args) }

func (c Command) Render() string { return shellquote.Join(c...) }

type optional struct{ s Statement }

// Optional makes a statement non fatal under strict mode.
func Optional(s Statement) Statement { return optional{s: s} }

func (o optional) Render() string { return o.s.Render() + " || true" }

type background struct {
	s       Statement
	logFile string
	pidFile string
}

// Background detaches a statement, its combined output goes to logFile and its PID to pidFile (if any).
func Background(s Statement, logFile, pidFile string) Statement {
	return background{s: s, logFile: logFile, pidFile: pidFile}
}

func (b background) Render() string {
	r := b.s.Render() + " >" + b.logFile + " 2>&1 &"
	if b.pidFile != "" {
		r += " echo $! >" + b.pidFile
	}
	return r
}

// Script is an ordered list of statements joined only when rendered.
type Script struct {
	statements []Statement
}

// NewScript returns a new script.
func NewScript(statements ...Statement) *Script {
	return &Script{statements: statements}
}

// NewStrictScript returns a new script that aborts on the first failed statement.
func NewStrictScript(statements ...Statement) *Script {
	return NewScript(append([]Statement{Raw("set -euo pipefail")}, statements...)...)
}

// Add appends statements to the script.
func (s *Script) Add(statements ...Statement) *Script {
	s.statements = append(s.statements, statements...)
	return s
}

// Statements returns the statements of the script.
func (s *Script) Statements() []Statement {
	return append([]Statement{}, s.statements...)
}

// String renders the script, one statement per line.
func (s *Script) String() string {
	lines := make([]string, 0, len(s.statements))
	for _, st := range s.statements {
		lines = append(lines, st.Render())
	}
	return strings.Join(lines, "\n")
}

// Subshell returns the statement that runs the script in a new login shell.
func (s *Script) Subshell() Command {
	return Cmd("bash", "-lc", s.String())
}
