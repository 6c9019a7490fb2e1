package model

// CommandResult is the captured result of a command executed inside a sandbox.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
