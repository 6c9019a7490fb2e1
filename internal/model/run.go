package model

import (
	"fmt"
	"time"
)

// Flow is the kind of end to end scenario a run executes.
type Flow string

const (
	// FlowVideo boots the app and records a browser session video.
	FlowVideo Flow = "video"
	// FlowScreenshot boots the app, signs in and takes a full page screenshot of the home page.
	FlowScreenshot Flow = "screenshot"
	// FlowSmoke records a browser session against a public URL without any app.
	FlowSmoke Flow = "smoke"
	// FlowUp boots the app and leaves the sandbox running.
	FlowUp Flow = "up"
)

// Valid returns true if the flow is a known one.
func (f Flow) Valid() bool {
	switch f {
	case FlowVideo, FlowScreenshot, FlowSmoke, FlowUp:
		return true
	}
	return false
}

// ParseFlow returns the flow from its name.
func ParseFlow(s string) (Flow, error) {
	f := Flow(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown flow %q: %w", s, ErrNotValid)
	}
	return f, nil
}

// RunStatus represents the status of a run.
type RunStatus string

const (
	// RunStatusRunning indicates the run is in progress (or the sandbox was left running by `up`).
	RunStatusRunning RunStatus = "running"
	// RunStatusSucceeded indicates the run finished and produced its artifact.
	RunStatusSucceeded RunStatus = "succeeded"
	// RunStatusFailed indicates the run failed.
	RunStatusFailed RunStatus = "failed"
	// RunStatusStopped indicates a running sandbox was stopped.
	RunStatusStopped RunStatus = "stopped"
)

// Run is the history record of a harness execution.
type Run struct {
	ID         string
	Flow       Flow
	Status     RunStatus
	SandboxID  string
	Artifact   *Artifact
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}
