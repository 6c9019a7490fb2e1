package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
)

// CommandFailedError is returned when a remote command finishes with a non-zero exit code.
type CommandFailedError struct {
	ExitCode int
	Phase    string
}

func (e *CommandFailedError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s failed with exit code %d", e.Phase, e.ExitCode)
	}
	return fmt.Sprintf("sandbox command failed with exit code %d", e.ExitCode)
}

// ExitCodeFromError returns the remote exit code if the error chain contains a CommandFailedError.
func ExitCodeFromError(err error) (int, bool) {
	var cmdErr *CommandFailedError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode, true
	}
	return 0, false
}
