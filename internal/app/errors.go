package app

import (
	"errors"
	"fmt"
)

// Phase names the startup step that failed.
type Phase string

const (
	PhaseLoadVertex      Phase = "load-vertex"
	PhaseLoadFragment    Phase = "load-fragment"
	PhaseLink            Phase = "link"
	PhaseCompileVertex   Phase = "compile-vertex"
	PhaseCompileFragment Phase = "compile-fragment"
)

// Process exit codes. Each startup phase has its own so the failing step can
// be read from the exit status alone.
const (
	ExitOK              = 0
	ExitLoadVertex      = 1
	ExitLoadFragment    = 2
	ExitLink            = 3
	ExitCompileVertex   = 4
	ExitCompileFragment = 5
	ExitFailure         = 70
)

// ExitCode returns the process exit code for phase.
func (p Phase) ExitCode() int {
	switch p {
	case PhaseLoadVertex:
		return ExitLoadVertex
	case PhaseLoadFragment:
		return ExitLoadFragment
	case PhaseLink:
		return ExitLink
	case PhaseCompileVertex:
		return ExitCompileVertex
	case PhaseCompileFragment:
		return ExitCompileFragment
	default:
		return ExitFailure
	}
}

// StartupError is a fatal failure while building the shader program.
type StartupError struct {
	Phase Phase
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit code: the phase code for a
// StartupError, ExitFailure for anything else, ExitOK for nil.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var se *StartupError
	if errors.As(err, &se) {
		return se.Phase.ExitCode()
	}
	return ExitFailure
}
