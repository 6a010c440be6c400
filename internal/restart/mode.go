package restart

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalidMode is returned for unrecognized mode strings.
var ErrInvalidMode = errors.New("invalid reload mode")

// Mode selects the restart strategy. The set is closed: construction
// validates the value, so dispatch never needs a fallback branch.
type Mode int

const (
	// ModeExec replaces the current process image in place. Cheapest, but
	// unavailable on Windows and unsafe where a listening socket cannot be
	// rebound across an exec.
	ModeExec Mode = iota
	// ModeSpawnExit starts a detached successor and exits the host.
	ModeSpawnExit
	// ModeSpawnWait interrupts the host, starts a successor sharing the
	// terminal, and waits for it before exiting with its status.
	ModeSpawnWait
)

const (
	modeExecName      = "exec"
	modeSpawnExitName = "spawn_exit"
	modeSpawnWaitName = "spawn_wait"
)

func (m Mode) String() string {
	switch m {
	case ModeExec:
		return modeExecName
	case ModeSpawnExit:
		return modeSpawnExitName
	case ModeSpawnWait:
		return modeSpawnWaitName
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) valid() bool {
	switch m {
	case ModeExec, ModeSpawnExit, ModeSpawnWait:
		return true
	}
	return false
}

// ParseMode maps a configuration string to a Mode. Unknown values are
// rejected here, at configuration time, never silently defaulted.
func ParseMode(value string) (Mode, error) {
	switch value {
	case modeExecName:
		return ModeExec, nil
	case modeSpawnExitName:
		return ModeSpawnExit, nil
	case modeSpawnWaitName:
		return ModeSpawnWait, nil
	case "":
		return DefaultMode(), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, value)
}

// DefaultMode is spawn_wait on Windows, where in-place replacement does not
// exist, and exec elsewhere.
func DefaultMode() Mode {
	if runtime.GOOS == "windows" {
		return ModeSpawnWait
	}
	return ModeExec
}
