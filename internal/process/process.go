// Package process wraps the OS primitives the restart strategies are built
// from: replacing the current process image, spawning successors, and
// interrupting the host's main execution context.
package process

import (
	"errors"
	"os"
)

var (
	// ErrReplaceUnsupported is returned where exec-style image replacement
	// does not exist (windows).
	ErrReplaceUnsupported = errors.New("in-place process replacement not supported on this platform")
	// ErrInterruptUnsupported is returned where the process cannot deliver
	// an interrupt to itself.
	ErrInterruptUnsupported = errors.New("self-interrupt not supported on this platform")
)

// Invocation captures everything needed to start this program over: the
// runtime binary, the original argument vector (argv[0] included), and a
// copy of the current environment. Environment mutations made before the
// reload trigger are deliberately preserved.
type Invocation struct {
	Bin  string
	Args []string
	Env  []string
}

// CurrentInvocation reconstructs the running process's own invocation.
func CurrentInvocation() Invocation {
	bin, err := os.Executable()
	if err != nil || bin == "" {
		bin = os.Args[0]
	}
	return Invocation{
		Bin:  bin,
		Args: append([]string(nil), os.Args...),
		Env:  os.Environ(),
	}
}

// Exit terminates the process immediately, bypassing deferred cleanup.
func Exit(code int) {
	os.Exit(code)
}
