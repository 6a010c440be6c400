//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Replace swaps the current process image for a fresh invocation. On success
// it never returns; the PID lives on running the new image. All inherited
// resources except standard streams, argv and env are torn down by the
// kernel's exec semantics.
func Replace(inv Invocation) error {
	bin, err := exec.LookPath(inv.Bin)
	if err != nil {
		return err
	}
	return syscall.Exec(bin, inv.Args, inv.Env)
}

// SpawnDetached starts a successor in its own session so it survives the
// host's exit. The child's stdio is inherited; it is not waited on.
func SpawnDetached(inv Invocation) (*os.Process, error) {
	cmd := command(inv)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Process, nil
}

// SpawnWait starts a successor sharing the host's terminal and blocks until
// it exits, returning the child's exit code.
func SpawnWait(inv Invocation) (int, error) {
	cmd := command(inv)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return waitCode(cmd)
}

// InterruptSelf delivers SIGINT to the process so the main goroutine can
// unwind through its usual signal handling.
func InterruptSelf() error {
	return syscall.Kill(os.Getpid(), syscall.SIGINT)
}

// Alive reports whether a process with the given pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func command(inv Invocation) *exec.Cmd {
	var args []string
	if len(inv.Args) > 1 {
		args = inv.Args[1:]
	}
	cmd := exec.Command(inv.Bin, args...)
	if len(inv.Args) > 0 {
		cmd.Args = append([]string(nil), inv.Args...)
	}
	cmd.Env = inv.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

func waitCode(cmd *exec.Cmd) (int, error) {
	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
