//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

const (
	createNewProcessGroup = 0x00000200
	detachedProcess       = 0x00000008
)

// Replace is unavailable: Windows has no exec-style image replacement.
// Callers fall back to a spawn-based strategy, which is also why the
// default reload mode differs per platform.
func Replace(inv Invocation) error {
	return ErrReplaceUnsupported
}

func SpawnDetached(inv Invocation) (*os.Process, error) {
	cmd := command(inv)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup | detachedProcess,
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Process, nil
}

func SpawnWait(inv Invocation) (int, error) {
	cmd := command(inv)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return waitCode(cmd)
}

// SpawnWaitPTY falls back to a plain console spawn; there is no pty here.
func SpawnWaitPTY(inv Invocation) (int, error) {
	return SpawnWait(inv)
}

// InterruptSelf has no reliable self-delivery on Windows; callers treat the
// error as best-effort and proceed with the restart.
func InterruptSelf() error {
	return ErrInterruptUnsupported
}

func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil || process == nil {
		return false
	}
	return true
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
