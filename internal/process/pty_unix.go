//go:build !windows

package process

import (
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// SpawnWaitPTY behaves like SpawnWait but runs the successor under a
// pseudo-terminal, so interactive children keep terminal semantics even
// though the host still owns the real one. Output is relayed to the host's
// stdout; the host's stdin is relayed to the child.
func SpawnWaitPTY(inv Invocation) (int, error) {
	var args []string
	if len(inv.Args) > 1 {
		args = inv.Args[1:]
	}
	cmd := exec.Command(inv.Bin, args...)
	if len(inv.Args) > 0 {
		cmd.Args = append([]string(nil), inv.Args...)
	}
	cmd.Env = inv.Env
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return 0, err
	}
	defer ptmx.Close()

	_ = pty.InheritSize(os.Stdin, ptmx)

	go func() {
		_, _ = io.Copy(ptmx, os.Stdin)
	}()
	go func() {
		_, _ = io.Copy(os.Stdout, ptmx)
	}()

	return waitCode(cmd)
}
