//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// setPlatformProcAttr puts the child in its own process group so a
// terminal Ctrl-C reaches the supervisor only.
func setPlatformProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}
