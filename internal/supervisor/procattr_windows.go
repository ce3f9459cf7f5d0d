//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

const createNewProcessGroup = 0x00000200

func setPlatformProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNewProcessGroup,
	}
}
