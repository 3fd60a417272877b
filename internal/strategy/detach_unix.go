//go:build unix

package strategy

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own session so it survives the parent's
// terminal and process group.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
