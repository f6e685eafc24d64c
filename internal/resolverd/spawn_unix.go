//go:build unix

package resolverd

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in a new session so terminal signals sent to the
// caller's process group do not reach the server.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
