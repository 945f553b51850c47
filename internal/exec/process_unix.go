//go:build unix

package exec

import (
	"os/exec"
	"syscall"
)

// prepareCommand sets the SysProcAttr for the command to create a new
// process group — grounded on mvdan-sh interp/handler_unix.go.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
