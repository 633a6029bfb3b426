//go:build !windows

package child

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the child in its own process group so signals
// reach anything it spawns, without a terminal's Ctrl-C hitting it twice.
func configureProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func signalGroup(cmd *exec.Cmd, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return cmd.Process.Signal(sig)
	}
	if err := syscall.Kill(-cmd.Process.Pid, s); err != nil {
		return fmt.Errorf("failed to send %v to process group: %w", sig, err)
	}
	return nil
}

func signalStop(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGTERM)
}

func signalKill(cmd *exec.Cmd) error {
	return signalGroup(cmd, syscall.SIGKILL)
}
