//go:build unix

package exttool

import (
	"os/exec"
	"syscall"
)

// isolate 子进程独立成组，取消时杀掉整个进程组，解释器派生的子进程一并回收
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
