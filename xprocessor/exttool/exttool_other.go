//go:build !unix

package exttool

import "os/exec"

// isolate 非 unix 平台没有进程组，取消时只杀主进程
func isolate(_ *exec.Cmd) {}
