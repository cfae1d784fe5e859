//go:build unix

package process

import "syscall"

// childProcAttr puts the child in a new process group.
func childProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
