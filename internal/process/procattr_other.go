//go:build !unix

package process

import "syscall"

func childProcAttr() *syscall.SysProcAttr {
	return nil
}
