//go:build !windows

package session

import "syscall"

// sysProcAttr detaches the main instance into its own session so it survives the spawning worker
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
